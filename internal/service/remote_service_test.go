package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"reflection_sync_backend/internal/config"
	"reflection_sync_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvTestServer 模拟公共KV存储：GET/POST /{classroomId}
func kvTestServer(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	var store sync.Map

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		switch r.Method {
		case http.MethodGet:
			raw, ok := store.Load(key)
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(raw.([]byte))
		case http.MethodPost:
			buf, _ := io.ReadAll(r.Body)
			store.Store(key, buf)
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &store
}

func newKVProvider(baseURL string) *KVRemoteProvider {
	return NewKVRemoteProvider(&config.RemoteConfig{BaseURL: baseURL, TimeoutSeconds: 2})
}

func TestKVProviderFetchMissingClassroom(t *testing.T) {
	srv, _ := kvTestServer(t)
	p := newKVProvider(srv.URL)

	_, err := p.Fetch(context.Background(), "KLAS-0000")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestKVProviderPushThenFetch(t *testing.T) {
	srv, _ := kvTestServer(t)
	p := newKVProvider(srv.URL)

	in := &model.ClassroomState{
		Goals:       []model.LearningGoal{{ID: "g1", Subject: model.SubjectMath, Title: "Breuken"}},
		Users:       []model.User{{ID: "u1", Name: "Sanne"}},
		LastUpdated: 1234,
	}
	require.NoError(t, p.Push(context.Background(), "KLAS-1234", in))

	out, err := p.Fetch(context.Background(), "KLAS-1234")
	require.NoError(t, err)
	assert.Equal(t, in.LastUpdated, out.LastUpdated)
	require.Len(t, out.Goals, 1)
	assert.Equal(t, "Breuken", out.Goals[0].Title)
	require.Len(t, out.Users, 1)
}

func TestKVProviderWireFormat(t *testing.T) {
	srv, store := kvTestServer(t)
	p := newKVProvider(srv.URL)

	require.NoError(t, p.Push(context.Background(), "KLAS-1234", &model.ClassroomState{LastUpdated: 7}))

	raw, ok := store.Load("/KLAS-1234")
	require.True(t, ok)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw.([]byte), &doc))
	assert.Contains(t, doc, "goals")
	assert.Contains(t, doc, "users")
	assert.Contains(t, doc, "lastUpdated")
}

func TestKVProviderMalformedBodyTreatedAsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("niet json {"))
	}))
	t.Cleanup(srv.Close)

	_, err := newKVProvider(srv.URL).Fetch(context.Background(), "KLAS-1234")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestKVProviderServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	p := newKVProvider(srv.URL)

	_, err := p.Fetch(context.Background(), "KLAS-1234")
	assert.True(t, IsTransportError(err))

	err = p.Push(context.Background(), "KLAS-1234", &model.ClassroomState{})
	assert.True(t, IsTransportError(err))
}

func TestKVProviderUnreachableHostIsTransport(t *testing.T) {
	p := newKVProvider("http://127.0.0.1:1")

	_, err := p.Fetch(context.Background(), "KLAS-1234")
	assert.True(t, IsTransportError(err))
}

func TestNewRemoteStoreDefaultsToKV(t *testing.T) {
	store, err := NewRemoteStore(&config.RemoteConfig{Type: "kv", BaseURL: "http://example.invalid"})
	require.NoError(t, err)
	assert.IsType(t, &KVRemoteProvider{}, store)
}
