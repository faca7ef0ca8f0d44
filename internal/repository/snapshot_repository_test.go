package repository

import (
	"testing"
	"time"

	"reflection_sync_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReadMiss(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))

	_, err := repo.Read("KLAS-1234")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSnapshotWriteReadRoundtrip(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))

	state := &model.ClassroomState{
		Goals: []model.LearningGoal{{
			ID: "g1", Subject: model.SubjectMath, Title: "Breuken",
			Reflections: []model.ReflectionEntry{{ID: "100-u1", UserID: "u1", Timestamp: 100, Content: "tekst", MasteryLevel: 3}},
		}},
		Users:       []model.User{{ID: "u1", Name: "Sanne"}},
		LastUpdated: 100,
	}
	require.NoError(t, repo.Write("KLAS-1234", state))

	got, err := repo.Read("KLAS-1234")
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestSnapshotWriteOverwrites(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))

	require.NoError(t, repo.Write("KLAS-1234", &model.ClassroomState{LastUpdated: 1}))
	require.NoError(t, repo.Write("KLAS-1234", &model.ClassroomState{LastUpdated: 2}))

	got, err := repo.Read("KLAS-1234")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.LastUpdated)
}

func TestSnapshotCorruptPayloadIsAMiss(t *testing.T) {
	db := newTestDB(t)
	repo := NewSnapshotRepository(db)

	row := model.CachedSnapshot{ClassroomID: "KLAS-1234", Payload: "kapot {", UpdatedAt: time.Now()}
	require.NoError(t, db.Create(&row).Error)

	_, err := repo.Read("KLAS-1234")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
