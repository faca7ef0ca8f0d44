package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"reflection_sync_backend/internal/config"
	"reflection_sync_backend/internal/model"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrStateNotFound 班级在远端还没有快照，不算错误，由调用方引导默认状态
var ErrStateNotFound = errors.New("classroom state not found")

// TransportError 网络或远端不可达，同步编排层捕获后降级为离线状态
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError 判断是否应降级为离线而不是当作缺失处理
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RemoteStore 远端快照存储的统一接口
// 没有条件写，谁后调 Push 谁赢；上层不得假设读-改-写是原子的
type RemoteStore interface {
	Fetch(ctx context.Context, classroomID string) (*model.ClassroomState, error)
	Push(ctx context.Context, classroomID string, state *model.ClassroomState) error
}

// NewRemoteStore 按配置选择远端实现
func NewRemoteStore(cfg *config.RemoteConfig) (RemoteStore, error) {
	switch cfg.Type {
	case "minio":
		return NewMinioRemoteProvider(cfg)
	case "oss":
		return NewOSSRemoteProvider(cfg)
	default:
		return NewKVRemoteProvider(cfg), nil
	}
}

// decodeState 远端返回的畸形JSON按缺失处理，不往上抛
func decodeState(raw []byte) (*model.ClassroomState, error) {
	var state model.ClassroomState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, ErrStateNotFound
	}
	return &state, nil
}

// KVRemoteProvider 公共KV存储实现：GET/POST {base}/{classroomId}，整体快照传输
type KVRemoteProvider struct {
	BaseURL string
	Client  *http.Client
}

func NewKVRemoteProvider(cfg *config.RemoteConfig) *KVRemoteProvider {
	return &KVRemoteProvider{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

func (p *KVRemoteProvider) url(classroomID string) string {
	return p.BaseURL + "/" + classroomID
}

func (p *KVRemoteProvider) Fetch(ctx context.Context, classroomID string) (*model.ClassroomState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(classroomID), nil)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, ErrStateNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: "fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	return decodeState(raw)
}

func (p *KVRemoteProvider) Push(ctx context.Context, classroomID string, state *model.ClassroomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url(classroomID), bytes.NewReader(raw))
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: "push", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

// MinioRemoteProvider MinIO实现：每个班级一个对象
type MinioRemoteProvider struct {
	Client *minio.Client
	Bucket string
}

func NewMinioRemoteProvider(cfg *config.RemoteConfig) (*MinioRemoteProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioRemoteProvider{Client: client, Bucket: cfg.MinioBucket}, nil
}

func objectKey(classroomID string) string {
	return classroomID + ".json"
}

func (p *MinioRemoteProvider) Fetch(ctx context.Context, classroomID string) (*model.ClassroomState, error) {
	obj, err := p.Client.GetObject(ctx, p.Bucket, objectKey(classroomID), minio.GetObjectOptions{})
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, ErrStateNotFound
		}
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	return decodeState(raw)
}

func (p *MinioRemoteProvider) Push(ctx context.Context, classroomID string, state *model.ClassroomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = p.Client.PutObject(ctx, p.Bucket, objectKey(classroomID), bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	return nil
}

// OSSRemoteProvider 阿里云OSS实现
type OSSRemoteProvider struct {
	Client *oss.Client
	Bucket string
}

func NewOSSRemoteProvider(cfg *config.RemoteConfig) (*OSSRemoteProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSRemoteProvider{Client: client, Bucket: cfg.OSSBucket}, nil
}

func (p *OSSRemoteProvider) Fetch(ctx context.Context, classroomID string) (*model.ClassroomState, error) {
	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}

	body, err := bucket.GetObject(objectKey(classroomID))
	if err != nil {
		var serr oss.ServiceError
		if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
			return nil, ErrStateNotFound
		}
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	return decodeState(raw)
}

func (p *OSSRemoteProvider) Push(ctx context.Context, classroomID string, state *model.ClassroomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	if err := bucket.PutObject(objectKey(classroomID), bytes.NewReader(raw)); err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	return nil
}
