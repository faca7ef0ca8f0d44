package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/internal/repository"
	"reflection_sync_backend/pkg/logger"
	"reflection_sync_backend/pkg/monitoring"
	"reflection_sync_backend/pkg/tracing"

	"go.uber.org/zap"
)

// SyncStatus 同步状态，仅供界面提示，不参与正确性保证
type SyncStatus string

const (
	StatusConnected SyncStatus = "CONNECTED"
	StatusSyncing   SyncStatus = "SYNCING"
	StatusOffline   SyncStatus = "OFFLINE"
)

// StatusView 暴露给展示层的同步状态
type StatusView struct {
	Status       SyncStatus `json:"status"`
	PendingCount int64      `json:"pendingCount"`
	LastSync     int64      `json:"lastSync"` // 毫秒，0表示尚未成功同步
}

// StateView 合并后的班级状态加同步状态，一次请求取全
type StateView struct {
	ClassroomID string                `json:"classroomId"`
	State       *model.ClassroomState `json:"state"`
	Sync        StatusView            `json:"sync"`
}

// SyncService 按班级码管理同步会话，会话懒创建
// 显式构造、显式传递，不做包级单例
type SyncService struct {
	remote    RemoteStore
	snapshots *repository.SnapshotRepository
	queue     *repository.SyncQueueRepository

	mu       sync.Mutex
	sessions map[string]*ClassroomSession
	interval time.Duration
	closed   bool
}

func NewSyncService(remote RemoteStore, snapshots *repository.SnapshotRepository, queue *repository.SyncQueueRepository, interval time.Duration) *SyncService {
	return &SyncService{
		remote:    remote,
		snapshots: snapshots,
		queue:     queue,
		sessions:  make(map[string]*ClassroomSession),
		interval:  interval,
	}
}

// Session 取出某班级的同步会话，第一次访问时创建并启动周期定时器
func (s *SyncService) Session(classroomID string) *ClassroomSession {
	classroomID = model.NormalizeClassroomCode(classroomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[classroomID]; ok {
		return sess
	}

	sess := newClassroomSession(classroomID, s.remote, s.snapshots, s.queue, s.interval)
	if !s.closed {
		sess.start()
	}
	s.sessions[classroomID] = sess
	return sess
}

// UpdateInterval 配置热更新回调：调整所有在跑会话的同步周期
func (s *SyncService) UpdateInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interval == s.interval {
		return
	}
	s.interval = interval
	for _, sess := range s.sessions {
		sess.resetInterval(interval)
	}
	logger.Log.Info("Sync interval updated", zap.Duration("interval", interval))
}

func (s *SyncService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, sess := range s.sessions {
		sess.stop()
	}
}

// ClassroomSession 单个班级的同步会话
// 持有展示层看到的内存态，负责完整同步周期和各类变更操作
type ClassroomSession struct {
	classroomID string
	remote      RemoteStore
	snapshots   *repository.SnapshotRepository
	queue       *repository.SyncQueueRepository

	mu       sync.RWMutex
	state    *model.ClassroomState
	status   SyncStatus
	lastSync int64

	inFlight atomic.Bool // 同一时刻至多一个完整周期

	ticker *time.Ticker
	done   chan struct{}
}

func newClassroomSession(classroomID string, remote RemoteStore, snapshots *repository.SnapshotRepository, queue *repository.SyncQueueRepository, interval time.Duration) *ClassroomSession {
	sess := &ClassroomSession{
		classroomID: classroomID,
		remote:      remote,
		snapshots:   snapshots,
		queue:       queue,
		status:      StatusSyncing,
		ticker:      time.NewTicker(interval),
		done:        make(chan struct{}),
	}

	// 引导状态不等网络：先用缓存或默认状态，首个周期再对齐远端
	cached, err := snapshots.Read(classroomID)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			logger.Log.Error("Failed to read snapshot cache", zap.String("classroom", classroomID), zap.Error(err))
		}
		sess.state = model.DefaultState()
	} else {
		sess.state = cached
	}

	return sess
}

func (s *ClassroomSession) start() {
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.FullCycle(context.Background())
			case <-s.done:
				return
			}
		}
	}()
	// 立即做一次，别等第一个tick
	go s.FullCycle(context.Background())
}

func (s *ClassroomSession) stop() {
	s.ticker.Stop()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *ClassroomSession) resetInterval(interval time.Duration) {
	s.ticker.Reset(interval)
}

// View 展示层读取的快照副本，不共享内部切片
func (s *ClassroomSession) View() StateView {
	s.mu.RLock()
	state := s.state.Clone()
	s.mu.RUnlock()

	return StateView{
		ClassroomID: s.classroomID,
		State:       state,
		Sync:        s.Status(),
	}
}

func (s *ClassroomSession) Status() StatusView {
	pending, err := s.queue.Len(s.classroomID)
	if err != nil {
		logger.Log.Error("Failed to count sync queue", zap.String("classroom", s.classroomID), zap.Error(err))
	}
	monitoring.QueueDepthGauge.WithLabelValues(s.classroomID).Set(float64(pending))

	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatusView{
		Status:       s.status,
		PendingCount: pending,
		LastSync:     s.lastSync,
	}
}

// FullCycle 完整同步周期：排空队列、拉取远端、合并、落盘、回推
// 周期之间不并发，已有周期在跑时直接跳过；失败永不致命，下个tick重试
func (s *ClassroomSession) FullCycle(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		monitoring.SyncCycleCounter.WithLabelValues(s.classroomID, "skipped").Inc()
		return
	}
	defer s.inFlight.Store(false)

	s.setStatus(StatusSyncing)

	if err := s.runCycle(ctx); err != nil {
		monitoring.SyncCycleCounter.WithLabelValues(s.classroomID, "offline").Inc()
		logger.Log.Warn("Sync cycle failed, staying on local state",
			zap.String("classroom", s.classroomID), zap.Error(err))
		s.setStatus(StatusOffline)
		return
	}

	monitoring.SyncCycleCounter.WithLabelValues(s.classroomID, "ok").Inc()
	s.mu.Lock()
	s.status = StatusConnected
	s.lastSync = time.Now().UnixMilli()
	s.mu.Unlock()
}

func (s *ClassroomSession) runCycle(ctx context.Context) error {
	ctx, span := tracing.Tracer.Start(ctx, "sync.full_cycle")
	defer span.End()

	// 1. 拉取远端快照；班级不存在不算失败
	remoteState, err := s.fetchRemote(ctx)
	if err != nil {
		return err
	}

	// 2. 对着刚拉到的快照重放离线队列
	remoteState, err = s.drain(ctx, remoteState)
	if err != nil {
		return err
	}

	// 3. 合并：参数顺序固定为(本地, 远端)
	local := s.localState()
	start := time.Now()
	merged := MergeStates(local, remoteState)
	monitoring.MergeDuration.Observe(time.Since(start).Seconds())

	// 4. 落盘并回推，整体替换展示层看到的内存态
	if err := s.publish(ctx, merged); err != nil {
		// 合并结果是本地已知的最优状态，推送失败也保留
		s.setState(merged)
		return err
	}
	s.setState(merged)
	return nil
}

// fetchRemote 拉取远端快照，成功时顺带刷新本地缓存
// 返回 (nil, nil) 表示班级在远端尚无快照
func (s *ClassroomSession) fetchRemote(ctx context.Context) (*model.ClassroomState, error) {
	state, err := s.remote.Fetch(ctx, s.classroomID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := s.snapshots.Write(s.classroomID, state); err != nil {
		logger.Log.Error("Failed to refresh snapshot cache", zap.String("classroom", s.classroomID), zap.Error(err))
	}
	return state, nil
}

// drain 把离线队列重放到远端快照上
// 目标实体已不存在的条目静默跳过；按ID去重，重放不会重复落地；
// 条目只在重放结果成功推送（或无需推送）之后才出队
func (s *ClassroomSession) drain(ctx context.Context, remoteState *model.ClassroomState) (*model.ClassroomState, error) {
	items, err := s.queue.List(s.classroomID)
	if err != nil {
		return remoteState, err
	}
	if len(items) == 0 {
		return remoteState, nil
	}

	// 远端还没有快照时以缓存或当前内存态为基准重放
	base := remoteState
	mustPush := false
	if base == nil {
		base = s.localState()
		mustPush = true
	}

	changed := false
	done := make([]uint64, 0, len(items))

	for _, item := range items {
		switch item.Type {
		case model.SyncItemReflection:
			var p model.ReflectionPayload
			if err := json.Unmarshal(item.Payload, &p); err != nil {
				logger.Log.Warn("Dropping malformed queue item", zap.Uint64("seq", item.Seq), zap.Error(err))
				done = append(done, item.Seq)
				continue
			}
			goal := base.FindGoal(p.GoalID)
			if goal == nil {
				// 目标在重放前被删掉了，跳过
				done = append(done, item.Seq)
				continue
			}
			if goal.FindReflection(p.Reflection.ID) == nil {
				goal.Reflections = append(goal.Reflections, p.Reflection)
				changed = true
			}
			done = append(done, item.Seq)

		case model.SyncItemGoal:
			var g model.LearningGoal
			if err := json.Unmarshal(item.Payload, &g); err != nil {
				logger.Log.Warn("Dropping malformed queue item", zap.Uint64("seq", item.Seq), zap.Error(err))
				done = append(done, item.Seq)
				continue
			}
			if base.FindGoal(g.ID) == nil {
				base.Goals = append(base.Goals, g)
				changed = true
			}
			done = append(done, item.Seq)

		case model.SyncItemUser:
			var u model.User
			if err := json.Unmarshal(item.Payload, &u); err != nil {
				logger.Log.Warn("Dropping malformed queue item", zap.Uint64("seq", item.Seq), zap.Error(err))
				done = append(done, item.Seq)
				continue
			}
			if base.FindUser(u.ID) == nil {
				base.Users = append(base.Users, u)
				changed = true
			}
			done = append(done, item.Seq)

		default:
			logger.Log.Warn("Dropping queue item of unknown type", zap.Uint64("seq", item.Seq), zap.String("type", string(item.Type)))
			done = append(done, item.Seq)
		}
	}

	if changed || (mustPush && len(done) > 0) {
		if err := s.publish(ctx, base); err != nil {
			// 推送失败，队列原样保留，下个周期重试
			return base, err
		}
	}

	for _, seq := range done {
		if err := s.queue.Remove(seq); err != nil {
			logger.Log.Error("Failed to remove drained queue item", zap.Uint64("seq", seq), zap.Error(err))
		}
	}
	logger.Log.Info("Drained offline queue",
		zap.String("classroom", s.classroomID),
		zap.Int("items", len(done)),
		zap.Bool("pushed", changed))

	return base, nil
}

// publish 盖新时间戳，写本地缓存，再整体推送远端
func (s *ClassroomSession) publish(ctx context.Context, state *model.ClassroomState) error {
	state.LastUpdated = time.Now().UnixMilli()

	if err := s.snapshots.Write(s.classroomID, state); err != nil {
		logger.Log.Error("Failed to write snapshot cache", zap.String("classroom", s.classroomID), zap.Error(err))
	}
	return s.remote.Push(ctx, s.classroomID, state)
}

// localState 当前内存态的深拷贝
func (s *ClassroomSession) localState() *model.ClassroomState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *ClassroomSession) setState(state *model.ClassroomState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *ClassroomSession) setStatus(status SyncStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}
