package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/internal/repository"
	"reflection_sync_backend/internal/util"
	"reflection_sync_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeRemote 可注入故障的内存远端
type fakeRemote struct {
	mu        sync.Mutex
	states    map[string]*model.ClassroomState
	failFetch bool
	failPush  bool
	pushCount int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{states: make(map[string]*model.ClassroomState)}
}

func (f *fakeRemote) Fetch(ctx context.Context, classroomID string) (*model.ClassroomState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch {
		return nil, &TransportError{Op: "fetch", Err: errors.New("network down")}
	}
	state, ok := f.states[classroomID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return state.Clone(), nil
}

func (f *fakeRemote) Push(ctx context.Context, classroomID string, state *model.ClassroomState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPush {
		return &TransportError{Op: "push", Err: errors.New("network down")}
	}
	f.states[classroomID] = state.Clone()
	f.pushCount++
	return nil
}

func (f *fakeRemote) stored(classroomID string) *model.ClassroomState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[classroomID].Clone()
}

func (f *fakeRemote) setFailing(fetch, push bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFetch = fetch
	f.failPush = push
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.CachedSnapshot{},
		&model.SyncQueueItem{},
		&model.RecentClassroom{},
		&model.AppSetting{},
	))
	return db
}

type testEnv struct {
	sess      *ClassroomSession
	remote    *fakeRemote
	snapshots *repository.SnapshotRepository
	queue     *repository.SyncQueueRepository
}

func newTestSession(t *testing.T, remote *fakeRemote) *testEnv {
	t.Helper()
	db := newTestDB(t)
	snapshots := repository.NewSnapshotRepository(db)
	queue := repository.NewSyncQueueRepository(db)

	sess := newClassroomSession("KLAS-1234", remote, snapshots, queue, time.Hour)
	t.Cleanup(sess.stop)

	return &testEnv{sess: sess, remote: remote, snapshots: snapshots, queue: queue}
}

func TestSessionBootstrapsWithSeedGoals(t *testing.T) {
	env := newTestSession(t, newFakeRemote())

	view := env.sess.View()
	require.Len(t, view.State.Goals, 2, "fresh classroom starts with seed goals")
	assert.Equal(t, "De loop van een rivier", view.State.Goals[0].Title)
	assert.Empty(t, view.State.Users)
}

func TestSessionBootstrapsFromCache(t *testing.T) {
	db := newTestDB(t)
	snapshots := repository.NewSnapshotRepository(db)
	queue := repository.NewSyncQueueRepository(db)

	cached := &model.ClassroomState{
		Goals:       []model.LearningGoal{{ID: "g7", Title: "Topografie"}},
		LastUpdated: 42,
	}
	require.NoError(t, snapshots.Write("KLAS-1234", cached))

	sess := newClassroomSession("KLAS-1234", newFakeRemote(), snapshots, queue, time.Hour)
	t.Cleanup(sess.stop)

	view := sess.View()
	require.Len(t, view.State.Goals, 1)
	assert.Equal(t, "g7", view.State.Goals[0].ID)
}

func TestFullCycleOfflineKeepsLocalState(t *testing.T) {
	remote := newFakeRemote()
	remote.setFailing(true, true)
	env := newTestSession(t, remote)

	_, err := env.queue.Enqueue(model.SyncItemUser, "KLAS-1234", model.User{ID: "u1", Name: "Sanne"})
	require.NoError(t, err)
	before := env.sess.View().State

	env.sess.FullCycle(context.Background())

	status := env.sess.Status()
	assert.Equal(t, StatusOffline, status.Status)
	assert.EqualValues(t, 1, status.PendingCount, "queue must survive offline cycles")
	assert.Equal(t, before.Goals, env.sess.View().State.Goals)
}

func TestFullCyclePullsRemoteState(t *testing.T) {
	remote := newFakeRemote()
	remote.states["KLAS-1234"] = &model.ClassroomState{
		Goals:       []model.LearningGoal{{ID: "g9", Title: "Van een ander tablet"}},
		Users:       []model.User{{ID: "u1", Name: "Daan"}},
		LastUpdated: 1000,
	}
	env := newTestSession(t, remote)

	env.sess.FullCycle(context.Background())

	view := env.sess.View()
	require.NotNil(t, view.State.FindGoal("g9"))
	require.NotNil(t, view.State.FindUser("u1"))
	assert.Equal(t, StatusConnected, view.Sync.Status)
	assert.Positive(t, view.Sync.LastSync)

	// 成功拉取顺带刷新了本地缓存
	cached, err := env.snapshots.Read("KLAS-1234")
	require.NoError(t, err)
	assert.NotNil(t, cached.FindGoal("g9"))
}

func TestDrainReplaysQueuedReflection(t *testing.T) {
	remote := newFakeRemote()
	remote.states["KLAS-1234"] = &model.ClassroomState{
		Goals: []model.LearningGoal{{ID: "g1", Title: "Breuken"}},
	}
	env := newTestSession(t, remote)

	entry := model.ReflectionEntry{ID: "100-u1", UserID: "u1", Timestamp: 100, Content: "offline geschreven", MasteryLevel: 3}
	_, err := env.queue.Enqueue(model.SyncItemReflection, "KLAS-1234", model.ReflectionPayload{GoalID: "g1", Reflection: entry})
	require.NoError(t, err)

	env.sess.FullCycle(context.Background())

	pushed := remote.stored("KLAS-1234")
	require.NotNil(t, pushed)
	goal := pushed.FindGoal("g1")
	require.NotNil(t, goal)
	require.Len(t, goal.Reflections, 1)
	assert.Equal(t, "offline geschreven", goal.Reflections[0].Content)

	assert.EqualValues(t, 0, env.sess.Status().PendingCount)
}

func TestDrainDoesNotDuplicateReplayedItems(t *testing.T) {
	entry := model.ReflectionEntry{ID: "100-u1", UserID: "u1", Timestamp: 100, Content: "al aanwezig"}
	remote := newFakeRemote()
	remote.states["KLAS-1234"] = &model.ClassroomState{
		Goals: []model.LearningGoal{{ID: "g1", Reflections: []model.ReflectionEntry{entry}}},
	}
	env := newTestSession(t, remote)

	_, err := env.queue.Enqueue(model.SyncItemReflection, "KLAS-1234", model.ReflectionPayload{GoalID: "g1", Reflection: entry})
	require.NoError(t, err)

	env.sess.FullCycle(context.Background())

	pushed := remote.stored("KLAS-1234")
	require.Len(t, pushed.FindGoal("g1").Reflections, 1, "replay must be idempotent")
	assert.EqualValues(t, 0, env.sess.Status().PendingCount)
}

func TestDrainSkipsItemForDeletedGoal(t *testing.T) {
	remote := newFakeRemote()
	remote.states["KLAS-1234"] = &model.ClassroomState{
		Goals: []model.LearningGoal{{ID: "g1"}},
	}
	env := newTestSession(t, remote)

	entry := model.ReflectionEntry{ID: "100-u1", UserID: "u1", Timestamp: 100, Content: "doel is weg"}
	_, err := env.queue.Enqueue(model.SyncItemReflection, "KLAS-1234", model.ReflectionPayload{GoalID: "verwijderd", Reflection: entry})
	require.NoError(t, err)

	env.sess.FullCycle(context.Background())

	assert.EqualValues(t, 0, env.sess.Status().PendingCount, "item for a deleted goal is dropped")
	assert.Nil(t, remote.stored("KLAS-1234").FindGoal("verwijderd"))
	assert.Equal(t, StatusConnected, env.sess.Status().Status)
}

func TestAddGoalOfflineQueuesCompensation(t *testing.T) {
	remote := newFakeRemote()
	remote.setFailing(true, true)
	env := newTestSession(t, remote)

	goal, err := env.sess.AddGoal(context.Background(), model.SubjectMath, "Breuken", "Ik kan breuken optellen.")
	require.NoError(t, err)

	// 乐观更新：网络断了也立刻可见
	assert.NotNil(t, env.sess.View().State.FindGoal(goal.ID))

	items, err := env.queue.List("KLAS-1234")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.SyncItemGoal, items[0].Type)
}

func TestAddGoalOnlinePushesDirectly(t *testing.T) {
	remote := newFakeRemote()
	env := newTestSession(t, remote)

	goal, err := env.sess.AddGoal(context.Background(), model.SubjectHistory, "De Gouden Eeuw", "")
	require.NoError(t, err)

	pushed := remote.stored("KLAS-1234")
	require.NotNil(t, pushed, "first write creates the remote snapshot")
	assert.NotNil(t, pushed.FindGoal(goal.ID))

	items, err := env.queue.List("KLAS-1234")
	require.NoError(t, err)
	assert.Empty(t, items, "no compensation needed when the direct write lands")
}

func TestAddGoalRejectsUnknownSubject(t *testing.T) {
	env := newTestSession(t, newFakeRemote())

	_, err := env.sess.AddGoal(context.Background(), model.Subject("Wiskunde"), "x", "")
	assert.Error(t, err)
}

func TestUpdateAndDeleteGoal(t *testing.T) {
	remote := newFakeRemote()
	env := newTestSession(t, remote)

	goal, err := env.sess.AddGoal(context.Background(), model.SubjectMath, "Breuken", "oud")
	require.NoError(t, err)

	updated, err := env.sess.UpdateGoal(context.Background(), goal.ID, model.SubjectMath, "Breuken", "nieuw")
	require.NoError(t, err)
	assert.Equal(t, "nieuw", updated.Description)
	assert.Equal(t, "nieuw", env.sess.View().State.FindGoal(goal.ID).Description)

	require.NoError(t, env.sess.DeleteGoal(context.Background(), goal.ID))
	assert.Nil(t, env.sess.View().State.FindGoal(goal.ID))

	assert.ErrorIs(t, env.sess.DeleteGoal(context.Background(), goal.ID), util.ErrGoalNotFound)
}

func TestAddReflectionValidation(t *testing.T) {
	env := newTestSession(t, newFakeRemote())

	_, err := env.sess.AddReflection(context.Background(), "1", "u1", "tekst", 0, "", "")
	assert.Error(t, err, "mastery below range")

	_, err = env.sess.AddReflection(context.Background(), "1", "u1", "tekst", 5, "", "")
	assert.Error(t, err, "mastery above range")

	_, err = env.sess.AddReflection(context.Background(), "bestaat-niet", "u1", "tekst", 2, "", "")
	assert.Error(t, err, "goal must exist locally")
}

// 远端那边目标已被删：不推送也不入队，本地乐观更新保留，合并周期定夺
func TestAddReflectionRemoteGoalMissingNotQueued(t *testing.T) {
	remote := newFakeRemote()
	remote.states["KLAS-1234"] = &model.ClassroomState{
		Goals: []model.LearningGoal{{ID: "anders"}},
	}

	db := newTestDB(t)
	snapshots := repository.NewSnapshotRepository(db)
	queue := repository.NewSyncQueueRepository(db)
	sess := newClassroomSession("KLAS-1234", remote, snapshots, queue, time.Hour)
	t.Cleanup(sess.stop)

	// 本地种子目标 "1" 在远端不存在
	entry, err := sess.AddReflection(context.Background(), "1", "u1", "mijn reflectie", 2, "", "")
	require.NoError(t, err)

	assert.NotNil(t, sess.View().State.FindGoal("1").FindReflection(entry.ID))

	items, err := queue.List("KLAS-1234")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Nil(t, remote.stored("KLAS-1234").FindGoal("1"))
}

func TestAddAndDeleteUser(t *testing.T) {
	env := newTestSession(t, newFakeRemote())

	user, err := env.sess.AddUser(context.Background(), "  Sanne ")
	require.NoError(t, err)
	assert.Equal(t, "Sanne", user.Name)
	assert.NotNil(t, env.sess.View().State.FindUser(user.ID))

	require.NoError(t, env.sess.DeleteUser(context.Background(), user.ID))
	assert.Nil(t, env.sess.View().State.FindUser(user.ID))
	assert.Error(t, env.sess.DeleteUser(context.Background(), user.ID))
}

func TestSyncServiceNormalizesClassroomCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewSyncService(newFakeRemote(), repository.NewSnapshotRepository(db), repository.NewSyncQueueRepository(db), time.Hour)
	t.Cleanup(svc.Close)

	a := svc.Session(" klas-1234 ")
	b := svc.Session("KLAS-1234")
	assert.Same(t, a, b, "codes differing only in case and whitespace map to one session")
}
