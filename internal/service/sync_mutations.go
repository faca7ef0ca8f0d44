package service

import (
	"context"
	"strings"
	"time"

	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/internal/util"
	"reflection_sync_backend/pkg/logger"

	"go.uber.org/zap"
)

// 变更操作统一走两段式：先乐观更新内存态（界面在任何网络往返前就能看到），
// 再尝试一次直接的远端读-改-写；失败时入队补偿条目，由下个完整周期收敛。
// 乐观更新从不回滚，靠合并周期对齐，这是选定的设计而不是疏漏。

// AddGoal 教师新建学习目标
func (s *ClassroomSession) AddGoal(ctx context.Context, subject model.Subject, title, description string) (*model.LearningGoal, error) {
	if !subject.Valid() {
		return nil, util.ErrInvalidSubject
	}

	goal := model.LearningGoal{
		ID:          model.NewEntityID(),
		Subject:     subject,
		Title:       title,
		Description: description,
		Reflections: []model.ReflectionEntry{},
	}

	s.mu.Lock()
	s.state.Goals = append(s.state.Goals, goal.Clone())
	s.mu.Unlock()

	s.directWrite(ctx, model.SyncItemGoal, goal, func(base *model.ClassroomState) bool {
		if base.FindGoal(goal.ID) != nil {
			return false
		}
		base.Goals = append(base.Goals, goal.Clone())
		return true
	})

	s.kick()
	return &goal, nil
}

// UpdateGoal 就地修改目标的标题/描述/学科，反思列表不动
// 没有对应的队列条目类型：共有目标的非反思字段合并时以本地为准，
// 修改会随下一次成功推送自然传播
func (s *ClassroomSession) UpdateGoal(ctx context.Context, goalID string, subject model.Subject, title, description string) (*model.LearningGoal, error) {
	if !subject.Valid() {
		return nil, util.ErrInvalidSubject
	}

	s.mu.Lock()
	goal := s.state.FindGoal(goalID)
	if goal == nil {
		s.mu.Unlock()
		return nil, util.ErrGoalNotFound
	}
	goal.Subject = subject
	goal.Title = title
	goal.Description = description
	updated := goal.Clone()
	s.mu.Unlock()

	s.directWrite(ctx, "", nil, func(base *model.ClassroomState) bool {
		g := base.FindGoal(goalID)
		if g == nil {
			return false
		}
		g.Subject = subject
		g.Title = title
		g.Description = description
		return true
	})

	s.kick()
	return &updated, nil
}

// DeleteGoal 删除目标，目标下的反思随之消失，其他目标的反思不受影响
func (s *ClassroomSession) DeleteGoal(ctx context.Context, goalID string) error {
	s.mu.Lock()
	found := removeGoal(s.state, goalID)
	s.mu.Unlock()
	if !found {
		return util.ErrGoalNotFound
	}

	s.directWrite(ctx, "", nil, func(base *model.ClassroomState) bool {
		return removeGoal(base, goalID)
	})

	s.kick()
	return nil
}

// AddUser 登记一名学生
func (s *ClassroomSession) AddUser(ctx context.Context, name string) (*model.User, error) {
	user := model.User{
		ID:   model.NewEntityID(),
		Name: strings.TrimSpace(name),
	}

	s.mu.Lock()
	s.state.Users = append(s.state.Users, user)
	s.mu.Unlock()

	s.directWrite(ctx, model.SyncItemUser, user, func(base *model.ClassroomState) bool {
		if base.FindUser(user.ID) != nil {
			return false
		}
		base.Users = append(base.Users, user)
		return true
	})

	s.kick()
	return &user, nil
}

// DeleteUser 移除学生；该学生已写的反思保留，容忍悬空的 userId 引用
func (s *ClassroomSession) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	found := removeUser(s.state, userID)
	s.mu.Unlock()
	if !found {
		return util.ErrUserNotFound
	}

	s.directWrite(ctx, "", nil, func(base *model.ClassroomState) bool {
		return removeUser(base, userID)
	})

	s.kick()
	return nil
}

// AddReflection 学生提交反思，只追加
func (s *ClassroomSession) AddReflection(ctx context.Context, goalID, userID, content string, masteryLevel int, photoBase64, aiSuggestion string) (*model.ReflectionEntry, error) {
	if masteryLevel < 1 || masteryLevel > 4 {
		return nil, util.ErrInvalidMastery
	}

	entry := model.ReflectionEntry{
		ID:           model.NewReflectionID(userID),
		UserID:       userID,
		Timestamp:    time.Now().UnixMilli(),
		Content:      content,
		MasteryLevel: masteryLevel,
		PhotoBase64:  photoBase64,
		AISuggestion: aiSuggestion,
	}

	s.mu.Lock()
	goal := s.state.FindGoal(goalID)
	if goal == nil {
		s.mu.Unlock()
		return nil, util.ErrGoalNotFound
	}
	goal.Reflections = append(goal.Reflections, entry)
	s.mu.Unlock()

	payload := model.ReflectionPayload{GoalID: goalID, Reflection: entry}
	s.directWrite(ctx, model.SyncItemReflection, payload, func(base *model.ClassroomState) bool {
		g := base.FindGoal(goalID)
		if g == nil {
			// 远端已删掉该目标，不推送也不入队，留给合并周期定夺
			return false
		}
		if g.FindReflection(entry.ID) != nil {
			return false
		}
		g.Reflections = append(g.Reflections, entry)
		return true
	})

	s.kick()
	return &entry, nil
}

// directWrite 变更的第二段：对远端做一次读-改-写
// 读失败或写失败时入队补偿条目（itemType为空表示该操作没有补偿条目），
// 两次远端调用之间没有任何原子性保证，靠后续合并周期自愈
func (s *ClassroomSession) directWrite(ctx context.Context, itemType model.SyncItemType, payload interface{}, apply func(base *model.ClassroomState) bool) {
	base, err := s.fetchRemote(ctx)
	if err != nil {
		s.compensate(itemType, payload, err)
		return
	}

	mustPush := false
	if base == nil {
		// 远端还没有这个班级，用本地态整体创建
		base = s.localState()
		mustPush = true
	}

	if !apply(base) && !mustPush {
		return
	}

	if err := s.publish(ctx, base); err != nil {
		s.compensate(itemType, payload, err)
	}
}

func (s *ClassroomSession) compensate(itemType model.SyncItemType, payload interface{}, cause error) {
	s.setStatus(StatusOffline)
	if itemType == "" || payload == nil {
		logger.Log.Warn("Direct write failed, waiting for next cycle",
			zap.String("classroom", s.classroomID), zap.Error(cause))
		return
	}

	if _, err := s.queue.Enqueue(itemType, s.classroomID, payload); err != nil {
		logger.Log.Error("Failed to enqueue offline mutation",
			zap.String("classroom", s.classroomID), zap.Error(err))
		return
	}
	logger.Log.Info("Queued offline mutation",
		zap.String("classroom", s.classroomID),
		zap.String("type", string(itemType)),
		zap.Error(cause))
}

// kick 变更后立刻补一个完整周期，不阻塞调用方；在跑的周期会让它直接跳过
func (s *ClassroomSession) kick() {
	go s.FullCycle(context.Background())
}

func removeGoal(state *model.ClassroomState, goalID string) bool {
	for i := range state.Goals {
		if state.Goals[i].ID == goalID {
			state.Goals = append(state.Goals[:i], state.Goals[i+1:]...)
			return true
		}
	}
	return false
}

func removeUser(state *model.ClassroomState, userID string) bool {
	for i := range state.Users {
		if state.Users[i].ID == userID {
			state.Users = append(state.Users[:i], state.Users[i+1:]...)
			return true
		}
	}
	return false
}
