package service

import (
	"reflection_sync_backend/internal/model"
)

// MergeStates 把两份独立演化的完整快照合并为一份，纯函数，不修改输入
//
// 规则：
//  1. 学生按ID取并集，同ID整条以 remote 为准（User 没有逐字段时间戳）
//  2. 目标按ID取并集；两边都有的目标保留 local 的标题/描述/学科，
//     反思列表按ID合并，同ID保留时间戳更大的一条
//  3. LastUpdated 取两者较大值
//
// 反思子合并满足交换律；目标字段和学生合并是不对称的，
// 调用方必须始终按 (当前本地, 刚拉取的远端) 的顺序传参
func MergeStates(local, remote *model.ClassroomState) *model.ClassroomState {
	if local == nil && remote == nil {
		return nil
	}
	if local == nil {
		return remote.Clone()
	}
	if remote == nil {
		return local.Clone()
	}

	out := &model.ClassroomState{
		Goals: make([]model.LearningGoal, 0, len(local.Goals)),
		Users: make([]model.User, 0, len(local.Users)),
	}

	// 学生：先按本地顺序放入，远端同ID覆盖，远端独有的追加
	userIdx := make(map[string]int, len(local.Users))
	for _, u := range local.Users {
		userIdx[u.ID] = len(out.Users)
		out.Users = append(out.Users, u)
	}
	for _, u := range remote.Users {
		if i, ok := userIdx[u.ID]; ok {
			out.Users[i] = u
		} else {
			userIdx[u.ID] = len(out.Users)
			out.Users = append(out.Users, u)
		}
	}

	// 目标：本地顺序为基准，远端独有的追加
	goalIdx := make(map[string]int, len(local.Goals))
	for _, g := range local.Goals {
		goalIdx[g.ID] = len(out.Goals)
		out.Goals = append(out.Goals, g.Clone())
	}
	for _, rg := range remote.Goals {
		i, ok := goalIdx[rg.ID]
		if !ok {
			goalIdx[rg.ID] = len(out.Goals)
			out.Goals = append(out.Goals, rg.Clone())
			continue
		}
		out.Goals[i].Reflections = mergeReflections(out.Goals[i].Reflections, rg.Reflections)
	}

	out.LastUpdated = local.LastUpdated
	if remote.LastUpdated > out.LastUpdated {
		out.LastUpdated = remote.LastUpdated
	}

	return out
}

// mergeReflections 按ID合并，同ID时间戳严格更大才覆盖，平局保留先到的一条
func mergeReflections(local, remote []model.ReflectionEntry) []model.ReflectionEntry {
	out := make([]model.ReflectionEntry, 0, len(local)+len(remote))
	idx := make(map[string]int, len(local))

	for _, r := range local {
		idx[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range remote {
		if i, ok := idx[r.ID]; ok {
			if r.Timestamp > out[i].Timestamp {
				out[i] = r
			}
		} else {
			idx[r.ID] = len(out)
			out = append(out, r)
		}
	}

	return out
}
