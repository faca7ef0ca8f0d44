package controller

import (
	"errors"

	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/internal/service"
	"reflection_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GoalController struct {
	SyncService *service.SyncService
}

func NewGoalController(syncService *service.SyncService) *GoalController {
	return &GoalController{SyncService: syncService}
}

type goalRequest struct {
	Subject     string `json:"subject" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// AddGoal 新建学习目标
func (c *GoalController) AddGoal(ctx *gin.Context) {
	var req goalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "subject and title are required")
		return
	}

	sess := c.SyncService.Session(ctx.Param("code"))
	goal, err := sess.AddGoal(ctx.Request.Context(), model.Subject(req.Subject), req.Title, req.Description)
	if err != nil {
		if errors.Is(err, util.ErrInvalidSubject) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, goal)
}

// UpdateGoal 修改目标的学科/标题/描述，反思列表不动
func (c *GoalController) UpdateGoal(ctx *gin.Context) {
	var req goalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "subject and title are required")
		return
	}

	sess := c.SyncService.Session(ctx.Param("code"))
	goal, err := sess.UpdateGoal(ctx.Request.Context(), ctx.Param("goalId"), model.Subject(req.Subject), req.Title, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidSubject):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrGoalNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, goal)
}

// DeleteGoal 删除目标
func (c *GoalController) DeleteGoal(ctx *gin.Context) {
	sess := c.SyncService.Session(ctx.Param("code"))
	if err := sess.DeleteGoal(ctx.Request.Context(), ctx.Param("goalId")); err != nil {
		if errors.Is(err, util.ErrGoalNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
