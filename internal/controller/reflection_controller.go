package controller

import (
	"errors"

	"reflection_sync_backend/internal/service"
	"reflection_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReflectionController struct {
	SyncService *service.SyncService
}

func NewReflectionController(syncService *service.SyncService) *ReflectionController {
	return &ReflectionController{SyncService: syncService}
}

type addReflectionRequest struct {
	UserID       string `json:"userId" binding:"required"`
	Content      string `json:"content" binding:"required"`
	MasteryLevel int    `json:"masteryLevel" binding:"required"`
	PhotoBase64  string `json:"photoBase64"`
	AISuggestion string `json:"aiSuggestion"`
}

// AddReflection 学生给某个目标提交一条反思
func (c *ReflectionController) AddReflection(ctx *gin.Context) {
	var req addReflectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "userId, content and masteryLevel are required")
		return
	}

	sess := c.SyncService.Session(ctx.Param("code"))
	entry, err := sess.AddReflection(ctx.Request.Context(), ctx.Param("goalId"), req.UserID,
		req.Content, req.MasteryLevel, req.PhotoBase64, req.AISuggestion)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidMastery):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrGoalNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, entry)
}
