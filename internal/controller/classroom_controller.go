package controller

import (
	"errors"

	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/internal/repository"
	"reflection_sync_backend/internal/service"
	"reflection_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ClassroomController struct {
	SyncService      *service.SyncService
	ClassroomService *service.ClassroomService
}

func NewClassroomController(syncService *service.SyncService, classroomService *service.ClassroomService) *ClassroomController {
	return &ClassroomController{
		SyncService:      syncService,
		ClassroomService: classroomService,
	}
}

// GetState 取合并后的班级完整状态，附带同步状态
// 第一次访问某班级码会开启它的同步会话
func (c *ClassroomController) GetState(ctx *gin.Context) {
	sess := c.SyncService.Session(ctx.Param("code"))
	util.Success(ctx, sess.View())
}

// GetStatus 只取同步状态，供状态角标轮询
func (c *ClassroomController) GetStatus(ctx *gin.Context) {
	sess := c.SyncService.Session(ctx.Param("code"))
	util.Success(ctx, sess.Status())
}

// ForceSync 立刻触发一次完整同步周期并返回结果状态
func (c *ClassroomController) ForceSync(ctx *gin.Context) {
	sess := c.SyncService.Session(ctx.Param("code"))
	sess.FullCycle(ctx.Request.Context())
	util.Success(ctx, sess.Status())
}

// GetCurrent 当前班级码，首次调用会生成一个
func (c *ClassroomController) GetCurrent(ctx *gin.Context) {
	code, err := c.ClassroomService.Current()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"code": code})
}

type setCurrentRequest struct {
	Code string `json:"code" binding:"required"`
}

// SetCurrent 切换当前班级并记入最近列表
func (c *ClassroomController) SetCurrent(ctx *gin.Context) {
	var req setCurrentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "code is required")
		return
	}

	if err := c.ClassroomService.SetCurrent(req.Code); err != nil {
		if errors.Is(err, repository.ErrEmptyClassroomCode) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"code": model.NormalizeClassroomCode(req.Code)})
}

// ListRecent 最近打开的班级，最多10条，新的在前
func (c *ClassroomController) ListRecent(ctx *gin.Context) {
	recent, err := c.ClassroomService.Recent()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, recent)
}
