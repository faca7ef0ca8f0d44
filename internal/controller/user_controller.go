package controller

import (
	"errors"
	"strings"

	"reflection_sync_backend/internal/service"
	"reflection_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	SyncService *service.SyncService
}

func NewUserController(syncService *service.SyncService) *UserController {
	return &UserController{SyncService: syncService}
}

type addUserRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddUser 登记学生
func (c *UserController) AddUser(ctx *gin.Context) {
	var req addUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		util.BadRequest(ctx, "name is required")
		return
	}

	sess := c.SyncService.Session(ctx.Param("code"))
	user, err := sess.AddUser(ctx.Request.Context(), req.Name)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// DeleteUser 移除学生，已有反思保留
func (c *UserController) DeleteUser(ctx *gin.Context) {
	sess := c.SyncService.Session(ctx.Param("code"))
	if err := sess.DeleteUser(ctx.Request.Context(), ctx.Param("userId")); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
