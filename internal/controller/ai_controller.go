package controller

import (
	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/internal/service"
	"reflection_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AIController struct {
	AIService *service.AIService
}

func NewAIController(aiService *service.AIService) *AIController {
	return &AIController{AIService: aiService}
}

type feedbackRequest struct {
	Subject         string `json:"subject"`
	GoalTitle       string `json:"goalTitle" binding:"required"`
	GoalDescription string `json:"goalDescription"`
	Draft           string `json:"draft" binding:"required"`
}

// GetFeedback 对反思草稿给出反馈，模型不可用时退回本地启发式
func (c *AIController) GetFeedback(ctx *gin.Context) {
	var req feedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "goalTitle and draft are required")
		return
	}

	result := c.AIService.GetFeedback(ctx.Request.Context(),
		model.Subject(req.Subject), req.GoalTitle, req.GoalDescription, req.Draft)
	util.Success(ctx, result)
}

type guidanceRequest struct {
	GoalTitle       string `json:"goalTitle" binding:"required"`
	GoalDescription string `json:"goalDescription"`
}

// GetMasteryGuidance 为目标生成四级掌握说明
func (c *AIController) GetMasteryGuidance(ctx *gin.Context) {
	var req guidanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "goalTitle is required")
		return
	}

	guidance := c.AIService.GetMasteryGuidance(ctx.Request.Context(), req.GoalTitle, req.GoalDescription)
	util.Success(ctx, guidance)
}
