package app

import (
	"reflection_sync_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		// 班级码簿记
		api.GET("/classrooms/current", c.classroom.GetCurrent)
		api.POST("/classrooms/current", c.classroom.SetCurrent)
		api.GET("/classrooms/recent", c.classroom.ListRecent)

		// 按班级码的状态与变更，首次访问即开启同步会话
		classroom := api.Group("/classrooms/:code")
		{
			classroom.GET("/state", c.classroom.GetState)
			classroom.GET("/status", c.classroom.GetStatus)
			classroom.POST("/sync", c.classroom.ForceSync)

			classroom.POST("/goals", c.goal.AddGoal)
			classroom.PUT("/goals/:goalId", c.goal.UpdateGoal)
			classroom.DELETE("/goals/:goalId", c.goal.DeleteGoal)
			classroom.POST("/goals/:goalId/reflections", c.reflection.AddReflection)

			classroom.POST("/users", c.user.AddUser)
			classroom.DELETE("/users/:userId", c.user.DeleteUser)
		}

		// AI 协作
		ai := api.Group("/ai")
		{
			ai.POST("/feedback", c.ai.GetFeedback)
			ai.POST("/mastery-guidance", c.ai.GetMasteryGuidance)
		}
	}
}
