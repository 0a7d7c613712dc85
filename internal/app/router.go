package app

import (
	"edubridge_backend/docs"
	"edubridge_backend/internal/config"
	"edubridge_backend/internal/middleware"
	"edubridge_backend/internal/model"
	"edubridge_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 学生答题接口
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		authGroup.GET("/quizzes", c.quiz.ListQuizzes)
		authGroup.GET("/quizzes/:id", c.quiz.GetQuiz)
		authGroup.POST("/quizzes/:id/attempts", c.attempt.StartAttempt)

		authGroup.GET("/attempts/history", c.quiz.ListMyAttempts)
		authGroup.GET("/attempts/:id", c.attempt.GetState)
		authGroup.PUT("/attempts/:id/answer", c.attempt.SelectAnswer)
		authGroup.PUT("/attempts/:id/flag", c.attempt.ToggleFlag)
		authGroup.PUT("/attempts/:id/position", c.attempt.Navigate)
		authGroup.POST("/attempts/:id/submit", c.attempt.Submit)
		authGroup.POST("/attempts/:id/retry", c.attempt.Retry)
		authGroup.GET("/attempts/:id/review", c.attempt.GetReview)
		authGroup.GET("/attempts/:id/watch", c.attempt.Watch)
		authGroup.DELETE("/attempts/:id", c.attempt.CloseAttempt)
	}

	// 3. 教师接口
	teacherGroup := router.Group("/api/teacher")
	teacherGroup.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Teacher))
	{
		teacherGroup.GET("/quizzes/:id/submissions", c.quiz.ListSubmissions)
	}
}
