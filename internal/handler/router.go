package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/middleware"
	"github.com/emra-dev/lms-api/internal/service"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	Course       *CourseHandler
	Payment      *PaymentHandler
	Learning     *LearningHandler
	Certificate  *CertificateHandler
	Assignment   *AssignmentHandler
	Community    *CommunityHandler
	Messaging    *MessagingHandler
	Notification *NotificationHandler
	Analytics    *AnalyticsHandler
	User         *UserHandler
	AuthService  *service.AuthService
	Metrics      *service.MetricsService
}

// Register mounts all API routes on the engine.
func (h Handlers) Register(r *gin.Engine) {
	r.Use(middleware.Metrics(h.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", h.Analytics.Metrics)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", middleware.JWT(h.AuthService), h.Auth.Me)
	}

	// Catalog routes resolve the viewer when a token is present so the
	// curriculum gate can unlock content for enrolled users.
	courses := api.Group("/courses", middleware.OptionalJWT(h.AuthService))
	{
		courses.GET("", h.Course.List)
		courses.GET("/categories", h.Course.Categories)
		courses.GET("/:id", h.Course.Get)
		courses.GET("/:id/reviews", h.Community.ListReviews)
	}

	authoring := api.Group("/courses", middleware.JWT(h.AuthService))
	{
		authoring.POST("", h.Course.Create)
		authoring.PUT("/:id", h.Course.Update)
		authoring.DELETE("/:id", h.Course.Delete)
		authoring.POST("/:id/enroll", h.Learning.Enroll)
		authoring.POST("/:id/reviews", h.Community.Review)
	}

	payments := api.Group("/payments")
	{
		payments.POST("/paydunya/ipn", h.Payment.IPN)

		secured := payments.Group("", middleware.JWT(h.AuthService))
		secured.POST("/create-intent", h.Payment.CreateIntent)
		secured.POST("/confirm", h.Payment.Confirm)
		secured.POST("/paydunya/checkout", h.Payment.Checkout)
		secured.POST("/paydunya/direct", h.Payment.DirectPay)
		secured.GET("/orders", h.Payment.ListOrders)
		secured.POST("/orders/:id/refund", h.Payment.Refund)
	}

	learning := api.Group("", middleware.JWT(h.AuthService))
	{
		learning.GET("/enrollments", h.Learning.ListEnrollments)
		learning.POST("/lessons/:id/toggle-completion", h.Learning.ToggleCompletion)
		learning.POST("/lessons/:id/assignment", h.Assignment.Create)
		learning.POST("/quizzes/:id/submit", h.Learning.SubmitQuiz)
		learning.GET("/quizzes/:id/attempts", h.Learning.ListAttempts)
		learning.POST("/assignments/:id/submit", h.Assignment.Submit)
		learning.GET("/assignments/:id/submissions", h.Assignment.ListSubmissions)
		learning.POST("/submissions/:id/grade", h.Assignment.Grade)
	}

	certificates := api.Group("/certificates")
	{
		certificates.GET("/:serial/verify", h.Certificate.Verify)

		secured := certificates.Group("", middleware.JWT(h.AuthService))
		secured.GET("", h.Certificate.List)
		secured.GET("/:serial/download", h.Certificate.Download)
	}

	discussions := api.Group("/discussions")
	{
		discussions.GET("", h.Community.ListDiscussions)
		discussions.GET("/:id", h.Community.GetDiscussion)

		secured := discussions.Group("", middleware.JWT(h.AuthService))
		secured.POST("", h.Community.CreateDiscussion)
		secured.PUT("/:id", h.Community.UpdateDiscussion)
		secured.POST("/:id/like", h.Community.LikeDiscussion)
		secured.POST("/:id/replies", h.Community.Reply)
		secured.POST("/:id/replies/:replyID/like", h.Community.LikeReply)
		secured.POST("/:id/resolve", h.Community.Resolve)
	}

	conversations := api.Group("/conversations", middleware.JWT(h.AuthService))
	{
		conversations.GET("", h.Messaging.List)
		conversations.POST("", h.Messaging.Start)
		conversations.GET("/unread-count", h.Messaging.UnreadCount)
		conversations.GET("/:id/messages", h.Messaging.Messages)
		conversations.POST("/:id/messages", h.Messaging.Send)
	}

	notifications := api.Group("/notifications", middleware.JWT(h.AuthService))
	{
		notifications.GET("", h.Notification.List)
		notifications.GET("/unread-count", h.Notification.UnreadCount)
		notifications.POST("/:id/read", h.Notification.MarkRead)
		notifications.POST("/read-all", h.Notification.MarkAllRead)
		notifications.DELETE("", h.Notification.Clear)
	}

	analytics := api.Group("/analytics", middleware.JWT(h.AuthService))
	{
		analytics.GET("/instructor", h.Analytics.InstructorDashboard)
		analytics.GET("/student", h.Analytics.StudentStats)
	}

	users := api.Group("/users")
	{
		users.GET("/:id", h.User.GetProfile)

		me := users.Group("/me", middleware.JWT(h.AuthService))
		me.PUT("", h.User.UpdateProfile)
		me.GET("/membership", h.User.Membership)
		me.POST("/xp", h.Learning.AddXP)
	}
	api.GET("/leaderboard", h.User.Leaderboard)
}
