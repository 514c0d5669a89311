package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"

	"eventpass/cmd/middleware"
	"eventpass/internal/service"
)

type Routers struct {
	Service   service.Service
	Mode      string
	BaseURL   string
	JWTSecret string
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(gin.Recovery())
	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))
	app.Use(middleware.BaseURL(r.BaseURL))

	apiGroup := app.Group("/v1")

	apiGroup.GET("/events", r.Service.ListEvents)
	apiGroup.GET("/events/:id", r.Service.GetEvent)
	apiGroup.POST("/events/:id/registrations", r.Service.Register)
	apiGroup.GET("/registrations/:id", r.Service.GetPass)
	apiGroup.GET("/registrations/:id/pass.png", r.Service.PassImage)
	apiGroup.POST("/registrations/:id/task", r.Service.SubmitTask)
	apiGroup.GET("/email-suggestion", r.Service.EmailSuggestion)

	admin := apiGroup.Group("/admin", middleware.OrganizerAuth(r.JWTSecret))

	admin.POST("/events", r.Service.CreateEvent)
	admin.GET("/events", r.Service.ListAllEvents)
	admin.GET("/events/:id/registrations", r.Service.ListRegistrations)
	admin.GET("/events/:id/attendance", r.Service.Attendance)
	admin.PATCH("/events/:id/live", r.Service.SetLive)
	admin.PUT("/events/:id/pass-template", r.Service.UpdatePassTemplate)
	admin.PATCH("/events/:id/registrations/:regId/status", r.Service.SetStatus)
	admin.POST("/events/:id/registrations/:regId/resend", r.Service.ResendEmail)
	admin.POST("/events/:id/scan", r.Service.Scan)
	admin.POST("/events/:id/scan/image", r.Service.ScanImage)
	admin.POST("/events/:id/checkin", r.Service.CheckIn)
	admin.POST("/manual-pass", r.Service.SendManualPass)
	admin.POST("/manual-pass/scan", r.Service.ScanManualPass)

	return app
}
