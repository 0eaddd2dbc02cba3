package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/api/handler"
	"github.com/qs3c/group_sub_server/internal/api/middleware"
)

type Router struct {
	authHandler        *handler.AuthHandler
	planHandler        *handler.PlanHandler
	approvalHandler    *handler.ApprovalHandler
	entitlementHandler *handler.EntitlementHandler
	featureHandler     *handler.FeatureHandler
	expiryHandler      *handler.ExpiryHandler
	websocketHandler   *handler.WebSocketHandler
	cfg                *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	planHandler *handler.PlanHandler,
	approvalHandler *handler.ApprovalHandler,
	entitlementHandler *handler.EntitlementHandler,
	featureHandler *handler.FeatureHandler,
	expiryHandler *handler.ExpiryHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:        authHandler,
		planHandler:        planHandler,
		approvalHandler:    approvalHandler,
		entitlementHandler: entitlementHandler,
		featureHandler:     featureHandler,
		expiryHandler:      expiryHandler,
		websocketHandler:   websocketHandler,
		cfg:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		// WebSocket 使用 query token 认证
		api.GET("/ws", r.websocketHandler.Handle)

		api.POST("/auth/login", r.authHandler.Login)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			plans := authenticated.Group("/plans")
			{
				plans.GET("", r.planHandler.List)
				plans.PUT("/:id", r.planHandler.Upsert)
				plans.POST("/reload", r.planHandler.Reload)
			}

			requests := authenticated.Group("/requests")
			{
				requests.POST("", r.approvalHandler.Submit)
				requests.GET("/pending", r.approvalHandler.Pending)
				requests.GET("/stats", r.approvalHandler.Stats)
				requests.GET("/history", r.approvalHandler.History)
				requests.GET("/:id", r.approvalHandler.Get)
				requests.POST("/:id/approve", r.approvalHandler.Approve)
				requests.POST("/:id/reject", r.approvalHandler.Reject)
			}

			groups := authenticated.Group("/groups/:id")
			{
				groups.GET("/status", r.entitlementHandler.Status)
				groups.POST("/cancel", r.entitlementHandler.Cancel)
				groups.POST("/restore", r.entitlementHandler.Restore)

				groups.GET("/features", r.featureHandler.List)
				groups.GET("/features/changes", r.featureHandler.Changes)
				groups.PUT("/features/:feature", r.featureHandler.Set)
				groups.POST("/features/:feature/toggle", r.featureHandler.Toggle)
				groups.POST("/features/:feature/force-unlock", r.featureHandler.ForceUnlock)
			}

			authenticated.GET("/cancellations", r.entitlementHandler.Cancellations)

			expiry := authenticated.Group("/expiry")
			{
				expiry.GET("/stats", r.expiryHandler.Stats)
				expiry.GET("/alerts", r.expiryHandler.Alerts)
				expiry.POST("/sweep", r.expiryHandler.Sweep)
			}
		}
	}

	return engine
}
