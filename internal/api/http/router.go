package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/api/http/handler"
	"github.com/EternisAI/agent-registry/internal/api/http/middleware"
	"github.com/EternisAI/agent-registry/internal/app"
	"github.com/EternisAI/agent-registry/internal/auth"
)

const defaultIdempotencyTTL = 10 * time.Minute

type Services struct {
	App    *app.App
	JWT    auth.Config
	Config Config
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler(srvs.App.Ledger)
	engine.GET("/health", healthHandler.Check)

	ttl := srvs.Config.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	authenticated := []gin.HandlerFunc{
		middleware.CallerAuth(srvs.JWT.Secret),
		middleware.Idempotency(ttl),
	}

	ownershipHandler := handler.NewOwnershipHandler(srvs.App.Ownership, srvs.Config.Limits)
	usageHandler := handler.NewUsageHandler(srvs.App.Usage, srvs.Config.Limits)
	eventsHandler := handler.NewEventsHandler(srvs.App.Feed)
	tokenHandler := handler.NewTokenHandler(srvs.JWT)

	v1 := engine.Group("/api/v1")
	v1.GET("/events", eventsHandler.ListEvents)

	own := v1.Group("/ownership/:contract")
	{
		own.GET("", ownershipHandler.GetRegistry)
		own.GET("/records/:id", ownershipHandler.GetRecord)
		own.GET("/records/:id/attributes", ownershipHandler.GetAttributes)
		own.GET("/records/:id/metadata/:key", ownershipHandler.GetMetadata)
		own.GET("/records/:id/owner", ownershipHandler.GetOwner)
		own.GET("/agents/:agentId", ownershipHandler.ResolveAgent)
		own.GET("/balances/:holder", ownershipHandler.GetBalance)

		write := own.Group("", authenticated...)
		write.POST("/records", ownershipHandler.CreateRecord)
		write.POST("/records/:id/transfer", ownershipHandler.Transfer)
		write.POST("/pause", ownershipHandler.Pause)
		write.POST("/unpause", ownershipHandler.Unpause)
		write.PUT("/usage-link", ownershipHandler.SetUsageLink)
		write.PUT("/operators/:operator", ownershipHandler.SetOperator)
	}

	use := v1.Group("/usage/:contract")
	{
		use.GET("", usageHandler.GetRegistry)
		use.GET("/records/:id", usageHandler.GetRecord)
		use.GET("/records/:id/reference", usageHandler.GetReference)
		use.GET("/records/:id/metadata/:key", usageHandler.GetMetadata)
		use.GET("/records/:id/window", usageHandler.GetWindow)
		use.GET("/records/:id/balances/:holder", usageHandler.GetBalance)

		write := use.Group("", authenticated...)
		write.POST("/records", usageHandler.CreateRecord)
		write.POST("/records/:id/transfer", usageHandler.Transfer)
		write.POST("/records/:id/mint", usageHandler.Mint)
		write.PUT("/ownership-link", usageHandler.SetOwnershipLink)
		write.PUT("/operators/:operator", usageHandler.SetOperator)
	}

	admin := v1.Group("/admin", middleware.APIKeyAuth(srvs.Config.AdminAPIKey))
	admin.POST("/tokens", tokenHandler.IssueToken)
}
