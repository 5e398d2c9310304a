package router

import (
	"time"

	"chainfund/config"
	"chainfund/internal/domain"
	"chainfund/internal/handler"
	"chainfund/internal/middleware"
	"chainfund/internal/repository"
	"chainfund/internal/service"
	"chainfund/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	donationRepo := repository.NewDonationRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	chainerRepo := repository.NewChainerRepository(db)
	commissionRepo := repository.NewCommissionPayoutRepository(db)
	campaignPayoutRepo := repository.NewCampaignPayoutRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Payment providers
	stripe := payment.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	paystack := payment.NewPaystackProvider(cfg.Paystack.SecretKey)
	verifiers := map[string]payment.WebhookVerifier{
		"stripe":   stripe,
		"paystack": paystack,
	}
	transfers := map[string]payment.TransferProvider{
		"stripe":   stripe,
		"paystack": paystack,
	}

	// Services
	notifSvc := service.NewNotificationService(notificationRepo, 0)
	lifecycle := service.NewLifecycleService(campaignRepo, notifSvc)
	reconciler := service.NewReconcileService(db, donationRepo, campaignRepo, chainerRepo, commissionRepo, auditRepo, lifecycle, notifSvc)
	payoutSvc := service.NewPayoutService(campaignRepo, campaignPayoutRepo, commissionRepo, chainerRepo, auditRepo, notifSvc, transfers)
	donationSvc := service.NewDonationService(donationRepo, campaignRepo, chainerRepo)
	chainerSvc := service.NewChainerService(campaignRepo, chainerRepo)

	// Handlers
	webhookHandler := handler.NewWebhookHandler(reconciler, payoutSvc, verifiers)
	donationHandler := handler.NewDonationHandler(donationSvc)
	chainerHandler := handler.NewChainerHandler(chainerSvc)
	payoutHandler := handler.NewPayoutHandler(payoutSvc)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	adminHandler := handler.NewAdminHandler(lifecycle, payoutSvc, donationRepo, chainerRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		api.POST("/donations", authMw, donationHandler.Create)
		api.GET("/donations/:id", authMw, donationHandler.Get)
		api.POST("/campaigns/:id/chain", authMw, chainerHandler.Join)
		api.POST("/payouts", authMw, middleware.RequireRole(domain.RoleCreator, domain.RoleAdmin), payoutHandler.Request)

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/chainers", chainerHandler.ListMine)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.POST("/campaigns/:id/close", adminHandler.CloseCampaign)
			admin.POST("/campaigns/:id/pause", adminHandler.PauseCampaign)
			admin.POST("/commission-payouts/:id/approve", adminHandler.ApproveCommissionPayout)
			admin.POST("/commission-payouts/:id/reject", adminHandler.RejectCommissionPayout)
			admin.POST("/chainers/:id/status", adminHandler.SetChainerStatus)
			admin.GET("/donations/:id", adminHandler.GetDonation)
		}

		// Webhooks carry their own signature auth.
		api.POST("/webhooks/:provider", webhookHandler.Handle)
	}

	return r
}
