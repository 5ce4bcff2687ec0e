// Package http wires handlers and middleware into the gin engine.
package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"vulntrack/internal/infrastructure/auth"
	"vulntrack/internal/infrastructure/ratelimit"
	"vulntrack/internal/interfaces/bootstrap"
	"vulntrack/internal/interfaces/http/handlers"
	"vulntrack/internal/interfaces/http/middleware"
)

// Router owns the engine and every handler mounted on it.
type Router struct {
	engine *gin.Engine
	app    *bootstrap.App

	vulnerabilityHandler *handlers.VulnerabilityHandler
	findingHandler       *handlers.FindingHandler
	organizationHandler  *handlers.OrganizationHandler
	authzHandler         *handlers.AuthzHandler
	healthHandler        *handlers.HealthHandler

	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

// NewRouter creates the router for a wired application.
func NewRouter(app *bootstrap.App) *Router {
	cfg := app.Config
	log := app.Log.Named("http")

	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.AccessExpMinutes)
	limiter := ratelimit.NewRedisRateLimiter(app.Redis)

	return &Router{
		engine: gin.New(),
		app:    app,

		vulnerabilityHandler: handlers.NewVulnerabilityHandler(app.Engine, app.Repos.Vulnerabilities, app.Guards, log),
		findingHandler:       handlers.NewFindingHandler(app.Findings, app.Repos.Findings, app.Engine, app.Guards, log),
		organizationHandler:  handlers.NewOrganizationHandler(app.Organizations, log),
		authzHandler:         handlers.NewAuthzHandler(app.Authz, app.Guards, log),
		healthHandler: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := app.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return app.Redis.Ping(ctx).Err()
			},
		}, log),

		authMiddleware: middleware.NewAuthMiddleware(jwtSvc, log),
		rateLimiter: middleware.NewRateLimiter(limiter, ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.MutationsPerMinute,
			RequestsPerHour:   cfg.RateLimit.MutationsPerHour,
		}, log),
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	log := r.app.Log.Named("http")

	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery(log))
	r.engine.Use(middleware.Logger(log, r.app.Metrics))

	r.engine.GET("/healthz", r.healthHandler.Health)
	r.engine.GET("/metrics", gin.WrapH(r.app.Metrics.Handler()))

	api := r.engine.Group("/api")
	api.Use(r.authMiddleware.RequireAuth(), middleware.RequestMemo(), r.rateLimiter.Limit())

	authz := api.Group("/authz")
	{
		authz.POST("/grants", r.authzHandler.Grant)
		authz.DELETE("/grants", r.authzHandler.Revoke)
		authz.POST("/check", r.authzHandler.Check)
		authz.GET("/policies", r.authzHandler.ListPolicies)
	}

	orgs := api.Group("/organizations")
	{
		orgs.POST("", r.organizationHandler.CreateOrganization)
		orgs.POST("/:id/groups", r.organizationHandler.CreateGroup)
		orgs.GET("/:id/policies", r.organizationHandler.GetPolicies)
		orgs.PUT("/:id/policies", r.organizationHandler.UpdatePolicies)
	}

	groups := api.Group("/groups/:group")
	{
		groups.PUT("/services/:service", r.authzHandler.GrantService)
		groups.DELETE("/services/:service", r.authzHandler.RevokeService)
		groups.POST("/exclusions", r.findingHandler.CloseByExclusion)
		groups.POST("/decommission", r.findingHandler.DecommissionGroup)
		groups.POST("/mask", r.findingHandler.MaskGroup)
	}

	findings := api.Group("/findings")
	{
		findings.POST("", r.findingHandler.CreateDraft)
		findings.DELETE("/:id", r.findingHandler.RemoveFinding)
		findings.POST("/:id/vulnerabilities", r.findingHandler.ReportVulnerability)
		findings.POST("/:id/submit", r.findingHandler.SubmitDraft)
		findings.POST("/:id/approve", r.findingHandler.ApproveDraft)
		findings.POST("/:id/reject", r.findingHandler.RejectDraft)
		findings.POST("/:id/verification", r.findingHandler.RequestVerification)
		findings.POST("/:id/verify", r.findingHandler.Verify)
	}

	api.POST("/vulnerabilities/:id/:mutation", r.vulnerabilityHandler.Mutate)
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
