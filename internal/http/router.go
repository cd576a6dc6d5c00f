package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/http/handlers"
	"github.com/geocoder89/workerhub/internal/http/middlewares"
	"github.com/geocoder89/workerhub/internal/observability"
	"github.com/geocoder89/workerhub/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Env string
	Log *slog.Logger

	Accounts handlers.AccountsService
	Projects handlers.ProjectsService
	Tokens   middlewares.TokenVerifier

	// optional: the admin job console is only mounted when set
	Jobs handlers.AdminJobsRepo

	// optional: falls back to an in-process fixed window
	Limiter            middlewares.Limiter
	RateLimitPerMinute int

	Prom    *observability.Prom
	Metrics http.Handler
	Checks  map[string]handlers.Pinger

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	OTELEnabled        bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.Register(v); err != nil {
			d.Log.Error("register validators failed", "err", err)
		}
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if d.OTELEnabled {
		r.Use(otelgin.Middleware("workerhub-api"))
	}
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	}
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metrics))

	authMW := middlewares.NewAuthMiddleware(d.Tokens)

	limiter := d.Limiter
	if limiter == nil {
		perMinute := d.RateLimitPerMinute
		if perMinute <= 0 {
			perMinute = 20
		}
		limiter = middlewares.NewRateLimiter(perMinute, time.Minute)
	}
	throttle := middlewares.RateLimit(limiter, middlewares.KeyByIP, d.Log)

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Log)
	projectsHandler := handlers.NewProjectsHandler(d.Projects, d.Log)

	api := r.Group("/api")
	api.GET("/", handlers.APIRoot)

	// public auth routes
	api.POST("/register/worker", throttle, authHandler.RegisterWorker)
	api.POST("/register/admin", throttle, authMW.OptionalAuth(), authHandler.RegisterAdmin)
	api.POST("/login", throttle, authHandler.Login)
	api.POST("/token/refresh", authHandler.Refresh)
	api.POST("/logout", authHandler.Logout)
	api.POST("/password-reset", throttle, authHandler.RequestPasswordReset)
	api.POST("/password-reset/confirm", throttle, authHandler.ConfirmPasswordReset)

	// projects
	projects := api.Group("/projects")
	projects.Use(authMW.RequireAuth())
	{
		projects.GET("", projectsHandler.List)
		projects.POST("", projectsHandler.Create)
		projects.GET("/grouped", projectsHandler.Grouped)
		projects.GET("/search", projectsHandler.Search)
		projects.GET("/:id", projectsHandler.Get)
		projects.PUT("/:id", projectsHandler.Replace)
		projects.PATCH("/:id", projectsHandler.Patch)
		projects.DELETE("/:id", projectsHandler.Delete)
		projects.PATCH("/:id/status", projectsHandler.UpdateStatus)
	}

	if d.Jobs != nil {
		adminJobs := handlers.NewAdminJobsHandler(d.Jobs, d.Log)

		admin := api.Group("/admin")
		admin.Use(authMW.RequireAuth(), middlewares.RequireRole(account.RoleAdmin))
		{
			admin.GET("/jobs", adminJobs.List)
			admin.POST("/jobs/retry-failed", adminJobs.RetryFailed)
			admin.GET("/jobs/:id", adminJobs.GetByID)
			admin.POST("/jobs/:id/retry", adminJobs.Retry)
		}
	}

	return r
}
