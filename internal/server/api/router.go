package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/EBOLABOY/aeroscout/internal/core/job"
	"github.com/EBOLABOY/aeroscout/internal/core/runner"
	"github.com/EBOLABOY/aeroscout/internal/core/stats"
	"github.com/EBOLABOY/aeroscout/internal/server/api/handlers"
	"github.com/EBOLABOY/aeroscout/internal/server/api/middleware"
)

type RouterConfig struct {
	Jobs         *job.Manager
	Runner       *runner.Runner
	Stats        *stats.Collector
	JWTSecret    string
	PollInterval time.Duration
	StreamWait   time.Duration
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	config := huma.DefaultConfig("AeroScout API", "1.0.0")
	config.Servers = []*huma.Server{{URL: "/api/v1"}}
	config.Info.Description = "Asynchronous multi-provider flight search"
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"BearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Optional JWT Bearer token; anonymous access is allowed",
		},
	}

	hAPI := humaecho.NewWithGroup(e, v1, config)

	authMw := middleware.OptionalAuth(cfg.JWTSecret)

	jobsHandler := handlers.NewJobsHandler(cfg.Jobs, cfg.Runner)
	huma.Register(hAPI, huma.Operation{
		OperationID:   "search-create-job",
		Method:        http.MethodPost,
		Path:          "/search/jobs",
		Summary:       "Start an asynchronous flight search",
		Tags:          []string{"Search"},
		Security:      []map[string][]string{{}, {"BearerAuth": {}}},
		Middlewares:   huma.Middlewares{authMw},
		DefaultStatus: http.StatusCreated,
	}, jobsHandler.Create)

	huma.Register(hAPI, huma.Operation{
		OperationID: "jobs-get-status",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get job status",
		Tags:        []string{"Jobs"},
		Security:    []map[string][]string{{}, {"BearerAuth": {}}},
		Middlewares: huma.Middlewares{authMw},
	}, jobsHandler.Get)

	huma.Register(hAPI, huma.Operation{
		OperationID: "jobs-get-result",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}/result",
		Summary:     "Get the finished search report",
		Tags:        []string{"Jobs"},
		Security:    []map[string][]string{{}, {"BearerAuth": {}}},
		Middlewares: huma.Middlewares{authMw},
	}, jobsHandler.GetResult)

	statsHandler := handlers.NewStatsHandler(cfg.Stats)
	huma.Register(hAPI, huma.Operation{
		OperationID: "stats-get",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Engine counters",
		Tags:        []string{"Stats"},
	}, statsHandler.Get)

	// SSE does not fit the OpenAPI surface; it rides on echo directly.
	streamHandler := handlers.NewStreamHandler(cfg.Jobs, cfg.JWTSecret, cfg.PollInterval, cfg.StreamWait)
	v1.GET("/jobs/:id/stream", streamHandler.Handle)
}
