package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lifeboard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lifeboard-backend/internal/http/middleware"
	"github.com/yungbote/lifeboard-backend/internal/observability"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	ServiceName     string
	CORSOrigins     []string
	MaxRequestBytes int64

	// Metrics is nil when metrics are disabled.
	Metrics     *observability.Metrics
	MetricsPath string

	BoardHandler  *httpH.BoardHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.BodyLimit(cfg.MaxRequestBytes))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Boards
		if cfg.BoardHandler != nil {
			api.POST("/boards", cfg.BoardHandler.CreateBoard)
			api.GET("/boards", cfg.BoardHandler.ListBoards)
			api.GET("/boards/:id", cfg.BoardHandler.GetBoard)
			api.GET("/boards/:id/next", cfg.BoardHandler.GetNextState)
			api.GET("/boards/:id/steps/:steps", cfg.BoardHandler.GetStateAfterSteps)
			api.GET("/boards/:id/final", cfg.BoardHandler.GetFinalState)
			api.GET("/boards/:id/image", cfg.BoardHandler.GetImage)
		}
	}

	return r
}
