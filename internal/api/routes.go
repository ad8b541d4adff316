package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/middleware"
)

// RouterConfig carries the optional parts of the HTTP surface. A nil Gatherer
// disables the metrics endpoint.
type RouterConfig struct {
	ServiceName string
	Version     string
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Logger      *logrus.Entry
}

type Router struct {
	engine         *gin.Engine
	cfg            RouterConfig
	codeHandler    *CodeHandler
	counterHandler *CounterHandler
	healthHandler  *HealthHandler
}

func NewRouter(alloc *codegen.Allocator, backend counter.Backend, cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = logging.WithComponent("http")
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(cfg.Logger))

	return &Router{
		engine:         engine,
		cfg:            cfg,
		codeHandler:    NewCodeHandler(alloc),
		counterHandler: NewCounterHandler(backend),
		healthHandler:  NewHealthHandler(backend, cfg.ServiceName, cfg.Version),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", r.healthHandler.Health)
	if r.cfg.Gatherer != nil {
		r.engine.GET(r.cfg.MetricsPath, gin.WrapH(promhttp.HandlerFor(r.cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.engine.Group("/api/v1")
	{
		codes := v1.Group("/codes")
		{
			codes.POST("", r.codeHandler.AllocateCode)
			codes.GET("/:code/parse", r.codeHandler.ParseCode)
		}

		counters := v1.Group("/counters")
		{
			counters.GET("", r.counterHandler.ListCounters)
			counters.GET("/:module/:year", r.counterHandler.GetCounter)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
