package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/tidewell/filegate/api/controllers"
	"github.com/tidewell/filegate/api/middlewares"
	"github.com/tidewell/filegate/api/notifyhub"
	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/types"
)

// Deps bundles the collaborators the route handlers need.
type Deps struct {
	Cfg    *types.AppConfig
	Upload *controllers.UploadController
	Scan   *controllers.ScanController
	Hub    *notifyhub.Hub
}

// Server is the HTTP API server receiving transfer and scan requests.
type Server struct {
	port   int
	deps   Deps
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

func NewServer(port int, deps Deps) *Server {
	return &Server{port: port, deps: deps}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1 := engine.Group("/api/filegate/v1")
	{
		upload := v1.Group("")
		if s.deps.Cfg.RateLimitPPS > 0 {
			upload.Use(middlewares.RateLimitPerClient(s.deps.Cfg.RateLimitPPS, s.deps.Cfg.RateLimitBurst))
		}
		upload.POST("/upload", s.deps.Upload.HandleUpload)

		v1.POST("/scan", s.deps.Scan.HandleScan)
		v1.GET("/files", s.deps.Upload.HandleListFiles)
		v1.GET("/info", controllers.HandleInfo)
		if s.deps.Hub != nil {
			v1.GET("/progress-ws", notifyhub.HandleProgressWS(s.deps.Hub))
		}
	}
	return engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: engine,
	}
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on :%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
