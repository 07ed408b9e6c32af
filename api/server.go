package api

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/api/controllers"
	"github.com/moyoez/speeder2raw-web/api/middlewares"
	"github.com/moyoez/speeder2raw-web/api/notifyhub"
	"github.com/moyoez/speeder2raw-web/registry"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

// Server represents the HTTP API server of the console
type Server struct {
	cfg      types.AppConfig
	registry *registry.Registry
	hub      *notifyhub.Hub
	probe    controllers.ProbeFunc
	engine   *gin.Engine
	server   *http.Server
	mu       sync.RWMutex
}

// NewServer creates a new API server. hub may be nil, which disables /api/events.
func NewServer(cfg types.AppConfig, reg *registry.Registry, hub *notifyhub.Hub) *Server {
	return &Server{
		cfg:      cfg,
		registry: reg,
		hub:      hub,
		probe:    controllers.NewPingProbe(cfg.PrivilegedPing),
	}
}

// SetProbe replaces the remote host probe.
func (s *Server) SetProbe(probe controllers.ProbeFunc) {
	s.probe = probe
}

// Handler builds the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()

	configCtrl := controllers.NewConfigController(s.registry, s.probe)
	groupCtrl := controllers.NewGroupController(s.registry)
	systemCtrl := controllers.NewSystemController(s.registry)

	apiGroup := engine.Group("/api", middlewares.RequestID())
	if s.cfg.LocalOnly {
		apiGroup.Use(middlewares.OnlyAllowLocal)
	}
	{
		apiGroup.GET("/config", configCtrl.HandleConfigGet)
		apiGroup.PUT("/config/global", configCtrl.HandleGlobalPut)
		apiGroup.POST("/config/global/probe", configCtrl.HandleGlobalProbe)

		apiGroup.GET("/groups", groupCtrl.HandleList)
		apiGroup.POST("/groups", groupCtrl.HandleCreate)
		apiGroup.PUT("/groups/:index", groupCtrl.HandleUpdate)
		apiGroup.DELETE("/groups/:index", groupCtrl.HandleDelete)
		apiGroup.POST("/groups/:index/export",
			middlewares.RateLimitPerClient(s.cfg.ExportRatePerMinute, s.cfg.ExportBurst),
			groupCtrl.HandleExport)
		apiGroup.GET("/groups/:index/qrcode", groupCtrl.HandleQRCode)

		apiGroup.GET("/system/status", systemCtrl.HandleStatus)
		if s.hub != nil {
			apiGroup.GET("/events", notifyhub.HandleNotifyWS(s.hub))
		}
	}

	s.serveWebUI(engine)
	return engine
}

// serveWebUI serves the static front end from WebDir. Paths without a file extension fall back
// to index.html; unknown /api paths get a JSON 404.
func (s *Server) serveWebUI(engine *gin.Engine) {
	webFS := webDirFS(s.cfg.WebDir)
	fileServer := http.FileServer(http.FS(webFS))

	engine.NoRoute(func(c *gin.Context) {
		path := strings.TrimPrefix(c.Request.URL.Path, "/")
		if path == "api" || strings.HasPrefix(path, "api/") || webFS == nil {
			c.JSON(http.StatusNotFound, tool.FastReturnError("Not found"))
			return
		}
		if path == "" {
			path = "index.html"
		}

		if ext := filepath.Ext(path); ext != "" && ext != ".html" {
			if _, err := fs.Stat(webFS, path); err == nil {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
			c.JSON(http.StatusNotFound, tool.FastReturnError("Not found"))
			return
		}

		data, err := fs.ReadFile(webFS, "index.html")
		if err != nil {
			c.JSON(http.StatusNotFound, tool.FastReturnError("Not found"))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	})
}

func webDirFS(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		tool.DefaultLogger.Warnf("[Server] Web UI directory %q not available, serving API only", dir)
		return nil
	}
	tool.DefaultLogger.Infof("[Server] Serving web UI from %s", dir)
	return os.DirFS(dir)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: engine,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
