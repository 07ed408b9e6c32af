package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/registry"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

// ProbeFunc measures reachability of host.
type ProbeFunc func(ctx context.Context, host string) (*types.ProbeResult, error)

// ConfigController serves the whole document and the global settings.
type ConfigController struct {
	registry *registry.Registry
	probe    ProbeFunc
}

// NewConfigController creates a new config controller. probe may be nil to disable probing.
func NewConfigController(reg *registry.Registry, probe ProbeFunc) *ConfigController {
	return &ConfigController{registry: reg, probe: probe}
}

// HandleConfigGet returns the whole config document.
// GET /api/config
func (ctrl *ConfigController) HandleConfigGet(c *gin.Context) {
	doc, err := ctrl.registry.Document()
	if err != nil {
		respondError(c, err, "Failed to read config")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// HandleGlobalPut replaces the global settings.
// PUT /api/config/global
func (ctrl *ConfigController) HandleGlobalPut(c *gin.Context) {
	var global types.GlobalConfig
	if !bindJSON(c, &global, "Failed to update global config") {
		return
	}
	if err := ctrl.registry.UpdateGlobal(global); err != nil {
		respondError(c, err, "Failed to update global config")
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleGlobalProbe pings the configured remote host.
// POST /api/config/global/probe
func (ctrl *ConfigController) HandleGlobalProbe(c *gin.Context) {
	if ctrl.probe == nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Probe is not available"))
		return
	}
	doc, err := ctrl.registry.Document()
	if err != nil {
		respondError(c, err, "Failed to read config")
		return
	}
	result, err := ctrl.probe(c.Request.Context(), doc.Global.RemoteHost)
	if err != nil {
		tool.DefaultLogger.Warnf("[API] Probe of %s failed: %v", doc.Global.RemoteHost, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to probe remote host"))
		return
	}
	c.JSON(http.StatusOK, result)
}
