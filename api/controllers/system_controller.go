package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/registry"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const cpuSampleWindow = 200 * time.Millisecond

// SystemController reports host load next to the group count.
type SystemController struct {
	registry *registry.Registry
}

func NewSystemController(reg *registry.Registry) *SystemController {
	return &SystemController{registry: reg}
}

// HandleStatus returns CPU and memory usage of the host.
// GET /api/system/status
func (ctrl *SystemController) HandleStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status := types.SystemStatus{}

	if percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	} else if err != nil {
		tool.DefaultLogger.Warnf("[API] Failed to sample CPU usage: %v", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemUsed = vm.Used
		status.MemTotal = vm.Total
		status.MemPercent = vm.UsedPercent
	} else {
		tool.DefaultLogger.Warnf("[API] Failed to read memory usage: %v", err)
	}

	groups, err := ctrl.registry.List()
	if err != nil {
		respondError(c, err, "Failed to read config")
		return
	}
	status.Groups = len(groups)
	c.JSON(http.StatusOK, status)
}
