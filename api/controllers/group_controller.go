package controllers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/faults"
	"github.com/moyoez/speeder2raw-web/registry"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

// GroupController serves CRUD and export of tunnel groups.
// Group indices are positions in the current list and shift after a delete.
type GroupController struct {
	registry *registry.Registry
}

// NewGroupController creates a new group controller.
func NewGroupController(reg *registry.Registry) *GroupController {
	return &GroupController{registry: reg}
}

// HandleList returns all groups in order.
// GET /api/groups
func (ctrl *GroupController) HandleList(c *gin.Context) {
	groups, err := ctrl.registry.List()
	if err != nil {
		respondError(c, err, "Failed to read group list")
		return
	}
	c.JSON(http.StatusOK, groups)
}

// HandleCreate appends a group with allocated ports.
// POST /api/groups
func (ctrl *GroupController) HandleCreate(c *gin.Context) {
	var input types.GroupInput
	if !bindJSON(c, &input, "Failed to create group") {
		return
	}
	group, err := ctrl.registry.Create(input)
	if err != nil {
		respondError(c, err, "Failed to create group")
		return
	}
	c.JSON(http.StatusOK, group)
}

// HandleUpdate replaces the group at :index, keeping its ports.
// PUT /api/groups/:index
func (ctrl *GroupController) HandleUpdate(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError(msgGroupNotFound))
		return
	}
	var input types.GroupInput
	if !bindJSON(c, &input, "Failed to update group") {
		return
	}
	group, err := ctrl.registry.Update(index, input)
	if err != nil {
		respondError(c, err, "Failed to update group")
		return
	}
	c.JSON(http.StatusOK, group)
}

// HandleDelete removes the group at :index.
// DELETE /api/groups/:index
func (ctrl *GroupController) HandleDelete(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError(msgGroupNotFound))
		return
	}
	if err := ctrl.registry.Delete(index); err != nil {
		respondError(c, err, "Failed to delete group")
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleExport generates the client bundle of the group at :index and streams it as a zip.
// POST /api/groups/:index/export
func (ctrl *GroupController) HandleExport(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError(msgGroupNotFound))
		return
	}
	bundle, err := ctrl.registry.ExportClientBundle(c.Request.Context(), index)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrBundleMissing):
			respondError(c, err, "Client config not found")
		case faults.Is(err, faults.KindGeneration):
			respondError(c, err, "Failed to generate client config")
		default:
			respondError(c, err, "Failed to export config")
		}
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": bundle.FileName()}))
	c.Status(http.StatusOK)
	if err := bundle.WriteZip(c.Writer); err != nil {
		// headers are already sent, the client sees a truncated archive
		tool.DefaultLogger.Errorf("[API] Failed to stream %s: %v", bundle.FileName(), err)
		return
	}
	tool.DefaultLogger.Infof("[API] Exported client bundle %s", bundle.FileName())
}
