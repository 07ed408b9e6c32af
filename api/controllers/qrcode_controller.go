package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 512
)

// HandleQRCode returns a PNG QR code of the client profile of the group at :index.
// GET /api/groups/:index/qrcode?size=256
func (ctrl *GroupController) HandleQRCode(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError(msgGroupNotFound))
		return
	}
	group, global, err := ctrl.registry.Get(index)
	if err != nil {
		respondError(c, err, "Failed to read config")
		return
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	payload, err := sonic.Marshal(clientProfile(group, global))
	if err != nil {
		respondError(c, err, "Failed to encode client profile")
		return
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, size)
	if err != nil {
		respondError(c, err, "Failed to encode QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func clientProfile(group types.Group, global types.GlobalConfig) types.ClientProfile {
	return types.ClientProfile{
		Name:         group.Name,
		RemoteHost:   global.RemoteHost,
		Password:     global.Password,
		SpeederPort:  group.SpeederPort,
		Udp2rawPort:  group.Udp2rawPort,
		FecConfig:    group.FecConfig,
		Mode:         group.Mode,
		Timeout:      group.Timeout,
		Queue:        group.Queue,
		Interval:     group.Interval,
		Udp2rawExtra: group.Udp2rawExtra,
	}
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
