package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/faults"
	"github.com/moyoez/speeder2raw-web/tool"
)

const (
	msgGroupNotFound  = "Group not found"
	msgInvalidRequest = "Invalid request body"
)

// bindJSON decodes the request body into v. An empty body leaves v untouched. When the body
// cannot be used the response is written and false is returned: 400 for malformed JSON, 500
// with msg for well-formed JSON whose fields have the wrong type.
func bindJSON(c *gin.Context, v any, msg string) bool {
	err := c.ShouldBindJSON(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		tool.DefaultLogger.Errorf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(msg))
		return false
	}
	c.JSON(http.StatusBadRequest, tool.FastReturnError(msgInvalidRequest))
	return false
}

// parseIndex reads the :index path parameter. Anything that is not an integer can never be a
// valid position and is reported the same way as an out of range index.
func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, false
	}
	return index, true
}

// respondError maps a registry error to the API error body. msg is used for every failure that
// is not a missing group; the underlying error is only logged.
func respondError(c *gin.Context, err error, msg string) {
	if faults.Is(err, faults.KindNotFound) {
		c.JSON(http.StatusNotFound, tool.FastReturnError(msgGroupNotFound))
		return
	}
	tool.DefaultLogger.Errorf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, tool.FastReturnError(msg))
}
