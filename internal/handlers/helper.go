package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// DeviceIDHeader scopes countdowns and held answers to one browser.
const DeviceIDHeader = utils.DeviceIDHeader

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := c.Param(param)
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// DeviceID returns the caller's device id, falling back to the client IP.
func DeviceID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(DeviceIDHeader)); id != "" {
		return id
	}
	return c.ClientIP()
}

// parsePagination reads limit and offset, clamping limit to maxPageSize.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = parseIntQuery(c, "limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
