package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eventhub/internal/app/models/dto"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthController reports whether the service and its dependencies are reachable
type HealthController struct {
	checks map[string]HealthCheck
}

// NewHealthController creates a new health controller
func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks}
}

// HealthResponse lists the state of every dependency
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health runs every check with a short timeout
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=HealthResponse}
// @Failure 503 {object} dto.ErrorResponse
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Components: make(map[string]string, len(c.checks))}
	for name, check := range c.checks {
		if err := check(checkCtx); err != nil {
			resp.Status = "degraded"
			resp.Components[name] = "down"
			continue
		}
		resp.Components[name] = "up"
	}

	if resp.Status != "ok" {
		detail := dto.NewErrorDetail(dto.ErrorCodeInternal, "Service degraded").WithDetails(resp)
		ctx.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(detail))
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

