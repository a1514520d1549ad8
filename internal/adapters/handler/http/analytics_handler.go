package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-habits/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-habits/internal/core/services"
)

const analyticsCacheControl = "private, max-age=30, stale-while-revalidate=60"

type AnalyticsHandler struct {
	svc *services.AnalyticsService
}

func NewAnalyticsHandler(svc *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup, limit RouteLimiter) {
	router.GET("/analytics", limit("analytics", 60), h.Report)
}

// Report godoc
// @Summary  Completion analytics over the last N days
// @Description days is clamped to [1, 365] and defaults to 365.
// @Tags     analytics
// @Produce  json
// @Param    days query int false "window length in days"
// @Success  200 {object} domain.AnalyticsReport
// @Failure  400 {object} errorResponse
// @Security BearerAuth
// @Router   /analytics [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "user context missing"})
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "days must be an integer"})
			return
		}
		days = parsed
		if days == 0 {
			days = 1
		}
	}

	report, err := h.svc.Report(c.Request.Context(), userID, days)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Cache-Control", analyticsCacheControl)
	c.JSON(http.StatusOK, report)
}
