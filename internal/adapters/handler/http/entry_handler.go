package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-habits/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-habits/internal/core/services"
)

type EntryHandler struct {
	svc *services.EntryService
}

func NewEntryHandler(svc *services.EntryService) *EntryHandler {
	return &EntryHandler{
		svc: svc,
	}
}

type upsertEntryRequest struct {
	HabitID string `json:"habit_id" binding:"required"`
	Date    string `json:"date" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

type deleteEntryResponse struct {
	Streak streakResponse `json:"streak"`
}

type streakResponse struct {
	HabitID       string `json:"habit_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup, limit RouteLimiter) {
	entries := router.Group("/entries")
	{
		entries.PUT("", limit("entries_write", 240), h.Upsert)
		entries.GET("", limit("habits_read", 120), h.ListByHabit)
		entries.DELETE("/:id", limit("entries_write", 240), h.Delete)
	}
}

// Upsert godoc
// @Summary  Record the status of a habit on a day
// @Description Replaces the status already recorded for (habit_id, date) and returns the recomputed streak.
// @Tags     entries
// @Accept   json
// @Produce  json
// @Param    body body upsertEntryRequest true "entry"
// @Success  200 {object} services.EntryResult
// @Failure  400 {object} errorResponse
// @Failure  404 {object} errorResponse
// @Security BearerAuth
// @Router   /entries [put]
func (h *EntryHandler) Upsert(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "user context missing"})
		return
	}

	var req upsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.svc.Upsert(c.Request.Context(), services.UpsertEntryInput{
		HabitID: req.HabitID,
		UserID:  userID,
		Date:    req.Date,
		Status:  req.Status,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListByHabit godoc
// @Summary  List the entries of a habit, most recent first
// @Tags     entries
// @Produce  json
// @Param    habit_id query string true  "habit id"
// @Param    from     query string false "YYYY-MM-DD, defaults to 30 days before to"
// @Param    to       query string false "YYYY-MM-DD, defaults to today"
// @Success  200 {array} domain.HabitEntry
// @Failure  400 {object} errorResponse
// @Failure  404 {object} errorResponse
// @Security BearerAuth
// @Router   /entries [get]
func (h *EntryHandler) ListByHabit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "user context missing"})
		return
	}

	habitID := c.Query("habit_id")
	if habitID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "habit_id is required"})
		return
	}

	list, err := h.svc.ListByHabitID(c.Request.Context(), services.ListEntriesInput{
		HabitID: habitID,
		UserID:  userID,
		From:    c.Query("from"),
		To:      c.Query("to"),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Delete godoc
// @Summary  Delete an entry and return the recomputed streak
// @Tags     entries
// @Produce  json
// @Param    id path string true "entry id"
// @Success  200 {object} deleteEntryResponse
// @Failure  404 {object} errorResponse
// @Security BearerAuth
// @Router   /entries/{id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "user context missing"})
		return
	}

	state, err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, deleteEntryResponse{Streak: streakResponse{
		HabitID:       state.HabitID,
		CurrentStreak: state.CurrentStreak,
		LongestStreak: state.LongestStreak,
	}})
}
