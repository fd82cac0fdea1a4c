package routes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/habit"
	"studyhall/internal/metrics"
	"studyhall/internal/storage"
)

// habitByParam loads the habit named by :id and checks ownership. Habits
// of other users read as not found.
func habitByParam(c *gin.Context) *storage.Habit {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return nil
	}
	h, err := getStorage(c).GetHabit(c.Request.Context(), id)
	if err != nil {
		slog.Error("Failed to load habit", "habit", id, "error", err)
		AbortWithError(c, ErrDatabaseError)
		return nil
	}
	userID, _ := GetUser(c)
	if h == nil || h.UserID != userID {
		AbortWithError(c, habit.ErrHabitMissing)
		return nil
	}
	return h
}

// optionalDay reads a "day" override from the JSON body or query string.
// An empty body is fine, the tracker falls back to the server's today.
func optionalDay(c *gin.Context) (string, error) {
	day := c.Query("day")
	if day == "" {
		var req struct {
			Day string `json:"day"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", ErrInvalidRequest
		}
		day = req.Day
	}
	if day != "" {
		if _, err := time.Parse(habit.DayFormat, day); err != nil {
			return "", ErrInvalidParameter
		}
	}
	return day, nil
}

// statsWindows maps the stats window parameter to its trailing day span.
var statsWindows = map[string]int{
	"week":  7,
	"month": 30,
	"year":  365,
}

func HabitRoutes(r *gin.RouterGroup) {

	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		day, err := optionalDay(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		summaries, err := getTracker(c).Overview(c.Request.Context(), userID, day)
		if err != nil {
			slog.Error("Failed to build habit overview", "error", err)
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"habits": summaries})
	})

	r.POST("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req struct {
			Name        string            `json:"name" binding:"required"`
			Color       string            `json:"color"`
			Frequency   storage.Frequency `json:"frequency" binding:"omitempty,oneof=Daily Weekly Monthly"`
			TargetCount int               `json:"targetCount" binding:"omitempty,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.Frequency == "" {
			req.Frequency = storage.FrequencyDaily
		}
		if req.TargetCount == 0 {
			req.TargetCount = 1
		}

		id, err := getStorage(c).CreateHabit(c.Request.Context(), storage.Habit{
			UserID:      userID,
			Name:        req.Name,
			Color:       req.Color,
			Frequency:   req.Frequency,
			TargetCount: req.TargetCount,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			slog.Error("Failed to create habit", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		getWidget(c).Invalidate(userID)
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	r.PATCH("/:id", func(c *gin.Context) {
		h := habitByParam(c)
		if h == nil {
			return
		}

		var req struct {
			Name        string            `json:"name"`
			Color       string            `json:"color"`
			Frequency   storage.Frequency `json:"frequency" binding:"omitempty,oneof=Daily Weekly Monthly"`
			TargetCount int               `json:"targetCount" binding:"omitempty,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.Name != "" {
			h.Name = req.Name
		}
		if req.Color != "" {
			h.Color = req.Color
		}
		if req.Frequency != "" {
			h.Frequency = req.Frequency
		}
		if req.TargetCount != 0 {
			h.TargetCount = req.TargetCount
		}

		if err := getStorage(c).UpdateHabit(c.Request.Context(), *h); err != nil {
			slog.Error("Failed to update habit", "habit", h.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		getWidget(c).Invalidate(h.UserID)
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	})

	r.POST("/:id/archive", func(c *gin.Context) {
		h := habitByParam(c)
		if h == nil {
			return
		}

		store := getStorage(c)
		if err := store.ArchiveHabit(c.Request.Context(), h.ID, time.Now()); err != nil {
			slog.Error("Failed to archive habit", "habit", h.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if err := store.CancelReminder(c.Request.Context(), storage.ReminderHabit, h.ID); err != nil {
			slog.Error("Failed to cancel habit reminder", "habit", h.ID, "error", err)
		}

		getWidget(c).Invalidate(h.UserID)
		c.JSON(http.StatusOK, gin.H{"status": "archived"})
	})

	// Toggle today's completion. Clients in another timezone send their
	// local day so the streak follows their calendar, not the server's.
	r.POST("/:id/toggle", func(c *gin.Context) {
		h := habitByParam(c)
		if h == nil {
			return
		}
		day, err := optionalDay(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		entry, completed, err := getTracker(c).Toggle(c.Request.Context(), h.ID, day)
		if err != nil {
			slog.Warn("Habit toggle rejected", "habit", h.ID, "error", err)
			AbortWithError(c, err)
			return
		}

		metrics.HabitMarks.WithLabelValues("toggle").Inc()
		getWidget(c).Invalidate(h.UserID)

		summary, err := getTracker(c).Summarize(c.Request.Context(), h.ID, day)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"completed": completed,
			"entry":     entry,
			"summary":   summary,
		})
	})

	// Log one more completion for the day. Unlike toggle this never
	// unmarks; habits with a target above one call it repeatedly.
	r.POST("/:id/log", func(c *gin.Context) {
		h := habitByParam(c)
		if h == nil {
			return
		}
		day, err := optionalDay(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		entry, err := getTracker(c).Log(c.Request.Context(), h.ID, day)
		if err != nil {
			slog.Warn("Habit log rejected", "habit", h.ID, "error", err)
			AbortWithError(c, err)
			return
		}

		metrics.HabitMarks.WithLabelValues("log").Inc()
		getWidget(c).Invalidate(h.UserID)

		summary, err := getTracker(c).Summarize(c.Request.Context(), h.ID, day)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"entry":   entry,
			"summary": summary,
		})
	})

	r.GET("/:id/stats", func(c *gin.Context) {
		h := habitByParam(c)
		if h == nil {
			return
		}
		day, err := optionalDay(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		span, ok := statsWindows[c.DefaultQuery("window", "week")]
		if !ok {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		summary, err := getTracker(c).Summarize(c.Request.Context(), h.ID, day)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		to := day
		if to == "" {
			to = habit.Day(time.Now())
		}
		from := habit.WindowStart(to, span)
		entries, err := getStorage(c).ListHabitEntriesBetween(c.Request.Context(), h.ID, from, to)
		if err != nil {
			slog.Error("Failed to list habit entries", "habit", h.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"summary": summary,
			"from":    from,
			"to":      to,
			"count":   habit.CompletedCount(entries, from),
			"entries": entries,
		})
	})

	r.POST("/:id/reminder", func(c *gin.Context) {
		h := habitByParam(c)
		if h == nil {
			return
		}

		var req struct {
			At time.Time `json:"at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		_, err := getStorage(c).ScheduleReminder(c.Request.Context(), storage.Reminder{
			UserID:  h.UserID,
			Kind:    storage.ReminderHabit,
			RefID:   h.ID,
			Subject: fmt.Sprintf("Keep your streak: %s", h.Name),
			Body:    fmt.Sprintf("<p>Don't break the chain on <b>%s</b> today.</p>", h.Name),
			DueAt:   req.At,
		})
		if err != nil {
			slog.Error("Failed to schedule habit reminder", "habit", h.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "scheduled"})
	})

	r.DELETE("/:id/reminder", func(c *gin.Context) {
		h := habitByParam(c)
		if h == nil {
			return
		}

		if err := getStorage(c).CancelReminder(c.Request.Context(), storage.ReminderHabit, h.ID); err != nil {
			slog.Error("Failed to cancel habit reminder", "habit", h.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.Status(http.StatusNoContent)
	})
}
