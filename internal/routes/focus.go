package routes

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/config"
	"studyhall/internal/habit"
	"studyhall/internal/storage"
)

func FocusRoutes(r *gin.RouterGroup) {

	// List sessions in a date range, defaulting to the trailing 7 days.
	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		loc := config.Cfg.Location()
		toDay := c.DefaultQuery("to", habit.Day(time.Now().In(loc)))
		fromDay := c.DefaultQuery("from", habit.WindowStart(toDay, 7))

		fromDate, err := time.ParseInLocation(habit.DayFormat, fromDay, loc)
		if err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}
		toDate, err := time.ParseInLocation(habit.DayFormat, toDay, loc)
		if err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		// The range covers the whole of the last day.
		sessions, err := getStorage(c).ListFocusSessions(c.Request.Context(), userID, fromDate, toDate.AddDate(0, 0, 1))
		if err != nil {
			slog.Error("Failed to list focus sessions", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		minutes := 0
		for _, s := range sessions {
			minutes += s.Minutes
		}

		c.JSON(http.StatusOK, gin.H{
			"from":     fromDay,
			"to":       toDay,
			"minutes":  minutes,
			"sessions": sessions,
		})
	})

	// Start a focus session. Only one can run per user at a time.
	r.POST("/start", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req struct {
			Label string `json:"label"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		open, err := getStorage(c).GetOpenFocusSession(c.Request.Context(), userID)
		if err != nil {
			slog.Error("Failed to look up open focus session", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if open != nil {
			AbortWithError(c, ErrFocusRunning)
			return
		}

		session := storage.FocusSession{
			UserID:    userID,
			Label:     req.Label,
			StartedAt: time.Now(),
		}
		session.ID, err = getStorage(c).CreateFocusSession(c.Request.Context(), session)
		if err != nil {
			slog.Error("Failed to start focus session", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"session": session})
	})

	// Stop the running session and log the minutes, rounded to the
	// nearest whole minute.
	r.POST("/stop", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		open, err := getStorage(c).GetOpenFocusSession(c.Request.Context(), userID)
		if err != nil {
			slog.Error("Failed to look up open focus session", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if open == nil {
			AbortWithError(c, ErrFocusNotRunning)
			return
		}

		now := time.Now()
		minutes := int(now.Sub(open.StartedAt).Round(time.Minute) / time.Minute)
		if minutes < 0 {
			minutes = 0
		}

		if err := getStorage(c).FinishFocusSession(c.Request.Context(), open.ID, now, minutes); err != nil {
			slog.Error("Failed to finish focus session", "session", open.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		getWidget(c).Invalidate(userID)

		open.EndedAt = &now
		open.Minutes = minutes
		c.JSON(http.StatusOK, gin.H{"session": open, "minutes": minutes})
	})

	// Today's tally in the server timezone. A still-running session
	// contributes the minutes elapsed so far.
	r.GET("/today", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		now := time.Now().In(config.Cfg.Location())
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		to := from.AddDate(0, 0, 1)

		sessions, err := getStorage(c).ListFocusSessions(c.Request.Context(), userID, from, to)
		if err != nil {
			slog.Error("Failed to list focus sessions", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		minutes := 0
		running := false
		for _, s := range sessions {
			if s.EndedAt == nil {
				running = true
				minutes += int(now.Sub(s.StartedAt).Minutes())
				continue
			}
			minutes += s.Minutes
		}

		c.JSON(http.StatusOK, gin.H{
			"date":     habit.Day(now),
			"minutes":  minutes,
			"running":  running,
			"sessions": sessions,
		})
	})
}
