package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/habit"
	"studyhall/internal/storage"
)

// dayParam validates the :day path parameter as a calendar date.
func dayParam(c *gin.Context) (string, error) {
	day := c.Param("day")
	if _, err := time.Parse(habit.DayFormat, day); err != nil {
		return "", ErrInvalidParameter
	}
	return day, nil
}

func JournalRoutes(r *gin.RouterGroup) {

	// List entries in a date range, defaulting to the trailing 30 days.
	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		to := c.DefaultQuery("to", habit.Day(time.Now()))
		from := c.DefaultQuery("from", habit.WindowStart(to, 30))
		if _, err := time.Parse(habit.DayFormat, from); err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}
		if _, err := time.Parse(habit.DayFormat, to); err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		entries, err := getStorage(c).ListJournalEntries(c.Request.Context(), userID, from, to)
		if err != nil {
			slog.Error("Failed to list journal entries", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"entries": entries})
	})

	r.GET("/:day", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		day, err := dayParam(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		entry, err := getStorage(c).GetJournalEntryByDay(c.Request.Context(), userID, day)
		if err != nil {
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if entry == nil {
			AbortWithError(c, ErrNotFound)
			return
		}

		c.JSON(http.StatusOK, gin.H{"entry": entry})
	})

	// One entry per day. Writing a day that already has one replaces it.
	r.PUT("/:day", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		day, err := dayParam(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		var req struct {
			Mood int    `json:"mood" binding:"required,min=1,max=5"`
			Body string `json:"body"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		id, err := getStorage(c).UpsertJournalEntry(c.Request.Context(), storage.JournalEntry{
			UserID:    userID,
			Day:       day,
			Mood:      req.Mood,
			Body:      req.Body,
			CreatedAt: time.Now(),
		})
		if err != nil {
			slog.Error("Failed to write journal entry", "day", day, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	r.DELETE("/:day", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		day, err := dayParam(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if err := getStorage(c).DeleteJournalEntry(c.Request.Context(), userID, day); err != nil {
			slog.Error("Failed to delete journal entry", "day", day, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.Status(http.StatusNoContent)
	})
}
