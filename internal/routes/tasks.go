package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/storage"
)

// taskByParam loads the task named by :id and checks it belongs to the
// caller. Tasks of other users read as not found.
func taskByParam(c *gin.Context) *storage.Task {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return nil
	}
	task, err := getStorage(c).GetTask(c.Request.Context(), id)
	if err != nil {
		slog.Error("Failed to load task", "task", id, "error", err)
		AbortWithError(c, ErrDatabaseError)
		return nil
	}
	userID, _ := GetUser(c)
	if task == nil || task.UserID != userID {
		AbortWithError(c, ErrNotFound)
		return nil
	}
	return task
}

// scheduleTaskReminder upserts the task's reminder, so moving a due date
// replaces the previous one.
func scheduleTaskReminder(c *gin.Context, task *storage.Task, at time.Time) error {
	_, err := getStorage(c).ScheduleReminder(c.Request.Context(), storage.Reminder{
		UserID:  task.UserID,
		Kind:    storage.ReminderTask,
		RefID:   task.ID,
		Subject: fmt.Sprintf("Task due: %s", task.Title),
		Body:    fmt.Sprintf("<p>Your task <b>%s</b> is waiting.</p>", task.Title),
		DueAt:   at,
	})
	return err
}

func TaskRoutes(r *gin.RouterGroup) {

	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		includeDone := c.Query("all") != ""
		tasks, err := getStorage(c).ListTasks(c.Request.Context(), userID, includeDone)
		if err != nil {
			slog.Error("Failed to list tasks", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	})

	r.POST("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req struct {
			Title    string     `json:"title" binding:"required"`
			Notes    string     `json:"notes"`
			CourseID *int64     `json:"courseId"`
			DueAt    *time.Time `json:"dueAt"`
			RemindAt *time.Time `json:"remindAt"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		task := storage.Task{
			UserID:    userID,
			CourseID:  req.CourseID,
			Title:     req.Title,
			Notes:     req.Notes,
			DueAt:     req.DueAt,
			CreatedAt: time.Now(),
		}
		id, err := getStorage(c).CreateTask(c.Request.Context(), task)
		if err != nil {
			slog.Error("Failed to create task", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		task.ID = id

		if req.RemindAt != nil {
			if err := scheduleTaskReminder(c, &task, *req.RemindAt); err != nil {
				slog.Error("Failed to schedule task reminder", "task", id, "error", err)
			}
		}

		getWidget(c).Invalidate(userID)
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	r.PATCH("/:id", func(c *gin.Context) {
		task := taskByParam(c)
		if task == nil {
			return
		}

		var req struct {
			Title    string     `json:"title"`
			Notes    *string    `json:"notes"`
			CourseID *int64     `json:"courseId"`
			DueAt    *time.Time `json:"dueAt"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.Title != "" {
			task.Title = req.Title
		}
		if req.Notes != nil {
			task.Notes = *req.Notes
		}
		if req.CourseID != nil {
			task.CourseID = req.CourseID
		}
		if req.DueAt != nil {
			task.DueAt = req.DueAt
		}

		if err := getStorage(c).UpdateTask(c.Request.Context(), *task); err != nil {
			slog.Error("Failed to update task", "task", task.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		getWidget(c).Invalidate(task.UserID)
		c.JSON(http.StatusOK, gin.H{"task": task})
	})

	r.POST("/:id/done", func(c *gin.Context) {
		task := taskByParam(c)
		if task == nil {
			return
		}

		store := getStorage(c)
		if err := store.CompleteTask(c.Request.Context(), task.ID, time.Now()); err != nil {
			slog.Error("Failed to complete task", "task", task.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		// A finished task needs no reminder.
		if err := store.CancelReminder(c.Request.Context(), storage.ReminderTask, task.ID); err != nil {
			slog.Error("Failed to cancel task reminder", "task", task.ID, "error", err)
		}

		getWidget(c).Invalidate(task.UserID)
		c.JSON(http.StatusOK, gin.H{"status": "done"})
	})

	r.POST("/:id/reopen", func(c *gin.Context) {
		task := taskByParam(c)
		if task == nil {
			return
		}

		if err := getStorage(c).ReopenTask(c.Request.Context(), task.ID); err != nil {
			slog.Error("Failed to reopen task", "task", task.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		getWidget(c).Invalidate(task.UserID)
		c.JSON(http.StatusOK, gin.H{"status": "open"})
	})

	r.DELETE("/:id", func(c *gin.Context) {
		task := taskByParam(c)
		if task == nil {
			return
		}

		store := getStorage(c)
		if err := store.DeleteTask(c.Request.Context(), task.ID); err != nil {
			slog.Error("Failed to delete task", "task", task.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if err := store.CancelReminder(c.Request.Context(), storage.ReminderTask, task.ID); err != nil {
			slog.Error("Failed to cancel task reminder", "task", task.ID, "error", err)
		}

		getWidget(c).Invalidate(task.UserID)
		c.Status(http.StatusNoContent)
	})

	r.POST("/:id/reminder", func(c *gin.Context) {
		task := taskByParam(c)
		if task == nil {
			return
		}

		var req struct {
			At time.Time `json:"at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		if err := scheduleTaskReminder(c, task, req.At); err != nil {
			slog.Error("Failed to schedule task reminder", "task", task.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "scheduled"})
	})

	r.DELETE("/:id/reminder", func(c *gin.Context) {
		task := taskByParam(c)
		if task == nil {
			return
		}

		if err := getStorage(c).CancelReminder(c.Request.Context(), storage.ReminderTask, task.ID); err != nil {
			slog.Error("Failed to cancel task reminder", "task", task.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.Status(http.StatusNoContent)
	})
}
