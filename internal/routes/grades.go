package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/gpa"
	"studyhall/internal/storage"
)

func GradeRoutes(r *gin.RouterGroup) {

	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		grades, err := getStorage(c).ListGrades(c.Request.Context(), userID)
		if err != nil {
			slog.Error("Failed to list grades", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		overall := gpa.Weighted(grades)
		c.JSON(http.StatusOK, gin.H{
			"grades": grades,
			"gpa":    overall,
			"letter": gpa.Letter(overall),
			"byTerm": gpa.ByTerm(grades),
		})
	})

	r.POST("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req struct {
			CourseID int64   `json:"courseId" binding:"required"`
			Points   float64 `json:"points" binding:"min=0,max=4"`
			Credits  float64 `json:"credits" binding:"required,gt=0"`
			Term     string  `json:"term"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		id, err := getStorage(c).CreateGrade(c.Request.Context(), storage.Grade{
			UserID:    userID,
			CourseID:  req.CourseID,
			Points:    req.Points,
			Credits:   req.Credits,
			Term:      req.Term,
			CreatedAt: time.Now(),
		})
		if err != nil {
			slog.Error("Failed to record grade", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	r.DELETE("/:id", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}

		// Scoped to the caller, so deleting someone else's grade is a no-op.
		if err := getStorage(c).DeleteGrade(c.Request.Context(), id, userID); err != nil {
			slog.Error("Failed to delete grade", "grade", id, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.Status(http.StatusNoContent)
	})
}
