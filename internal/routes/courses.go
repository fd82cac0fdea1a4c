package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/roster"
	"studyhall/internal/storage"
)

// canManageCourse checks the caller may change the course. Owners and
// admins can, enrollment alone is not enough.
func canManageCourse(c *gin.Context, course *storage.Course) bool {
	userID, err := GetUser(c)
	if err != nil {
		return false
	}
	if GetRole(c) == string(storage.RoleAdmin) {
		return true
	}
	return course.OwnerID == userID && getRBAC(c).Can(GetRole(c), "courses", "write")
}

// courseByParam loads the course named by the :id parameter. A missing
// course aborts with 404.
func courseByParam(c *gin.Context) *storage.Course {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return nil
	}
	course, err := getStorage(c).GetCourse(c.Request.Context(), id)
	if err != nil {
		slog.Error("Failed to load course", "course", id, "error", err)
		AbortWithError(c, ErrDatabaseError)
		return nil
	}
	if course == nil {
		AbortWithError(c, ErrNotFound)
		return nil
	}
	return course
}

func CourseRoutes(r *gin.RouterGroup) {

	// Students see the courses they are enrolled in, instructors the ones
	// they own, admins everything.
	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		store := getStorage(c)
		var courses []storage.Course
		switch {
		case GetRole(c) == string(storage.RoleAdmin):
			courses, err = store.ListCourses(c.Request.Context(), 0)
		case getRBAC(c).Can(GetRole(c), "courses", "write"):
			courses, err = store.ListCourses(c.Request.Context(), userID)
		default:
			courses, err = store.ListEnrolledCourses(c.Request.Context(), userID)
		}
		if err != nil {
			slog.Error("Failed to list courses", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"courses": courses})
	})

	r.POST("", RequirePermission("courses", "write"), func(c *gin.Context) {
		var req struct {
			Code    string  `json:"code" binding:"required"`
			Title   string  `json:"title" binding:"required"`
			Credits float64 `json:"credits" binding:"gte=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		userID, _ := GetUser(c)
		id, err := getStorage(c).CreateCourse(c.Request.Context(), storage.Course{
			OwnerID:   userID,
			Code:      req.Code,
			Title:     req.Title,
			Credits:   req.Credits,
			CreatedAt: time.Now(),
		})
		if err != nil {
			slog.Error("Failed to create course", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		slog.Info("Course created", "course", id, "code", req.Code, "owner", userID)
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	r.GET("/:id", func(c *gin.Context) {
		course := courseByParam(c)
		if course == nil {
			return
		}

		userID, _ := GetUser(c)
		if !canManageCourse(c, course) {
			enrolled, err := getStorage(c).IsEnrolled(c.Request.Context(), course.ID, userID)
			if err != nil {
				AbortWithError(c, ErrDatabaseError)
				return
			}
			if !enrolled {
				AbortWithError(c, ErrNotFound)
				return
			}
		}

		meetings, err := getStorage(c).ListMeetings(c.Request.Context(), course.ID)
		if err != nil {
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"course":   course,
			"meetings": meetings,
		})
	})

	r.PATCH("/:id", RequirePermission("courses", "write"), func(c *gin.Context) {
		course := courseByParam(c)
		if course == nil {
			return
		}
		if !canManageCourse(c, course) {
			AbortWithError(c, ErrForbidden)
			return
		}

		var req struct {
			Code    string   `json:"code"`
			Title   string   `json:"title"`
			Credits *float64 `json:"credits" binding:"omitempty,gte=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.Code != "" {
			course.Code = req.Code
		}
		if req.Title != "" {
			course.Title = req.Title
		}
		if req.Credits != nil {
			course.Credits = *req.Credits
		}

		if err := getStorage(c).UpdateCourse(c.Request.Context(), *course); err != nil {
			slog.Error("Failed to update course", "course", course.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	})

	r.POST("/:id/archive", RequirePermission("courses", "write"), func(c *gin.Context) {
		course := courseByParam(c)
		if course == nil {
			return
		}
		if !canManageCourse(c, course) {
			AbortWithError(c, ErrForbidden)
			return
		}

		if err := getStorage(c).ArchiveCourse(c.Request.Context(), course.ID, time.Now()); err != nil {
			slog.Error("Failed to archive course", "course", course.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		slog.Info("Course archived", "course", course.ID, "code", course.Code)
		c.JSON(http.StatusOK, gin.H{"status": "archived"})
	})

	r.POST("/:id/meetings", RequirePermission("courses", "write"), func(c *gin.Context) {
		course := courseByParam(c)
		if course == nil {
			return
		}
		if !canManageCourse(c, course) {
			AbortWithError(c, ErrForbidden)
			return
		}

		var req struct {
			Weekday   int    `json:"weekday" binding:"min=0,max=6"`
			StartTime string `json:"startTime" binding:"required"`
			EndTime   string `json:"endTime" binding:"required"`
			Location  string `json:"location"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if _, err := time.Parse("15:04", req.StartTime); err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}
		if _, err := time.Parse("15:04", req.EndTime); err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		id, err := getStorage(c).CreateMeeting(c.Request.Context(), storage.Meeting{
			CourseID:  course.ID,
			Weekday:   req.Weekday,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Location:  req.Location,
		})
		if err != nil {
			slog.Error("Failed to create meeting", "course", course.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	r.GET("/:id/roster", RequirePermission("courses", "write"), func(c *gin.Context) {
		course := courseByParam(c)
		if course == nil {
			return
		}
		if !canManageCourse(c, course) {
			AbortWithError(c, ErrForbidden)
			return
		}

		enrollments, err := getStorage(c).ListEnrollments(c.Request.Context(), course.ID)
		if err != nil {
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
	})

	// Roster upload. Takes the institutional CSV export as a multipart
	// file and enrolls everyone on it.
	r.POST("/:id/roster", RequirePermission("courses", "write"), func(c *gin.Context) {
		course := courseByParam(c)
		if course == nil {
			return
		}
		if !canManageCourse(c, course) {
			AbortWithError(c, ErrForbidden)
			return
		}

		fileHeader, err := c.FormFile("roster")
		if err != nil {
			AbortWithError(c, ErrMissingParameter)
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		defer file.Close()

		rows, err := roster.Parse(file)
		if err != nil {
			slog.Warn("Roster upload failed to parse", "course", course.ID, "file", fileHeader.Filename, "error", err)
			AbortWithHTTPError(c, http.StatusBadRequest, err, "Could not parse the roster file", "ROSTER_PARSE_FAILED")
			return
		}

		result, err := getImporter(c).Import(c.Request.Context(), course.ID, rows)
		if err != nil {
			slog.Error("Roster import failed", "course", course.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"enrolled": result.Enrolled,
			"created":  result.Created,
			"skipped":  result.Skipped,
		})
	})

	// Enroll a single student by email.
	r.POST("/:id/enroll", RequirePermission("courses", "write"), func(c *gin.Context) {
		course := courseByParam(c)
		if course == nil {
			return
		}
		if !canManageCourse(c, course) {
			AbortWithError(c, ErrForbidden)
			return
		}

		var req struct {
			Email string `json:"email" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		store := getStorage(c)
		user, err := store.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if user == nil {
			AbortWithError(c, ErrNotFound)
			return
		}

		err = store.CreateEnrollment(c.Request.Context(), storage.Enrollment{
			CourseID:  course.ID,
			StudentID: user.ID,
			CreatedAt: time.Now(),
		})
		if err != nil {
			slog.Error("Failed to enroll student", "course", course.ID, "student", user.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		slog.Info("Student enrolled", "course", course.ID, "student", user.ID)
		c.JSON(http.StatusOK, gin.H{"status": "enrolled"})
	})
}
