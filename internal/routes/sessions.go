package routes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/checkin"
	"studyhall/internal/config"
	"studyhall/internal/metrics"
	"studyhall/internal/storage"
	"studyhall/internal/utils"
)

type qrEntry struct {
	content   string
	expiresAt time.Time
}

// Rendered QR payloads, keyed by session. Rotating codes are regenerated
// when their period rolls over, static and open codes live until the
// session closes.
var sessionQR = struct {
	sync.Mutex
	codes map[int64]qrEntry
}{
	codes: make(map[int64]qrEntry),
}

// getSessionQR returns the session's current QR content. Static passcodes
// are never embedded: the hash cannot be reversed, so students type those
// in after scanning. Rotating sessions embed the passcode of the current
// period.
func getSessionQR(session *storage.Session, now time.Time) (string, time.Time, error) {
	sessionQR.Lock()
	defer sessionQR.Unlock()

	entry, exists := sessionQR.codes[session.ID]
	if exists && now.Before(entry.expiresAt) {
		return entry.content, entry.expiresAt, nil
	}

	var passcode string
	// Open-ended sessions have no close time; refresh the cached entry
	// hourly so a manual close is picked up eventually.
	expiresAt := now.Add(time.Hour)
	if session.ClosesAt != nil {
		expiresAt = *session.ClosesAt
	}

	if session.PasscodeMode == storage.PasscodeRotating {
		if session.TOTPSecret == nil {
			return "", time.Time{}, fmt.Errorf("session %d has no rotating secret", session.ID)
		}
		period := config.Cfg.Checkin.RotatingPeriod
		var err error
		passcode, err = checkin.CurrentPasscode(*session.TOTPSecret, now, period)
		if err != nil {
			return "", time.Time{}, err
		}
		step := int64(period)
		expiresAt = time.Unix((now.Unix()/step+1)*step, 0)
		if session.ClosesAt != nil && expiresAt.After(*session.ClosesAt) {
			expiresAt = *session.ClosesAt
		}
	}

	entry = qrEntry{
		content:   checkin.EncodeQRContent(session.ID, passcode),
		expiresAt: expiresAt,
	}
	sessionQR.codes[session.ID] = entry
	slog.Debug("Generated session QR content", "session", session.ID, "expires_at", expiresAt)
	return entry.content, entry.expiresAt, nil
}

// sessionByParam loads the session named by the :id parameter.
func sessionByParam(c *gin.Context) *storage.Session {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return nil
	}
	session, err := getStorage(c).GetSession(c.Request.Context(), id)
	if err != nil {
		slog.Error("Failed to load session", "session", id, "error", err)
		AbortWithError(c, ErrDatabaseError)
		return nil
	}
	if session == nil {
		AbortWithError(c, checkin.ErrSessionMissing)
		return nil
	}
	return session
}

// manageSession checks the caller may run the session, which means they
// can manage its course.
func manageSession(c *gin.Context, session *storage.Session) bool {
	course, err := getStorage(c).GetCourse(c.Request.Context(), session.CourseID)
	if err != nil {
		slog.Error("Failed to load course for session", "session", session.ID, "error", err)
		return false
	}
	return course != nil && canManageCourse(c, course)
}

var checkinFailReasons = map[error]string{
	checkin.ErrSessionMissing:   "not_found",
	checkin.ErrSessionNotOpen:   "not_open",
	checkin.ErrSessionClosed:    "closed",
	checkin.ErrPasscodeRequired: "passcode_required",
	checkin.ErrPasscodeMismatch: "passcode_mismatch",
	checkin.ErrNotEnrolled:      "not_enrolled",
	checkin.ErrWrongSession:     "wrong_session",
	checkin.ErrMalformedCode:    "malformed_code",
	checkin.ErrStore:            "store",
}

func checkinFailReason(err error) string {
	for sentinel, reason := range checkinFailReasons {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return "other"
}

// submitCheckin runs a verified check-in and writes the response. First
// check-ins answer 201, repeats answer 200 with the original record.
func submitCheckin(c *gin.Context, sub checkin.Submission) {
	result, err := getVerifier(c).Submit(c.Request.Context(), sub)
	if err != nil {
		metrics.CheckinFailures.WithLabelValues(checkinFailReason(err)).Inc()
		AbortWithError(c, err)
		return
	}

	metrics.Checkins.WithLabelValues(string(result.Record.Method)).Inc()

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"record": result.Record, "duplicate": result.Duplicate})
}

func SessionRoutes(r *gin.RouterGroup) {

	checkinLimit := NewSimpleTokenBucket(config.Cfg.Checkin.RateLimitPerMin, config.Cfg.Checkin.RateLimitPerMin).GinMiddleware()

	// List a course's sessions. Students get the ones for courses they
	// are enrolled in.
	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		courseID, err := strconv.ParseInt(c.Query("course"), 10, 64)
		if err != nil || courseID <= 0 {
			AbortWithError(c, ErrMissingParameter)
			return
		}

		store := getStorage(c)
		course, err := store.GetCourse(c.Request.Context(), courseID)
		if err != nil {
			slog.Error("Failed to load course", "course", courseID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if course == nil {
			AbortWithError(c, ErrNotFound)
			return
		}

		if !canManageCourse(c, course) {
			enrolled, err := store.IsEnrolled(c.Request.Context(), courseID, userID)
			if err != nil {
				AbortWithError(c, ErrDatabaseError)
				return
			}
			if !enrolled {
				AbortWithError(c, ErrNotFound)
				return
			}
		}

		sessions, err := store.ListSessions(c.Request.Context(), courseID)
		if err != nil {
			slog.Error("Failed to list sessions", "course", courseID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	})

	r.POST("", RequirePermission("sessions", "write"), func(c *gin.Context) {
		var req struct {
			CourseID          int64      `json:"courseId" binding:"required"`
			Title             string     `json:"title" binding:"required"`
			OpensAt           time.Time  `json:"opensAt" binding:"required"`
			ClosesAt          *time.Time `json:"closesAt"` // omit for an open-ended session
			PasscodeMode      string     `json:"passcodeMode" binding:"omitempty,oneof=none static rotating"`
			Passcode          string     `json:"passcode"`
			AllowEarly        *bool      `json:"allowEarly"`
			RequireEnrollment *bool      `json:"requireEnrollment"`
			RemindAt          *time.Time `json:"remindAt"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.ClosesAt != nil && !req.ClosesAt.After(req.OpensAt) {
			AbortWithHTTPError(c, http.StatusBadRequest, ErrInvalidRequest, "closesAt must be after opensAt")
			return
		}

		store := getStorage(c)
		course, err := store.GetCourse(c.Request.Context(), req.CourseID)
		if err != nil {
			slog.Error("Failed to load course", "course", req.CourseID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if course == nil || !canManageCourse(c, course) {
			AbortWithError(c, ErrNotFound)
			return
		}

		session := storage.Session{
			CourseID:          course.ID,
			Title:             req.Title,
			OpensAt:           req.OpensAt,
			ClosesAt:          req.ClosesAt,
			PasscodeMode:      storage.PasscodeNone,
			AllowEarly:        config.Cfg.Checkin.AllowEarly,
			RequireEnrollment: true,
			CreatedAt:         time.Now(),
		}
		if req.PasscodeMode != "" {
			session.PasscodeMode = storage.PasscodeMode(req.PasscodeMode)
		}
		if req.AllowEarly != nil {
			session.AllowEarly = *req.AllowEarly
		}
		if req.RequireEnrollment != nil {
			session.RequireEnrollment = *req.RequireEnrollment
		}

		switch session.PasscodeMode {
		case storage.PasscodeStatic:
			if len(req.Passcode) < 4 {
				AbortWithHTTPError(c, http.StatusBadRequest, ErrInvalidParameter, "static passcode must be at least 4 characters")
				return
			}
			hash, err := checkin.HashPasscode(req.Passcode)
			if err != nil {
				slog.Error("Failed to hash passcode", "error", err)
				AbortWithError(c, ErrInternalServer)
				return
			}
			session.PasscodeHash = &hash
		case storage.PasscodeRotating:
			secret, err := checkin.NewTOTPSecret(course.Code)
			if err != nil {
				slog.Error("Failed to generate rotating secret", "error", err)
				AbortWithError(c, ErrInternalServer)
				return
			}
			session.TOTPSecret = &secret
		}

		session.ID, err = store.CreateSession(c.Request.Context(), session)
		if err != nil {
			slog.Error("Failed to create session", "course", course.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		if req.RemindAt != nil {
			if err := scheduleSessionReminder(c, &session, *req.RemindAt); err != nil {
				slog.Error("Failed to schedule session reminder", "session", session.ID, "error", err)
			}
		}

		slog.Info("Session created", "session", session.ID, "course", course.Code, "mode", session.PasscodeMode)
		c.JSON(http.StatusCreated, gin.H{"session": session})
	})

	r.GET("/:id", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		session := sessionByParam(c)
		if session == nil {
			return
		}

		store := getStorage(c)
		if !manageSession(c, session) {
			enrolled, err := store.IsEnrolled(c.Request.Context(), session.CourseID, userID)
			if err != nil {
				AbortWithError(c, ErrDatabaseError)
				return
			}
			if !enrolled {
				AbortWithError(c, checkin.ErrSessionMissing)
				return
			}
		}

		record, err := store.GetAttendanceRecord(c.Request.Context(), session.ID, userID)
		if err != nil {
			AbortWithError(c, ErrDatabaseError)
			return
		}

		now := time.Now()
		c.JSON(http.StatusOK, gin.H{
			"session":   session,
			"open":      session.ClosedAt == nil && !now.Before(session.OpensAt) && (session.ClosesAt == nil || now.Before(*session.ClosesAt)),
			"checkedIn": record != nil,
		})
	})

	// Close a session ahead of schedule. Late scans fail from here on.
	r.POST("/:id/close", func(c *gin.Context) {
		session := sessionByParam(c)
		if session == nil {
			return
		}
		if !manageSession(c, session) {
			AbortWithError(c, ErrForbidden)
			return
		}

		now := time.Now()
		if err := getStorage(c).CloseSession(c.Request.Context(), session.ID, now); err != nil {
			slog.Error("Failed to close session", "session", session.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if err := getStorage(c).CancelReminder(c.Request.Context(), storage.ReminderSession, session.ID); err != nil {
			slog.Error("Failed to cancel session reminder", "session", session.ID, "error", err)
		}

		session.ClosedAt = &now
		c.JSON(http.StatusOK, gin.H{"session": session})
	})

	r.GET("/:id/records", func(c *gin.Context) {
		session := sessionByParam(c)
		if session == nil {
			return
		}
		if !manageSession(c, session) {
			AbortWithError(c, ErrForbidden)
			return
		}

		records, err := getStorage(c).ListAttendanceBySession(c.Request.Context(), session.ID)
		if err != nil {
			slog.Error("Failed to list attendance", "session", session.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
	})

	// Check in with a typed passcode.
	r.POST("/:id/checkin", checkinLimit, RequirePermission("attendance", "checkin"), func(c *gin.Context) {
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

		var req struct {
			Passcode string `json:"passcode"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		submitCheckin(c, checkin.Submission{
			SessionID: id,
			StudentID: userID,
			Passcode:  req.Passcode,
			Method:    storage.MethodManual,
		})
	})

	r.POST("/:id/reminder", func(c *gin.Context) {
		session := sessionByParam(c)
		if session == nil {
			return
		}
		if !manageSession(c, session) {
			AbortWithError(c, ErrForbidden)
			return
		}

		var req struct {
			At time.Time `json:"at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		if err := scheduleSessionReminder(c, session, req.At); err != nil {
			slog.Error("Failed to schedule session reminder", "session", session.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "scheduled", "at": req.At})
	})

	r.DELETE("/:id/reminder", func(c *gin.Context) {
		session := sessionByParam(c)
		if session == nil {
			return
		}
		if !manageSession(c, session) {
			AbortWithError(c, ErrForbidden)
			return
		}

		if err := getStorage(c).CancelReminder(c.Request.Context(), storage.ReminderSession, session.ID); err != nil {
			slog.Error("Failed to cancel session reminder", "session", session.ID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.Status(http.StatusNoContent)
	})

	// JSON endpoint for QR data (client-side generation)
	r.GET("/:id/qr.json", func(c *gin.Context) {
		// Check for cache buster
		if c.Query("cb") == "" {
			slog.Debug("Cache buster not set, redirecting")
			c.Redirect(http.StatusFound, c.Request.URL.Path+"?cb="+strconv.FormatInt(time.Now().UTC().Unix(), 16))
			return
		}

		session := sessionByParam(c)
		if session == nil {
			return
		}
		if !manageSession(c, session) {
			AbortWithError(c, ErrForbidden)
			return
		}

		content, expiresAt, err := getSessionQR(session, time.Now())
		if err != nil {
			slog.Error("Failed to build QR content", "session", session.ID, "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"sessionId":  session.ID,
			"content":    content,
			"imageUrl":   utils.UrlFor(c, fmt.Sprintf("%s/%d/qr.png", r.BasePath(), session.ID)),
			"expires_at": expiresAt.Format(time.RFC3339),
		})
	})

	r.GET("/:id/qr.png", func(c *gin.Context) {
		session := sessionByParam(c)
		if session == nil {
			return
		}
		if !manageSession(c, session) {
			AbortWithError(c, ErrForbidden)
			return
		}

		size := config.QR_IMAGE_SIZE
		if v := c.Query("size"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 64 || parsed > 2048 {
				AbortWithError(c, ErrInvalidParameter)
				return
			}
			size = parsed
		}

		content, _, err := getSessionQR(session, time.Now())
		if err != nil {
			slog.Error("Failed to build QR content", "session", session.ID, "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		png, err := checkin.QRImage(content, size)
		if err != nil {
			slog.Error("Failed to render QR image", "session", session.ID, "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		// Rotating codes go stale, so nothing may cache the image.
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	})

	// Projector page. Polls qr.json and redraws when the code rotates.
	r.GET("/:id/display", func(c *gin.Context) {
		session := sessionByParam(c)
		if session == nil {
			return
		}
		if !manageSession(c, session) {
			AbortWithError(c, ErrForbidden)
			return
		}

		course, err := getStorage(c).GetCourse(c.Request.Context(), session.CourseID)
		if err != nil || course == nil {
			AbortWithError(c, ErrDatabaseError)
			return
		}

		refresh := uint(30)
		if session.PasscodeMode == storage.PasscodeRotating {
			refresh = config.Cfg.Checkin.RotatingPeriod
		}

		HTML(c, http.StatusOK, "session_display.html.tmpl", gin.H{
			"Session":    session,
			"Course":     course,
			"QRJSONURL":  utils.UrlFor(c, fmt.Sprintf("%s/%d/qr.json", r.BasePath(), session.ID)),
			"QRImageURL": utils.UrlFor(c, fmt.Sprintf("%s/%d/qr.png", r.BasePath(), session.ID)),
			"Refresh":    refresh,
		})
	})
}

// scheduleSessionReminder upserts the session's reminder for the caller,
// normally the instructor who runs it.
func scheduleSessionReminder(c *gin.Context, session *storage.Session, at time.Time) error {
	userID, err := GetUser(c)
	if err != nil {
		return err
	}
	_, err = getStorage(c).ScheduleReminder(c.Request.Context(), storage.Reminder{
		UserID:  userID,
		Kind:    storage.ReminderSession,
		RefID:   session.ID,
		Subject: fmt.Sprintf("Session opens soon: %s", session.Title),
		Body: fmt.Sprintf("<p>Your attendance session <b>%s</b> opens at %s.</p>",
			session.Title, session.OpensAt.Format(time.RFC1123)),
		DueAt: at,
	})
	return err
}

// CheckinRoutes carries the scanner endpoint. Mounted separately from the
// session CRUD so clients that only scan need one URL.
func CheckinRoutes(r *gin.RouterGroup) {

	checkinLimit := NewSimpleTokenBucket(config.Cfg.Checkin.RateLimitPerMin, config.Cfg.Checkin.RateLimitPerMin).GinMiddleware()

	// The caller's own check-in history, newest first.
	r.GET("", func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		records, err := getStorage(c).ListAttendanceByStudent(c.Request.Context(), userID)
		if err != nil {
			slog.Error("Failed to list attendance", "student", userID, "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
	})

	// Submit a scanned code. With sessionId set the code must name that
	// session, catching scans of the wrong classroom's projector.
	r.POST("/scan", checkinLimit, RequirePermission("attendance", "checkin"), func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req struct {
			Code      string `json:"code" binding:"required"`
			SessionID int64  `json:"sessionId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		code := checkin.ParseQRCode(req.Code)
		if code == nil {
			metrics.CheckinFailures.WithLabelValues("malformed_code").Inc()
			AbortWithError(c, checkin.ErrMalformedCode)
			return
		}
		if req.SessionID != 0 {
			if err := code.MatchSession(req.SessionID); err != nil {
				metrics.CheckinFailures.WithLabelValues("wrong_session").Inc()
				AbortWithError(c, err)
				return
			}
		}

		submitCheckin(c, checkin.Submission{
			SessionID: code.SessionID,
			StudentID: userID,
			Passcode:  code.Passcode,
			Method:    storage.MethodQR,
		})
	})
}
