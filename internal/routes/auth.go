package routes

// Login handling. Two ways in: email + password, or a single-use login
// link sent by email. Both end with the same session token.

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"studyhall/internal/config"
	"studyhall/internal/metrics"
	"studyhall/internal/notify"
	"studyhall/internal/storage"
	"studyhall/internal/utils"
)

const LINK_TTL = time.Duration(10) * time.Minute

const EMAIL_TITLE = "Your StudyHall sign-in link"

// loginLink feeds the sign-in email template.
type loginLink struct {
	Name    string  // display name of the recipient
	Link    string  // the actual login link URL
	Expires string  // expiration time of the login link
	LinkTTL float64 // link time-to-live in minutes
	IP      string  // IP address that requested the link
}

// effectiveRole is the user's stored role, upgraded to admin when the
// email is on the configured admin list.
func effectiveRole(user *storage.User) string {
	if slices.Contains(config.Cfg.RBAC.Admins, user.Email) {
		return string(storage.RoleAdmin)
	}
	if user.Role == "" {
		return string(storage.RoleStudent)
	}
	return string(user.Role)
}

func LoginRoutes(r *gin.RouterGroup) {

	// Password login
	r.POST("/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" form:"email" binding:"required"`
			Password string `json:"password" form:"password" binding:"required"`
		}
		if err := c.ShouldBind(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		user, err := getStorage(c).GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			slog.Error("Login: failed to look up user", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if user == nil || user.PasswordHash == "" {
			metrics.AuthFailures.Inc()
			slog.Warn("Login failed: unknown user or no password set", "email", email)
			AbortWithError(c, ErrInvalidCredentials)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			metrics.AuthFailures.Inc()
			slog.Warn("Login failed: wrong password", "email", email)
			AbortWithError(c, ErrInvalidCredentials)
			return
		}

		tokenString, err := NewAuth(c, user.ID, effectiveRole(user))
		if err != nil {
			slog.Error("Login: failed to issue session token", "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("User logged in", "user", user.ID, "email", user.Email)
		c.JSON(http.StatusOK, gin.H{
			"token": tokenString,
			"user":  user,
		})
	})

	// Request a single-use login link by email
	r.POST("/login/email", func(c *gin.Context) {
		var req struct {
			Email string `json:"email" form:"email" binding:"required"`
		}
		if err := c.ShouldBind(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		user, err := getStorage(c).GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			slog.Error("Email login: failed to look up user", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if user == nil {
			metrics.AuthFailures.Inc()
			slog.Warn("Email login requested for unknown user", "email", email)
			AbortWithError(c, ErrInvalidCredentials)
			return
		}

		signer := getSigner(c)
		claims := signer.NewLoginClaims(user.Email, uint(LINK_TTL.Seconds()))
		linkToken, err := signer.Generate(claims)
		if err != nil {
			slog.Error("Email login: failed to generate link token", "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		link := utils.UrlFor(c, "/api/auth/login/verify?token="+linkToken)
		data := loginLink{
			Name:    user.Name,
			Link:    link,
			Expires: time.Now().Add(LINK_TTL).Format(time.RFC3339),
			LinkTTL: LINK_TTL.Minutes(),
			IP:      c.ClientIP(),
		}

		body, err := utils.RenderTemplate(c, "login_link.html.tmpl", data)
		if err != nil {
			slog.Error("Email login: failed to render email template", "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		msg := &notify.Message{
			To:      []string{user.Email},
			Subject: EMAIL_TITLE,
			HTML:    body,
		}
		if err := getNotifier(c).Send(msg); err != nil {
			slog.Error("Email login: failed to send link", "error", err, "to", user.Email)
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("Sent login link email", "to", user.Email)
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Login link sent",
		})
	})

	// Complete a login link. The link token is single use: decoding
	// consumes its nonce, so a replayed link fails.
	r.GET("/login/verify", func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}

		claims, err := getSigner(c).DecodeLoginJWT(tokenString)
		if err != nil {
			metrics.AuthFailures.Inc()
			slog.Warn("Email login: invalid or used link", "error", err)
			AbortWithError(c, err)
			return
		}

		user, err := getStorage(c).GetUserByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			slog.Error("Email login: failed to look up user", "error", err)
			AbortWithError(c, ErrDatabaseError)
			return
		}
		if user == nil {
			metrics.AuthFailures.Inc()
			slog.Warn("Email login link for unknown user", "email", claims.Email)
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if _, err := NewAuth(c, user.ID, effectiveRole(user)); err != nil {
			slog.Error("Email login: failed to issue session token", "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("User logged in via email link", "user", user.ID, "email", user.Email)
		c.Redirect(http.StatusSeeOther, "/")
	})
}
