package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/config"
	"studyhall/internal/metrics"
)

// WidgetRoutes serves the home screen snapshot. The group is mounted
// outside AuthMiddleware: the widget on a phone polls with its own
// long-lived token, issued once while the user is signed in.
func WidgetRoutes(r *gin.RouterGroup) {

	r.GET("", func(c *gin.Context) {
		var userID int64

		if tok := c.Query("token"); tok != "" {
			claims, err := getSigner(c).DecodeWidgetJWT(tok)
			if err != nil {
				slog.Debug("Invalid widget token", "error", err)
				metrics.AuthFailures.Inc()
				AbortWithError(c, ErrUnauthorized)
				return
			}
			userID = claims.UserID
		} else {
			claims, err := verifyAuth(c)
			if err != nil {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			userID = claims.UserID
		}

		snapshot, err := getWidget(c).Get(c.Request.Context(), userID)
		if err != nil {
			slog.Error("Failed to build widget snapshot", "user", userID, "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		c.JSON(http.StatusOK, snapshot)
	})

	// Issue a widget token for the signed-in user. Stateless, so it
	// outlives the session that requested it.
	r.POST("/token", func(c *gin.Context) {
		claims, err := verifyAuth(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ttlDays := config.Cfg.Widget.TokenTTLDays
		widgetClaims := getSigner(c).NewWidgetClaims(claims.UserID, ttlDays)
		tok, err := getSigner(c).Generate(widgetClaims)
		if err != nil {
			slog.Error("Failed to sign widget token", "user", claims.UserID, "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      tok,
			"expires_at": widgetClaims.ExpiresAt.Format(time.RFC3339),
		})
	})
}
