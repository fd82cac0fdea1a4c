// Authentication middleware
// Checks for a valid authentication token in the bearer header or cookie
// If valid, sets the user ID and role in the context
// If invalid, returns 401 Unauthorized
package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/config"
	"studyhall/internal/token"
)

const AUTH_COOKIE_NAME = "auth_token"

const AUTH_FAIL_STATUS = http.StatusUnauthorized // HTTP status code for authentication failure

var (
	ErrUserNotFound = errors.New("user not found in context")
	ErrUserNotID    = errors.New("user ID in context is not an int64")
)

// Get authentication TTL in seconds
func authTTL() uint {
	// Convert days to seconds
	return config.Cfg.UserAuthTTL * 24 * 60 * 60 // in seconds
}

// Set authentication cookie
// The cookie is set to expire when the token expires
func setAuthCookie(c *gin.Context, tokenString string) {
	ttl := authTTL()
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"

	c.SetCookie(
		AUTH_COOKIE_NAME,
		tokenString,
		int(ttl),
		"/",
		"",
		secure,
		true,
	)
}

// GetUser returns the authenticated user's ID from the context.
func GetUser(c *gin.Context) (int64, error) {
	uid, exists := c.Get("userID")
	if !exists {
		return 0, ErrUserNotFound
	}
	userID, ok := uid.(int64)
	if !ok {
		slog.Warn("GetUser: User ID in context is not an int64")
		return 0, ErrUserNotID
	}
	return userID, nil
}

// GetRole returns the authenticated user's role from the context, falling
// back to the policy's default role when unset.
func GetRole(c *gin.Context) string {
	role := c.GetString("userRole")
	if role == "" {
		role = getRBAC(c).DefaultRole()
	}
	return role
}

// NewAuth issues a session token for the user and sets the auth cookie.
func NewAuth(c *gin.Context, userID int64, role string) (string, error) {
	signer := getSigner(c)
	claims := signer.NewAuthClaims(userID, role, config.Cfg.UserAuthTTL)
	tokenString, err := signer.Generate(claims)
	if err != nil {
		return "", err
	}
	setAuthCookie(c, tokenString)
	return tokenString, nil
}

// requestToken pulls the session token from the bearer header, falling back
// to the cookie for browser clients.
func requestToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		if tokenString, ok := strings.CutPrefix(header, "Bearer "); ok {
			return tokenString, nil
		}
	}
	return c.Cookie(AUTH_COOKIE_NAME)
}

func verifyAuth(c *gin.Context) (*token.AuthClaims, error) {
	tokenString, err := requestToken(c)
	if err != nil {
		return nil, err
	}
	return getSigner(c).DecodeAuthJWT(tokenString)
}

func renewAuth(c *gin.Context, userID int64, forceRenew bool) error {
	// Fetch old token to invalidate it
	oldToken, err := requestToken(c)
	if err == nil {
		oldClaims, err := getSigner(c).DecodeAuthJWT(oldToken)
		if err == nil {
			// Log odd behavior, where the user ID in the token does not match the expected user ID
			if oldClaims.UserID != userID {
				slog.Warn("renewAuth: User ID mismatch in token", "tokenUserID", oldClaims.UserID, "expectedUserID", userID)
				return nil
			}

			// If MustRenew is set, we must renew the token
			if oldClaims.MustRenew {
				slog.Debug("renewAuth: Token marked for mandatory renewal", "userID", userID)
				forceRenew = true
			}

			renewAge := time.Duration(authTTL()/2) * time.Second
			if forceRenew || time.Until(oldClaims.ExpiresAt.Time) < renewAge {
				slog.Debug("Renewing auth token for user", "userID", userID)

				// Invalidate old token by consuming its nonce
				getSigner(c).RevokeAuth(c.Request.Context(), oldClaims)

				forceRenew = true
			}

			if forceRenew {
				_, err := NewAuth(c, userID, oldClaims.Role)
				return err
			}
		}
	} else if !forceRenew {
		slog.Warn("renewAuth: No existing auth token found", "error", err)
		AbortWithError(c, ErrUnauthorized)
	}

	return nil
}

// AuthLogout revokes the session token and clears the cookie.
func AuthLogout(c *gin.Context) {
	tokenString, err := requestToken(c)
	if err != nil {
		slog.Warn("AuthLogout: No auth token found to consume nonce", "error", err)
	} else {
		claims, err := getSigner(c).DecodeAuthJWT(tokenString)
		if err == nil {
			getSigner(c).RevokeAuth(c.Request.Context(), claims)
		}
	}

	// Clear auth cookie by setting it to expire in the past
	c.SetCookie(
		AUTH_COOKIE_NAME,
		"",
		-1,
		"/",
		"",
		false,
		true,
	)
}

// AuthMiddleware verifies the session token and loads user ID and role into
// the context. API routes sit behind this.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifyAuth(c)
		if err != nil {
			slog.Debug("AuthMiddleware: Invalid or missing auth token", "error", err)
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

func AuthRoutes(r *gin.RouterGroup) {
	// Route to renew authentication token
	r.GET("/renew", AuthMiddleware(), func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			slog.Warn("AuthRoutes: User ID not found in context", "error", err)
			c.AbortWithStatus(AUTH_FAIL_STATUS)
			return
		}

		if err := renewAuth(c, userID, true); err != nil {
			slog.Error("AuthRoutes: Failed to renew auth token", "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.Status(http.StatusOK)
	})

	// Route to check authentication status
	r.GET("/status", AuthMiddleware(), func(c *gin.Context) {
		// If we reach here, the token is valid
		c.JSON(http.StatusOK, gin.H{
			"status": "authenticated",
			"userID": c.GetInt64("userID"),
			"role":   c.GetString("userRole"),
		})
	})

	r.POST("/logout", AuthMiddleware(), func(c *gin.Context) {
		AuthLogout(c)
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
	})
}
