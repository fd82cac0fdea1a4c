package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyhall/internal/nonce"
)

// pinger is implemented by nonce stores backed by an external service.
type pinger interface {
	Ping(ctx context.Context) error
}

func Health(r *gin.RouterGroup) {

	r.GET("/ping", func(c *gin.Context) {
		msg := c.Query("ping")
		if msg == "" {
			msg = "pong"
		}

		c.JSON(200, gin.H{
			"message": msg,
		})
	})

	// Readiness probe. Degrades when the database or the nonce backend
	// is unreachable.
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		health := gin.H{"status": "ok", "db": "ok"}

		if _, err := getStorage(c).GetSchemaVersion(ctx); err != nil {
			status = http.StatusServiceUnavailable
			health["status"] = "degraded"
			health["db"] = err.Error()
		}

		if p, ok := nonce.Store.(pinger); ok {
			health["redis"] = "ok"
			if err := p.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				health["status"] = "degraded"
				health["redis"] = err.Error()
			}
		}

		c.JSON(status, health)
	})
}
