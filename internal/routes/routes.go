package routes

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"studyhall/internal/access"
	"studyhall/internal/checkin"
	"studyhall/internal/habit"
	"studyhall/internal/notify"
	"studyhall/internal/roster"
	"studyhall/internal/storage"
	"studyhall/internal/token"
	"studyhall/internal/widget"
)

// Handlers pull their dependencies out of the gin context, where the app
// layer injects them per request. MustGet panics on a missing key, which
// only happens on a wiring mistake.

func getStorage(c *gin.Context) storage.Provider {
	return c.MustGet("Storage").(storage.Provider)
}

func getRBAC(c *gin.Context) *access.RBAC {
	return c.MustGet("RBAC").(*access.RBAC)
}

func getSigner(c *gin.Context) *token.Signer {
	return c.MustGet("Signer").(*token.Signer)
}

func getVerifier(c *gin.Context) *checkin.Verifier {
	return c.MustGet("Verifier").(*checkin.Verifier)
}

func getTracker(c *gin.Context) *habit.Tracker {
	return c.MustGet("Tracker").(*habit.Tracker)
}

func getWidget(c *gin.Context) *widget.Service {
	return c.MustGet("Widget").(*widget.Service)
}

func getImporter(c *gin.Context) *roster.Importer {
	return c.MustGet("Importer").(*roster.Importer)
}

func getNotifier(c *gin.Context) notify.Notifier {
	return c.MustGet("Notifier").(notify.Notifier)
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidParameter
	}
	return id, nil
}

// Merge into existing gin.H
func H(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["BaseURL"] = c.MustGet("BaseURL").(string)
	return data
}

// Returns a HTML response with merged data
func HTML(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data = H(c, data)
	c.HTML(code, name, data)
}
