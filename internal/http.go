package app

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studyhall/internal/config"
	"studyhall/internal/routes"
	"studyhall/internal/utils"
)

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-XSS-Protection", "1; mode=block")
	c.Next()
}

// Middleware to check if the IP is allowed.
func IPAccessControl(allowedCIDRs []string) gin.HandlerFunc {
	// Parse allowed CIDRs
	var parsedCIDRs []*net.IPNet

	// Allow local networks in debug mode
	if os.Getenv("GIN_MODE") != "release" {
		localhostCIDRs := []string{"127.0.0.1/8", "::1/128"}
		allowedCIDRs = append(allowedCIDRs, localhostCIDRs...)
	}

	for _, cidr := range allowedCIDRs {
		_, net, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("Invalid CIDR", "cidr", cidr)
			continue
		}
		slog.Debug("Allowed CIDR", "cidr", cidr)
		parsedCIDRs = append(parsedCIDRs, net)
	}

	return func(c *gin.Context) {
		clientIP := net.ParseIP(c.ClientIP())
		if clientIP == nil {
			// Should not happen
			slog.Warn("Invalid client IP", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		for _, cidr := range parsedCIDRs {
			if cidr.Contains(clientIP) {
				c.Next()
				return
			}
		}
		slog.Warn("IP not allowed", "ip", clientIP)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// Probe and scrape endpoints stay out of the request log.
var loggerSkipPaths = []string{"/ping", "/healthz", "/metrics"}

// createRenderer builds the page templates, each page wrapped in the
// shared base layout.
func createRenderer() multitemplate.Renderer {
	r := multitemplate.NewRenderer()
	base := "web/templates/base.html.tmpl"
	for _, page := range []string{"index", "login", "error", "session_display"} {
		name := page + ".html.tmpl"
		r.AddFromFilesFuncs(name, routes.TemplateFuncs(), base, "web/templates/"+name)
	}
	return r
}

func HTTPServer() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: loggerSkipPaths}))
	r.Use(gin.Recovery())

	r.Static("/assets/", "./web/assets/")
	r.HTMLRender = createRenderer()

	if config.Cfg.AllowedNetworks != "" {
		slog.Debug("Enabling IP access control", "allowed_networks", config.Cfg.AllowedNetworks)
		var allowedCIDRs []string

		for cidr := range strings.SplitSeq(config.Cfg.AllowedNetworks, ",") {
			// Remove spaces and ignore empty sets
			if cidr := strings.TrimSpace(cidr); cidr != "" {
				allowedCIDRs = append(allowedCIDRs, cidr)
			}
		}

		r.Use(IPAccessControl(allowedCIDRs))
	}
	r.Use(securityHeaders)

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	// Base URL for templates and generated links
	r.Use(func(c *gin.Context) {
		c.Set("BaseURL", utils.GetBaseURL(c, config.Cfg.BaseURL))
		c.Next()
	})

	r.Use(routes.ErrorHandler())

	return r
}

// RegisterRoutes mounts the whole HTTP surface. Dependency injection
// middleware must be in place before this runs.
func RegisterRoutes(r *gin.Engine) {

	routes.Health(r.Group(""))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/config.json", func(c *gin.Context) {
		// Initial config for clients
		c.JSON(http.StatusOK, gin.H{
			"TokenTTL":        config.Cfg.TokenTTL,
			"TokenExpirySkew": config.Cfg.TokenExpirySkew,
			"SupportURL":      config.Cfg.SupportURL,
		})
	})

	r.GET("/", func(c *gin.Context) {
		routes.HTML(c, http.StatusOK, "index.html.tmpl", gin.H{
			"SupportURL": config.Cfg.SupportURL,
		})
	})
	r.GET("/login", func(c *gin.Context) {
		routes.HTML(c, http.StatusOK, "login.html.tmpl", nil)
	})

	api := r.Group("/api")

	// Endpoints that carry their own authentication
	routes.LoginRoutes(api.Group("/auth"))
	routes.WidgetRoutes(api.Group("/widget"))

	authed := api.Group("", routes.AuthMiddleware())
	routes.AuthRoutes(authed.Group("/auth"))
	routes.CourseRoutes(authed.Group("/courses"))
	routes.SessionRoutes(authed.Group("/sessions"))
	routes.CheckinRoutes(authed.Group("/checkin"))
	routes.TaskRoutes(authed.Group("/tasks"))
	routes.GradeRoutes(authed.Group("/grades"))
	routes.HabitRoutes(authed.Group("/habits"))
	routes.JournalRoutes(authed.Group("/journal"))
	routes.FocusRoutes(authed.Group("/focus"))
}
