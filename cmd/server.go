package cmd

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	app "studyhall/internal"
	"studyhall/internal/access"
	"studyhall/internal/checkin"
	"studyhall/internal/config"
	"studyhall/internal/habit"
	"studyhall/internal/nonce"
	"studyhall/internal/notify"
	"studyhall/internal/reminder"
	"studyhall/internal/roster"
	"studyhall/internal/storage"
	"studyhall/internal/token"
	"studyhall/internal/utils"
	"studyhall/internal/widget"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the StudyHall server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		fmt.Println("Starting StudyHall server...")
		ServerMain(ctx, provider)
	},
}

// Initialize logger
func initLogger(cfg *config.Config) *slog.Logger {
	// Determine level from config and set it on the handler options.
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		println("Invalid log level in config, defaulting to INFO")
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	slog.Debug("Logger initialized", "level", level.String())
	return logger
}

// loadEmailTemplates parses the templates rendered into outgoing mail.
func loadEmailTemplates() *template.Template {
	tmpl, err := template.ParseGlob("web/templates/email/*.tmpl")
	if err != nil {
		slog.Error("Failed to parse email templates", "error", err)
		os.Exit(1)
	}
	return tmpl
}

func LoadRBAC(cfg *config.Config) *access.RBAC {
	rbac, err := access.LoadPolicy(cfg.RBAC.PolicyFile)
	if err != nil {
		slog.Error("Failed to load role policy", "error", err, "file", cfg.RBAC.PolicyFile)
		os.Exit(1)
	}
	return rbac
}

func ServerMain(ctx context.Context, storageProvider storage.Provider) {

	if config.Cfg == nil {
		panic("Config not initialized.")
	}

	initLogger(config.Cfg)

	// Use the provider passed from cobra command (already initialized)
	if storageProvider == nil {
		slog.Error("Storage provider is nil")
		os.Exit(1)
	}

	if err := nonce.InitNonceStore(config.Cfg, storageProvider); err != nil {
		slog.Error("Failed to initialize nonce store", "error", err)
		os.Exit(1)
	}

	signer := token.NewSigner(config.Cfg.Secret, config.Cfg.TokenTTL, nonce.Store)
	rbac := LoadRBAC(config.Cfg)
	verifier := checkin.NewVerifier(storageProvider, config.Cfg.Checkin.RotatingPeriod)
	tracker := habit.NewTracker(storageProvider)
	widgetSvc := widget.NewService(
		widget.NewBuilder(storageProvider, tracker),
		time.Duration(config.Cfg.Widget.RefreshInterval)*time.Second,
	)
	defer widgetSvc.Close()
	importer := roster.NewImporter(storageProvider)
	notifier := notify.NewNotifier(config.Cfg.Email)
	emailTemplates := loadEmailTemplates()

	if config.Cfg.Reminders.Enabled {
		scheduler, err := reminder.NewScheduler(storageProvider, notifier, config.Cfg.Reminders.Schedule)
		if err != nil {
			slog.Error("Failed to build reminder scheduler", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	slog.Info("Starting StudyHall", "version", utils.GetVersion())

	// Initialize HTTP server
	server := app.HTTPServer()

	// Middleware to inject dependencies into context
	server.Use(func(c *gin.Context) {
		c.Set("Storage", storageProvider)
		c.Set("RBAC", rbac)
		c.Set("Signer", signer)
		c.Set("Verifier", verifier)
		c.Set("Tracker", tracker)
		c.Set("Widget", widgetSvc)
		c.Set("Importer", importer)
		c.Set("Notifier", notifier)
		c.Set("html", emailTemplates)
		c.Next()
	})

	app.RegisterRoutes(server)

	server.Run()
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
