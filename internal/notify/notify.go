package notify

import "log/slog"

// Notifier delivers a message to a user.
type Notifier interface {
	Send(msg *Message) error
}

// LogSender logs messages instead of delivering them. Used when no SMTP
// host is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender() *LogSender {
	return &LogSender{logger: slog.With("component", "notify")}
}

func (s *LogSender) Send(msg *Message) error {
	s.logger.Info("Notification (not delivered)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewNotifier picks SMTP delivery when a host is configured, otherwise
// logging only.
func NewNotifier(cfg SMTPConfig) Notifier {
	if cfg.Host == "" {
		return NewLogSender()
	}
	return NewSender(cfg)
}
