package config

var defaults = map[string]any{
	"secret":            "",
	"token_ttl":         60,
	"token_expiry_skew": 5,
	"log_level":         "info",

	"nonce_store": "memory",

	"timezone": "Local",

	"user_auth_ttl": 8, // 8 days
	"support_url":   DEFAULT_SUPPORT_URL,
	"base_url":      "/",

	"allowed_networks": "",

	"rbac.policy_file": "./instance/roles.yaml",
	"rbac.admins":      []string{},

	"checkin.allow_early":        false,
	"checkin.rotating_period":    30,
	"checkin.rate_limit_per_min": 30,

	"widget.refresh_interval": 900, // 15 minutes
	"widget.token_ttl_days":   30,

	"reminders.enabled":  true,
	"reminders.schedule": "*/5 * * * *",

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,

	"email.host":     "host.docker.internal",
	"email.port":     "25",
	"email.username": "",
	"email.password": "",
	"email.from":     "noreply@example.com",

	"storage.type":        "sqlite",
	"storage.sqlite.path": "./data/storage.db",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
