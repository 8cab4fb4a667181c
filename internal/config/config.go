package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                  string
	Port                 string
	DatabaseURL          string
	RedisURL             string
	SessionJWTSecret     string
	SessionTTL           time.Duration
	InviteBaseURL        string // base URL for invite links (e.g. https://app.crewbase.io)
	BrevoAPIKey          string // transactional email (Brevo / Sendinblue)
	MailFrom             string
	FrontendURLEndsWith  string
	DevPassword          string
	AllowCrossSiteDev    bool
	HealthAdminKey       string
	BillingWebhookSecret string
	ExpirySweepInterval  time.Duration // 0 disables the optional seat-reclamation sweep
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	sessionTTL := viper.GetDuration("SESSION_TTL")
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	sweep := viper.GetDuration("EXPIRY_SWEEP_INTERVAL")

	return &Config{
		Env:                  env,
		Port:                 port,
		DatabaseURL:          viper.GetString("DATABASE_URL"),
		RedisURL:             viper.GetString("REDIS_URL"),
		SessionJWTSecret:     viper.GetString("SESSION_JWT_SECRET"),
		SessionTTL:           sessionTTL,
		InviteBaseURL:        inviteBaseURL(viper.GetString("INVITE_BASE_URL")),
		BrevoAPIKey:          viper.GetString("BREVO_API_KEY"),
		MailFrom:             viper.GetString("MAIL_FROM"),
		FrontendURLEndsWith:  viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:          viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:    strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:       viper.GetString("HEALTH_ADMIN_KEY"),
		BillingWebhookSecret: viper.GetString("BILLING_WEBHOOK_SECRET"),
		ExpirySweepInterval:  sweep,
	}, nil
}

func inviteBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "https://app.crewbase.io"
	}
	return s
}
