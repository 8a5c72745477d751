/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Mail transport selection.
type MailBackend string

const (
	MailSMTP MailBackend = "smtp"
	MailSES  MailBackend = "ses"
	MailLog  MailBackend = "log"
)

// Inbox backend selection.
type InboxBackend string

const (
	InboxS3   InboxBackend = "s3"
	InboxNone InboxBackend = "none"
)

// Ambiguous reply handling.
const (
	AmbiguousReject = "reject"
	AmbiguousReview = "review"
)

// Window is a half-open lead-time interval (Lower, Upper].
type Window struct {
	Lower time.Duration
	Upper time.Duration
}

// Contains reports whether lead lies in (Lower, Upper].
func (w Window) Contains(lead time.Duration) bool {
	return lead > w.Lower && lead <= w.Upper
}

// Config covers process level configuration.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string

	// Engine timing
	TickInterval         time.Duration
	DayBeforeWindow      Window
	HourBeforeWindow     Window
	OfferTimeout         time.Duration
	OffersPerTick        int
	OfferSubject         string
	AmbiguousReplyPolicy string
	ClassifierKeywords   string // optional YAML keyword file

	// Outbound mail
	MailBackend  MailBackend
	MailFrom     string
	MailFromName string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SESRegion    string

	// Inbound mail (SES receipt rule -> S3)
	InboxBackend           InboxBackend
	InboxS3Bucket          string
	InboxS3Prefix          string
	InboxS3ProcessedPrefix string
	S3Region               string
	S3Endpoint             string // For S3-compatible services (MinIO, etc.)
	S3UsePathStyle         bool
	S3AccessKeyID          string
	S3SecretAccessKey      string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string

	// Event fan-out
	NATSURL            string
	NATSSubject        string
	RedisEventsChannel string // empty disables redis pub/sub fan-out
	WebhookURL         string // empty disables webhook fan-out
	WebhookSecret      string
}

// Load reads configuration from RECRUITD_* environment variables and an
// optional config file, applies defaults, and validates the result.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file (YAML/TOML/JSON by extension).
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECRUITD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Environment:   v.GetString("env"),
		HTTPBind:      v.GetString("http_bind"),
		HTTPPort:      v.GetInt("http_port"),
		DBBackend:     DatabaseBackend(v.GetString("db_backend")),
		DBDSN:         v.GetString("db_dsn"),
		JWTSigningKey: v.GetString("jwt_signing_key"),

		TickInterval: v.GetDuration("tick_interval"),
		DayBeforeWindow: Window{
			Lower: v.GetDuration("reminder_day_lower"),
			Upper: v.GetDuration("reminder_day_upper"),
		},
		HourBeforeWindow: Window{
			Lower: v.GetDuration("reminder_hour_lower"),
			Upper: v.GetDuration("reminder_hour_upper"),
		},
		OfferTimeout:         v.GetDuration("offer_timeout"),
		OffersPerTick:        v.GetInt("offers_per_tick"),
		OfferSubject:         v.GetString("offer_subject"),
		AmbiguousReplyPolicy: strings.ToLower(v.GetString("ambiguous_reply_policy")),
		ClassifierKeywords:   v.GetString("classifier_keywords_file"),

		MailBackend:  MailBackend(v.GetString("mail_backend")),
		MailFrom:     v.GetString("mail_from"),
		MailFromName: v.GetString("mail_from_name"),
		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetInt("smtp_port"),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
		SESRegion:    v.GetString("ses_region"),

		InboxBackend:           InboxBackend(v.GetString("inbox_backend")),
		InboxS3Bucket:          v.GetString("inbox_s3_bucket"),
		InboxS3Prefix:          v.GetString("inbox_s3_prefix"),
		InboxS3ProcessedPrefix: v.GetString("inbox_s3_processed_prefix"),
		S3Region:               v.GetString("s3_region"),
		S3Endpoint:             v.GetString("s3_endpoint"),
		S3UsePathStyle:         v.GetBool("s3_use_path_style"),
		S3AccessKeyID:          v.GetString("s3_access_key_id"),
		S3SecretAccessKey:      v.GetString("s3_secret_access_key"),

		TracingEnabled:    v.GetBool("tracing_enabled"),
		OTLPEndpoint:      v.GetString("otlp_endpoint"),
		TracingSampleRate: v.GetFloat64("tracing_sample_rate"),

		LeaderElectionEnabled: v.GetBool("leader_election_enabled"),
		RedisAddr:             v.GetString("redis_addr"),
		RedisPassword:         v.GetString("redis_password"),
		RedisDB:               v.GetInt("redis_db"),
		InstanceID:            v.GetString("instance_id"),

		NATSURL:            v.GetString("nats_url"),
		NATSSubject:        v.GetString("nats_subject"),
		RedisEventsChannel: v.GetString("redis_events_channel"),
		WebhookURL:         v.GetString("webhook_url"),
		WebhookSecret:      v.GetString("webhook_secret"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("http_bind", "0.0.0.0")
	v.SetDefault("http_port", 8080)
	v.SetDefault("db_backend", string(DatabasePostgres))

	v.SetDefault("tick_interval", "60s")
	v.SetDefault("reminder_day_lower", "23h")
	v.SetDefault("reminder_day_upper", "24h")
	v.SetDefault("reminder_hour_lower", "30m")
	v.SetDefault("reminder_hour_upper", "1h")
	v.SetDefault("offer_timeout", "24h")
	v.SetDefault("offers_per_tick", 1)
	v.SetDefault("offer_subject", "Job Offer")
	v.SetDefault("ambiguous_reply_policy", AmbiguousReject)

	v.SetDefault("mail_backend", string(MailLog))
	v.SetDefault("mail_from", "noreply@example.com")
	v.SetDefault("mail_from_name", "Recruiting")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("ses_region", "us-east-1")

	v.SetDefault("inbox_backend", string(InboxNone))
	v.SetDefault("inbox_s3_prefix", "inbound/")
	v.SetDefault("inbox_s3_processed_prefix", "processed/")
	v.SetDefault("s3_region", "us-east-1")

	v.SetDefault("otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing_sample_rate", 1.0)

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("nats_subject", "recruitd.events")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DBBackend != DatabasePostgres && c.DBBackend != DatabaseMySQL && c.DBBackend != DatabaseSQLite {
		return fmt.Errorf("unsupported database backend %q", c.DBBackend)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("RECRUITD_DB_DSN must be provided")
	}
	if c.JWTSigningKey == "" {
		return fmt.Errorf("RECRUITD_JWT_SIGNING_KEY must be provided")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	for name, w := range map[string]Window{"day-before": c.DayBeforeWindow, "hour-before": c.HourBeforeWindow} {
		if w.Lower < 0 || w.Upper <= w.Lower {
			return fmt.Errorf("%s reminder window (%s, %s] is empty", name, w.Lower, w.Upper)
		}
	}
	if c.HourBeforeWindow.Upper > c.DayBeforeWindow.Lower {
		return fmt.Errorf("hour-before window must end before the day-before window starts")
	}
	if c.OfferTimeout <= 0 {
		return fmt.Errorf("offer timeout must be positive, got %s", c.OfferTimeout)
	}
	if c.OffersPerTick < 1 {
		return fmt.Errorf("offers per tick must be at least 1")
	}
	if c.AmbiguousReplyPolicy != AmbiguousReject && c.AmbiguousReplyPolicy != AmbiguousReview {
		return fmt.Errorf("ambiguous reply policy must be %q or %q", AmbiguousReject, AmbiguousReview)
	}

	switch c.MailBackend {
	case MailSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("RECRUITD_SMTP_HOST is required for the smtp mail backend")
		}
	case MailSES, MailLog:
	default:
		return fmt.Errorf("unsupported mail backend %q", c.MailBackend)
	}

	switch c.InboxBackend {
	case InboxS3:
		if c.InboxS3Bucket == "" {
			return fmt.Errorf("RECRUITD_INBOX_S3_BUCKET is required for the s3 inbox backend")
		}
	case InboxNone:
	default:
		return fmt.Errorf("unsupported inbox backend %q", c.InboxBackend)
	}

	if strings.EqualFold(c.Environment, "production") && c.MailBackend == MailLog {
		return fmt.Errorf("the log mail backend cannot be used in production")
	}
	return nil
}
