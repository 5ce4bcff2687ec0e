package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Timezone       string   `mapstructure:"timezone"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Path            string `mapstructure:"path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	Issuer           string `mapstructure:"issuer"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

// ChatConfig holds shoutrrr service URLs (slack://, teams://, ...).
type ChatConfig struct {
	URLs []string `mapstructure:"urls"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AuthzConfig struct {
	CacheTTLHours    int    `mapstructure:"cache_ttl_hours"`
	StaffEmailDomain string `mapstructure:"staff_email_domain"`
}

type TreatmentConfig struct {
	MaxJustificationLength int `mapstructure:"max_justification_length"`
}

type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ExpireAcceptances string `mapstructure:"expire_acceptances_cron"`
}

// NotificationConfig tunes the notification worker. Intervals are in
// milliseconds.
type NotificationConfig struct {
	PollTimeoutSeconds    int `mapstructure:"poll_timeout_seconds"`
	EnqueueTimeoutSeconds int `mapstructure:"enqueue_timeout_seconds"`
	RetryInitialMs        int `mapstructure:"retry_initial_ms"`
	RetryMaxMs            int `mapstructure:"retry_max_ms"`
}

// RateLimitConfig bounds mutating API calls per subject. Zero disables a
// window.
type RateLimitConfig struct {
	MutationsPerMinute int `mapstructure:"mutations_per_minute"`
	MutationsPerHour   int `mapstructure:"mutations_per_hour"`
}
