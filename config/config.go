package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingBackend is returned by LoadClient when the backend URL or key is unset.
var ErrMissingBackend = errors.New("config: CANTEEN_URL and CANTEEN_ANON_KEY must be set")

// Config is the server configuration.
type Config struct {
	Port               string        `mapstructure:"port"`
	GinMode            string        `mapstructure:"gin_mode"`
	LogLevel           string        `mapstructure:"log_level"`
	DBDriver           string        `mapstructure:"db_driver"`
	DBDSN              string        `mapstructure:"db_dsn"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
	AnonKey            string        `mapstructure:"anon_key"`
	ServiceKey         string        `mapstructure:"service_key"`
	UploadDir          string        `mapstructure:"upload_dir"`
	UploadBucket       string        `mapstructure:"upload_bucket"`
	PublicBaseURL      string        `mapstructure:"public_base_url"`
	Timezone           string        `mapstructure:"timezone"`
	ChangePollInterval time.Duration `mapstructure:"change_poll_interval"`
	HeatmapMatch       string        `mapstructure:"heatmap_match"`
	AllowedOrigin      string        `mapstructure:"allowed_origin"`
	PaymentTimeout     time.Duration `mapstructure:"payment_timeout"`
}

var keys = []string{
	"port", "gin_mode", "log_level", "db_driver", "db_dsn", "jwt_secret", "anon_key",
	"service_key", "upload_dir", "upload_bucket", "public_base_url", "timezone",
	"change_poll_interval", "heatmap_match", "allowed_origin", "payment_timeout",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "canteen.db")
	v.SetDefault("upload_dir", "public/uploads")
	v.SetDefault("upload_bucket", "menu-images")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("timezone", "Local")
	v.SetDefault("change_poll_interval", 500*time.Millisecond)
	v.SetDefault("heatmap_match", "exact")
	v.SetDefault("allowed_origin", "*")
	v.SetDefault("payment_timeout", 30*time.Minute)
}

// Load reads .env (if any) and the environment. Environment variables use the
// upper-case key names, e.g. DB_DSN or CHANGE_POLL_INTERVAL.
func Load() (*Config, error) {
	// .env tidak wajib ada
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.HeatmapMatch {
	case "exact", "range":
	default:
		return fmt.Errorf("config: HEATMAP_MATCH must be exact or range, got %q", c.HeatmapMatch)
	}
	if c.ChangePollInterval <= 0 {
		return errors.New("config: CHANGE_POLL_INTERVAL must be positive")
	}
	return nil
}

// Location resolves Timezone; "Local" or empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ClientConfig is what the diagnostic CLI needs to reach a running server.
type ClientConfig struct {
	BackendURL    string
	AnonKey       string
	ServiceKey    string
	StaffEmail    string
	StaffPassword string
	SessionDir    string
}

// LoadClient reads the CLI settings from the environment.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("canteen")
	v.AutomaticEnv()

	cfg := &ClientConfig{
		BackendURL:    strings.TrimRight(v.GetString("url"), "/"),
		AnonKey:       v.GetString("anon_key"),
		ServiceKey:    v.GetString("service_key"),
		StaffEmail:    v.GetString("staff_email"),
		StaffPassword: v.GetString("staff_password"),
		SessionDir:    v.GetString("session_dir"),
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = ".canteen"
	}
	if cfg.BackendURL == "" || cfg.AnonKey == "" {
		return nil, ErrMissingBackend
	}
	return cfg, nil
}
