// Package config loads worker configuration from the environment using
// viper, with the defaults documented for the worker's deployment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the worker reads at startup.
type Config struct {
	SupabaseURL            string
	SupabaseServiceRoleKey string

	MainLoopInterval    time.Duration
	MaxConcurrentTasks  int
	StaggerDelay        time.Duration
	EbayDailyLimit      int
	EbayMinCallInterval time.Duration
	RequireKaratMarkers bool

	HealthPort int
	SlackWebhookURL string

	LogFormat string // "text" or "json"
	LogFile   string // empty disables file rotation

	MetricsNamespace string
	ShutdownGrace    time.Duration
}

// Load reads configuration from environment variables only (no config file
// is read), applying the documented defaults for anything unset.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("MAIN_LOOP_INTERVAL", 1) // seconds
	v.SetDefault("MAX_CONCURRENT_TASKS", 3)
	v.SetDefault("STAGGER_DELAY", 200) // milliseconds
	v.SetDefault("EBAY_DAILY_LIMIT", 4500)
	v.SetDefault("EBAY_MIN_CALL_INTERVAL_MS", 150)
	v.SetDefault("REQUIRE_KARAT_MARKERS", false)
	v.SetDefault("HEALTH_PORT", 3001)
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("METRICS_NAMESPACE", "ebay_hunter_worker")
	v.SetDefault("SHUTDOWN_GRACE_MS", 2000)

	cfg := Config{
		SupabaseURL:            v.GetString("SUPABASE_URL"),
		SupabaseServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
		MainLoopInterval:       time.Duration(v.GetInt("MAIN_LOOP_INTERVAL")) * time.Second,
		MaxConcurrentTasks:     v.GetInt("MAX_CONCURRENT_TASKS"),
		StaggerDelay:           time.Duration(v.GetInt("STAGGER_DELAY")) * time.Millisecond,
		EbayDailyLimit:         v.GetInt("EBAY_DAILY_LIMIT"),
		EbayMinCallInterval:    time.Duration(v.GetInt("EBAY_MIN_CALL_INTERVAL_MS")) * time.Millisecond,
		RequireKaratMarkers:    v.GetBool("REQUIRE_KARAT_MARKERS"),
		HealthPort:             v.GetInt("HEALTH_PORT"),
		SlackWebhookURL:        v.GetString("SLACK_WEBHOOK_URL"),
		LogFormat:              v.GetString("LOG_FORMAT"),
		LogFile:                v.GetString("LOG_FILE"),
		MetricsNamespace:       v.GetString("METRICS_NAMESPACE"),
		ShutdownGrace:          time.Duration(v.GetInt("SHUTDOWN_GRACE_MS")) * time.Millisecond,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("config: SUPABASE_URL is required")
	}
	if c.SupabaseServiceRoleKey == "" {
		return fmt.Errorf("config: SUPABASE_SERVICE_ROLE_KEY is required")
	}
	if c.MaxConcurrentTasks < 1 {
		return fmt.Errorf("config: MAX_CONCURRENT_TASKS must be >= 1")
	}
	return nil
}
