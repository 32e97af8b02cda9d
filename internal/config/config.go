package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	Timezone       string
	ReportInterval time.Duration
	// ReportAt is an optional HH:MM; when set the report goes out daily at that time instead of by interval.
	ReportAt string
	// CleanupAfter is how long a completed task is kept; zero disables the cleanup job.
	CleanupAfter time.Duration

	Pomodoro PomodoroConfig
	Notify   NotifyConfig
	Bot      BotConfig
	Logger   LoggerConfig
}

type PomodoroConfig struct {
	WorkMinutes  int
	BreakMinutes int
}

type NotifyConfig struct {
	RatePerSecond float64
	Burst         int
}

type BotConfig struct {
	// RequestsPerMinute caps incoming messages per chat.
	RequestsPerMinute int
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

// Load reads configuration from an optional config.yaml and the environment,
// environment winning. Keys map to env vars with dots replaced by underscores.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		TelegramToken:  strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		Timezone:       strings.TrimSpace(v.GetString("timezone")),
		ReportInterval: parseInterval(strings.TrimSpace(v.GetString("report_interval_hours"))),
		ReportAt:       strings.TrimSpace(v.GetString("report_at")),
		Pomodoro: PomodoroConfig{
			WorkMinutes:  v.GetInt("pomodoro.work_minutes"),
			BreakMinutes: v.GetInt("pomodoro.break_minutes"),
		},
		Notify: NotifyConfig{
			RatePerSecond: v.GetFloat64("notify.rate_per_second"),
			Burst:         v.GetInt("notify.burst"),
		},
		Bot: BotConfig{
			RequestsPerMinute: v.GetInt("bot.requests_per_minute"),
		},
		Logger: LoggerConfig{
			Level:        v.GetString("logger.level"),
			Mode:         v.GetString("logger.mode"),
			Encoding:     v.GetString("logger.encoding"),
			ColorEnabled: v.GetBool("logger.color_enabled"),
		},
	}

	cleanup, err := parseCleanup(strings.TrimSpace(v.GetString("cleanup_after")))
	if err != nil {
		return cfg, err
	}
	cfg.CleanupAfter = cleanup

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_planner.db"
	}

	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}

	if cfg.Notify.RatePerSecond <= 0 {
		cfg.Notify.RatePerSecond = 1
	}
	if cfg.Notify.Burst <= 0 {
		cfg.Notify.Burst = 1
	}
	if cfg.Bot.RequestsPerMinute <= 0 {
		cfg.Bot.RequestsPerMinute = 30
	}

	return cfg, nil
}

// RequireTelegram reports a missing bot token; only the bot daemon needs one.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

// Location resolves Timezone, falling back to the process local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "daily_planner.db")
	v.SetDefault("report_interval_hours", "5")
	v.SetDefault("cleanup_after", "5m")
	v.SetDefault("pomodoro.work_minutes", 25)
	v.SetDefault("pomodoro.break_minutes", 5)
	v.SetDefault("notify.rate_per_second", 1)
	v.SetDefault("notify.burst", 3)
	v.SetDefault("bot.requests_per_minute", 30)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", "development")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.color_enabled", false)
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseCleanup(raw string) (time.Duration, error) {
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid CLEANUP_AFTER %q", raw)
	}
	return d, nil
}
