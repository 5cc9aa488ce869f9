// Package config loads server settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

type Config struct {
	App   AppConfig
	Leave LeaveConfig
	Cache CacheConfig
}

// AppConfig holds process level settings.
type AppConfig struct {
	Port     int
	DBPath   string
	LogLevel logrus.Level
}

// LeaveConfig holds accounting rules.
type LeaveConfig struct {
	CarryPeriod CarryPeriod
}

// CacheConfig holds conflict cache settings.
type CacheConfig struct {
	TTL             time.Duration
	RefreshInterval time.Duration
}

// Load reads .env (if present) and the environment. Malformed values fall
// back to their defaults with a warning.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		logrus.WithError(err).Warn("invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}

	return &Config{
		App: AppConfig{
			Port:     getEnvAsInt("PORT", 8080),
			DBPath:   getEnv("DB_PATH", "leave.db"),
			LogLevel: level,
		},
		Leave: LeaveConfig{
			CarryPeriod: ParseCarryPeriod(getEnv("END_OF_CARRY_PERIOD", DefaultCarryPeriod), logrus.StandardLogger()),
		},
		Cache: CacheConfig{
			TTL:             getEnvAsDuration("CONFLICT_CACHE_TTL", time.Hour),
			RefreshInterval: getEnvAsDuration("CACHE_REFRESH_INTERVAL", 5*time.Minute),
		},
	}, nil
}

// =============================================================================
// CARRY PERIOD - "dd.mm" cutoff for last year's leave
// =============================================================================

// DefaultCarryPeriod is March 31.
const DefaultCarryPeriod = "31.03"

// CarryPeriod is the day of year until which carry-over may be used. It
// implements leave.CarryPeriodProvider.
type CarryPeriod struct {
	Day   int
	Month time.Month
}

// ParseCarryPeriod parses "dd.mm". Malformed input is logged and March 31
// is used instead.
func ParseCarryPeriod(s string, logger logrus.FieldLogger) CarryPeriod {
	fallback := CarryPeriod{Day: 31, Month: time.March}

	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 {
		logger.WithField("value", s).Warnf("invalid end of carry period, expected dd.mm; using %s", DefaultCarryPeriod)
		return fallback
	}
	day, errDay := strconv.Atoi(parts[0])
	month, errMonth := strconv.Atoi(parts[1])
	if errDay != nil || errMonth != nil || month < 1 || month > 12 || day < 1 ||
		day > generic.EndOfMonth(2024, time.Month(month)).Day() {
		logger.WithField("value", s).Warnf("invalid end of carry period, expected dd.mm; using %s", DefaultCarryPeriod)
		return fallback
	}
	return CarryPeriod{Day: day, Month: time.Month(month)}
}

// EndOfCarryPeriod returns the cutoff in year. Feb 29 becomes Feb 28 in
// non-leap years.
func (c CarryPeriod) EndOfCarryPeriod(year int) generic.Date {
	last := generic.EndOfMonth(year, c.Month)
	if c.Day > last.Day() {
		return last
	}
	return generic.NewDate(year, c.Month, c.Day)
}

func (c CarryPeriod) String() string {
	return fmt.Sprintf("%02d.%02d", c.Day, int(c.Month))
}

// =============================================================================
// ENV HELPERS
// =============================================================================

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		logrus.WithField("value", valStr).Warnf("invalid %s, using %d", name, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		logrus.WithField("value", valStr).Warnf("invalid %s, using %s", name, defaultVal)
		return defaultVal
	}
	return val
}
