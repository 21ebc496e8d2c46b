package config

import (
	"strconv"
	"time"
)

// Setting keys stored in the settings table
const (
	KeyLogMaxSizeMB        = "log.max_size_mb"
	KeyLogMaxBackups       = "log.max_backups"
	KeyLogMaxAgeDays       = "log.max_age_days"
	KeyLogCompress         = "log.compress"
	KeyMaintenanceSchedule = "maintenance.schedule"
	KeyMaintenanceVacuum   = "maintenance.vacuum"
	KeyStatisticDays       = "history.statistic_days"
	KeyRequestTimeout      = "api.request_timeout"
	KeyAPIKeyHash          = "api.key_hash"
)

// SettingDescriptions lists the settings an operator may change, with a short description
var SettingDescriptions = map[string]string{
	KeyLogMaxSizeMB:        "log file size in MB before rotation",
	KeyLogMaxBackups:       "rotated log files to keep",
	KeyLogMaxAgeDays:       "days to keep rotated log files",
	KeyLogCompress:         "gzip rotated log files (true/false)",
	KeyMaintenanceSchedule: "cron schedule for database maintenance",
	KeyMaintenanceVacuum:   "VACUUM during maintenance (true/false)",
	KeyStatisticDays:       "default window of the statistic endpoint in days",
	KeyRequestTimeout:      "API request timeout (Go duration) when --request-timeout is not given",
}

// SettingsGetter is an interface for retrieving settings from storage
type SettingsGetter interface {
	GetSetting(key string) (string, error)
}

// Loader provides typed access to settings with default values
type Loader struct {
	db SettingsGetter
}

// NewLoader creates a new settings loader
func NewLoader(db SettingsGetter) *Loader {
	return &Loader{db: db}
}

// Int retrieves an integer setting, returning defaultVal if not found or invalid
func (l *Loader) Int(key string, defaultVal int) int {
	if val, _ := l.db.GetSetting(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// Bool retrieves a boolean setting, returning defaultVal if not found.
// Only "true" is true once a value is set.
func (l *Loader) Bool(key string, defaultVal bool) bool {
	if val, _ := l.db.GetSetting(key); val != "" {
		return val == "true"
	}
	return defaultVal
}

// String retrieves a string setting, returning defaultVal if not found or empty
func (l *Loader) String(key, defaultVal string) string {
	if val, _ := l.db.GetSetting(key); val != "" {
		return val
	}
	return defaultVal
}

// Duration retrieves a duration setting in Go duration format ("1h30m"),
// returning defaultVal if not found or invalid
func (l *Loader) Duration(key string, defaultVal time.Duration) time.Duration {
	if val, _ := l.db.GetSetting(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
