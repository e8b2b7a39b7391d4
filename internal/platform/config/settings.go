package config

import (
	"strings"
	"time"
)

// MinActivitiesRetentionDays is the floor applied to ACTIVITIES_RETENTION.
const MinActivitiesRetentionDays = 90

// Settings is the application settings document. Field names mirror the JSON
// keys an administrator edits.
type Settings struct {
	AccessControlRestrictive bool `mapstructure:"ACCESS_CONTROL_RESTRICTIVE" json:"ACCESS_CONTROL_RESTRICTIVE"`
	UsersCanRestrictNew      bool `mapstructure:"AC_USERS_CAN_RESTRICT_NEW" json:"AC_USERS_CAN_RESTRICT_NEW"`

	PasswordLengthMin     int  `mapstructure:"SECURITY_PASSWORD_LENGTH_MIN" json:"SECURITY_PASSWORD_LENGTH_MIN" validate:"gte=8,lte=128"`
	ZxcvbnMinimumScore    int  `mapstructure:"SECURITY_ZXCVBN_MINIMUM_SCORE" json:"SECURITY_ZXCVBN_MINIMUM_SCORE" validate:"gte=0,lte=4"`
	TwoFactorRequired     bool `mapstructure:"SECURITY_TWO_FACTOR_REQUIRED" json:"SECURITY_TWO_FACTOR_REQUIRED"`
	SessionRetentionDays  int  `mapstructure:"SESSION_RETENTION_PERIOD" json:"SESSION_RETENTION_PERIOD" validate:"gte=1"`
	DisableMultipleLogins bool `mapstructure:"DISABLE_MULTIPLE_SESSIONS" json:"DISABLE_MULTIPLE_SESSIONS"`

	Activities              map[string]bool `mapstructure:"ACTIVITIES" json:"ACTIVITIES"`
	ActivitiesRetentionDays int             `mapstructure:"ACTIVITIES_RETENTION" json:"ACTIVITIES_RETENTION"`

	DedupTool            bool   `mapstructure:"DEDUP_TOOL" json:"DEDUP_TOOL"`
	ExportTool           bool   `mapstructure:"EXPORT_TOOL" json:"EXPORT_TOOL"`
	OCREnabled           bool   `mapstructure:"OCR_ENABLED" json:"OCR_ENABLED"`
	ETLTool              bool   `mapstructure:"ETL_TOOL" json:"ETL_TOOL"`
	ETLPathImport        bool   `mapstructure:"ETL_PATH_IMPORT" json:"ETL_PATH_IMPORT"`
	ETLAllowedPath       string `mapstructure:"ETL_ALLOWED_PATH" json:"ETL_ALLOWED_PATH"`
	TranscriptionEnabled bool   `mapstructure:"WHISPER_ENABLED" json:"WHISPER_ENABLED"`

	LocationsIncludePostalCode bool `mapstructure:"LOCATIONS_INCLUDE_POSTAL_CODE" json:"LOCATIONS_INCLUDE_POSTAL_CODE"`

	BulkChunkSize           int `mapstructure:"BULK_CHUNK_SIZE" json:"BULK_CHUNK_SIZE"`
	BulkChunkPauseMS        int `mapstructure:"BULK_CHUNK_PAUSE" json:"BULK_CHUNK_PAUSE" validate:"gte=0,lte=60000"`
	SearchEstimateThreshold int `mapstructure:"SEARCH_ESTIMATE_THRESHOLD" json:"SEARCH_ESTIMATE_THRESHOLD" validate:"gte=0"`
	SearchPerPageMax        int `mapstructure:"SEARCH_PER_PAGE_MAX" json:"SEARCH_PER_PAGE_MAX" validate:"gte=1,lte=1000"`
}

// staticKeys can only change through a process restart. A reload that
// touches them keeps the running values.
var staticKeys = []string{
	"SECURITY_TWO_FACTOR_REQUIRED",
	"SESSION_RETENTION_PERIOD",
	"DISABLE_MULTIPLE_SESSIONS",
	"ETL_PATH_IMPORT",
	"ETL_ALLOWED_PATH",
}

// IsStatic reports whether key requires a restart.
func IsStatic(key string) bool {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, k := range staticKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ActivityEnabled reports whether successful actions of this kind are logged.
func (s *Settings) ActivityEnabled(action string) bool {
	if s == nil || s.Activities == nil {
		return false
	}
	return s.Activities[strings.ToUpper(strings.TrimSpace(action))]
}

func (s *Settings) ActivitiesRetention() time.Duration {
	days := s.ActivitiesRetentionDays
	if days < MinActivitiesRetentionDays {
		days = MinActivitiesRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (s *Settings) BulkChunkPause() time.Duration {
	return time.Duration(s.BulkChunkPauseMS) * time.Millisecond
}

// normalize clamps values that have hard floors or ceilings and upper-cases
// the ACTIVITIES map keys.
func (s *Settings) normalize() {
	if s.ActivitiesRetentionDays < MinActivitiesRetentionDays {
		s.ActivitiesRetentionDays = MinActivitiesRetentionDays
	}
	switch {
	case s.BulkChunkSize < 2:
		s.BulkChunkSize = 2
	case s.BulkChunkSize > 50:
		s.BulkChunkSize = 50
	}
	if s.SearchPerPageMax <= 0 {
		s.SearchPerPageMax = 100
	}
	acts := make(map[string]bool, len(s.Activities))
	for k, v := range s.Activities {
		acts[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	s.Activities = acts
}

func (s *Settings) clone() *Settings {
	if s == nil {
		return nil
	}
	out := *s
	out.Activities = make(map[string]bool, len(s.Activities))
	for k, v := range s.Activities {
		out.Activities[k] = v
	}
	return &out
}

// freezeStatic copies the static fields of prev onto s and returns the keys
// whose requested value differed.
func (s *Settings) freezeStatic(prev *Settings) []string {
	if prev == nil {
		return nil
	}
	var changed []string
	if s.TwoFactorRequired != prev.TwoFactorRequired {
		changed = append(changed, "SECURITY_TWO_FACTOR_REQUIRED")
		s.TwoFactorRequired = prev.TwoFactorRequired
	}
	if s.SessionRetentionDays != prev.SessionRetentionDays {
		changed = append(changed, "SESSION_RETENTION_PERIOD")
		s.SessionRetentionDays = prev.SessionRetentionDays
	}
	if s.DisableMultipleLogins != prev.DisableMultipleLogins {
		changed = append(changed, "DISABLE_MULTIPLE_SESSIONS")
		s.DisableMultipleLogins = prev.DisableMultipleLogins
	}
	if s.ETLPathImport != prev.ETLPathImport {
		changed = append(changed, "ETL_PATH_IMPORT")
		s.ETLPathImport = prev.ETLPathImport
	}
	if s.ETLAllowedPath != prev.ETLAllowedPath {
		changed = append(changed, "ETL_ALLOWED_PATH")
		s.ETLAllowedPath = prev.ETLAllowedPath
	}
	return changed
}
