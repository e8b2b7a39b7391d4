package config

import "github.com/spf13/viper"

// setDefaults registers the built-in value of every recognised key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ACCESS_CONTROL_RESTRICTIVE", false)
	v.SetDefault("AC_USERS_CAN_RESTRICT_NEW", false)

	v.SetDefault("SECURITY_PASSWORD_LENGTH_MIN", 10)
	v.SetDefault("SECURITY_ZXCVBN_MINIMUM_SCORE", 3)
	v.SetDefault("SECURITY_TWO_FACTOR_REQUIRED", false)
	v.SetDefault("SESSION_RETENTION_PERIOD", 30)
	v.SetDefault("DISABLE_MULTIPLE_SESSIONS", true)

	v.SetDefault("ACTIVITIES", map[string]bool{
		"APPROVE":     true,
		"BULK":        true,
		"CREATE":      true,
		"DELETE":      true,
		"DOWNLOAD":    true,
		"LOGIN":       true,
		"LOGOUT":      true,
		"REJECT":      true,
		"REQUEST":     true,
		"REVIEW":      true,
		"SEARCH":      false,
		"SELF-ASSIGN": true,
		"UPDATE":      true,
		"UPLOAD":      true,
		"VIEW":        false,
	})
	v.SetDefault("ACTIVITIES_RETENTION", 90)

	v.SetDefault("DEDUP_TOOL", false)
	v.SetDefault("EXPORT_TOOL", false)
	v.SetDefault("OCR_ENABLED", false)
	v.SetDefault("ETL_TOOL", false)
	v.SetDefault("ETL_PATH_IMPORT", false)
	v.SetDefault("ETL_ALLOWED_PATH", "")
	v.SetDefault("WHISPER_ENABLED", false)

	v.SetDefault("LOCATIONS_INCLUDE_POSTAL_CODE", false)

	v.SetDefault("BULK_CHUNK_SIZE", 10)
	v.SetDefault("BULK_CHUNK_PAUSE", 250)
	v.SetDefault("SEARCH_ESTIMATE_THRESHOLD", 10000)
	v.SetDefault("SEARCH_PER_PAGE_MAX", 100)
}

// Defaults returns the settings used when no file is present.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	s := &Settings{}
	_ = v.Unmarshal(s)
	s.normalize()
	return s
}
