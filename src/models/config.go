package models

// MConfig Structure
type MConfig struct {
	Name        string         `yaml:"name"`
	Host        string         `yaml:"host"`
	Port        int            `yaml:"port"`
	LogLevel    string         `yaml:"log_level" env:"SO_LOG_LEVEL"`
	Storage     MStorageConfig `yaml:"storage"`
	Query       MQueryConfig   `yaml:"query"`
	Stream      MStreamConfig  `yaml:"stream"`
	View        MViewConfig    `yaml:"view"`
	Align       MAlignConfig   `yaml:"align"`
	Resolutions []MResolution  `yaml:"resolutions"`
}

type MStorageConfig struct {
	Backend              string `yaml:"backend"` // sqlite, postgres or redis
	DBPath               string `yaml:"db_path" env:"SO_DB_PATH"`
	DBConnectionString   string `yaml:"db_connection_string" env:"SO_DB_CONNECTION_STRING"`
	RedisAddr            string `yaml:"redis_addr" env:"SO_REDIS_ADDR"`
	RedisPassword        string `yaml:"redis_password" env:"SO_REDIS_PASSWORD"`
	RedisDB              int    `yaml:"redis_db" env:"SO_REDIS_DB"`
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
}

type MQueryConfig struct {
	BaseURL        string `yaml:"base_url" env:"SO_QUERY_BASE_URL"`
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
	RangeDays      int    `yaml:"range_days"` // default lookback in trading days
}

type MStreamConfig struct {
	URL                  string `yaml:"url" env:"SO_STREAM_URL"`
	ReconnectBaseDelayMs int    `yaml:"reconnect_base_delay_ms"`
	ReconnectMaxDelayMs  int    `yaml:"reconnect_max_delay_ms"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"` // 0 = unlimited
}

type MViewConfig struct {
	DebounceMs        int    `yaml:"debounce_ms"`
	DefaultSubject    string `yaml:"default_subject"`
	DefaultResolution string `yaml:"default_resolution"`
	MaxSeriesPoints   int    `yaml:"max_series_points"`
	PreferencesPath   string `yaml:"preferences_path"`
}

type MAlignConfig struct {
	ToleranceSeconds int `yaml:"tolerance_seconds"`
}
