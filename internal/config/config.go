package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	StaticDir         string        `mapstructure:"static_dir" yaml:"static_dir"`
	WSMsgPerMinute    int           `mapstructure:"ws_msg_per_minute" yaml:"ws_msg_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "./data.sqlite",
		JWTSecret:         "change_this_secret",
		JWTIssuer:         "dmchat",
		JWTAudience:       "dmchat-client",
		JWTTTL:            7 * 24 * time.Hour,
		LogLevel:          "info",
		StaticDir:         "",
		WSMsgPerMinute:    0,
	}
}
