package config

// Config represents the complete configuration structure
type Config struct {
	MLSub   MLSubConfig   `mapstructure:"mlsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MLSubConfig holds the reservation service credentials and connection details
type MLSubConfig struct {
	URL       string `mapstructure:"url"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	UserAgent string `mapstructure:"user_agent"`
	Timeout   int    `mapstructure:"timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
