package commands

import (
	"github.com/spf13/viper"

	"github.com/hupe1980/nodemesh/logging"
)

// Config is the resolved CLI configuration.
type Config struct {
	LogLevel   logging.LogLevel
	LogFormat  string
	ParamsFile string
}

// LoadConfig reads the configuration bound to viper by the root command.
func LoadConfig() Config {
	level, _ := logging.ParseLevel(viper.GetString("log_level"))
	return Config{
		LogLevel:   level,
		LogFormat:  viper.GetString("log_format"),
		ParamsFile: viper.GetString("params_file"),
	}
}

// Logger builds the process logger.
func (c Config) Logger() logging.Logger {
	return logging.NewSlogLogger(c.LogLevel, c.LogFormat, false)
}
