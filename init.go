package pairwatch

import (
	"fmt"
	"os"
	"strconv"

	"github.com/raykavin/pairwatch/internal/config"
	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/raykavin/pairwatch/pkg/logger/logrus"
	"github.com/raykavin/pairwatch/pkg/logger/zerolog"
)

const (
	// Default configuration values
	defaultLogDriver     = "zerolog"
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
)

// Environment variable names
const (
	envLogDriver     = "PAIRWATCH_LOG_DRIVER"
	envLogLevel      = "PAIRWATCH_LOG_LEVEL"
	envLogTimeFormat = "PAIRWATCH_LOG_TIME_FORMAT"
	envLogColor      = "PAIRWATCH_LOG_COLORED"
	envLogJSON       = "PAIRWATCH_LOG_JSON"
)

// DefaultLog is the logger used before the configuration is loaded
var DefaultLog logger.Logger

func init() {
	// Initialize the logger with configuration from environment variables
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = log
}

// initLogger creates a new logger instance configured from environment variables
func initLogger() (logger.Logger, error) {
	logColored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}

	logJSON, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	return NewLogger(config.LogConfig{
		Driver:     getEnvWithDefault(envLogDriver, defaultLogDriver),
		Level:      getEnvWithDefault(envLogLevel, defaultLogLevel),
		TimeFormat: getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat),
		Colored:    logColored,
		JSON:       logJSON,
	})
}

// NewLogger builds the logger selected by the log configuration
func NewLogger(cfg config.LogConfig) (logger.Logger, error) {
	switch cfg.Driver {
	case "zerolog", "":
		log, err := zerolog.New(zerolog.Options{
			Level:      cfg.Level,
			TimeLayout: cfg.TimeFormat,
			Colored:    cfg.Colored,
			JSON:       cfg.JSON,
		})
		if err != nil {
			return nil, err
		}
		return zerolog.NewAdapter(log), nil
	case "logrus":
		log, err := logrus.New(cfg.Level, cfg.TimeFormat, cfg.Colored, cfg.JSON, nil)
		if err != nil {
			return nil, err
		}
		return log, nil
	default:
		return nil, fmt.Errorf("unsupported log driver: %s", cfg.Driver)
	}
}

// getEnvWithDefault returns the value of the environment variable or the default if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBoolEnv gets a boolean environment variable with a default value
func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}
