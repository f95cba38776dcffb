// Package config holds the settings of the bridge: where the managed classes
// live, how callbacks are invoked and how the bridge logs.
//
// Settings come from defaults, optionally overridden by a YAML file named
// by SAFEJNI_CONFIG and then by individual environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvConfigFile   = "SAFEJNI_CONFIG"
	EnvLogLevel     = "SAFEJNI_LOG_LEVEL"
	EnvClassPackage = "SAFEJNI_CLASS_PACKAGE"
)

// Defaults.
const (
	DefaultCallbackMethod = "call"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config is the bridge configuration.
type Config struct {
	// ClassPackage prefixes every managed class the bridge names, in
	// internal form with a trailing slash ("net/maidsafe/"). Empty means
	// the default package.
	ClassPackage string `yaml:"classPackage"`
	// CallbackMethod is the method invoked on every callback object.
	CallbackMethod string `yaml:"callbackMethod"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"logLevel"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"logFormat"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CallbackMethod: DefaultCallbackMethod,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// Validate normalizes ClassPackage and checks the remaining settings.
func (c *Config) Validate() error {
	if c.ClassPackage != "" {
		c.ClassPackage = strings.ReplaceAll(c.ClassPackage, ".", "/")
		if !strings.HasSuffix(c.ClassPackage, "/") {
			c.ClassPackage += "/"
		}
	}
	if c.CallbackMethod == "" {
		return errors.New("callbackMethod must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("logFormat %q: want text or json", c.LogFormat)
	}
	return nil
}

// Load reads a YAML file over the defaults.
func Load(configFile string) (Config, error) {
	configFile = filepath.Clean(configFile)
	f, err := os.Open(configFile)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config from %s: %w", configFile, err)
	}
	defer func() {
		_ = f.Close()
	}()
	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from the environment: the file named by
// SAFEJNI_CONFIG if set, then SAFEJNI_CLASS_PACKAGE and SAFEJNI_LOG_LEVEL.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return Config{}, err
		}
	}
	if pkg, ok := os.LookupEnv(EnvClassPackage); ok {
		cfg.ClassPackage = pkg
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Apply configures the standard logrus logger.
func (c Config) Apply() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	logrus.SetLevel(level)
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}
	logrus.WithFields(logrus.Fields{
		"function":     "Apply",
		"package":      "config",
		"classPackage": c.ClassPackage,
		"level":        level.String(),
	}).Debug("Bridge configuration applied")
	return nil
}
