package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ConsoleConfig holds console tunables that can change without a restart.
type ConsoleConfig struct {
	GrantTypes []string       `mapstructure:"grantTypes"`
	Lockout    LockoutConfig  `mapstructure:"lockout"`
	Password   PasswordConfig `mapstructure:"password"`
}

type LockoutConfig struct {
	MaxFailedAttempts int           `mapstructure:"maxFailedAttempts"`
	Duration          time.Duration `mapstructure:"duration"`
}

type PasswordConfig struct {
	MinLength              int  `mapstructure:"minLength"`
	RequireDigit           bool `mapstructure:"requireDigit"`
	RequireLowercase       bool `mapstructure:"requireLowercase"`
	RequireUppercase       bool `mapstructure:"requireUppercase"`
	RequireNonAlphanumeric bool `mapstructure:"requireNonAlphanumeric"`
}

// DefaultConsoleConfig mirrors the identity provider's stock settings.
func DefaultConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		GrantTypes: []string{
			"authorization_code",
			"client_credentials",
			"refresh_token",
			"implicit",
			"password",
			"hybrid",
			"device_flow",
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			Duration:          5 * time.Minute,
		},
		Password: PasswordConfig{
			MinLength:              6,
			RequireDigit:           true,
			RequireLowercase:       true,
			RequireUppercase:       true,
			RequireNonAlphanumeric: true,
		},
	}
}

// ConsoleConfigHolder serves the latest valid console.yml contents.
type ConsoleConfigHolder struct {
	current atomic.Value // holds ConsoleConfig
}

// NewStaticConsoleConfigHolder returns a holder that never reloads.
func NewStaticConsoleConfigHolder(cfg ConsoleConfig) *ConsoleConfigHolder {
	holder := &ConsoleConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewConsoleConfigHolder(log *zap.Logger) (*ConsoleConfigHolder, error) {
	log = log.Named("config.console")
	v := viper.New()

	v.SetConfigName("console")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/idadmin")
	v.AddConfigPath(".")

	v.SetEnvPrefix("IDADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConsoleConfig()
	v.SetDefault("console.grantTypes", defaults.GrantTypes)
	v.SetDefault("console.lockout.maxFailedAttempts", defaults.Lockout.MaxFailedAttempts)
	v.SetDefault("console.lockout.duration", defaults.Lockout.Duration)
	v.SetDefault("console.password.minLength", defaults.Password.MinLength)
	v.SetDefault("console.password.requireDigit", defaults.Password.RequireDigit)
	v.SetDefault("console.password.requireLowercase", defaults.Password.RequireLowercase)
	v.SetDefault("console.password.requireUppercase", defaults.Password.RequireUppercase)
	v.SetDefault("console.password.requireNonAlphanumeric", defaults.Password.RequireNonAlphanumeric)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg ConsoleConfig
	if err := v.UnmarshalKey("console", &cfg); err != nil {
		return nil, err
	}
	if err := validateConsoleConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticConsoleConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ConsoleConfig
		if err := v.UnmarshalKey("console", &updated); err != nil {
			log.Warn("console config reload failed", zap.Error(err))
			return
		}
		if err := validateConsoleConfig(updated); err != nil {
			log.Warn("invalid console config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("console config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ConsoleConfigHolder) Get() ConsoleConfig {
	return h.current.Load().(ConsoleConfig)
}

func validateConsoleConfig(cfg ConsoleConfig) error {
	if len(cfg.GrantTypes) == 0 {
		return errors.New("console.grantTypes cannot be empty")
	}
	if cfg.Lockout.MaxFailedAttempts <= 0 {
		return errors.New("console.lockout.maxFailedAttempts must be positive")
	}
	if cfg.Lockout.Duration <= 0 {
		return errors.New("console.lockout.duration must be positive")
	}
	if cfg.Password.MinLength <= 0 {
		return errors.New("console.password.minLength must be positive")
	}
	return nil
}
