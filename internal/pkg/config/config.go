package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	MqttCfg  *MqttConfig
	HACfg    *HAConfig
	Database *DatabaseConfig

	// PanelNodes lists the node names to control when no database-backed
	// configuration exists.
	PanelNodes []string `env:"PANEL_NODES" envSeparator:","`

	DebounceWindow time.Duration `env:"DEBOUNCE_WINDOW" envDefault:"250ms"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"INFO"`
}

type MqttConfig struct {
	Host     string `env:"MQTT_HOST"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
	ClientID string `env:"MQTT_CLIENT_ID" envDefault:"dash480-controller"`
}

type HAConfig struct {
	URL   string `env:"HA_URL" envDefault:"ws://localhost:8123/api/websocket"`
	Token string `env:"HA_TOKEN"`
}

type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
}

// FromEnv builds a config from environment variables; CLI flags override
// individual fields afterwards.
func FromEnv() (*Config, error) {
	cfg := &Config{
		MqttCfg:  &MqttConfig{},
		HACfg:    &HAConfig{},
		Database: &DatabaseConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg.MqttCfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg.HACfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg.Database); err != nil {
		return nil, err
	}
	return cfg, nil
}
