package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_E2E_URL is the websocket endpoint of a running backend, the suite is skipped without it
	ServerURL string `envconfig:"CHAT_E2E_URL"`
	Token     string `envconfig:"CHAT_E2E_TOKEN"`
	// E2E_DEBUG_JSON dumps every inbound frame body
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
