package config

import (
	"fmt"
	"os"
)

// ClassifierConfig selects how inbound messages are interpreted.
type ClassifierConfig struct {
	// Mode selects the engine: "rules" or "gemini".
	Mode string `json:"mode"`
	// Model names the generative model for the gemini mode.
	Model string `json:"model"`
	// APIKey authenticates the gemini mode. Falls back to GEMINI_API_KEY.
	APIKey string `json:"api_key"`
}

// SetDefaults applies sane defaults.
func (c *ClassifierConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "rules"
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Validate checks mandatory fields. A gemini mode without an API key is
// accepted; the service falls back to the rule engine.
func (c ClassifierConfig) Validate() error {
	if c.Mode != "rules" && c.Mode != "gemini" {
		return fmt.Errorf("unknown classifier mode %s", c.Mode)
	}
	return nil
}
