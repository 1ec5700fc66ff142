package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTools() error {
	for key, value := range map[string]string{
		"tools.eddy_correct": c.Tools.EddyCorrect,
		"tools.bet":          c.Tools.Bet,
		"tools.dtifit":       c.Tools.Dtifit,
		"tools.bedpostx":     c.Tools.Bedpostx,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Tools.BetFraction <= 0 || c.Tools.BetFraction >= 1 {
		return errors.New("tools.bet_fraction must be between 0 and 1 exclusive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
