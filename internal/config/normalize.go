package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeTools() error {
	var err error
	if c.Tools.EddyCorrect, err = normalizeBinary(c.Tools.EddyCorrect, defaultEddyCorrectBinary); err != nil {
		return fmt.Errorf("tools.eddy_correct: %w", err)
	}
	if c.Tools.Bet, err = normalizeBinary(c.Tools.Bet, defaultBetBinary); err != nil {
		return fmt.Errorf("tools.bet: %w", err)
	}
	if c.Tools.Dtifit, err = normalizeBinary(c.Tools.Dtifit, defaultDtifitBinary); err != nil {
		return fmt.Errorf("tools.dtifit: %w", err)
	}
	if c.Tools.Bedpostx, err = normalizeBinary(c.Tools.Bedpostx, defaultBedpostxBinary); err != nil {
		return fmt.Errorf("tools.bedpostx: %w", err)
	}
	if c.Tools.BetFraction == 0 {
		c.Tools.BetFraction = defaultBetFraction
	}
	return nil
}

// normalizeBinary keeps bare names untouched so PATH lookup applies, and
// expands ~ for explicit paths.
func normalizeBinary(value, fallback string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	if !strings.ContainsRune(trimmed, '/') && !strings.HasPrefix(trimmed, "~") {
		return trimmed, nil
	}
	return expandPath(trimmed)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
