package config

const (
	defaultEddyCorrectBinary = "eddy_correct"
	defaultBetBinary         = "bet"
	defaultDtifitBinary      = "dtifit"
	defaultBedpostxBinary    = "bedpostx"
	defaultBetFraction       = 0.3
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tools: Tools{
			EddyCorrect: defaultEddyCorrectBinary,
			Bet:         defaultBetBinary,
			Dtifit:      defaultDtifitBinary,
			Bedpostx:    defaultBedpostxBinary,
			BetFraction: defaultBetFraction,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
		},
	}
}
