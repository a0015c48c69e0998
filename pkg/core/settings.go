package core

import "time"

// Settings is the main application configuration.
type Settings struct {
	Tracker  TrackerSettings
	Telegram TelegramSettings
	Binance  BinanceSettings
	OpenAI   OpenAISettings
	MySQL    MySQLSettings
	Giveaway GiveawaySettings
	Symbols  []string // symbols scanned by the signal generator
	Storage  StorageSettings
}

// TrackerSettings controls the signal tracking loop.
type TrackerSettings struct {
	TickInterval      time.Duration // pause between dispatch ticks
	MinUpdateInterval time.Duration // hard rate limit between updates per signal
	MinPctChange      float64       // percent-to-TP1 delta that forces an update
	MaxSignalAge      time.Duration // age-based expiry
	Milestones        []float64     // fixed percent boundaries that trigger updates
}

// DefaultTrackerSettings mirrors the documented configuration defaults.
func DefaultTrackerSettings() TrackerSettings {
	return TrackerSettings{
		TickInterval:      60 * time.Second,
		MinUpdateInterval: 5 * time.Minute,
		MinPctChange:      5,
		MaxSignalAge:      72 * time.Hour,
		Milestones:        []float64{25, 50, 75, 90},
	}
}

// TelegramSettings holds the bot token and authorized users.
type TelegramSettings struct {
	Enabled bool
	Token   string
	Users   []int
}

// IsEnabled reports whether the Telegram surface should start.
func (t TelegramSettings) IsEnabled() bool {
	return t.Enabled && t.Token != ""
}

// BinanceSettings holds price source credentials.
type BinanceSettings struct {
	APIKey    string
	SecretKey string
	Testnet   bool
}

// OpenAISettings configures the LLM narrator. An empty key selects the
// deterministic template narrator.
type OpenAISettings struct {
	APIKey  string
	Model   string
	BaseURL string // optional endpoint override
}

// MySQLSettings configures the MT5 account lookup.
type MySQLSettings struct {
	Enabled bool
	DSN     string
}

// GiveawaySettings configures the CSV-backed giveaway bookkeeping.
type GiveawaySettings struct {
	Enabled bool
	DataDir string
}

// StorageSettings selects the signal store backend.
type StorageSettings struct {
	Backend string // "file" or "buntdb"
	Path    string
}
