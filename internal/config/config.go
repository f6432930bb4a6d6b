package config

// Config is the root configuration
type Config struct {
	Target  TargetConfig  `mapstructure:"target" json:"target"`
	Corpus  CorpusConfig  `mapstructure:"corpus" json:"corpus"`
	Agents  AgentsConfig  `mapstructure:"agents" json:"agents"`
	Session SessionConfig `mapstructure:"session" json:"session"`
	Browser BrowserConfig `mapstructure:"browser" json:"browser"`
	Status  StatusConfig  `mapstructure:"status" json:"status"`
	Journal JournalConfig `mapstructure:"journal" json:"journal"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	DataDir string        `mapstructure:"data_dir" json:"data_dir"`
}

// TargetConfig identifies the resource the agents drive
type TargetConfig struct {
	// URL of the page carrying the submission surface
	URL string `mapstructure:"url" json:"url"`
	// LoginURL is the entry point for the credential bootstrap
	LoginURL  string          `mapstructure:"login_url" json:"login_url"`
	Selectors SelectorsConfig `mapstructure:"selectors" json:"selectors"`
}

// SelectorsConfig holds the CSS selectors the transport layer drives
type SelectorsConfig struct {
	Surface  string `mapstructure:"surface" json:"surface"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	Submit   string `mapstructure:"submit" json:"submit"`
}

// CorpusConfig configures the message corpus parser
type CorpusConfig struct {
	// Descriptor is either inline text or a path to a corpus file
	Descriptor string `mapstructure:"descriptor" json:"descriptor"`
	// AltWord is a whole-word alternate delimiter for bulk mode.
	// Empty disables the alternate.
	AltWord string `mapstructure:"alt_word" json:"alt_word"`
}

// AgentsConfig configures the agent runtimes
type AgentsConfig struct {
	Count                 int `mapstructure:"count" json:"count"`
	CycleSeconds          int `mapstructure:"cycle_seconds" json:"cycle_seconds"`
	RotateLeadSeconds     int `mapstructure:"rotate_lead_seconds" json:"rotate_lead_seconds"`
	SendDelayMs           int `mapstructure:"send_delay_ms" json:"send_delay_ms"`
	SendRetries           int `mapstructure:"send_retries" json:"send_retries"`
	ConnectAttempts       int `mapstructure:"connect_attempts" json:"connect_attempts"`
	RecreateBackoffMs     int `mapstructure:"recreate_backoff_ms" json:"recreate_backoff_ms"`
	SurfaceTimeoutSeconds int `mapstructure:"surface_timeout_seconds" json:"surface_timeout_seconds"`
	NavTimeoutSeconds     int `mapstructure:"nav_timeout_seconds" json:"nav_timeout_seconds"`
}

// SessionConfig configures session persistence and bootstrap credentials
type SessionConfig struct {
	// StatePath is where the opaque session blob lives
	StatePath string `mapstructure:"state_path" json:"state_path"`
	// Username/Password are only required when no persisted state exists
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
}

// BrowserConfig configures the underlying Chrome process
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless" json:"headless"`
	NoSandbox   bool   `mapstructure:"no_sandbox" json:"no_sandbox"`
	ChromePath  string `mapstructure:"chrome_path" json:"chrome_path"`
	UserDataDir string `mapstructure:"user_data_dir" json:"user_data_dir"`
}

// StatusConfig configures the observer endpoint and periodic summary
type StatusConfig struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled"`
	Addr         string `mapstructure:"addr" json:"addr"`
	SummaryEvery string `mapstructure:"summary_every" json:"summary_every"`
}

// JournalConfig configures the send journal
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level   string `mapstructure:"level" json:"level"`
	File    string `mapstructure:"file" json:"file"`
	Console bool   `mapstructure:"console" json:"console"`
	Pretty  bool   `mapstructure:"pretty" json:"pretty"`
}

// MinAgents and MaxAgents bound the concurrency count
const (
	MinAgents = 1
	MaxAgents = 5
)

// ClampAgents clamps a requested agent count into [MinAgents, MaxAgents]
func ClampAgents(n int) int {
	if n < MinAgents {
		return MinAgents
	}
	if n > MaxAgents {
		return MaxAgents
	}
	return n
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Selectors: SelectorsConfig{
				Surface:  `div[role="textbox"]`,
				Username: `input[name="username"]`,
				Password: `input[name="password"]`,
				Submit:   `button[type="submit"]`,
			},
		},
		Corpus: CorpusConfig{
			AltWord: "and",
		},
		Agents: AgentsConfig{
			Count:                 1,
			CycleSeconds:          60,
			RotateLeadSeconds:     10,
			SendDelayMs:           300,
			SendRetries:           2,
			ConnectAttempts:       3,
			RecreateBackoffMs:     3000,
			SurfaceTimeoutSeconds: 30,
			NavTimeoutSeconds:     60,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Status: StatusConfig{
			Addr:         ":9777",
			SummaryEvery: "60s",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}
