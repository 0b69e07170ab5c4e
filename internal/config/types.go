package config

// Config represents the main configuration structure
type Config struct {
	Defaults Defaults           `yaml:"defaults"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// Defaults contains default settings applied to all profiles
type Defaults struct {
	Method      string `yaml:"method"`       // second-factor method: "Duo Push" or "Passcode"
	Device      string `yaml:"device"`       // push target device
	PollTimeout int    `yaml:"poll_timeout"` // approval deadline in seconds
}

// Profile describes one protected service and the account used to reach it
type Profile struct {
	EntryURL string `yaml:"entry_url"` // protected service entry URL
	ACSPath  string `yaml:"acs_path"`  // assertion consumer path, relative to the entry URL
	Username string `yaml:"username"`  // institutional username

	// Optional overrides
	Method      string `yaml:"method,omitempty"`
	Device      string `yaml:"device,omitempty"`
	PollTimeout int    `yaml:"poll_timeout,omitempty"`
}

// MergedProfile is a profile with defaults applied
type MergedProfile struct {
	Name        string
	EntryURL    string
	ACSPath     string
	Username    string
	Method      string
	Device      string
	PollTimeout int
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	return &Config{
		Defaults: Defaults{
			Method:      "Duo Push",
			Device:      "phone1",
			PollTimeout: 60,
		},
		Profiles: make(map[string]Profile),
	}
}
