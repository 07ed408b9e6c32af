package types

// AppConfig represents the console settings loaded from the console config file.
type AppConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ConfigPath          string `yaml:"config_path"`    // tunnel group document (JSON)
	ScriptDir           string `yaml:"script_dir"`     // restart.sh, generateClient.sh, mapping server scripts
	ClientOutDir        string `yaml:"client_out_dir"` // generateClient.sh writes <client_out_dir>/<name>
	WebDir              string `yaml:"web_dir"`
	LocalOnly           bool   `yaml:"local_only"`
	ExportRatePerMinute int    `yaml:"export_rate_per_minute"` // 0 disables the export limiter
	ExportBurst         int    `yaml:"export_burst"`
	PrivilegedPing      bool   `yaml:"privileged_ping"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log              string
	UseConsoleConfig string
	UseConfigPath    string
	UseScriptDir     string
	UseClientOutDir  string
	UseWebDir        string
	UsePort          int
	UseLocalOnly     bool
}
