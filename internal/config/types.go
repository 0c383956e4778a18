package config

// Config is the on-disk configuration. Every section is optional; Default
// fills what a bare invocation needs.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Crontab CrontabConfig `json:"crontab"`

	// Environment is the base environment every entry inherits, as
	// "NAME=value" strings in order.
	Environment []string `json:"environment,omitempty"`

	// EnvironmentFile is a dotenv file read before Environment; entries in
	// Environment override it.
	EnvironmentFile string `json:"environment_file,omitempty"`

	// Accounts is a static account table. When empty, crontab owners are
	// looked up in the host user database.
	Accounts []AccountConfig `json:"accounts,omitempty"`

	Watch   WatchConfig    `json:"watch"`
	Storage *StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// CrontabConfig selects what to scan.
//
// Defaults (when fields are omitted/zero):
//   - dir: /etc/cron.d
//   - workers: GOMAXPROCS
//   - timezone: local
type CrontabConfig struct {
	Dir string `json:"dir"`

	// System selects the system layout (a username column on every line).
	// Pointer so an omitted value can default to true.
	System *bool `json:"system,omitempty"`

	Workers  int    `json:"workers,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	// Owner fixes the owner of every per-user crontab instead of deriving
	// it from the file name.
	Owner string `json:"owner,omitempty"`
}

// IsSystem reports the effective layout.
func (c CrontabConfig) IsSystem() bool { return c.System == nil || *c.System }

type AccountConfig struct {
	Name  string `json:"name"`
	UID   string `json:"uid"`
	GID   string `json:"gid,omitempty"`
	Home  string `json:"home"`
	Shell string `json:"shell,omitempty"`
}

// WatchConfig tunes directory watching. Durations are Go duration strings.
type WatchConfig struct {
	Debounce    string `json:"debounce,omitempty"`
	MinInterval string `json:"min_interval,omitempty"`
}

// StorageConfig controls scan report export.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./crontabs.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"` // postgres only; may carry credentials, do not log
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

const DefaultDir = "/etc/cron.d"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Console: true},
		Crontab: CrontabConfig{Dir: DefaultDir},
	}
}
