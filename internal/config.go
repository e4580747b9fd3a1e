package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	StorageBackendSQLite = "sqlite"
	StorageBackendFile   = "file"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Storage     StorageConfig     `yaml:"storage"`
	Board       BoardConfig       `yaml:"board"`
	Inbox       InboxConfig       `yaml:"inbox"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Board.Validate(); err != nil {
		return err
	}
	if err := c.Inbox.Validate(); err != nil {
		return err
	}
	if err := c.Attachments.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where the case collection is persisted.
//
// Backend is one of:
//   - "sqlite" (default): single-file SQLite database.
//   - "file": plain JSON file with atomic replace on save.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = StorageBackendSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StorageBackendSQLite, StorageBackendFile)),
		validation.Field(&c.Path, validation.Required),
	)
}

// BoardConfig tunes board runtime behavior. All values are milliseconds;
// zero picks the built-in default.
type BoardConfig struct {
	RemovalDelayMS  int `yaml:"removal_delay_ms"`
	SaveDebounceMS  int `yaml:"save_debounce_ms"`
	EventThrottleMS int `yaml:"event_throttle_ms"`
}

// Validate validates the board configuration.
func (c *BoardConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RemovalDelayMS, validation.Min(0)),
		validation.Field(&c.SaveDebounceMS, validation.Min(0)),
		validation.Field(&c.EventThrottleMS, validation.Min(0)),
	)
}

// RemovalDelay is how long a deleted card lingers in the render view.
func (c *BoardConfig) RemovalDelay() time.Duration {
	return time.Duration(c.RemovalDelayMS) * time.Millisecond
}

// SaveDebounce is how long the saver coalesces snapshot bursts.
func (c *BoardConfig) SaveDebounce() time.Duration {
	return time.Duration(c.SaveDebounceMS) * time.Millisecond
}

// EventThrottle bounds how often the aggregate SSE event fires.
func (c *BoardConfig) EventThrottle() time.Duration {
	return time.Duration(c.EventThrottleMS) * time.Millisecond
}

// InboxConfig controls the snapshot drop-folder importer.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AttachmentsConfig holds the directory for uploaded card images.
type AttachmentsConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the attachments configuration.
func (c *AttachmentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend: StorageBackendSQLite,
			Path:    "./corkboard.db",
		},
		Board: BoardConfig{
			RemovalDelayMS:  400,
			SaveDebounceMS:  300,
			EventThrottleMS: 2000,
		},
		Inbox: InboxConfig{
			Enabled: false,
			Path:    "./inbox",
		},
		Attachments: AttachmentsConfig{
			Dir: "./attachments",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
