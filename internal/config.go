package internal

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Actions.
const (
	ActionExecute = "execute"
	ActionMapping = "mapping"
)

// Day One keeps its data inside this macOS group container.
const dayOneContainer = "Library/Group Containers/5U8NS4GX82.dayoneapp2/Data/Documents"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	DayOne  DayOneConfig      `yaml:"dayone"`
	Vault   VaultConfig       `yaml:"vault"`
	Mapping MappingConfig     `yaml:"mapping"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.DayOne.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Action   string     `yaml:"action"`
	// TimeZone is an IANA name used for clock times; "Local" or empty means
	// the machine's zone.
	TimeZone string `yaml:"time_zone"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Action, validation.Required, validation.In(ActionExecute, ActionMapping)),
		validation.Field(&c.TimeZone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	)
}

// Location resolves TimeZone.
func (c *ApplicationConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// DayOneConfig locates the Day One database and photo directory. DBPath and
// PhotosPath default to the standard names inside Home.
type DayOneConfig struct {
	Home       string `yaml:"home"`
	DBPath     string `yaml:"db_path"`
	PhotosPath string `yaml:"photos_path"`
}

// Database returns the database file path.
func (c *DayOneConfig) Database() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.Home, "DayOne.sqlite")
}

// Photos returns the photo directory.
func (c *DayOneConfig) Photos() string {
	if c.PhotosPath != "" {
		return c.PhotosPath
	}
	return filepath.Join(c.Home, "DayOnePhotos")
}

// Validate validates the Day One configuration.
func (c *DayOneConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Home, validation.When(c.DBPath == "" || c.PhotosPath == "", validation.Required)),
	)
}

// VaultConfig holds the destination vault directory.
type VaultConfig struct {
	Path      string `yaml:"path"`
	AssetsDir string `yaml:"assets_dir"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.AssetsDir, validation.Required, validation.By(func(any) error {
			if filepath.Base(c.AssetsDir) != c.AssetsDir || c.AssetsDir == "." || c.AssetsDir == ".." {
				return errors.New("must be a plain directory name")
			}
			return nil
		})),
	)
}

// MappingConfig points at the title to slug mapping file. An empty path means
// no mapping.
type MappingConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig controls re-exporting when the database changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.When(c.Enabled, validation.Min(100*time.Millisecond))),
	)
}

// DefaultDayOneHome returns the app's data directory for the current user.
func DefaultDayOneHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, dayOneContainer)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Action:   ActionExecute,
			TimeZone: "Local",
		},
		DayOne: DayOneConfig{
			Home: DefaultDayOneHome(),
		},
		Vault: VaultConfig{
			AssetsDir: "assets",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
	}
}
