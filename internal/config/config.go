package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppDirName            = "CJWproductivity"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "cjw.db"
	DefaultDoingLimit     = 3
)

// Environment variables that override values from the config file.
const (
	EnvConfig     = "CJW_CONFIG"
	EnvDBPath     = "CJW_DB_PATH"
	EnvBackend    = "CJW_BACKEND"
	EnvLogLevel   = "CJW_LOG_LEVEL"
	EnvDoingLimit = "CJW_DOING_LIMIT"
)

type Keymap struct {
	Quit      string `toml:"quit"`
	Add       string `toml:"add"`
	Up        string `toml:"up"`
	Down      string `toml:"down"`
	Left      string `toml:"left"`
	Right     string `toml:"right"`
	MoveLeft  string `toml:"move_left"`
	MoveRight string `toml:"move_right"`
	Toggle    string `toml:"toggle"`
	Delete    string `toml:"delete"`
	Confirm   string `toml:"confirm"`
	Cancel    string `toml:"cancel"`
	Refresh   string `toml:"refresh"`
	Today     string `toml:"today"`
}

type Config struct {
	DBPath  string `toml:"db_path"`
	DataDir string `toml:"data_dir"`
	// Backend is auto, sqlite or memory.
	Backend       string `toml:"backend"`
	DoingLimit    int    `toml:"doing_limit"`
	LogLevel      string `toml:"log_level"`
	LogFile       string `toml:"log_file"`
	DefaultFilter string `toml:"default_filter"`
	Keys          Keymap `toml:"keys"`
}

// ResolveConfigPath returns $CJW_CONFIG, or config.toml in the per-user
// application directory.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, AppDirName, DefaultConfigFileName)
}

// LoadDotEnv loads variables from an optional .env file without overriding
// the ones already set in the process.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadOrCreate reads the config at path, writing the defaults there first
// when the file does not exist. Environment overrides are applied last.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, applyEnv(&cfg, os.LookupEnv)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(path)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, DefaultDBName)
	}
	if cfg.DoingLimit <= 0 {
		cfg.DoingLimit = DefaultDoingLimit
	}
	return cfg, applyEnv(&cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		cfg.Backend = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvDoingLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvDoingLimit, v)
		}
		cfg.DoingLimit = n
	}
	return nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig(dir string) Config {
	return Config{
		DBPath:        filepath.Join(dir, DefaultDBName),
		DataDir:       dir,
		Backend:       "auto",
		DoingLimit:    DefaultDoingLimit,
		LogLevel:      "info",
		LogFile:       filepath.Join(dir, "logs", "cjw.log"),
		DefaultFilter: "board",
		Keys: Keymap{
			Quit:      "q",
			Add:       "a",
			Up:        "k",
			Down:      "j",
			Left:      "h",
			Right:     "l",
			MoveLeft:  "H",
			MoveRight: "L",
			Toggle:    " ",
			Delete:    "d",
			Confirm:   "enter",
			Cancel:    "esc",
			Refresh:   "r",
			Today:     "t",
		},
	}
}
