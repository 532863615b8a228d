package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the paths and settings shared by every command of the installer.
// It is passed explicitly to the engine, so several isolated instances can coexist.
type Config struct {
	// ProgramName names the service and derives the default file names.
	ProgramName string `yaml:"program_name"`
	// DataDir is the root folder for the ledger, the installed manifest and logs.
	DataDir string `yaml:"data_dir"`
	// WorkspaceDir holds one staging folder per section.
	WorkspaceDir string `yaml:"workspace_dir"`
	// LedgerFile is the append-only list of started sections.
	LedgerFile string `yaml:"ledger_file"`
	// ManifestFile is the local copy of the manifest executed by the service.
	ManifestFile string `yaml:"manifest_file"`
	// LogFile is the rotating log file; empty or "console" logs to stdout only.
	LogFile string `yaml:"log_file"`
	// LogLevel is the minimum level written to the log sinks.
	LogLevel string `yaml:"log_level"`
	// LogMaxSizeMB is the log file size in megabytes that triggers rotation. Zero keeps the default.
	LogMaxSizeMB int `yaml:"log_max_size_mb,omitempty"`
	// LogMaxBackups is the number of rotated log files to keep. Zero keeps the default.
	LogMaxBackups int `yaml:"log_max_backups,omitempty"`
	// LogMaxAgeDays is the number of days rotated log files are kept. Zero keeps the default.
	LogMaxAgeDays int `yaml:"log_max_age_days,omitempty"`
	// DownloadTimeout bounds a single package download. Zero means no timeout.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// S3 configures the s3:// package source.
	S3 S3 `yaml:"s3,omitempty"`
}

// S3 holds the settings of the S3-compatible package source.
type S3 struct {
	// Endpoint overrides the AWS endpoint, e.g. for MinIO or Linode object storage.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Region is the bucket region.
	Region string `yaml:"region,omitempty"`
	// AccessKey falls back to AWS_ACCESS_KEY_ID when empty.
	AccessKey string `yaml:"access_key,omitempty"`
	// SecretKey falls back to AWS_SECRET_ACCESS_KEY when empty.
	SecretKey string `yaml:"secret_key,omitempty"`
}

const (
	// DefaultProgramName is used when the configuration does not name the program.
	DefaultProgramName = "section-installer"

	// DefaultConfigFilename is the default filename for the YAML settings.
	DefaultConfigFilename = DefaultProgramName + ".yaml"

	// DefaultLogLevel is the default minimum log level.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config and ledger files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for created folders.
	DefaultDirPermissions = 0o755

	ledgerExtension   = ".ledger"
	manifestExtension = ".ini"
	logExtension      = ".log"
	workspaceFolder   = "work"
	logFolder         = "logs"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidProgramName is returned when the program name cannot be used in file names.
	errInvalidProgramName = errors.New("program name must be a plain file name")
	// errNegativeTimeout is returned for a negative download timeout.
	errNegativeTimeout = errors.New("download timeout must not be negative")
	// errNegativeLogRotation is returned for negative log rotation limits.
	errNegativeLogRotation = errors.New("log rotation limits must not be negative")
)

// Default returns a configuration with every path derived from the program name.
func Default(programName string) *Config {
	cfg := &Config{ProgramName: programName}
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path, fills defaults and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads the configuration file when it exists and returns defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(DefaultProgramName), nil
	}

	return Load(path)
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), DefaultDirPermissions); err != nil {
		return fmt.Errorf("create settings folder: %w", err)
	}

	// Restrict permissions, the file may carry S3 credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills unset fields with defaults and checks the remaining values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if strings.ContainsAny(cfg.ProgramName, `/\`) || cfg.ProgramName == "." || cfg.ProgramName == ".." {
		return fmt.Errorf("%q: %w", cfg.ProgramName, errInvalidProgramName)
	}

	if cfg.DownloadTimeout < 0 {
		return errNegativeTimeout
	}

	if cfg.LogMaxSizeMB < 0 || cfg.LogMaxBackups < 0 || cfg.LogMaxAgeDays < 0 {
		return errNegativeLogRotation
	}

	return nil
}

// Directories lists the folders that must exist before the engine runs.
func (c *Config) Directories() []string {
	dirs := []string{c.DataDir, c.WorkspaceDir}

	if c.LogFile != "" && c.LogFile != "console" {
		dirs = append(dirs, filepath.Dir(c.LogFile))
	}

	return dirs
}

// ConfigPath returns where the installed configuration is stored.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, c.ProgramName+".yaml")
}

// applyDefaults derives every empty path from the program name and the data folder.
func applyDefaults(cfg *Config) {
	cfg.ProgramName = strings.TrimSpace(cfg.ProgramName)
	if cfg.ProgramName == "" {
		cfg.ProgramName = DefaultProgramName
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir(cfg.ProgramName)
	}

	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = filepath.Join(cfg.DataDir, workspaceFolder)
	}

	if cfg.LedgerFile == "" {
		cfg.LedgerFile = filepath.Join(cfg.DataDir, cfg.ProgramName+ledgerExtension)
	}

	if cfg.ManifestFile == "" {
		cfg.ManifestFile = filepath.Join(cfg.DataDir, cfg.ProgramName+manifestExtension)
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, logFolder, cfg.ProgramName+logExtension)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.S3.AccessKey == "" {
		cfg.S3.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
	}

	if cfg.S3.SecretKey == "" {
		cfg.S3.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
}

// defaultDataDir places data under the user configuration folder,
// falling back to the working directory when it is unknown.
func defaultDataDir(programName string) string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return programName
	}

	return filepath.Join(base, programName)
}
