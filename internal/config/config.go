package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sergeknystautas/cisource/internal/vcs"
	"github.com/sergeknystautas/cisource/internal/vcs/backends"
	"github.com/sergeknystautas/cisource/internal/vcs/svn"
	"github.com/sergeknystautas/cisource/internal/version"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

const (
	// DefaultConcurrency is the number of projects cycled at once.
	DefaultConcurrency = 1
	// DefaultTimeoutSeconds bounds every source control process.
	DefaultTimeoutSeconds = int(vcs.DefaultTimeout / time.Second)
	// DefaultBuildTimeoutSeconds bounds the build command.
	DefaultBuildTimeoutSeconds = 3600
	// DefaultInitialWindowHours is how far back a never-built project polls.
	DefaultInitialWindowHours = 24

	configDirName   = ".cisource"
	configFileName  = "projects.yaml"
	stateFileName   = "state.json"
	secretsFileName = "secrets.json"
)

// Config is the projects file.
type Config struct {
	ConfigVersion      string    `yaml:"config_version,omitempty"`
	Concurrency        int       `yaml:"concurrency,omitempty"`
	StatePath          string    `yaml:"state_path,omitempty"`
	InitialWindowHours int       `yaml:"initial_window_hours,omitempty"` // how far back a project's first poll reaches
	Projects           []Project `yaml:"projects"`

	path    string
	secrets *SecretsFile
}

// Project is one continuously integrated project.
type Project struct {
	Name                string        `yaml:"name"`
	WorkingDirectory    string        `yaml:"working_directory"`
	BuildCommand        string        `yaml:"build_command,omitempty"` // optional, run through the process executor
	BuildTimeoutSeconds int           `yaml:"build_timeout_seconds,omitempty"`
	SourceControl       SourceControl `yaml:"source_control"`
}

// SourceControl configures the project's provider.
type SourceControl struct {
	Type             string    `yaml:"type"` // "svn" or "git"
	Executable       string    `yaml:"executable,omitempty"`
	TrunkURL         string    `yaml:"trunk_url,omitempty"`
	WorkingDirectory string    `yaml:"working_directory,omitempty"` // relative to the project working directory
	Username         string    `yaml:"username,omitempty"`
	Password         string    `yaml:"password,omitempty"` // falls back to the secrets file
	TagOnSuccess     bool      `yaml:"tag_on_success,omitempty"`
	TagBaseURL       string    `yaml:"tag_base_url,omitempty"`
	AutoGetSource    *bool     `yaml:"auto_get_source,omitempty"`
	Branch           string    `yaml:"branch,omitempty"`
	TimeoutSeconds   int       `yaml:"timeout_seconds,omitempty"`
	WebURL           *WebURL   `yaml:"web_url,omitempty"`
	IssueURL         *IssueURL `yaml:"issue_url,omitempty"`
}

// WebURL links each modification to a repository browser.
type WebURL struct {
	Format string `yaml:"format"`
}

// IssueURL links modifications whose comment references an issue.
type IssueURL struct {
	Pattern string `yaml:"pattern"`
	URL     string `yaml:"url"`
}

// GetExecutable returns the configured client, or the backend's default.
func (s SourceControl) GetExecutable() string {
	if s.Executable == "" {
		return backends.DefaultExecutable(s.Type)
	}
	return s.Executable
}

// GetAutoGetSource returns whether source is fetched before building. Defaults to true.
func (s SourceControl) GetAutoGetSource() bool {
	if s.AutoGetSource == nil {
		return true
	}
	return *s.AutoGetSource
}

// GetTimeoutSeconds returns the per-process timeout. Defaults to 600.
func (s SourceControl) GetTimeoutSeconds() int {
	if s.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds
	}
	return s.TimeoutSeconds
}

func (s SourceControl) Timeout() time.Duration {
	return time.Duration(s.GetTimeoutSeconds()) * time.Second
}

// BuildTimeout returns the limit on the build command.
func (p Project) BuildTimeout() time.Duration {
	if p.BuildTimeoutSeconds <= 0 {
		return DefaultBuildTimeoutSeconds * time.Second
	}
	return time.Duration(p.BuildTimeoutSeconds) * time.Second
}

// GetInitialWindow returns how far back a project with no recorded build
// polls. Defaults to 24 hours.
func (c *Config) GetInitialWindow() time.Duration {
	if c.InitialWindowHours <= 0 {
		return DefaultInitialWindowHours * time.Hour
	}
	return time.Duration(c.InitialWindowHours) * time.Hour
}

// GetConcurrency returns how many projects run at once. Defaults to 1.
func (c *Config) GetConcurrency() int {
	if c.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}

// GetStatePath returns the build state file, next to the config file by default.
func (c *Config) GetStatePath() string {
	if c.StatePath != "" {
		return c.StatePath
	}
	return filepath.Join(filepath.Dir(c.path), stateFileName)
}

// Path returns the file the config was loaded from or will be saved to.
func (c *Config) Path() string {
	return c.path
}

// FindProject returns the project named name.
func (c *Config) FindProject(name string) (Project, bool) {
	for _, p := range c.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// ProviderOptions converts a project's source control section into the
// options its provider is constructed with.
func (c *Config) ProviderOptions(p Project) (vcs.Options, error) {
	sc := p.SourceControl
	opts := vcs.Options{
		Executable:       sc.GetExecutable(),
		TrunkURL:         sc.TrunkURL,
		WorkingDirectory: sc.WorkingDirectory,
		Username:         sc.Username,
		Password:         c.password(p),
		TagOnSuccess:     sc.TagOnSuccess,
		TagBaseURL:       sc.TagBaseURL,
		AutoGetSource:    sc.GetAutoGetSource(),
		Branch:           sc.Branch,
		Timeout:          sc.Timeout(),
	}
	if sc.WebURL != nil && sc.WebURL.Format != "" {
		opts.Enrichers = append(opts.Enrichers, vcs.FormatURLBuilder{Format: sc.WebURL.Format})
	}
	if sc.IssueURL != nil && sc.IssueURL.Pattern != "" {
		linker, err := vcs.NewIssueLinker(sc.IssueURL.Pattern, sc.IssueURL.URL)
		if err != nil {
			return vcs.Options{}, fmt.Errorf("project %s: %w", p.Name, err)
		}
		opts.Enrichers = append(opts.Enrichers, linker)
	}
	return opts, nil
}

func (c *Config) password(p Project) string {
	if p.SourceControl.Password != "" || c.secrets == nil {
		return p.SourceControl.Password
	}
	return c.secrets.Projects[p.Name].Password
}

// Validate checks project names, backend types and the fields each enabled
// feature depends on.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be >= 0", ErrInvalidConfig)
	}
	if c.InitialWindowHours < 0 {
		return fmt.Errorf("%w: initial_window_hours must be >= 0", ErrInvalidConfig)
	}

	registry := backends.Default()
	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: projects[%d].name is required", ErrInvalidConfig, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate project name %q", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = true

		if p.WorkingDirectory == "" {
			return fmt.Errorf("%w: project %s: working_directory is required", ErrInvalidConfig, p.Name)
		}
		if p.BuildTimeoutSeconds < 0 {
			return fmt.Errorf("%w: project %s: build_timeout_seconds must be >= 0", ErrInvalidConfig, p.Name)
		}

		sc := p.SourceControl
		if !registry.Has(sc.Type) {
			return fmt.Errorf("%w: project %s: unknown source_control.type %q (known: %v)", ErrInvalidConfig, p.Name, sc.Type, registry.Types())
		}
		if sc.TimeoutSeconds < 0 {
			return fmt.Errorf("%w: project %s: source_control.timeout_seconds must be >= 0", ErrInvalidConfig, p.Name)
		}
		if sc.Type == svn.Type && sc.TagOnSuccess && sc.TagBaseURL == "" {
			return fmt.Errorf("%w: project %s: source_control.tag_base_url is required when tag_on_success is set", ErrInvalidConfig, p.Name)
		}
		if sc.IssueURL != nil && sc.IssueURL.Pattern != "" {
			if _, err := regexp.Compile(sc.IssueURL.Pattern); err != nil {
				return fmt.Errorf("%w: project %s: source_control.issue_url.pattern: %v", ErrInvalidConfig, p.Name, err)
			}
			if sc.IssueURL.URL == "" {
				return fmt.Errorf("%w: project %s: source_control.issue_url.url is required with a pattern", ErrInvalidConfig, p.Name)
			}
		}
	}
	return nil
}

// DefaultPath returns ~/.cisource/projects.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName, configFileName), nil
}

// ConfigExists checks if the config file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return err == nil
}

// CreateDefault creates an empty config with the given file path.
// The path is stored so that subsequent Save() calls write to the same location.
func CreateDefault(configPath string) *Config {
	return &Config{
		ConfigVersion: version.Version,
		Concurrency:   DefaultConcurrency,
		Projects:      []Project{},
		path:          configPath,
	}
}

// Load reads, validates and expands the config at configPath. Passwords
// missing from the file are looked up in secrets.json next to it.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.path = configPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	cfg.StatePath = expandHome(cfg.StatePath, homeDir)
	for i := range cfg.Projects {
		cfg.Projects[i].WorkingDirectory = expandHome(cfg.Projects[i].WorkingDirectory, homeDir)
	}

	secrets, err := LoadSecretsFile(SecretsPath(configPath))
	if err != nil {
		return nil, err
	}
	cfg.secrets = secrets

	return &cfg, nil
}

// Save writes the config to the path it was loaded from or created with.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config path not set: use Load() or CreateDefault() with a path")
	}

	// Update config version to current binary version
	c.ConfigVersion = version.Version

	dir := filepath.Dir(c.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to a temporary file first, then rename for atomicity
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
