package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/ucover/internal/constants"
)

// Default report thresholds. 0 disables the check.
const (
	DefaultFailUnderLine   = 0.0
	DefaultFailUnderBranch = 0.0
)

// Default performance settings
const (
	// DefaultMaxGoroutines of 0 means one worker per CPU
	DefaultMaxGoroutines = 0

	// DefaultTimeoutSeconds bounds a whole model or report run
	DefaultTimeoutSeconds = 300
)

// Config represents the main configuration structure
type Config struct {
	// Model holds assembly selection and model building configuration
	Model ModelConfig `json:"model" mapstructure:"model" yaml:"model"`

	// Report holds coverage report configuration
	Report ReportConfig `json:"report" mapstructure:"report" yaml:"report"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Performance holds concurrency configuration
	Performance PerformanceConfig `json:"performance" mapstructure:"performance" yaml:"performance"`

	// Logging holds logger configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`

	// Input holds dump and trace file discovery configuration
	Input InputConfig `json:"input" mapstructure:"input" yaml:"input"`
}

// ModelConfig holds configuration for building the coverage model
type ModelConfig struct {
	// DisableDefaultFilters stops framework assemblies from being skipped
	DisableDefaultFilters bool `json:"disable_default_filters" mapstructure:"disable_default_filters" yaml:"disable_default_filters"`

	// DefaultDisabledAssemblies are skipped unless DisableDefaultFilters is set.
	// A trailing * matches any suffix.
	DefaultDisabledAssemblies []string `json:"default_disabled_assemblies" mapstructure:"default_disabled_assemblies" yaml:"default_disabled_assemblies"`

	// TestFrameworkAssemblies mark an assembly as a test assembly by name prefix
	TestFrameworkAssemblies []string `json:"test_framework_assemblies" mapstructure:"test_framework_assemblies" yaml:"test_framework_assemblies"`

	// Filters use the +[assembly]type and -[assembly]type syntax
	Filters []string `json:"filters" mapstructure:"filters" yaml:"filters"`

	// OnMethodError is "fail" or "skip"
	OnMethodError string `json:"on_method_error" mapstructure:"on_method_error" yaml:"on_method_error"`

	// SymbolsRequired skips assemblies without debug symbols
	SymbolsRequired bool `json:"symbols_required" mapstructure:"symbols_required" yaml:"symbols_required"`
}

// ReportConfig holds configuration for coverage reports
type ReportConfig struct {
	// Format specifies the report format: text, json, yaml, xml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// Output is the report path, empty for stdout
	Output string `json:"output" mapstructure:"output" yaml:"output"`

	// FailUnderLine fails the run below this sequence coverage percentage
	FailUnderLine float64 `json:"fail_under_line" mapstructure:"fail_under_line" yaml:"fail_under_line"`

	// FailUnderBranch fails the run below this branch coverage percentage
	FailUnderBranch float64 `json:"fail_under_branch" mapstructure:"fail_under_branch" yaml:"fail_under_branch"`

	// Store is a SQLite database accumulating hits across runs
	Store string `json:"store" mapstructure:"store" yaml:"store"`

	// Strict fails on trace events that do not match the model
	Strict bool `json:"strict" mapstructure:"strict" yaml:"strict"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// ShowDetails controls whether to list methods in text reports
	ShowDetails bool `json:"show_details" mapstructure:"show_details" yaml:"show_details"`

	// SortBy specifies how to sort report entries: name, coverage
	SortBy string `json:"sort_by" mapstructure:"sort_by" yaml:"sort_by"`
}

// PerformanceConfig holds concurrency configuration
type PerformanceConfig struct {
	MaxGoroutines  int `json:"max_goroutines" mapstructure:"max_goroutines" yaml:"max_goroutines"`
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level" mapstructure:"level" yaml:"level"`

	// JSON switches from console to JSON encoding
	JSON bool `json:"json" mapstructure:"json" yaml:"json"`
}

// InputConfig holds configuration for locating dumps and traces
type InputConfig struct {
	// Recursive controls whether directories are walked recursively
	Recursive bool `json:"recursive" mapstructure:"recursive" yaml:"recursive"`

	// IncludePatterns specifies file patterns to include
	IncludePatterns []string `json:"include_patterns" mapstructure:"include_patterns" yaml:"include_patterns"`

	// ExcludePatterns specifies file patterns to exclude
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// IgnoreFile is a gitignore-style file listing paths to skip
	IgnoreFile string `json:"ignore_file" mapstructure:"ignore_file" yaml:"ignore_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			DisableDefaultFilters: false,
			DefaultDisabledAssemblies: []string{
				"mscorlib",
				"netstandard",
				"System",
				"System.*",
				"Microsoft.*",
			},
			TestFrameworkAssemblies: []string{
				"NUnit3.TestAdapter",
				"nunit.framework",
				"xunit",
				"Microsoft.VisualStudio.TestPlatform",
			},
			Filters:         []string{},
			OnMethodError:   "fail",
			SymbolsRequired: true,
		},
		Report: ReportConfig{
			Format:          "text",
			FailUnderLine:   DefaultFailUnderLine,
			FailUnderBranch: DefaultFailUnderBranch,
		},
		Output: OutputConfig{
			ShowDetails: false,
			SortBy:      "name",
		},
		Performance: PerformanceConfig{
			MaxGoroutines:  DefaultMaxGoroutines,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Input: InputConfig{
			Recursive:       true,
			IncludePatterns: []string{"*.yaml", "*.yml", "*.json", "*" + constants.TraceFileExtension},
			ExcludePatterns: []string{
				"obj",
				".git",
				"*" + constants.BackupMarker + "*",
			},
			IgnoreFile: constants.IgnoreFileName,
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// loadConfigFromFile reads and parses a configuration file
func loadConfigFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// Create a new viper instance to avoid race conditions
	v := viper.New()
	config := DefaultConfig()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix(constants.EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigWithTarget loads configuration, discovering the file from
// targetPath upward when configPath is empty
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for configuration files in common locations
func findDefaultConfig(targetPath string) string {
	candidates := constants.ConfigFileNames

	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, candidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	if config := searchConfigInDirectory(".", candidates); config != "" {
		return config
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), candidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", constants.ToolName)
		if config := searchConfigInDirectory(configDir, candidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(constants.EnvVarPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"yaml": true,
		"xml":  true,
	}
	if !validFormats[c.Report.Format] {
		return fmt.Errorf("invalid report.format '%s', must be one of: text, json, yaml, xml", c.Report.Format)
	}

	if err := validatePercent("report.fail_under_line", c.Report.FailUnderLine); err != nil {
		return err
	}
	if err := validatePercent("report.fail_under_branch", c.Report.FailUnderBranch); err != nil {
		return err
	}

	validSortBy := map[string]bool{
		"name":     true,
		"coverage": true,
	}
	if !validSortBy[c.Output.SortBy] {
		return fmt.Errorf("invalid output.sort_by '%s', must be one of: name, coverage", c.Output.SortBy)
	}

	if c.Model.OnMethodError != "fail" && c.Model.OnMethodError != "skip" {
		return fmt.Errorf("invalid model.on_method_error '%s', must be one of: fail, skip", c.Model.OnMethodError)
	}

	for _, f := range c.Model.Filters {
		if err := ValidateFilter(f); err != nil {
			return err
		}
	}

	if c.Performance.MaxGoroutines < 0 {
		return fmt.Errorf("performance.max_goroutines must be >= 0, got %d", c.Performance.MaxGoroutines)
	}
	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if len(c.Input.IncludePatterns) == 0 {
		return fmt.Errorf("input.include_patterns cannot be empty")
	}

	return nil
}

func validatePercent(key string, v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s must be between 0 and 100, got %v", key, v)
	}
	return nil
}

// ValidateFilter checks the +[assembly]type / -[assembly]type syntax
func ValidateFilter(filter string) error {
	if len(filter) < 4 || (filter[0] != '+' && filter[0] != '-') || filter[1] != '[' {
		return fmt.Errorf("invalid filter '%s', expected +[assembly]type or -[assembly]type", filter)
	}
	end := strings.IndexByte(filter, ']')
	if end < 3 || end == len(filter)-1 {
		return fmt.Errorf("invalid filter '%s', expected +[assembly]type or -[assembly]type", filter)
	}
	return nil
}

// HasThresholds reports whether any fail-under threshold is set
func (c *ReportConfig) HasThresholds() bool {
	return c.FailUnderLine > 0 || c.FailUnderBranch > 0
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("model", config.Model)
	v.Set("report", config.Report)
	v.Set("output", config.Output)
	v.Set("performance", config.Performance)
	v.Set("logging", config.Logging)
	v.Set("input", config.Input)

	return v.WriteConfig()
}
