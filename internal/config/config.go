// Copyright 2024 Office Hours Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Config represents the complete application configuration
type Config struct {
	Course     string           `mapstructure:"course"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Server     ServerConfig     `mapstructure:"server"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Services   ServicesConfig   `mapstructure:"services"`
	QA         QAConfig         `mapstructure:"qa"`
	Indexes    IndexesConfig    `mapstructure:"indexes"`
	Categories CategoriesConfig `mapstructure:"categories"`
	Mappings   MappingsConfig   `mapstructure:"mappings"`
	Docstore   DocstoreConfig   `mapstructure:"docstore"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// AuthConfig contains the shared-secret authorization settings
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"apikey"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// ServicesConfig contains collaborator service URLs
type ServicesConfig struct {
	OCRURL    string `mapstructure:"ocr_url"`
	SearchURL string `mapstructure:"search_url"`
}

// QAConfig contains answered-question retrieval settings
type QAConfig struct {
	TopK int `mapstructure:"top_k"`
}

// IndexConfig contains the name and top-k of one hybrid search index
type IndexConfig struct {
	Name string `mapstructure:"name"`
	TopK int    `mapstructure:"top_k"`
}

// IndexesConfig contains the per-category hybrid search indexes
type IndexesConfig struct {
	Content   IndexConfig `mapstructure:"content"`
	Logistics IndexConfig `mapstructure:"logistics"`
	Worksheet IndexConfig `mapstructure:"worksheet"`
}

// CategoriesConfig contains the category label sets that drive routing
type CategoriesConfig struct {
	Assignment []string `mapstructure:"assignment"`
	Content    []string `mapstructure:"content"`
	Logistics  []string `mapstructure:"logistics"`
	Worksheet  []string `mapstructure:"worksheet"`
}

// MappingsConfig contains the manual retrieval mappings: category label to
// candidate problem list, and subcategory to curated document ids
type MappingsConfig struct {
	Problems  map[string][]string `mapstructure:"problems"`
	Documents map[string][]string `mapstructure:"documents"`
}

// DocstoreConfig contains document store configuration
type DocstoreConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ClassifierConfig contains category classifier configuration
type ClassifierConfig struct {
	Mode        string              `mapstructure:"mode"`
	StaticLabel string              `mapstructure:"static_label"`
	Keywords    map[string][]string `mapstructure:"keywords"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	EnableHotReload  bool
	Environment      string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over config file values
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		EnableHotReload:  false,
		Environment:      getEnvironment(),
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set configuration file path
	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("MILOH")

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Set explicit environment variable mappings
	setEnvironmentMappings(v)

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("openai.temperature", 0.3)

	// Service defaults
	v.SetDefault("services.ocr_url", "http://ocr:8081")
	v.SetDefault("services.search_url", "http://search:8082")

	// QA retrieval defaults
	v.SetDefault("qa.top_k", 3)

	// Hybrid index defaults
	v.SetDefault("indexes.content.top_k", 5)
	v.SetDefault("indexes.logistics.top_k", 5)
	v.SetDefault("indexes.worksheet.top_k", 5)

	// Category set defaults
	v.SetDefault("categories.assignment", []string{"Homeworks", "Projects"})
	v.SetDefault("categories.content", []string{"Conceptual"})
	v.SetDefault("categories.logistics", []string{"Logistics"})
	v.SetDefault("categories.worksheet", []string{"Worksheets"})

	// Docstore defaults
	v.SetDefault("docstore.db_path", "./documents.db")

	// Classifier defaults
	v.SetDefault("classifier.mode", "static")
	v.SetDefault("classifier.static_label", "Homeworks")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	// Check for CONFIG_PATH environment variable
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	// Use provided config path
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	// Default fallback locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Check if config file exists in any of the paths
	configExists := false
	for _, path := range []string{"./configs/config.yaml", "./config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			configExists = true
			break
		}
	}

	if !configExists {
		return fmt.Errorf("no config file found in default locations (./configs/config.yaml, ./config.yaml)")
	}

	return nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	// Map common environment variables
	envMappings := map[string]string{
		"MILOH_AUTH_SECRET": "auth.secret",
		"MILOH_COURSE":      "course",
		"OPENAI_API_KEY":    "openai.apikey",
		"OCR_URL":           "services.ocr_url",
		"SEARCH_URL":        "services.search_url",
		"DOCSTORE_DB_PATH":  "docstore.db_path",
		"LOG_LEVEL":         "logging.level",
		"LOG_FORMAT":        "logging.format",
		"LOG_OUTPUT":        "logging.output",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errors []ValidationError

	// Validate required fields
	if config.Auth.Secret == "" {
		errors = append(errors, ValidationError{
			Field:   "auth.secret",
			Message: "authorization secret is required. Set via config file or MILOH_AUTH_SECRET environment variable",
		})
	}

	if config.Course == "" {
		errors = append(errors, ValidationError{
			Field:   "course",
			Message: "course identifier is required. Set via config file or MILOH_COURSE environment variable",
		})
	}

	if config.OpenAI.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "openai.apikey",
			Message: "OpenAI API key is required. Set via config file or OPENAI_API_KEY environment variable",
		})
	}

	// Validate URLs
	if config.Services.OCRURL == "" {
		errors = append(errors, ValidationError{
			Field:   "services.ocr_url",
			Message: "OCR service URL is required",
		})
	}

	if config.Services.SearchURL == "" {
		errors = append(errors, ValidationError{
			Field:   "services.search_url",
			Message: "search service URL is required",
		})
	}

	// Validate numeric values
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if config.QA.TopK <= 0 {
		errors = append(errors, ValidationError{
			Field:   "qa.top_k",
			Message: "top_k must be greater than 0",
		})
	}

	for field, index := range map[string]IndexConfig{
		"indexes.content":   config.Indexes.Content,
		"indexes.logistics": config.Indexes.Logistics,
		"indexes.worksheet": config.Indexes.Worksheet,
	} {
		if index.Name == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Message: "index name is required",
			})
		}
		if index.TopK <= 0 {
			errors = append(errors, ValidationError{
				Field:   field + ".top_k",
				Message: "top_k must be greater than 0",
			})
		}
	}

	if config.OpenAI.MaxTokens <= 0 {
		errors = append(errors, ValidationError{
			Field:   "openai.max_tokens",
			Message: "max_tokens must be greater than 0",
		})
	}

	if config.OpenAI.Temperature < 0 || config.OpenAI.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "openai.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate enum values
	validClassifierModes := []string{"static", "keyword"}
	if !contains(validClassifierModes, config.Classifier.Mode) {
		errors = append(errors, ValidationError{
			Field:   "classifier.mode",
			Message: fmt.Sprintf("classifier mode must be one of: %s", strings.Join(validClassifierModes, ", ")),
		})
	}

	if config.Classifier.Mode == "static" && config.Classifier.StaticLabel == "" {
		errors = append(errors, ValidationError{
			Field:   "classifier.static_label",
			Message: "static_label is required when classifier mode is static",
		})
	}

	if config.Classifier.Mode == "keyword" && len(config.Classifier.Keywords) == 0 {
		errors = append(errors, ValidationError{
			Field:   "classifier.keywords",
			Message: "keywords are required when classifier mode is keyword",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	// Validate file paths
	if config.Docstore.DBPath == "" {
		errors = append(errors, ValidationError{
			Field:   "docstore.db_path",
			Message: "document database path is required",
		})
	}

	// Validate directory existence for file paths
	if config.Docstore.DBPath != "" {
		if err := validateDirectoryExists(filepath.Dir(config.Docstore.DBPath)); err != nil {
			errors = append(errors, ValidationError{
				Field:   "docstore.db_path",
				Message: fmt.Sprintf("document database directory does not exist: %s", filepath.Dir(config.Docstore.DBPath)),
			})
		}
	}

	// Return all validation errors
	if len(errors) > 0 {
		var errorMessages []string
		for _, err := range errors {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	// Mask sensitive fields
	if masked.Auth.Secret != "" {
		masked.Auth.Secret = maskValue(masked.Auth.Secret)
	}
	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateDirectoryExists checks if a directory exists
func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// getEnvironment returns the current environment (development, production, etc.)
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// WatchConfig enables configuration hot-reloading for development
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	// Set up configuration
	if err := setConfigFile(v, configPath); err != nil {
		return err
	}

	// Enable watching
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Printf("Config file changed: %s\n", e.Name)

		// Reload configuration
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			EnableHotReload:  true,
			Environment:      getEnvironment(),
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config: %v\n", err)
			return
		}

		// Call callback with new config
		callback(config)
	})

	return nil
}
