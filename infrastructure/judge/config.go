package judge

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default configuration values for judge clients.
const (
	// DefaultTimeout bounds a single judge call, streaming included.
	// A judge that exceeds it resolves to an error evaluation rather
	// than hanging the batch.
	DefaultTimeout = 2 * time.Minute
)

// Config describes one configured judge identity: where its service
// lives, how to authenticate, and how long a call may take.
// All fields are validated when the judge set is loaded.
type Config struct {
	// Name is the judge identity evaluation entries are keyed by.
	Name string `yaml:"name" json:"name" validate:"required,min=1,max=100"`

	// BaseURL is the judge service endpoint, without the request path.
	BaseURL string `yaml:"base_url" json:"base_url" validate:"required,url"`

	// APIKey authenticates requests to the judge service.
	APIKey string `yaml:"api_key" json:"api_key" validate:"required"`

	// Model records which model backs this judge. Informational; the
	// judge service chooses its own model per its agent configuration.
	Model string `yaml:"model" json:"model"`

	// TimeoutSeconds bounds a single judge call. Zero selects
	// DefaultTimeout.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" validate:"min=0,max=3600"`
}

// Timeout returns the configured per-call bound, or DefaultTimeout when
// unset.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// judgeFile is the on-disk shape of the judge set configuration.
type judgeFile struct {
	Judges []Config `yaml:"judges" validate:"required,min=1,dive"`
}

// LoadConfigs reads and validates the judge set from a YAML file.
// The file must declare at least one judge; judge names must be unique
// since evaluation entries are keyed by them.
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read judge config: %w", err)
	}

	var file judgeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse judge config: %w", err)
	}

	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("judge configuration validation failed: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Judges))
	for _, jc := range file.Judges {
		if _, dup := seen[jc.Name]; dup {
			return nil, fmt.Errorf("duplicate judge name: %s", jc.Name)
		}
		seen[jc.Name] = struct{}{}
	}

	return file.Judges, nil
}
