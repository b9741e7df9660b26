package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	EventLogName      = "events.jsonl"
	HistoryName       = "history"

	// DirName is the directory under $HOME holding the configuration.
	DirName = ".smallsh"
)

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs
	// configurationDir is empty for configurations that aren't backed by disk.
	configurationDir string

	Prompt       string `json:"prompt"`
	Delimiters   string `json:"delimiters" validate:"required"`
	Color        string `json:"color" validate:"oneof=always auto never"`
	HistoryLimit int    `json:"history_limit" validate:"gte=-1"`
	SaveHistory  bool   `json:"save_history"`
	EventLog     bool   `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

// Dir returns the configuration directory, empty if there isn't one.
func (c *Configuration) Dir() string {
	return c.configurationDir
}

// OpenEventLog opens the job event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_RDONLY, 0600)
}

// HistoryPath returns the file the line editor persists history to, or an
// empty string if history shouldn't be saved.
func (c *Configuration) HistoryPath() string {
	if !c.SaveHistory || c.configurationDir == "" || c.HistoryLimit < 0 {
		return ""
	}
	return filepath.Join(c.configurationDir, HistoryName)
}

// Default returns the built-in configuration, not backed by any directory.
func Default() *Configuration {
	cfg := defaultConfig()
	cfg.configFs = afero.NewMemMapFs()
	return cfg
}

// DefaultDir returns the configuration directory in the user's home.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
