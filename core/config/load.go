package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	return loadFs(afero.NewOsFs(), path)
}

func loadFs(osFs afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configFs := afero.NewBasePathFs(osFs, path)
	configContents, err := afero.ReadFile(configFs, ConfigurationName)
	if err != nil {
		return nil, err
	}

	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigurationName, err)
	}

	out.configFs = configFs
	out.configurationDir = path
	return &out, nil
}

// Initialize creates the configuration directory at path with the default
// configuration unless one already exists, then loads it.
func Initialize(path string, logger *log.Logger) (*Configuration, error) {
	return initializeFs(afero.NewOsFs(), path, logger)
}

func initializeFs(osFs afero.Fs, path string, logger *log.Logger) (*Configuration, error) {
	if err := osFs.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(path, ConfigurationName)
	switch _, err := osFs.Stat(configPath); {
	case err == nil:
		logger.Printf("%s already exists, skipping\n", configPath)
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("Writing %s\n", configPath)
		if err := afero.WriteFile(osFs, configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return loadFs(osFs, path)
}
