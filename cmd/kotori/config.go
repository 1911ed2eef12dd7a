package main

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	httpfrontend "github.com/kotori/kotori/frontend/http"
	"github.com/kotori/kotori/tracker"
)

// Config represents the configuration used for executing kotori.
type Config struct {
	tracker.Config `yaml:",inline"`
	PrometheusAddr string              `yaml:"prometheus_addr"`
	HTTPConfig     httpfrontend.Config `yaml:"http"`
	StoreSession   bool                `yaml:"store_session"`
	SessionFile    string              `yaml:"session_file"`
	Debug          bool                `yaml:"debug"`
}

// ConfigFile represents a namespaced YAML configuration file.
type ConfigFile struct {
	Kotori Config `yaml:"kotori"`
}

// ParseConfigFile returns a new ConfigFile given the path to a YAML
// configuration file.
//
// It supports relative and absolute paths and environment variables.
func ParseConfigFile(path string) (*ConfigFile, error) {
	if path == "" {
		return nil, errors.New("no config path specified")
	}

	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contents, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var cfgFile ConfigFile
	if err := yaml.Unmarshal(contents, &cfgFile); err != nil {
		return nil, errors.Wrap(err, "failed to parse configuration")
	}

	return &cfgFile, nil
}
