package main

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/jsonsift/jsonsift/splitter"
)

// config holds the command options that can also come from a YAML file,
// so a pipeline invoked repeatedly does not need to repeat its flags.
type config struct {
	Pattern string  `yaml:"pattern"`
	Values  bool    `yaml:"values"`
	Paths   bool    `yaml:"paths"`
	Color   string  `yaml:"color"`
	Rate    float64 `yaml:"rate"`
	Buffer  int     `yaml:"buffer"`
}

func defaultConfig() config {
	return config{
		Color:  "auto",
		Buffer: splitter.DefaultBufferLimit,
	}
}

func loadConfig(path string) (config, error) {
	var cfg config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config file %s", path)
	}
	return cfg, nil
}

// merge copies file values into c for every option not set on the
// command line.  set maps flag names given explicitly.
func (c *config) merge(file config, set map[string]bool) {
	if file.Pattern != "" {
		c.Pattern = file.Pattern
	}
	if !set["values"] && file.Values {
		c.Values = true
	}
	if !set["paths"] && file.Paths {
		c.Paths = true
	}
	if !set["color"] && file.Color != "" {
		c.Color = file.Color
	}
	if !set["rate"] && file.Rate > 0 {
		c.Rate = file.Rate
	}
	if !set["buffer"] && file.Buffer > 0 {
		c.Buffer = file.Buffer
	}
}
