// Package models defines data structures for configuration and run results.
package models

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when --config is not given and the file exists.
const DefaultConfigFile = "tagcount.yaml"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Dataset describes a remote input file and its expected checksum.
type Dataset struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	MD5     string `yaml:"md5"`
	Extract bool   `yaml:"extract,omitempty"`
}

// InputConfig controls how input files become records.
type InputConfig struct {
	TextColumn   string   `yaml:"text_column"`
	IDColumn     string   `yaml:"id_column"`
	Comma        string   `yaml:"comma"`
	HTMLSelector string   `yaml:"html_selector"`
	Readability  bool     `yaml:"readability"`
	Languages    []string `yaml:"languages,omitempty"`
}

// BenchConfig controls the bench command.
type BenchConfig struct {
	Runs int `yaml:"runs"`
}

// MetricsConfig enables pushing run metrics. An empty Pushgateway disables it.
type MetricsConfig struct {
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// Config holds every setting of a run. Values come from DefaultConfig, then
// the YAML file, then CLI flags.
type Config struct {
	TopK      int    `yaml:"top_k"`
	TagMarker string `yaml:"tag_marker"`
	Workers   int    `yaml:"workers"`
	Strategy  string `yaml:"strategy"`
	Shards    int    `yaml:"shards"`

	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`
	DBPath    string `yaml:"db_path"`

	Input    InputConfig   `yaml:"input"`
	Datasets []Dataset     `yaml:"datasets"`
	Bench    BenchConfig   `yaml:"bench"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// DefaultDatasets are the WHO tweet exports from the COVID-19 Twitter chatter dataset.
func DefaultDatasets() []Dataset {
	return []Dataset{
		{
			Name: "full_who_dataset1.csv",
			URL:  "https://zenodo.org/record/3928240/files/full_who_dataset1.csv?download=1",
			MD5:  "259389f2f6c1b232fe248c91107eeccd",
		},
		{
			Name: "full_who_dataset2.csv",
			URL:  "https://zenodo.org/record/3928240/files/full_who_dataset2.csv?download=1",
			MD5:  "ea266ada5b1b817638ab89388138d95e",
		},
		{
			Name: "full_who_dataset3.csv",
			URL:  "https://zenodo.org/record/3928240/files/full_who_dataset3.csv?download=1",
			MD5:  "fc4b898f8d7c81293a776bf116668bab",
		},
	}
}

// DefaultConfig returns the settings used when nothing is configured.
// Workers 0 means one worker per CPU.
func DefaultConfig() *Config {
	return &Config{
		TopK:      10,
		TagMarker: "#",
		Strategy:  "tree",
		DataDir:   "data",
		OutputDir: "out",
		Input: InputConfig{
			TextColumn:   "text",
			IDColumn:     "id_str",
			Comma:        ",",
			HTMLSelector: "p",
		},
		Datasets: DefaultDatasets(),
		Bench:    BenchConfig{Runs: 5},
		Metrics:  MetricsConfig{Job: "tagcount"},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. A missing file is an
// error unless optional is set, in which case the defaults are returned.
func LoadConfig(path string, optional bool) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var problems []string
	if c.TopK < 0 {
		problems = append(problems, fmt.Sprintf("top_k must be >= 0, got %d", c.TopK))
	}
	if utf8.RuneCountInString(c.TagMarker) != 1 {
		problems = append(problems, fmt.Sprintf("tag_marker must be one character, got %q", c.TagMarker))
	}
	if c.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workers must be >= 0, got %d", c.Workers))
	}
	if c.Shards < 0 {
		problems = append(problems, fmt.Sprintf("shards must be >= 0, got %d", c.Shards))
	}
	switch strings.ToLower(strings.TrimSpace(c.Strategy)) {
	case "", "tree", "sharded", "locked":
	default:
		problems = append(problems, fmt.Sprintf("unknown strategy %q", c.Strategy))
	}
	if c.Input.Comma != `\t` && utf8.RuneCountInString(c.Input.Comma) > 1 {
		problems = append(problems, fmt.Sprintf("input.comma must be one character, got %q", c.Input.Comma))
	}
	if c.Bench.Runs < 0 {
		problems = append(problems, fmt.Sprintf("bench.runs must be >= 0, got %d", c.Bench.Runs))
	}
	for i, ds := range c.Datasets {
		if ds.Name == "" || ds.URL == "" {
			problems = append(problems, fmt.Sprintf("datasets[%d] needs name and url", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CommaRune returns the configured field separator, defaulting to ','.
// The literal two-character sequence `\t` is accepted for tab.
func (in InputConfig) CommaRune() rune {
	switch in.Comma {
	case "":
		return ','
	case `\t`:
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(in.Comma)
	return r
}
