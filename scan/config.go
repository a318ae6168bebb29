package scan

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/markscan/markup"
)

// DefaultConfigPath is the file written by `markscan init`.
const DefaultConfigPath = ".markscan.yaml"

// Config is the on-disk configuration.
type Config struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
	RawText    []string `yaml:"raw_text"`
}

func DefaultConfig() Config {
	return Config{
		Name:       "markscan",
		Extensions: []string{".html", ".htm"},
		RawText:    append([]string(nil), markup.DefaultRawTextElements...),
	}
}

// LoadConfig reads a configuration file. An empty path yields the defaults,
// and fields left out of the file keep their default values.
func LoadConfig(configurationPath string) (Config, error) {
	config := DefaultConfig()
	if configurationPath == "" {
		return config, nil
	}

	f, err := os.Open(configurationPath)
	if err != nil {
		return config, err
	}
	defer f.Close()

	var loaded Config
	if err := yaml.NewDecoder(f).Decode(&loaded); err != nil {
		return config, err
	}

	if loaded.Name != "" {
		config.Name = loaded.Name
	}
	if len(loaded.Extensions) > 0 {
		config.Extensions = loaded.Extensions
	}
	if loaded.RawText != nil {
		config.RawText = loaded.RawText
	}
	return config, nil
}

// SaveConfig writes config as YAML, creating or truncating the file.
func SaveConfig(configurationPath string, config Config) error {
	if configurationPath == "" {
		configurationPath = DefaultConfigPath
	}

	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	f, err := os.Create(configurationPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}
