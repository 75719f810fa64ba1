package alerting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

// thresholdDocument is the on-disk form of a threshold rule set.
type thresholdDocument struct {
	Version    string             `yaml:"version"`
	Thresholds []models.Threshold `yaml:"thresholds"`
}

const thresholdDocVersion = "1.0"

// LoadThresholds reads threshold rules from a YAML file. A missing file
// yields the default rule set; a malformed file is an error since it
// indicates a configuration bug.
func LoadThresholds(path string) ([]models.Threshold, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultThresholds(), nil
		}
		return nil, fmt.Errorf("reading thresholds file: %w", err)
	}

	var doc thresholdDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing thresholds file: %w", err)
	}
	if len(doc.Thresholds) == 0 {
		return DefaultThresholds(), nil
	}
	return doc.Thresholds, nil
}

// SaveThresholds writes the rule set to a YAML file.
func SaveThresholds(path string, thresholds []models.Threshold) error {
	doc := thresholdDocument{Version: thresholdDocVersion, Thresholds: thresholds}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding thresholds: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing thresholds file: %w", err)
	}
	return nil
}
