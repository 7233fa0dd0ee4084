package mesh

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultClientID      = "beaconmesh"
	defaultPublishPrefix = "beaconmesh"
	defaultHTTPPort      = 8080
	defaultCachePath     = ".alignment-cache.json"
)

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Alignment: AlignmentConfig{
			Reference:  0,
			MinOverlap: DefaultMinOverlap,
		},
		MQTT: MQTTConfig{
			ClientID:      defaultClientID,
			PublishPrefix: defaultPublishPrefix,
		},
		HTTP:  HTTPConfig{Port: defaultHTTPPort},
		Cache: defaultCachePath,
	}
}

// LoadConfig loads the configuration from a YAML file.
// Missing sections keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Alignment.MinOverlap < 0 {
		return fmt.Errorf("alignment.minOverlap must not be negative")
	}
	if c.Alignment.Workers < 0 {
		return fmt.Errorf("alignment.workers must not be negative")
	}
	if c.Alignment.Reference < 0 {
		return fmt.Errorf("alignment.reference must not be negative")
	}

	if len(c.Scanners) == 0 {
		return nil
	}

	if c.MQTT.Broker == "" && os.Getenv("MQTT_BROKER") == "" {
		return fmt.Errorf("mqtt.broker is required when scanners are configured")
	}
	if c.Alignment.Reference >= len(c.Scanners) {
		return fmt.Errorf("alignment.reference %d out of range for %d scanners", c.Alignment.Reference, len(c.Scanners))
	}

	seen := make(map[string]bool, len(c.Scanners))
	for i, sc := range c.Scanners {
		if sc.ID == "" {
			return fmt.Errorf("scanner[%d].id is required", i)
		}
		if sc.Topic == "" && sc.ApiURL == nil {
			return fmt.Errorf("scanner[%d].topic or apiUrl is required for %s", i, sc.ID)
		}
		if seen[sc.ID] {
			return fmt.Errorf("scanner[%d].id %q is duplicated", i, sc.ID)
		}
		seen[sc.ID] = true
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// envOr returns the environment variable if set, else fallback
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
