package mesh

// ScannerReport is one scanner's block of a report: its header name and
// the beacons it saw, relative to itself
type ScannerReport struct {
	Name    string     `json:"name"`
	Beacons PointCloud `json:"beacons"`
}

// ScannerConfig defines a scanner from config file
type ScannerConfig struct {
	ID     string  `yaml:"id" json:"id"`
	Topic  string  `yaml:"topic" json:"topic"`
	Color  string  `yaml:"color,omitempty" json:"color,omitempty"`
	ApiURL *string `yaml:"apiUrl,omitempty" json:"apiUrl,omitempty"` // Optional API URL for fetching reports
}

// AlignmentConfig holds the alignment tuning knobs
type AlignmentConfig struct {
	Reference  int `yaml:"reference" json:"reference"`   // Index of the reference scanner
	MinOverlap int `yaml:"minOverlap" json:"minOverlap"` // Shared beacons required per edge (default 12)
	Workers    int `yaml:"workers" json:"workers"`       // Concurrent pair matchers (0 = GOMAXPROCS)
}

// HTTPConfig holds the service listener settings
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Config represents the full configuration file
type Config struct {
	Alignment AlignmentConfig `yaml:"alignment" json:"alignment"`
	Scanners  []ScannerConfig `yaml:"scanners,omitempty" json:"scanners,omitempty"`
	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Cache     string          `yaml:"cache,omitempty" json:"cache,omitempty"` // Alignment cache path
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// GetScannerByID returns the scanner config for the given ID
func (c *Config) GetScannerByID(id string) *ScannerConfig {
	for i := range c.Scanners {
		if c.Scanners[i].ID == id {
			return &c.Scanners[i]
		}
	}
	return nil
}

// ScannerIndex returns the position of the scanner in the config, or -1
func (c *Config) ScannerIndex(id string) int {
	for i := range c.Scanners {
		if c.Scanners[i].ID == id {
			return i
		}
	}
	return -1
}

// AlignOptions converts the alignment section into pipeline options
func (c *Config) AlignOptions() AlignOptions {
	opts := DefaultAlignOptions()
	opts.Reference = c.Alignment.Reference
	if c.Alignment.MinOverlap > 0 {
		opts.MinOverlap = c.Alignment.MinOverlap
	}
	if c.Alignment.Workers > 0 {
		opts.Workers = c.Alignment.Workers
	}
	return opts
}

// ScannerPose is the cached placement of one scanner
type ScannerPose struct {
	Name    string      `json:"name,omitempty"`
	Mapping AxisMapping `json:"mapping"`
	Origin  Vec3        `json:"origin"`
}

// CachedEdge is a direct overlap recorded in the cache
type CachedEdge struct {
	From    int         `json:"from"`
	To      int         `json:"to"`
	Mapping AxisMapping `json:"mapping"`
	Offset  Vec3        `json:"offset"`
	Support int         `json:"support"`
}

// AlignmentData is the alignment cache stored as JSON
type AlignmentData struct {
	RunID        string        `json:"runId"`
	Reference    int           `json:"reference"`
	Scanners     []ScannerPose `json:"scanners"`
	Edges        []CachedEdge  `json:"edges"`
	Beacons      int           `json:"beacons"`
	MaxManhattan int64         `json:"maxManhattan"`
	LastUpdated  int64         `json:"lastUpdated"`
}
