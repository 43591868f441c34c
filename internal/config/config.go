package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDirectoryURL = "https://directory.netgauge.dev/api"
	defaultCandidates   = 5

	defaultPingCount   = 10
	defaultPingTimeout = 2 * time.Second

	defaultConnections     = 4
	defaultPhaseDuration   = 10 * time.Second
	defaultSampleInterval  = 200 * time.Millisecond
	defaultWarmup          = 2 * time.Second
	defaultConnectTimeout  = 5 * time.Second
	defaultMonitorInterval = 250 * time.Millisecond

	defaultHistoryKeep = 100
)

type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	switch value.Tag {
	case "!!int", "!!float":
		var secs float64
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	default:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if raw == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery"`
	Latency   LatencyConfig   `yaml:"latency"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Grading   GradingConfig   `yaml:"grading"`
	History   HistoryConfig   `yaml:"history"`
	Export    ExportConfig    `yaml:"export"`
}

type DiscoveryConfig struct {
	DirectoryURL string `yaml:"directory_url"`
	ServerID     int    `yaml:"server_id"`
	Candidates   int    `yaml:"candidates"`
	GeoIPPath    string `yaml:"geoip_database"`
}

type LatencyConfig struct {
	Probe           string   `yaml:"probe"`
	PingCount       int      `yaml:"ping_count"`
	PingTimeout     Duration `yaml:"ping_timeout"`
	MonitorInterval Duration `yaml:"monitor_interval"`
}

type TransferConfig struct {
	Connections      int      `yaml:"connections"`
	DownloadDuration Duration `yaml:"download_duration"`
	UploadDuration   Duration `yaml:"upload_duration"`
	SampleInterval   Duration `yaml:"sample_interval"`
	Warmup           Duration `yaml:"warmup"`
	ConnectTimeout   Duration `yaml:"connect_timeout"`
}

type GradingConfig struct {
	Thresholds []GradeThresholdConfig `yaml:"thresholds"`
}

type GradeThresholdConfig struct {
	MaxDeltaMs float64 `yaml:"max_delta_ms"`
	Grade      string  `yaml:"grade"`
}

type HistoryConfig struct {
	Path    string `yaml:"path"`
	Enabled *bool  `yaml:"enabled"`
	Keep    int    `yaml:"keep"`
}

type ExportConfig struct {
	JSONPath string `yaml:"json_path"`
	CSVPath  string `yaml:"csv_path"`
}

// LoadConfig reads, defaults, and validates a config file. A missing
// path yields pure defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Discovery.DirectoryURL == "" {
		c.Discovery.DirectoryURL = defaultDirectoryURL
	}
	if c.Discovery.Candidates <= 0 {
		c.Discovery.Candidates = defaultCandidates
	}
	if c.Latency.PingCount <= 0 {
		c.Latency.PingCount = defaultPingCount
	}
	if c.Latency.PingTimeout <= 0 {
		c.Latency.PingTimeout = Duration(defaultPingTimeout)
	}
	if c.Latency.MonitorInterval <= 0 {
		c.Latency.MonitorInterval = Duration(defaultMonitorInterval)
	}
	if c.Transfer.Connections <= 0 {
		c.Transfer.Connections = defaultConnections
	}
	if c.Transfer.DownloadDuration <= 0 {
		c.Transfer.DownloadDuration = Duration(defaultPhaseDuration)
	}
	if c.Transfer.UploadDuration <= 0 {
		c.Transfer.UploadDuration = Duration(defaultPhaseDuration)
	}
	if c.Transfer.SampleInterval <= 0 {
		c.Transfer.SampleInterval = Duration(defaultSampleInterval)
	}
	if c.Transfer.Warmup <= 0 {
		c.Transfer.Warmup = Duration(defaultWarmup)
	}
	if c.Transfer.ConnectTimeout <= 0 {
		c.Transfer.ConnectTimeout = Duration(defaultConnectTimeout)
	}
	if c.History.Keep <= 0 {
		c.History.Keep = defaultHistoryKeep
	}
}

func (c *Config) validate() error {
	switch c.Latency.Probe {
	case "", "ws", "icmp":
	default:
		return fmt.Errorf("latency.probe must be ws or icmp, got %q", c.Latency.Probe)
	}
	if c.Latency.PingCount < 1 {
		return fmt.Errorf("latency.ping_count must be at least 1")
	}
	if c.Transfer.Connections < 1 {
		return fmt.Errorf("transfer.connections must be at least 1")
	}
	if c.Transfer.SampleInterval.Duration() >= c.Transfer.DownloadDuration.Duration() {
		return fmt.Errorf("transfer.sample_interval must be shorter than transfer.download_duration")
	}
	if c.Transfer.SampleInterval.Duration() >= c.Transfer.UploadDuration.Duration() {
		return fmt.Errorf("transfer.sample_interval must be shorter than transfer.upload_duration")
	}
	if c.Transfer.Warmup.Duration() >= c.Transfer.DownloadDuration.Duration() {
		return fmt.Errorf("transfer.warmup must be shorter than the phase duration")
	}
	seen := make(map[string]bool)
	for i, t := range c.Grading.Thresholds {
		switch t.Grade {
		case "A", "B", "C", "D":
		default:
			return fmt.Errorf("grading.thresholds[%d]: grade %q is not one of A-D", i, t.Grade)
		}
		if t.MaxDeltaMs <= 0 {
			return fmt.Errorf("grading.thresholds[%d]: max_delta_ms must be positive", i)
		}
		if seen[t.Grade] {
			return fmt.Errorf("grading.thresholds[%d]: duplicate grade %q", i, t.Grade)
		}
		seen[t.Grade] = true
		if i > 0 && t.MaxDeltaMs <= c.Grading.Thresholds[i-1].MaxDeltaMs {
			return fmt.Errorf("grading.thresholds[%d]: max_delta_ms must increase", i)
		}
	}
	return nil
}
