package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"distorage/internal/configloader"
	"distorage/internal/logger"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// RingConfig holds the parameters shared by the two independent Chord
// rings (clients and data) a peer hosts.
type RingConfig struct {
	IDBits                   int           `yaml:"idBits"`
	Mode                     string        `yaml:"mode"` // "public" or "private"
	StabilizeInterval        time.Duration `yaml:"stabilizeInterval"`
	FixFingersInterval       time.Duration `yaml:"fixFingersInterval"`
	CheckPredecessorInterval time.Duration `yaml:"checkPredecessorInterval"`
}

type RegisterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	HostedZoneID string `yaml:"hostedZoneId"`
	DomainSuffix string `yaml:"domainSuffix"`
	TTL          int64  `yaml:"ttl"`
}

// BootstrapConfig selects how a peer learns of the rest of the cluster on
// startup: a static peer list, a local subnet scan, or AWS Route53-backed
// DNS discovery.
type BootstrapConfig struct {
	Mode       string         `yaml:"mode"` // "init", "static", "subnet", "dns"
	Peers      []string       `yaml:"peers"`
	SubnetCIDR string         `yaml:"subnetCidr"`
	DNSName    string         `yaml:"dnsName"`
	Register   RegisterConfig `yaml:"register"`
}

// ClusterConfig governs the peer-control membership layer: the shared
// secret every peer-control RPC must present, and the discovery/stale-peer
// maintenance cadence.
type ClusterConfig struct {
	Secret             string          `yaml:"secret"`
	Bootstrap          BootstrapConfig `yaml:"bootstrap"`
	DiscoverInterval   time.Duration   `yaml:"discoverInterval"`
	StaleSweepInterval time.Duration   `yaml:"staleSweepInterval"`
	StaleTimeout       time.Duration   `yaml:"staleTimeout"`
}

// StorageConfig configures the on-disk persistence root used for
// domain.KindPath values, and the cadence of the successor-repair worker.
type StorageConfig struct {
	Root           string        `yaml:"root"`
	RepairInterval time.Duration `yaml:"repairInterval"`
}

type NodeConfig struct {
	Id              string `yaml:"id"`
	Host            string `yaml:"host"`
	PeerControlPort int    `yaml:"peerControlPort"`
	DHTPort         int    `yaml:"dhtPort"`
	ClientPort      int    `yaml:"clientPort"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Ring      RingConfig      `yaml:"ring"`
	Node      NodeConfig      `yaml:"node"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig loads the configuration from a YAML file at the given path.
//
// This performs only syntactic parsing; call ValidateConfig afterward to
// check structural correctness.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := configloader.LoadYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Supported overrides:
//
//	NODE_ID, NODE_HOST, NODE_PEER_CONTROL_PORT, NODE_DHT_PORT, NODE_CLIENT_PORT
//	CLUSTER_SECRET, BOOTSTRAP_MODE, BOOTSTRAP_PEERS, BOOTSTRAP_SUBNET, BOOTSTRAP_DNSNAME
//	CLUSTER_DISCOVER_INTERVAL, CLUSTER_STALE_SWEEP_INTERVAL, CLUSTER_STALE_TIMEOUT
//	REGISTER_ENABLED, REGISTER_ZONE_ID, REGISTER_SUFFIX, REGISTER_TTL
//	TRACE_ENABLED, TRACE_EXPORTER, TRACE_ENDPOINT
//	LOGGER_ENABLED, LOGGER_LEVEL, LOGGER_ENCODING, LOGGER_MODE, LOGGER_FILE_PATH
//	STORAGE_ROOT, STORAGE_REPAIR_INTERVAL
func (cfg *Config) ApplyEnvOverrides() {
	configloader.OverrideString(&cfg.Node.Id, "NODE_ID")
	configloader.OverrideString(&cfg.Node.Host, "NODE_HOST")
	configloader.OverrideInt(&cfg.Node.PeerControlPort, "NODE_PEER_CONTROL_PORT")
	configloader.OverrideInt(&cfg.Node.DHTPort, "NODE_DHT_PORT")
	configloader.OverrideInt(&cfg.Node.ClientPort, "NODE_CLIENT_PORT")

	configloader.OverrideString(&cfg.Cluster.Secret, "CLUSTER_SECRET")
	configloader.OverrideString(&cfg.Cluster.Bootstrap.Mode, "BOOTSTRAP_MODE")
	configloader.OverrideStringSlice(&cfg.Cluster.Bootstrap.Peers, "BOOTSTRAP_PEERS")
	configloader.OverrideString(&cfg.Cluster.Bootstrap.SubnetCIDR, "BOOTSTRAP_SUBNET")
	configloader.OverrideString(&cfg.Cluster.Bootstrap.DNSName, "BOOTSTRAP_DNSNAME")
	configloader.OverrideBool(&cfg.Cluster.Bootstrap.Register.Enabled, "REGISTER_ENABLED")
	configloader.OverrideString(&cfg.Cluster.Bootstrap.Register.HostedZoneID, "REGISTER_ZONE_ID")
	configloader.OverrideString(&cfg.Cluster.Bootstrap.Register.DomainSuffix, "REGISTER_SUFFIX")
	configloader.OverrideInt64(&cfg.Cluster.Bootstrap.Register.TTL, "REGISTER_TTL")
	configloader.OverrideDuration(&cfg.Cluster.DiscoverInterval, "CLUSTER_DISCOVER_INTERVAL")
	configloader.OverrideDuration(&cfg.Cluster.StaleSweepInterval, "CLUSTER_STALE_SWEEP_INTERVAL")
	configloader.OverrideDuration(&cfg.Cluster.StaleTimeout, "CLUSTER_STALE_TIMEOUT")

	configloader.OverrideBool(&cfg.Telemetry.Tracing.Enabled, "TRACE_ENABLED")
	configloader.OverrideString(&cfg.Telemetry.Tracing.Exporter, "TRACE_EXPORTER")
	configloader.OverrideString(&cfg.Telemetry.Tracing.Endpoint, "TRACE_ENDPOINT")

	configloader.OverrideBool(&cfg.Logger.Active, "LOGGER_ENABLED")
	configloader.OverrideString(&cfg.Logger.Level, "LOGGER_LEVEL")
	configloader.OverrideString(&cfg.Logger.Encoding, "LOGGER_ENCODING")
	configloader.OverrideString(&cfg.Logger.Mode, "LOGGER_MODE")
	configloader.OverrideString(&cfg.Logger.File.Path, "LOGGER_FILE_PATH")

	configloader.OverrideString(&cfg.Storage.Root, "STORAGE_ROOT")
	configloader.OverrideDuration(&cfg.Storage.RepairInterval, "STORAGE_REPAIR_INTERVAL")
}

// ValidateConfig performs structural validation of the loaded
// configuration, accumulating every problem found into a single error.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.Ring.IDBits <= 0 {
		errs = append(errs, "ring.idBits must be > 0")
	}
	switch cfg.Ring.Mode {
	case "public", "private":
	default:
		errs = append(errs, fmt.Sprintf("invalid ring.mode: %s", cfg.Ring.Mode))
	}
	if cfg.Ring.StabilizeInterval <= 0 {
		errs = append(errs, "ring.stabilizeInterval must be > 0")
	}
	if cfg.Ring.FixFingersInterval <= 0 {
		errs = append(errs, "ring.fixFingersInterval must be > 0")
	}
	if cfg.Ring.CheckPredecessorInterval <= 0 {
		errs = append(errs, "ring.checkPredecessorInterval must be > 0")
	}

	if cfg.Cluster.Secret == "" {
		errs = append(errs, "cluster.secret is required")
	}
	b := cfg.Cluster.Bootstrap
	switch b.Mode {
	case "init":
	case "static":
		for _, p := range b.Peers {
			if _, _, err := net.SplitHostPort(p); err != nil {
				errs = append(errs, fmt.Sprintf("invalid peer address %q in cluster.bootstrap.peers: %v", p, err))
			}
		}
	case "subnet":
		if b.SubnetCIDR == "" {
			errs = append(errs, "cluster.bootstrap.subnetCidr is required in mode=subnet")
		} else if _, _, err := net.ParseCIDR(b.SubnetCIDR); err != nil {
			errs = append(errs, fmt.Sprintf("invalid cluster.bootstrap.subnetCidr: %v", err))
		}
	case "dns":
		if b.DNSName == "" {
			errs = append(errs, "cluster.bootstrap.dnsName is required in mode=dns")
		}
		if b.Register.Enabled {
			if b.Register.HostedZoneID == "" {
				errs = append(errs, "cluster.bootstrap.register.hostedZoneId is required when register.enabled=true")
			}
			if b.Register.DomainSuffix == "" {
				errs = append(errs, "cluster.bootstrap.register.domainSuffix is required when register.enabled=true")
			}
			if b.Register.TTL <= 0 {
				errs = append(errs, "cluster.bootstrap.register.ttl must be > 0 when register.enabled=true")
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid cluster.bootstrap.mode: %s (must be init, static, subnet or dns)", b.Mode))
	}
	if cfg.Cluster.DiscoverInterval <= 0 {
		errs = append(errs, "cluster.discoverInterval must be > 0")
	}
	if cfg.Cluster.StaleSweepInterval <= 0 {
		errs = append(errs, "cluster.staleSweepInterval must be > 0")
	}
	if cfg.Cluster.StaleTimeout <= 0 {
		errs = append(errs, "cluster.staleTimeout must be > 0")
	}

	if cfg.Storage.Root == "" {
		errs = append(errs, "storage.root is required")
	}
	if cfg.Storage.RepairInterval <= 0 {
		errs = append(errs, "storage.repairInterval must be > 0")
	}

	for _, port := range []int{cfg.Node.PeerControlPort, cfg.Node.DHTPort, cfg.Node.ClientPort} {
		if port <= 0 || port > 65535 {
			errs = append(errs, fmt.Sprintf("node ports must be in (0,65535], got %d", port))
		}
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Exporter == "otlp" && cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, "telemetry.tracing.endpoint is required for exporter=otlp")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("ring.idBits", cfg.Ring.IDBits),
		logger.F("ring.mode", cfg.Ring.Mode),
		logger.F("ring.stabilizeInterval", cfg.Ring.StabilizeInterval.String()),
		logger.F("ring.fixFingersInterval", cfg.Ring.FixFingersInterval.String()),
		logger.F("ring.checkPredecessorInterval", cfg.Ring.CheckPredecessorInterval.String()),
		logger.F("node.id", cfg.Node.Id),
		logger.F("node.host", cfg.Node.Host),
		logger.F("node.peerControlPort", cfg.Node.PeerControlPort),
		logger.F("node.dhtPort", cfg.Node.DHTPort),
		logger.F("node.clientPort", cfg.Node.ClientPort),
		logger.F("cluster.bootstrap.mode", cfg.Cluster.Bootstrap.Mode),
		logger.F("cluster.bootstrap.peers", cfg.Cluster.Bootstrap.Peers),
		logger.F("cluster.discoverInterval", cfg.Cluster.DiscoverInterval.String()),
		logger.F("cluster.staleSweepInterval", cfg.Cluster.StaleSweepInterval.String()),
		logger.F("cluster.staleTimeout", cfg.Cluster.StaleTimeout.String()),
		logger.F("storage.root", cfg.Storage.Root),
		logger.F("storage.repairInterval", cfg.Storage.RepairInterval.String()),
		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
	)
}
