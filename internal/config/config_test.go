package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Logger: LoggerConfig{Active: true, Level: "info", Encoding: "json", Mode: "stdout"},
		Ring: RingConfig{
			IDBits: 160, Mode: "private",
			StabilizeInterval: time.Second, FixFingersInterval: time.Second, CheckPredecessorInterval: time.Second,
		},
		Node: NodeConfig{Id: "n1", Host: "10.0.0.5", PeerControlPort: 7000, DHTPort: 7001, ClientPort: 7002},
		Cluster: ClusterConfig{
			Secret:             "s3cr3t",
			Bootstrap:          BootstrapConfig{Mode: "init"},
			DiscoverInterval:   time.Second,
			StaleSweepInterval: time.Second,
			StaleTimeout:       time.Second,
		},
		Storage: StorageConfig{Root: "/tmp/distorage", RepairInterval: time.Second},
	}
}

func TestValidateConfigAccepted(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.ValidateConfig())
}

func TestValidateConfigAccumulatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	cfg.Ring.IDBits = 0
	cfg.Cluster.Secret = ""

	err := cfg.ValidateConfig()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "logger.level")
	assert.Contains(t, msg, "ring.idBits")
	assert.Contains(t, msg, "cluster.secret")
}

func TestValidateConfigStaticBootstrapRejectsBadPeer(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.Bootstrap.Mode = "static"
	cfg.Cluster.Bootstrap.Peers = []string{"not-a-host-port"}
	require.Error(t, cfg.ValidateConfig())
}

func TestLoadConfigAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
logger:
  active: true
  level: info
  encoding: json
  mode: stdout
ring:
  idBits: 160
  mode: private
  stabilizeInterval: 1s
  fixFingersInterval: 1s
  checkPredecessorInterval: 1s
node:
  id: n1
  host: 10.0.0.5
  peerControlPort: 7000
  dhtPort: 7001
  clientPort: 7002
cluster:
  secret: s3cr3t
  bootstrap:
    mode: init
  discoverInterval: 1s
  staleSweepInterval: 1s
  staleTimeout: 1s
storage:
  root: /tmp/distorage
  repairInterval: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateConfig())

	t.Setenv("NODE_ID", "override-id")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "override-id", cfg.Node.Id)
}
