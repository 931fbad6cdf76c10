package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7440"
	DefaultDBFileName = ".healthlink.db"
	DefaultLogLevel   = "info"

	DefaultStorageMaxUploadBytes    int64 = 100 * 1024 * 1024
	DefaultStorageMultipartMemory   int64 = 8 * 1024 * 1024
	DefaultStorageGCBatchSize             = 500
	DefaultFabricChannel                  = "healthchannel"
	DefaultFabricChaincode                = "healthrecords"
	DefaultSessionTTLHours                = 24

	configDirEnvKey   = "HEALTHLINK_CONFIG_DIR"
	apiURLEnvKey      = "HEALTHLINK_API_URL"
	dbPathEnvKey      = "HEALTHLINK_DB"
	storageRootEnvKey = "HEALTHLINK_STORAGE_ROOT"

	configFileName = ".healthlink.toml"
)

// StorageConfig defines runtime configuration for blob uploads.
type StorageConfig struct {
	Root               string `toml:"root"`
	MaxUploadBytes     int64  `toml:"max_upload_bytes"`
	MultipartMaxMemory int64  `toml:"multipart_max_memory"`
	GCBatchSize        int    `toml:"gc_batch_size"`
}

// FabricConfig defines the Fabric Gateway connection for ledger submissions.
// The server runs storage-only when PeerEndpoint is empty.
type FabricConfig struct {
	PeerEndpoint string `toml:"peer_endpoint"`
	GatewayPeer  string `toml:"gateway_peer"`
	MSPID        string `toml:"msp_id"`
	Channel      string `toml:"channel"`
	Chaincode    string `toml:"chaincode"`
	CertPath     string `toml:"cert_path"`
	KeyPath      string `toml:"key_path"`
	TLSCertPath  string `toml:"tls_cert_path"`
}

// Config defines runtime configuration for healthlink.
type Config struct {
	APIURL          string        `toml:"api_url"`
	DBPath          string        `toml:"db_path"`
	LogLevel        string        `toml:"log_level"`
	SessionTTLHours int           `toml:"session_ttl_hours"`
	Storage         StorageConfig `toml:"storage"`
	Fabric          FabricConfig  `toml:"fabric"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:          DefaultAPIURL,
		DBPath:          "",
		LogLevel:        "",
		SessionTTLHours: DefaultSessionTTLHours,
		Storage: StorageConfig{
			MaxUploadBytes:     DefaultStorageMaxUploadBytes,
			MultipartMaxMemory: DefaultStorageMultipartMemory,
			GCBatchSize:        DefaultStorageGCBatchSize,
		},
		Fabric: FabricConfig{
			Channel:   DefaultFabricChannel,
			Chaincode: DefaultFabricChaincode,
		},
	}
}

// Load reads config from the global file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err == nil {
		if err := loadFileIfExists(path, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if root := os.Getenv(storageRootEnvKey); root != "" {
		cfg.Storage.Root = root
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// StorageRoot resolves the blob store root, defaulting next to the database.
func (c *Config) StorageRoot() string {
	if root := strings.TrimSpace(c.Storage.Root); root != "" {
		return root
	}
	return filepath.Join(filepath.Dir(c.DBPath), ".healthlink", "blobs")
}

// LedgerConfigured reports whether a Fabric Gateway connection is configured.
func (c *Config) LedgerConfigured() bool {
	return strings.TrimSpace(c.Fabric.PeerEndpoint) != ""
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"session_ttl_hours",
	"storage.root",
	"storage.max_upload_bytes",
	"storage.multipart_max_memory",
	"storage.gc_batch_size",
	"fabric.peer_endpoint",
	"fabric.gateway_peer",
	"fabric.msp_id",
	"fabric.channel",
	"fabric.chaincode",
	"fabric.cert_path",
	"fabric.key_path",
	"fabric.tls_cert_path",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "session_ttl_hours":
		return strconv.Itoa(c.SessionTTLHours), nil
	case "storage.root":
		return c.Storage.Root, nil
	case "storage.max_upload_bytes":
		return strconv.FormatInt(c.Storage.MaxUploadBytes, 10), nil
	case "storage.multipart_max_memory":
		return strconv.FormatInt(c.Storage.MultipartMaxMemory, 10), nil
	case "storage.gc_batch_size":
		return strconv.Itoa(c.Storage.GCBatchSize), nil
	case "fabric.peer_endpoint":
		return c.Fabric.PeerEndpoint, nil
	case "fabric.gateway_peer":
		return c.Fabric.GatewayPeer, nil
	case "fabric.msp_id":
		return c.Fabric.MSPID, nil
	case "fabric.channel":
		return c.Fabric.Channel, nil
	case "fabric.chaincode":
		return c.Fabric.Chaincode, nil
	case "fabric.cert_path":
		return c.Fabric.CertPath, nil
	case "fabric.key_path":
		return c.Fabric.KeyPath, nil
	case "fabric.tls_cert_path":
		return c.Fabric.TLSCertPath, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func loadFileIfExists(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "storage.max_upload_bytes", "storage.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.gc_batch_size", "session_ttl_hours":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if c.Storage.MaxUploadBytes <= 0 {
		c.Storage.MaxUploadBytes = DefaultStorageMaxUploadBytes
	}
	if c.Storage.MultipartMaxMemory <= 0 {
		c.Storage.MultipartMaxMemory = DefaultStorageMultipartMemory
	}
	if c.Storage.GCBatchSize <= 0 {
		c.Storage.GCBatchSize = DefaultStorageGCBatchSize
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = DefaultSessionTTLHours
	}
	if strings.TrimSpace(c.Fabric.Channel) == "" {
		c.Fabric.Channel = DefaultFabricChannel
	}
	if strings.TrimSpace(c.Fabric.Chaincode) == "" {
		c.Fabric.Chaincode = DefaultFabricChaincode
	}
}
