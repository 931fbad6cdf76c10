package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("expected api url %q, got %q", DefaultAPIURL, cfg.APIURL)
	}
	if cfg.Storage.MaxUploadBytes != DefaultStorageMaxUploadBytes {
		t.Errorf("expected max upload %d, got %d", DefaultStorageMaxUploadBytes, cfg.Storage.MaxUploadBytes)
	}
	if cfg.Fabric.Channel != DefaultFabricChannel {
		t.Errorf("expected channel %q, got %q", DefaultFabricChannel, cfg.Fabric.Channel)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	content := `api_url = "http://example.test:9900"
db_path = "/tmp/health.db"

[storage]
root = "/tmp/blobs"
max_upload_bytes = 1024

[fabric]
peer_endpoint = "peer0.org1.example.com:7051"
msp_id = "Org1MSP"
`
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://example.test:9900" {
		t.Errorf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.Storage.Root != "/tmp/blobs" {
		t.Errorf("unexpected storage root %q", cfg.Storage.Root)
	}
	if cfg.Storage.MaxUploadBytes != 1024 {
		t.Errorf("unexpected max upload %d", cfg.Storage.MaxUploadBytes)
	}
	if !cfg.LedgerConfigured() {
		t.Error("expected ledger configured")
	}
	if cfg.Fabric.Channel != DefaultFabricChannel {
		t.Errorf("expected default channel, got %q", cfg.Fabric.Channel)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(configDirEnvKey, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("expected default api url, got %q", cfg.APIURL)
	}
	if !strings.HasSuffix(cfg.DBPath, DefaultDBFileName) {
		t.Errorf("expected db path ending in %q, got %q", DefaultDBFileName, cfg.DBPath)
	}
	if cfg.LedgerConfigured() {
		t.Error("expected ledger not configured")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(configDirEnvKey, t.TempDir())
	t.Setenv(apiURLEnvKey, "http://env.test:7000")
	t.Setenv(dbPathEnvKey, "/tmp/env.db")
	t.Setenv(storageRootEnvKey, "/tmp/env-blobs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://env.test:7000" {
		t.Errorf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.StorageRoot() != "/tmp/env-blobs" {
		t.Errorf("unexpected storage root %q", cfg.StorageRoot())
	}
}

func TestStorageRootDefault(t *testing.T) {
	cfg := Default()
	cfg.DBPath = "/data/app/.healthlink.db"
	want := filepath.Join("/data/app", ".healthlink", "blobs")
	if got := cfg.StorageRoot(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSetKeyAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)

	if err := SetKey(path, "api_url", "http://set.test:8000"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := SetKey(path, "fabric.msp_id", "Org2MSP"); err != nil {
		t.Fatalf("SetKey nested: %v", err)
	}
	if err := SetKey(path, "storage.max_upload_bytes", "2048"); err != nil {
		t.Fatalf("SetKey int: %v", err)
	}

	var cfg Config
	cfg = Default()
	if err := loadFileIfExists(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://set.test:8000" {
		t.Errorf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.Fabric.MSPID != "Org2MSP" {
		t.Errorf("unexpected msp id %q", cfg.Fabric.MSPID)
	}
	if cfg.Storage.MaxUploadBytes != 2048 {
		t.Errorf("unexpected max upload %d", cfg.Storage.MaxUploadBytes)
	}

	got, err := cfg.Get("fabric.msp_id")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Org2MSP" {
		t.Errorf("Get returned %q", got)
	}
}

func TestSetKeyRejectsUnknownAndInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)

	if err := SetKey(path, "no_such_key", "v"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := SetKey(path, "storage.max_upload_bytes", "-1"); err == nil {
		t.Error("expected error for negative size")
	}
	if err := SetKey(path, "storage.gc_batch_size", "abc"); err == nil {
		t.Error("expected error for non-numeric batch size")
	}
}
