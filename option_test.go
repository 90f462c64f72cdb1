package bluez

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	c, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c != DefaultConfig() {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.OffMode != OffModeNoScan || c.DiscoverableTimeout != 180 {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hcid.json")
	doc := `{"offmode": "devdown", "mode": "discoverable", "discovto": 0, "name": "kitchen", "cmdtimeout": 500}`
	if err := ioutil.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := NewConfig(OptConfigFile(path), OptName("hall"))
	if err != nil {
		t.Fatal(err)
	}
	if c.OffMode != OffModeDevDown {
		t.Fatalf("offmode not applied")
	}
	if c.StartupMode != "discoverable" || c.DiscoverableTimeout != 0 {
		t.Fatalf("unexpected %+v", c)
	}
	if c.Name != "hall" {
		t.Fatalf("option did not override the file: %s", c.Name)
	}
	if c.CommandTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected command timeout %v", c.CommandTimeout)
	}
	if c.StorageDir != "/var/lib/bluetooth" {
		t.Fatalf("default lost: %s", c.StorageDir)
	}
}

func TestConfigErrors(t *testing.T) {
	if _, err := NewConfig(OptConfigFile(filepath.Join(t.TempDir(), "missing.json"))); err == nil {
		t.Fatalf("missing file accepted")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := ioutil.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfig(OptConfigFile(path)); err == nil {
		t.Fatalf("malformed file accepted")
	}

	if _, err := NewConfig(OptOffMode("sleep")); err == nil {
		t.Fatalf("invalid offmode accepted")
	}
	if _, err := NewConfig(OptStartupMode("sideways")); err == nil {
		t.Fatalf("invalid mode accepted")
	}
	if _, err := NewConfig(OptStartupMode("on")); err != nil {
		t.Fatalf("on rejected: %v", err)
	}
}

func TestOptCommandTimeout(t *testing.T) {
	c, err := NewConfig(OptCommandTimeout(2 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if c.CommandTimeout != 2*time.Second || c.CommandTimeoutMs != 2000 {
		t.Fatalf("unexpected %+v", c)
	}
}
