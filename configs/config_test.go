package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const minimalBase = `
app:
  http_addr: "127.0.0.1:8080"
printer:
  transport: "serial"
  discovery_timeout: 5s
  open_timeout: 5s
  write_timeout: 5s
jobs:
  retention: 200
`

func TestLoadLayersEnvFileAndVariables(t *testing.T) {
	dir := writeConfig(t, map[string]string{
		"base.yaml": minimalBase,
		"dev.yaml":  "printer:\n  transport: \"simulated\"\n",
	})
	t.Setenv("PRINTERHELPER_JOBS__RETENTION", "50")

	cfg, err := Load(dir, "dev")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Printer.Transport != "simulated" {
		t.Errorf("transport = %s", cfg.Printer.Transport)
	}
	if cfg.Jobs.Retention != 50 {
		t.Errorf("retention = %d", cfg.Jobs.Retention)
	}
	if cfg.Printer.OpenTimeout != 5*time.Second {
		t.Errorf("open timeout = %v", cfg.Printer.OpenTimeout)
	}
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	dir := writeConfig(t, map[string]string{"base.yaml": minimalBase})
	if _, err := Load(dir, "shop"); err != nil {
		t.Fatal(err)
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(".", "dev")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Printer.VendorID != 0x04b8 || cfg.Receipt.Currency != "£" {
		t.Errorf("printer=%+v receipt=%+v", cfg.Printer, cfg.Receipt)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.App.HTTPAddr = ":8080"
		c.Printer.Transport = "simulated"
		c.Printer.DiscoveryTimeout = time.Second
		c.Printer.OpenTimeout = time.Second
		c.Printer.WriteTimeout = time.Second
		c.Jobs.Retention = 1
		return c
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no addr", func(c *Config) { c.App.HTTPAddr = "" }, "http_addr"},
		{"bad transport", func(c *Config) { c.Printer.Transport = "parallel" }, "transport"},
		{"zero timeout", func(c *Config) { c.Printer.WriteTimeout = 0 }, "write_timeout"},
		{"retention", func(c *Config) { c.Jobs.Retention = 0 }, "retention"},
		{"network without targets", func(c *Config) { c.Printer.Transport = "network" }, "network"},
		{"bad timezone", func(c *Config) { c.Receipt.Timezone = "Mars/Olympus" }, "timezone"},
		{"mysql without dsn", func(c *Config) { c.MySQL.Enabled = true }, "mysql.dsn"},
		{"auth without secret", func(c *Config) { c.Security.Enabled = true }, "jwt_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestClientLookupSkipsDisabled(t *testing.T) {
	var c Config
	c.Security.Clients = []APIClient{
		{ID: "pos", Secret: "s", Enabled: true},
		{ID: "old-till", Secret: "s"},
	}
	if _, ok := c.Client("pos"); !ok {
		t.Error("pos not found")
	}
	if _, ok := c.Client("old-till"); ok {
		t.Error("disabled client returned")
	}
}
