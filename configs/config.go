package configs

import (
	"fmt"
	"strings"
	"time"
	// shop PCs run Windows, which ships no zoneinfo database
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PRINTERHELPER_"

var transports = map[string]bool{"simulated": true, "network": true, "serial": true, "usb": true}

type NetworkTarget struct {
	Name    string `koanf:"name"`
	Address string `koanf:"address"`
}

type APIClient struct {
	ID      string   `koanf:"id"`
	Secret  string   `koanf:"secret"`
	Scopes  []string `koanf:"scopes"`
	Enabled bool     `koanf:"enabled"`
}

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Version  string `koanf:"version"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Printer struct {
		Transport        string          `koanf:"transport"`
		VendorName       string          `koanf:"vendor_name"`
		VendorID         uint16          `koanf:"vendor_id"`
		ProductID        uint16          `koanf:"product_id"`
		Network          []NetworkTarget `koanf:"network"`
		SerialBaud       int             `koanf:"serial_baud"`
		SerialUSBOnly    bool            `koanf:"serial_usb_only"`
		DiscoveryTimeout time.Duration   `koanf:"discovery_timeout"`
		OpenTimeout      time.Duration   `koanf:"open_timeout"`
		WriteTimeout     time.Duration   `koanf:"write_timeout"`
		DefaultPrinter   string          `koanf:"default_printer"`
		AutoConnect      bool            `koanf:"auto_connect"`
		PaperWidth       int             `koanf:"paper_width"`
	} `koanf:"printer"`

	Receipt struct {
		Name     string   `koanf:"name"`
		Address  []string `koanf:"address"`
		Currency string   `koanf:"currency"`
		Timezone string   `koanf:"timezone"`
	} `koanf:"receipt"`

	Jobs struct {
		Retention int `koanf:"retention"`
	} `koanf:"jobs"`

	Redis struct {
		Enabled  bool   `koanf:"enabled"`
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Rabbit struct {
		Enabled     bool   `koanf:"enabled"`
		URL         string `koanf:"url"`
		Exchange    string `koanf:"exchange"`
		RoutingKey  string `koanf:"routing_key"`
		IntakeQueue string `koanf:"intake_queue"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Enabled bool     `koanf:"enabled"`
		Brokers []string `koanf:"brokers"`
		GroupID string   `koanf:"group_id"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	MySQL struct {
		Enabled         bool          `koanf:"enabled"`
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Security struct {
		Enabled   bool          `koanf:"enabled"`
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
		Clients   []APIClient   `koanf:"clients"`
	} `koanf:"security"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/shop). Optional: allow missing for local runs.
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables override (prefix PRINTERHELPER_, nested with __)
	// e.g. PRINTERHELPER_PRINTER__TRANSPORT, PRINTERHELPER_REDIS__PASSWORD
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if !transports[c.Printer.Transport] {
		return fmt.Errorf("printer.transport %q: want simulated, network, serial or usb", c.Printer.Transport)
	}
	for name, d := range map[string]time.Duration{
		"printer.discovery_timeout": c.Printer.DiscoveryTimeout,
		"printer.open_timeout":      c.Printer.OpenTimeout,
		"printer.write_timeout":     c.Printer.WriteTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Jobs.Retention < 1 {
		return fmt.Errorf("jobs.retention must be at least 1")
	}
	if c.Printer.Transport == "network" && len(c.Printer.Network) == 0 {
		return fmt.Errorf("printer.network targets required for network transport")
	}
	if c.Receipt.Timezone != "" {
		if _, err := time.LoadLocation(c.Receipt.Timezone); err != nil {
			return fmt.Errorf("receipt.timezone: %w", err)
		}
	}
	if c.MySQL.Enabled && c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required when mysql is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic required when kafka is enabled")
	}
	if c.Rabbit.Enabled && c.Rabbit.URL == "" {
		return fmt.Errorf("rabbitmq.url required when rabbitmq is enabled")
	}
	if c.Security.Enabled && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required when security is enabled")
	}
	return nil
}

// Client returns the enabled API client with the given id.
func (c Config) Client(id string) (APIClient, bool) {
	for _, cl := range c.Security.Clients {
		if cl.ID == id && cl.Enabled {
			return cl, true
		}
	}
	return APIClient{}, false
}
