package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/utils"
	"gopkg.in/yaml.v3"
)

var ErrConfigCreated = errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")

type DatabaseConfig struct {
	Host               string `json:"host" yaml:"host"`
	Port               uint64 `json:"port" yaml:"port"`
	Username           string `json:"username" yaml:"username"`
	Password           string `json:"password" yaml:"password"`
	Database           string `json:"database" yaml:"database"`
	UseTLS             bool   `json:"use_tls" yaml:"use_tls"`
	ConnectTimeout     string `json:"connect_timeout" yaml:"connect_timeout"`
	SocketTimeout      string `json:"socket_timeout" yaml:"socket_timeout"`
	ConnectIdleTimeout string `json:"connect_idle_timeout" yaml:"connect_idle_timeout"`
	OperationTimeout   string `json:"operation_timeout" yaml:"operation_timeout"`
	Heartbeat          string `json:"heartbeat" yaml:"heartbeat"`
	MinPoolSize        uint64 `json:"min_pool_size" yaml:"min_pool_size"`
	MaxPoolSize        uint64 `json:"max_pool_size" yaml:"max_pool_size"`
}

// HeartBeatConfig is what the server offers in CONNECTED. Tolerance
// scales the client's promised interval into a read deadline.
type HeartBeatConfig struct {
	Guaranteed string  `json:"guaranteed" yaml:"guaranteed"`
	Expected   string  `json:"expected" yaml:"expected"`
	Tolerance  float64 `json:"tolerance" yaml:"tolerance"`
}

type ListenerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
	Path    string `json:"path" yaml:"path"`
}

type AuthConfig struct {
	// Provider is "allow", "deny" or "mongo".
	Provider  string `json:"provider" yaml:"provider"`
	CacheSize int    `json:"cache_size" yaml:"cache_size"`
	CacheTTL  string `json:"cache_ttl" yaml:"cache_ttl"`
}

type Config struct {
	AppName        string          `json:"app_name" yaml:"app_name"`
	DebugMode      bool            `json:"debug_mode" yaml:"debug_mode"`
	LogDir         string          `json:"log_dir" yaml:"log_dir"`
	Listen         string          `json:"listen" yaml:"listen"`
	MaxConnections int             `json:"max_connections" yaml:"max_connections"`
	ConnectTimeout string          `json:"connect_timeout" yaml:"connect_timeout"`
	OutboundQueue  int             `json:"outbound_queue" yaml:"outbound_queue"`
	MaxFrameSize   int             `json:"max_frame_size" yaml:"max_frame_size"`
	HeartBeat      HeartBeatConfig `json:"heartbeat" yaml:"heartbeat"`
	WebSocket      ListenerConfig  `json:"websocket" yaml:"websocket"`
	Metrics        ListenerConfig  `json:"metrics" yaml:"metrics"`
	Auth           AuthConfig      `json:"auth" yaml:"auth"`
	Database       DatabaseConfig  `json:"database" yaml:"database"`
}

func Default() Config {
	return Config{
		AppName:        "stomp-broker",
		LogDir:         "logs",
		Listen:         ":61613",
		MaxConnections: 10000,
		ConnectTimeout: "1m",
		OutboundQueue:  256,
		MaxFrameSize:   1 << 20,
		HeartBeat: HeartBeatConfig{
			Guaranteed: "10s",
			Expected:   "10s",
			Tolerance:  2,
		},
		WebSocket: ListenerConfig{Listen: ":61614", Path: "/stomp"},
		Metrics:   ListenerConfig{Listen: ":9100", Path: "/metrics"},
		Auth: AuthConfig{
			Provider:  "allow",
			CacheSize: 1024,
			CacheTTL:  "5m",
		},
		Database: DatabaseConfig{
			Host:               "localhost",
			Port:               27017,
			Database:           "stomp",
			ConnectTimeout:     "10s",
			SocketTimeout:      "30s",
			ConnectIdleTimeout: "5m",
			OperationTimeout:   "5s",
			Heartbeat:          "10s",
			MinPoolSize:        1,
			MaxPoolSize:        20,
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ReadConfig loads the file at path over the defaults. A missing file is
// created with the defaults and ErrConfigCreated is returned.
func ReadConfig(path string) (Config, error) {
	config := Default()
	bytes, err := os.ReadFile(path)

	if errors.Is(err, os.ErrNotExist) {
		if err := writeDefault(path, config); err != nil {
			return config, fmt.Errorf("error occured while creating %s: %w", path, err)
		}
		return config, ErrConfigCreated
	}
	if err != nil {
		return config, fmt.Errorf("error occured while reading %s: %w", path, err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(bytes, &config)
	} else {
		err = json.Unmarshal(bytes, &config)
	}
	if err != nil {
		return config, fmt.Errorf("the configuration file %s is not valid: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func writeDefault(path string, config Config) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "\t")
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the broker cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen is required")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", c.MaxConnections)
	}
	if c.OutboundQueue <= 0 {
		return fmt.Errorf("outbound_queue must be positive, got %d", c.OutboundQueue)
	}
	if c.MaxFrameSize < 0 {
		return fmt.Errorf("max_frame_size must not be negative, got %d", c.MaxFrameSize)
	}
	if c.HeartBeat.Tolerance != 0 && c.HeartBeat.Tolerance < 1 {
		return fmt.Errorf("heartbeat.tolerance must be at least 1, got %v", c.HeartBeat.Tolerance)
	}

	durations := map[string]string{
		"connect_timeout":               c.ConnectTimeout,
		"heartbeat.guaranteed":          c.HeartBeat.Guaranteed,
		"heartbeat.expected":            c.HeartBeat.Expected,
		"auth.cache_ttl":                c.Auth.CacheTTL,
		"database.connect_timeout":      c.Database.ConnectTimeout,
		"database.socket_timeout":       c.Database.SocketTimeout,
		"database.connect_idle_timeout": c.Database.ConnectIdleTimeout,
		"database.operation_timeout":    c.Database.OperationTimeout,
		"database.heartbeat":            c.Database.Heartbeat,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := utils.ParseStringTime(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.WebSocket.Enabled && c.WebSocket.Listen == "" {
		return errors.New("websocket.listen is required when websocket is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen is required when metrics is enabled")
	}

	switch c.Auth.Provider {
	case "", "allow", "deny":
	case "mongo":
		if c.Database.Host == "" || c.Database.Database == "" {
			return errors.New("database.host and database.database are required by the mongo auth provider")
		}
	default:
		return fmt.Errorf("unknown auth.provider %q", c.Auth.Provider)
	}
	return nil
}

func (c *Config) ConnectTimeoutDuration() time.Duration {
	return utils.MustParseStringTime(c.ConnectTimeout)
}

func (h HeartBeatConfig) GuaranteedDuration() time.Duration {
	return utils.MustParseStringTime(h.Guaranteed)
}

func (h HeartBeatConfig) ExpectedDuration() time.Duration {
	return utils.MustParseStringTime(h.Expected)
}

func (a AuthConfig) CacheTTLDuration() time.Duration {
	return utils.MustParseStringTime(a.CacheTTL)
}
