package config

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the TCP port the service listens on.
	DefaultPort = 5001
	// DefaultServiceName is the logical name the service is bound under.
	DefaultServiceName = "UserService"
)

// ServerConfig configures the daemon.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ServiceName     string        `yaml:"service_name"`
	MaxConnections  int           `yaml:"max_connections"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ClientConfig configures the console client and its connector.
type ClientConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ServiceName    string        `yaml:"service_name"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LogConfig selects level, format and destination of the log output.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            DefaultPort,
			ServiceName:     DefaultServiceName,
			MaxConnections:  0,
			ShutdownTimeout: 5 * time.Second,
		},
		Client: ClientConfig{
			Host:           "localhost",
			Port:           DefaultPort,
			ServiceName:    DefaultServiceName,
			MaxRetries:     5,
			RetryDelay:     2 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults. An empty
// path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validPort(p int) bool {
	return p >= 0 && p <= 65535
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if !validPort(c.Server.Port) {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.ServiceName == "" {
		return fmt.Errorf("server.service_name must not be empty")
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be non-negative")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be non-negative")
	}
	if c.Client.Port < 1 || c.Client.Port > 65535 {
		return fmt.Errorf("client.port out of range: %d", c.Client.Port)
	}
	if c.Client.ServiceName == "" {
		return fmt.Errorf("client.service_name must not be empty")
	}
	if c.Client.MaxRetries < 1 {
		return fmt.Errorf("client.max_retries must be at least 1")
	}
	if c.Client.RetryDelay < 0 {
		return fmt.Errorf("client.retry_delay must be non-negative")
	}
	if c.Client.RequestTimeout < 0 {
		return fmt.Errorf("client.request_timeout must be non-negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Addr is the address the daemon listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Addr is the address of the daemon as seen from the client.
func (c ClientConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Apply configures logger accordingly. The returned closer releases the log
// file, if one was opened.
func (l LogConfig) Apply(logger *logrus.Logger) (io.Closer, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	if l.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if l.File == "" {
		return nopCloser{}, nil
	}
	f, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return f, nil
}
