package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every flag name to form its environment variable
const EnvPrefix = "POEMBOARD"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Relay   RelayConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Bind      string
	Port      int
	PublicURL string // base URL used in invite links; derived from the request when empty
	TLSCert   string
	TLSKey    string
	Profile   bool
}

// RelayConfig holds board relay configuration
type RelayConfig struct {
	HeartbeatInterval time.Duration
	WriteWait         time.Duration
	MaxMessageSize    int64
	SendBufferSize    int
	BoardIDLength     int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Relay: RelayConfig{
			HeartbeatInterval: 30 * time.Second,
			WriteWait:         10 * time.Second,
			MaxMessageSize:    1 << 20,
			SendBufferSize:    256,
			BoardIDLength:     8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// RegisterFlags binds every field of cfg to a flag on fs, using the current
// values of cfg as defaults.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Server.Bind, "bind", "b", cfg.Server.Bind, "address to bind to (env: POEMBOARD_BIND)")
	fs.IntVarP(&cfg.Server.Port, "port", "p", cfg.Server.Port, "port to listen on (env: POEMBOARD_PORT)")
	fs.StringVar(&cfg.Server.PublicURL, "public-url", cfg.Server.PublicURL, "base URL used for invite links and QR codes (env: POEMBOARD_PUBLIC_URL)")
	fs.StringVar(&cfg.Server.TLSCert, "tls-cert", cfg.Server.TLSCert, "path to tls certificate (env: POEMBOARD_TLS_CERT)")
	fs.StringVar(&cfg.Server.TLSKey, "tls-key", cfg.Server.TLSKey, "path to tls keyfile (env: POEMBOARD_TLS_KEY)")
	fs.BoolVar(&cfg.Server.Profile, "profile", cfg.Server.Profile, "register net/http/pprof handlers (env: POEMBOARD_PROFILE)")

	fs.DurationVar(&cfg.Relay.HeartbeatInterval, "heartbeat-interval", cfg.Relay.HeartbeatInterval, "interval between liveness probes; a peer missing one probe is dropped (env: POEMBOARD_HEARTBEAT_INTERVAL)")
	fs.DurationVar(&cfg.Relay.WriteWait, "write-wait", cfg.Relay.WriteWait, "time allowed to write a frame to a peer (env: POEMBOARD_WRITE_WAIT)")
	fs.Int64Var(&cfg.Relay.MaxMessageSize, "max-message-size", cfg.Relay.MaxMessageSize, "largest inbound message in bytes (env: POEMBOARD_MAX_MESSAGE_SIZE)")
	fs.IntVar(&cfg.Relay.SendBufferSize, "send-buffer", cfg.Relay.SendBufferSize, "outbound messages queued per connection before drops (env: POEMBOARD_SEND_BUFFER)")
	fs.IntVar(&cfg.Relay.BoardIDLength, "board-id-length", cfg.Relay.BoardIDLength, "length of generated board ids (env: POEMBOARD_BOARD_ID_LENGTH)")

	RegisterLoggingFlags(fs, &cfg.Logging)
}

// RegisterLoggingFlags binds the logging options to fs
func RegisterLoggingFlags(fs *pflag.FlagSet, cfg *LoggingConfig) {
	fs.StringVar(&cfg.Level, "log-level", cfg.Level, "debug, info, warn or error (env: POEMBOARD_LOG_LEVEL)")
	fs.StringVar(&cfg.Format, "log-format", cfg.Format, "text or json (env: POEMBOARD_LOG_FORMAT)")
}

// BindEnv lets environment variables fill any flag on fs that was not set
// explicitly on the command line.
func BindEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
			}
		}
	})

	return errors.Join(errs...)
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Relay.HeartbeatInterval <= 0 {
		return fmt.Errorf("invalid heartbeat interval: %s", c.Relay.HeartbeatInterval)
	}
	if c.Relay.WriteWait <= 0 {
		return fmt.Errorf("invalid write wait: %s", c.Relay.WriteWait)
	}
	if c.Relay.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max message size: %d", c.Relay.MaxMessageSize)
	}
	if c.Relay.SendBufferSize < 1 {
		return fmt.Errorf("invalid send buffer size: %d", c.Relay.SendBufferSize)
	}
	if c.Relay.BoardIDLength < 4 {
		return fmt.Errorf("invalid board id length (must be at least 4): %d", c.Relay.BoardIDLength)
	}
	return c.Logging.Validate()
}

// Scheme returns "https" when TLS is configured
func (c *Config) Scheme() string {
	if c.Server.TLSCert != "" && c.Server.TLSKey != "" {
		return "https"
	}
	return "http"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return net.JoinHostPort(c.Server.Bind, strconv.Itoa(c.Server.Port))
}
