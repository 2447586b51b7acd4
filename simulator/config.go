package simulator

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/secs-simulator/logger"
)

// Config represents the configuration of a Simulator.
type Config struct {
	mu sync.RWMutex

	// deviceID is the device id the simulator answers to; primaries addressed to another device
	// are answered with S9F1 when the S9Fy policy is enabled.
	// Defaults to 0.
	deviceID uint16

	// autoReply enables replying with the only template matching a primary's reply stream-function.
	// Defaults to true.
	autoReply bool
	// autoReplyS9Fy enables the S9Fy error reports (S9F1, S9F3, S9F5, S9F9).
	// Defaults to false.
	autoReplyS9Fy bool
	// autoReplySxF0 enables the SxF0 and S0F0 abort replies.
	// Defaults to false.
	autoReplySxF0 bool

	// replyTimeout is the T3 reply timeout used by the transport. It should be between 1 and 120 seconds.
	// Defaults to 45 seconds.
	replyTimeout time.Duration

	// smlFiles lists the SML files loaded into the template pool on creation.
	smlFiles []string

	// macroFile is the path of the macro script run by the example program.
	macroFile string

	// registerer registers the simulator metrics, nil disables registration.
	registerer prometheus.Registerer

	logger logger.Logger
}

// NewConfig creates a new simulator configuration with the default values and the given options applied.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		autoReply:    true,
		replyTimeout: 45 * time.Second,
		logger:       logger.GetLogger(),
	}
}

func (cfg *Config) DeviceID() uint16 {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.deviceID
}

func (cfg *Config) AutoReply() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.autoReply
}

func (cfg *Config) AutoReplyS9Fy() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.autoReplyS9Fy
}

func (cfg *Config) AutoReplySxF0() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.autoReplySxF0
}

func (cfg *Config) ReplyTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.replyTimeout
}

func (cfg *Config) SMLFiles() []string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return append([]string(nil), cfg.smlFiles...)
}

func (cfg *Config) MacroFile() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.macroFile
}

func (cfg *Config) Registerer() prometheus.Registerer {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.registerer
}

func (cfg *Config) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

// ConfigOption represents a functional option for configuring a Config.
type ConfigOption interface {
	apply(*Config) error
}

type configOptFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (c *configOptFunc) apply(cfg *Config) error {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if err := c.applyFunc(cfg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, c.name, err)
	}

	return nil
}

func newConfigOptFunc(name string, f func(*Config) error) *configOptFunc {
	return &configOptFunc{name: name, applyFunc: f}
}

// WithDeviceID sets the device id. It should be in range of [0, 32767].
func WithDeviceID(id int) ConfigOption {
	return newConfigOptFunc("device_id", func(cfg *Config) error {
		if id < 0 || id > 0x7FFF {
			return fmt.Errorf("device id %d out of range [0, 32767]", id)
		}
		cfg.deviceID = uint16(id)

		return nil
	})
}

// WithAutoReply enables or disables template auto-reply.
func WithAutoReply(val bool) ConfigOption {
	return newConfigOptFunc("auto_reply", func(cfg *Config) error {
		cfg.autoReply = val
		return nil
	})
}

// WithAutoReplyS9Fy enables or disables the S9Fy error reports.
func WithAutoReplyS9Fy(val bool) ConfigOption {
	return newConfigOptFunc("auto_reply_s9fy", func(cfg *Config) error {
		cfg.autoReplyS9Fy = val
		return nil
	})
}

// WithAutoReplySxF0 enables or disables the SxF0 abort replies.
func WithAutoReplySxF0(val bool) ConfigOption {
	return newConfigOptFunc("auto_reply_sxf0", func(cfg *Config) error {
		cfg.autoReplySxF0 = val
		return nil
	})
}

// WithReplyTimeout sets the T3 reply timeout. It should be between 1 and 120 seconds.
func WithReplyTimeout(val time.Duration) ConfigOption {
	return newConfigOptFunc("reply_timeout", func(cfg *Config) error {
		if val < time.Second || val > 120*time.Second {
			return fmt.Errorf("reply timeout %s out of range [1s, 120s]", val)
		}
		cfg.replyTimeout = val

		return nil
	})
}

// WithSMLFiles sets the SML files loaded into the template pool.
func WithSMLFiles(paths ...string) ConfigOption {
	return newConfigOptFunc("sml_files", func(cfg *Config) error {
		cfg.smlFiles = append([]string(nil), paths...)
		return nil
	})
}

// WithMacroFile sets the macro script path.
func WithMacroFile(path string) ConfigOption {
	return newConfigOptFunc("macro_file", func(cfg *Config) error {
		cfg.macroFile = path
		return nil
	})
}

// WithRegisterer sets the prometheus registerer for the simulator metrics.
func WithRegisterer(reg prometheus.Registerer) ConfigOption {
	return newConfigOptFunc("registerer", func(cfg *Config) error {
		cfg.registerer = reg
		return nil
	})
}

// WithLogger sets the logger. A nil logger is rejected.
func WithLogger(l logger.Logger) ConfigOption {
	return newConfigOptFunc("logger", func(cfg *Config) error {
		if l == nil {
			return fmt.Errorf("nil logger")
		}
		cfg.logger = l

		return nil
	})
}

type fileConfig struct {
	DeviceID      int      `toml:"device_id"`
	AutoReply     bool     `toml:"auto_reply"`
	AutoReplyS9Fy bool     `toml:"auto_reply_s9fy"`
	AutoReplySxF0 bool     `toml:"auto_reply_sxf0"`
	ReplyTimeout  string   `toml:"reply_timeout"`
	SMLFiles      []string `toml:"sml_files"`
	Macro         string   `toml:"macro"`
	LogLevel      string   `toml:"log_level"`
	LogBackend    string   `toml:"log_backend"`
	LogFile       string   `toml:"log_file"`
}

// LoadConfigFile reads a TOML configuration file.
//
// Keys absent from the file keep their default values, and opts are applied after the file, so
// they take precedence. Relative paths of sml_files and macro are resolved against the directory
// of the configuration file.
//
// Recognized keys: device_id, auto_reply, auto_reply_s9fy, auto_reply_sxf0, reply_timeout
// (a duration string such as "45s"), sml_files, macro, log_level, log_backend ("slog" or "zap")
// and log_file (zap backend only).
func LoadConfigFile(path string, opts ...ConfigOption) (*Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load simulator config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	baseDir := filepath.Dir(path)
	fileOpts := make([]ConfigOption, 0, 10)

	if meta.IsDefined("device_id") {
		fileOpts = append(fileOpts, WithDeviceID(raw.DeviceID))
	}
	if meta.IsDefined("auto_reply") {
		fileOpts = append(fileOpts, WithAutoReply(raw.AutoReply))
	}
	if meta.IsDefined("auto_reply_s9fy") {
		fileOpts = append(fileOpts, WithAutoReplyS9Fy(raw.AutoReplyS9Fy))
	}
	if meta.IsDefined("auto_reply_sxf0") {
		fileOpts = append(fileOpts, WithAutoReplySxF0(raw.AutoReplySxF0))
	}
	if meta.IsDefined("reply_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReplyTimeout))
		if err != nil {
			return nil, fmt.Errorf("%w: parse reply_timeout: %w", ErrInvalidConfig, err)
		}
		fileOpts = append(fileOpts, WithReplyTimeout(d))
	}
	if meta.IsDefined("sml_files") {
		files := make([]string, 0, len(raw.SMLFiles))
		for _, f := range raw.SMLFiles {
			files = append(files, resolvePath(baseDir, f))
		}
		fileOpts = append(fileOpts, WithSMLFiles(files...))
	}
	if meta.IsDefined("macro") {
		fileOpts = append(fileOpts, WithMacroFile(resolvePath(baseDir, raw.Macro)))
	}

	if meta.IsDefined("log_level") || meta.IsDefined("log_backend") || meta.IsDefined("log_file") {
		l, err := newFileLogger(raw)
		if err != nil {
			return nil, err
		}
		fileOpts = append(fileOpts, WithLogger(l))
	}

	return NewConfig(append(fileOpts, opts...)...)
}

func newFileLogger(raw fileConfig) (logger.Logger, error) {
	level, err := logger.ParseLevel(raw.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch strings.ToLower(strings.TrimSpace(raw.LogBackend)) {
	case "", "slog":
		return logger.NewSlog(level, false), nil
	case "zap":
		return logger.NewZap(logger.ZapOptions{Level: level, LogFile: raw.LogFile}), nil
	default:
		return nil, fmt.Errorf("%w: unknown log backend %q", ErrInvalidConfig, raw.LogBackend)
	}
}

func resolvePath(baseDir, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(baseDir, path)
}
