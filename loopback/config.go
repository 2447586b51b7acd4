package loopback

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/secs-simulator/logger"
)

// Config is the configuration shared by both endpoints of a pair.
type Config struct {
	// t3Timeout is the reply timeout of a sent primary. Defaults to 45 seconds.
	t3Timeout time.Duration
	// t8Timeout bounds the time to read a message once its length was received. Defaults to 5 seconds.
	t8Timeout time.Duration
	// senderQueueSize is the number of frames buffered before Send blocks. Defaults to 10.
	senderQueueSize int
	// dataMsgQueueSize is the number of received messages buffered before the reader blocks
	// on the data message handlers. Defaults to 10.
	dataMsgQueueSize int

	logger logger.Logger
}

// Option is a functional option of a pair configuration.
type Option interface {
	apply(cfg *Config) error
}

type optFunc struct {
	name string
	f    func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error {
	if err := o.f(cfg); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, f: f}
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		t3Timeout:        45 * time.Second,
		t8Timeout:        5 * time.Second,
		senderQueueSize:  10,
		dataMsgQueueSize: 10,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// WithT3Timeout sets the reply timeout of sent primaries. It must be positive and at most 120 seconds.
func WithT3Timeout(val time.Duration) Option {
	return newOptFunc("t3 timeout", func(cfg *Config) error {
		if val <= 0 || val > 120*time.Second {
			return fmt.Errorf("%v out of range (0, 120s]", val)
		}
		cfg.t3Timeout = val

		return nil
	})
}

// WithT8Timeout sets the message payload read timeout. It must be positive and at most 120 seconds.
func WithT8Timeout(val time.Duration) Option {
	return newOptFunc("t8 timeout", func(cfg *Config) error {
		if val <= 0 || val > 120*time.Second {
			return fmt.Errorf("%v out of range (0, 120s]", val)
		}
		cfg.t8Timeout = val

		return nil
	})
}

// WithSenderQueueSize sets the size of the sender queue.
func WithSenderQueueSize(size int) Option {
	return newOptFunc("sender queue size", func(cfg *Config) error {
		if size < 1 {
			return errors.New("should be at least 1")
		}
		cfg.senderQueueSize = size

		return nil
	})
}

// WithDataMsgQueueSize sets the size of the received message queue.
func WithDataMsgQueueSize(size int) Option {
	return newOptFunc("data message queue size", func(cfg *Config) error {
		if size < 1 {
			return errors.New("should be at least 1")
		}
		cfg.dataMsgQueueSize = size

		return nil
	})
}

// WithLogger sets the logger of both endpoints.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("logger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
