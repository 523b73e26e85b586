package config

import (
	"time"
)

type (
	// NET holds the settings of the listening socket and of accepted connections.
	NET struct {
		// Port is used by the binary only. Embedders pass the port to Server.Start directly.
		Port uint16 `mapstructure:"port"`
		// ForceIPv4 binds an IPv4-only socket instead of the dual-stack one.
		ForceIPv4 bool `mapstructure:"force_ipv4" test:"nullable"`
		// ListenAddressIPv4 is the address the IPv4 socket is bound to.
		ListenAddressIPv4 string `mapstructure:"listen_address_ipv4" validate:"required,ip4_addr"`
		// ListenAddressIPv6 is the address the dual-stack socket is bound to. If binding it
		// fails, the server falls back to ListenAddressIPv4.
		ListenAddressIPv6 string `mapstructure:"listen_address_ipv6" validate:"required,ip6_addr"`
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int `mapstructure:"read_buffer_size" validate:"gte=512"`
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed. Zero disables it, so idle
		// keep-alive connections are held until the peer leaves or the server stops.
		ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gte=0" test:"nullable"`
		// WriteTimeout limits a single write on the connection. Zero disables it.
		WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0" test:"nullable"`
		// AcceptRate limits how many connections per second the accept loop takes. Zero
		// means no limit.
		AcceptRate float64 `mapstructure:"accept_rate" validate:"gte=0" test:"nullable"`
		// AcceptBurst is the token bucket size of AcceptRate.
		AcceptBurst int `mapstructure:"accept_burst" validate:"gte=1"`
	}

	Dispatcher struct {
		// Workers limits how many tasks (the accept loop and connection handlers) may run
		// simultaneously. Zero selects the unbounded goroutine-per-task dispatcher.
		Workers int `mapstructure:"workers" validate:"gte=0" test:"nullable"`
		// Backlog is how many tasks may wait for a free worker before new ones are rejected.
		Backlog int `mapstructure:"backlog" validate:"gte=0"`
	}

	Headers struct {
		// MaxCount is the maximal number of header fields in a single request.
		MaxCount int `mapstructure:"max_count" validate:"gte=1"`
		// MaxSize limits the whole request head, request line included.
		MaxSize int `mapstructure:"max_size" validate:"gte=64"`
	}

	Body struct {
		// MaxSize describes the maximal size of a request body, that can be processed.
		MaxSize int64 `mapstructure:"max_size" validate:"gte=0"`
		// FileChunkSize is the chunk size used to copy files when zero-copy transfer
		// isn't available.
		FileChunkSize int `mapstructure:"file_chunk_size" validate:"gte=1"`
		// ZeroCopy enables sendfile(2) for file bodies where the platform supports it.
		ZeroCopy bool `mapstructure:"zero_copy"`
	}

	Logging struct {
		Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=json console"`
	}

	Metrics struct {
		Enabled   bool   `mapstructure:"enabled" test:"nullable"`
		Namespace string `mapstructure:"namespace" validate:"required_if=Enabled true"`
		// Addr is where the binary exposes /metrics.
		Addr string `mapstructure:"addr" validate:"required_if=Enabled true"`
	}
)

// Config holds settings used across the server: socket options, limits and the
// dispatcher capacity.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	NET        NET        `mapstructure:"net"`
	Dispatcher Dispatcher `mapstructure:"dispatcher"`
	Headers    Headers    `mapstructure:"headers"`
	Body       Body       `mapstructure:"body"`
	Logging    Logging    `mapstructure:"logging"`
	Metrics    Metrics    `mapstructure:"metrics"`
}

// Default returns default config.
func Default() *Config {
	return &Config{
		NET: NET{
			Port:              8080,
			ListenAddressIPv4: "0.0.0.0",
			ListenAddressIPv6: "::",
			ReadBufferSize:    4096,
			AcceptBurst:       64,
		},
		Dispatcher: Dispatcher{
			Workers: 1024,
			Backlog: 1024,
		},
		Headers: Headers{
			MaxCount: 100,
			MaxSize:  16 * 1024,
		},
		Body: Body{
			MaxSize:       16 * 1024 * 1024,
			FileChunkSize: 1024,
			ZeroCopy:      true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Namespace: "serverio",
			Addr:      ":9090",
		},
	}
}
