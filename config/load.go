package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SERVERIO_NET_READ_TIMEOUT=30s.
const EnvPrefix = "SERVERIO"

var validate = validator.New()

// Load reads the config from a YAML file at path on top of the defaults. Environment
// variables take precedence over the file. An empty path leaves the defaults and the
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if len(path) > 0 {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Decode applies a generic options map (as produced by YAML or JSON decoders) on top of
// the defaults. Durations may be given as strings, e.g. "30s".
func Decode(options map[string]any) (*Config, error) {
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err = decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the config against its constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}

		return err
	}

	return nil
}

// setDefaults registers every key, so AutomaticEnv can resolve it even when the file
// doesn't mention it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("net.port", d.NET.Port)
	v.SetDefault("net.force_ipv4", d.NET.ForceIPv4)
	v.SetDefault("net.listen_address_ipv4", d.NET.ListenAddressIPv4)
	v.SetDefault("net.listen_address_ipv6", d.NET.ListenAddressIPv6)
	v.SetDefault("net.read_buffer_size", d.NET.ReadBufferSize)
	v.SetDefault("net.read_timeout", d.NET.ReadTimeout)
	v.SetDefault("net.write_timeout", d.NET.WriteTimeout)
	v.SetDefault("net.accept_rate", d.NET.AcceptRate)
	v.SetDefault("net.accept_burst", d.NET.AcceptBurst)

	v.SetDefault("dispatcher.workers", d.Dispatcher.Workers)
	v.SetDefault("dispatcher.backlog", d.Dispatcher.Backlog)

	v.SetDefault("headers.max_count", d.Headers.MaxCount)
	v.SetDefault("headers.max_size", d.Headers.MaxSize)

	v.SetDefault("body.max_size", d.Body.MaxSize)
	v.SetDefault("body.file_chunk_size", d.Body.FileChunkSize)
	v.SetDefault("body.zero_copy", d.Body.ZeroCopy)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}
