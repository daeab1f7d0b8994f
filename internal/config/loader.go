package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting:
// database.postgres.host resolves to CHEMLITE_DATABASE_POSTGRES_HOST.
const envPrefix = "CHEMLITE"

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigParseError   = errors.New("config parse error")
	ErrConfigValidation   = errors.New("config validation failed")
)

// LoaderOption customizes Load.
type LoaderOption func(*loader)

type loader struct {
	path      string
	envPrefix string
}

// WithConfigPath reads the YAML file at path before applying env overrides.
func WithConfigPath(path string) LoaderOption {
	return func(l *loader) { l.path = path }
}

// WithEnvPrefix replaces the CHEMLITE prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *loader) { l.envPrefix = prefix }
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")
	return v
}

// bindEnvKeys registers every leaf key of the Config tree so AutomaticEnv
// applies even to keys absent from the file.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			bindEnvKeys(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Load reads the optional config file, merges CHEMLITE_* environment
// overrides, applies defaults and validates the result. Errors wrap one of
// ErrConfigFileNotFound, ErrConfigParseError or ErrConfigValidation.
func Load(opts ...LoaderOption) (*Config, error) {
	l := &loader{envPrefix: envPrefix}
	for _, opt := range opts {
		opt(l)
	}
	v := newViper(l.envPrefix)
	if l.path != "" {
		if _, err := os.Stat(l.path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, l.path)
		}
		v.SetConfigFile(l.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
		}
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from CHEMLITE_* environment variables alone.
func LoadFromEnv() (*Config, error) {
	return Load()
}

// MustLoad is Load for main(); it panics on any error.
func MustLoad(path string) *Config {
	cfg, err := Load(WithConfigPath(path))
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	return cfg, nil
}

// Watcher reloads a config file on change. Only the safe subset of settings
// (log level, cache TTL) should be applied at runtime by onChange.
type Watcher struct {
	v        *viper.Viper
	mu       sync.Mutex
	onChange func(*Config)
	onError  func(error)
}

// Watch reads path once and then calls onChange with every valid reload.
// Reloads that fail to parse or validate go to onError, which may be nil.
func Watch(path string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	if _, err := Load(WithConfigPath(path)); err != nil {
		return nil, err
	}
	w := &Watcher{v: newViper(envPrefix), onChange: onChange, onError: onError}
	w.v.SetConfigFile(path)
	if err := w.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}
	w.v.OnConfigChange(w.handle)
	w.v.WatchConfig()
	return w, nil
}

func (w *Watcher) handle(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	cfg, err := unmarshalAndFinalize(w.v)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.onChange(cfg)
}
