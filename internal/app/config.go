package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/benbjohnson/clock"

	"chainmail/internal/domain"
)

// Default ledger modes.
const (
	ModeDev     = "dev"
	ModeGateway = "gateway"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	// Home is the state directory, e.g. $HOME/.chainmail. Wallet,
	// contacts, session hints and the dev chain database live here.
	Home string `toml:"-"`

	Ledger    LedgerConfig    `toml:"ledger"`
	Contracts ContractsConfig `toml:"contracts"`

	// Clock overrides the wall clock. Tests only; nil means real time.
	Clock clock.Clock `toml:"-"`
}

// LedgerConfig selects and parameterizes the ledger backend.
type LedgerConfig struct {
	// Mode is "dev" for the embedded chain or "gateway" for a remote
	// HTTP gateway.
	Mode string `toml:"mode"`
	// URL is the gateway base URL. Gateway mode only.
	URL string `toml:"url"`
	// Path is the dev chain database file. Dev mode only; defaults to
	// chain.db under Home.
	Path string `toml:"path"`
}

// ContractsConfig pins the contract addresses the client talks to.
// Dev mode fills these in itself; gateway mode requires all three.
type ContractsConfig struct {
	Postbox   string `toml:"postbox"`
	Registry  string `toml:"registry"`
	Directory string `toml:"directory"`
}

// LoadConfig reads the TOML config at path, or falls back to defaults
// when path is empty and no config file exists under home.
func LoadConfig(home, path string) (Config, error) {
	cfg := Config{Home: home}
	cfg.Ledger.Mode = ModeDev

	explicit := path != ""
	if path == "" {
		path = filepath.Join(home, "config.toml")
	}
	meta, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file is fine; defaults apply.
	case err != nil:
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	default:
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
		}
	}

	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = filepath.Join(home, "chain.db")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Ledger.Mode {
	case ModeDev:
		return nil
	case ModeGateway:
		if c.Ledger.URL == "" {
			return errors.New("gateway mode needs ledger.url")
		}
		for _, pin := range []struct{ name, addr string }{
			{"contracts.postbox", c.Contracts.Postbox},
			{"contracts.registry", c.Contracts.Registry},
			{"contracts.directory", c.Contracts.Directory},
		} {
			if pin.addr == "" {
				return fmt.Errorf("gateway mode needs %s", pin.name)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown ledger mode %q", c.Ledger.Mode)
	}
}

// contractSet parses the pinned contract addresses.
func (c Config) contractSet() (domain.ContractSet, error) {
	var set domain.ContractSet
	var err error
	if set.Postbox, err = domain.ParseAddress(c.Contracts.Postbox); err != nil {
		return domain.ContractSet{}, fmt.Errorf("contracts.postbox: %w", err)
	}
	if set.Registry, err = domain.ParseAddress(c.Contracts.Registry); err != nil {
		return domain.ContractSet{}, fmt.Errorf("contracts.registry: %w", err)
	}
	if set.Directory, err = domain.ParseAddress(c.Contracts.Directory); err != nil {
		return domain.ContractSet{}, fmt.Errorf("contracts.directory: %w", err)
	}
	return set, nil
}

// clock returns the configured clock, defaulting to real time.
func (c Config) clock() clock.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return clock.New()
}
