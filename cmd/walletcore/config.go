package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"WalletCore/internal/factors"
)

// Config holds the walletcore configuration, read from a TOML file.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// DataPath is the directory of the profile database.
	DataPath string `toml:"data_path"`

	// KeyPath is the path to the Ed25519 node key file.
	KeyPath string `toml:"key_path"`

	// Network is main, test or sim.
	Network string `toml:"network"`

	// Concurrency bounds parallel work per factor source kind.
	Concurrency int `toml:"concurrency"`

	// Host configures the signer host command.
	Host HostConfig `toml:"host"`

	// Sources are the factor sources this process knows about.
	Sources []SourceConfig `toml:"sources"`

	// Remotes are signer hosts holding some of the sources.
	Remotes []RemoteConfig `toml:"remotes"`
}

// HostConfig configures a signer host.
type HostConfig struct {
	ListenAddr   string   `toml:"listen_addr"`   // ListenAddr is the QUIC listen address
	AllowedPeers []string `toml:"allowed_peers"` // AllowedPeers are hex wallet node keys, empty allows any
	MetricsAddr  string   `toml:"metrics_addr"`  // MetricsAddr serves /metrics when set
}

// SourceConfig describes one factor source. Sources with a mnemonic are held
// locally; sources with only an ID are held by a remote host.
type SourceConfig struct {
	Kind       factors.FactorSourceKind `toml:"kind"`       // Kind is the factor source kind
	Label      string                   `toml:"label"`      // Label is shown to the user
	Mnemonic   string                   `toml:"mnemonic"`   // Mnemonic backs a locally held source
	Passphrase string                   `toml:"passphrase"` // Passphrase is the BIP39 passphrase
	Contact    string                   `toml:"contact"`    // Contact is the account of a trusted contact
	Policy     string                   `toml:"policy"`     // Policy is sign, skip or fail
	ID         string                   `toml:"id"`         // ID names a remotely held source
}

// RemoteConfig locates a signer host.
type RemoteConfig struct {
	Addr  string                     `toml:"addr"`  // Addr is the host's QUIC address
	Key   string                     `toml:"key"`   // Key is the host's hex node key
	Kinds []factors.FactorSourceKind `toml:"kinds"` // Kinds are routed to this host
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		DataPath:    "./walletcore-data",
		Network:     "main",
		Concurrency: 4,
		Host: HostConfig{
			ListenAddr: ":9400",
		},
	}
}

// loadConfig reads the file at path over the defaults. Unknown keys are rejected.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s:\n%w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}

	return cfg, nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
