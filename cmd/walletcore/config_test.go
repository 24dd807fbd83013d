package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/factors"
	"WalletCore/internal/keyring"
	"WalletCore/internal/matrix"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// writeFile writes content to a file in a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "main", cfg.Network)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestLoadConfigFile(t *testing.T) {
	ledger := factors.MustFactorSourceIDFromHash(factors.LedgerHQHardwareWallet, [32]byte{5})

	path := writeFile(t, "walletcore.toml", `
log_level = "debug"
network = "test"

[host]
listen_addr = "127.0.0.1:9400"

[[sources]]
kind = "device"
label = "phone"
mnemonic = "`+testMnemonic+`"
policy = "skip"

[[sources]]
label = "ledger"
id = "`+ledger.String()+`"

[[remotes]]
addr = "10.0.0.2:9400"
key = "00"
kinds = ["ledgerHQHardwareWallet"]
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test", cfg.Network)
	assert.Equal(t, 4, cfg.Concurrency, "default kept")
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, factors.Device, cfg.Sources[0].Kind)
	require.Len(t, cfg.Remotes, 1)
	assert.Equal(t, []factors.FactorSourceKind{factors.LedgerHQHardwareWallet}, cfg.Remotes[0].Kinds)

	keys, sources, err := buildKeyring(cfg)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, 1, keys.Sources().Len(), "only the mnemonic source is held locally")
	assert.Equal(t, ledger, sources[1].ID)

	policy, err := keys.Policy(sources[0].ID)
	require.NoError(t, err)
	assert.Equal(t, keyring.Skip, policy)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "walletcore.toml", "log_levle = \"debug\"\n")

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "log_levle")
}

func TestSourceNeedsMnemonicOrID(t *testing.T) {
	_, _, err := buildKeyring(&Config{Concurrency: 1, Sources: []SourceConfig{{Kind: factors.Device, Label: "empty"}}})
	assert.Error(t, err)
}

func TestLoadOrGenerateKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	first, err := loadOrGenerateKey(path)
	require.NoError(t, err)

	second, err := loadOrGenerateKey(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildMatrixFromFile(t *testing.T) {
	device := factors.MustFactorSourceIDFromHash(factors.Device, [32]byte{1})
	ledger := factors.MustFactorSourceIDFromHash(factors.LedgerHQHardwareWallet, [32]byte{2})
	card := factors.MustFactorSourceIDFromHash(factors.ArculusCard, [32]byte{3})

	var mf matrixFile
	_, err := toml.Decode(`
name = "daily"
days_until_auto_confirm = 7
authentication_signer = "`+device.String()+`"

[primary]
threshold = 1
threshold_factors = ["`+device.String()+`"]

[recovery]
override_factors = ["`+ledger.String()+`"]

[confirmation]
override_factors = ["`+card.String()+`"]
`, &mf)
	require.NoError(t, err)

	b := buildMatrix(mf)
	require.True(t, b.Validate().IsValid(), b.Validate().String())
	assert.Equal(t, uint16(7), b.DaysUntilAutoConfirm())

	m, err := b.Build()
	require.NoError(t, err)

	primary, err := m.Role(matrix.Primary)
	require.NoError(t, err)
	assert.Equal(t, []factors.FactorSourceID{device}, primary.ThresholdFactors())
}
