package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "french", cfg.Accounting.System)
	assert.Equal(t, int32(2), cfg.Currency.Decimals)
	assert.Equal(t, "531000", cfg.Accounting.CashAccount)
	assert.Equal(t, "627000", cfg.Accounting.BankChargesAccount)
	assert.Equal(t, VatModeNone, cfg.Invoice.VatMode)
	assert.Equal(t, "706000", cfg.Invoice.DefaultSellAccount)
	assert.Equal(t, "709000", cfg.Invoice.ReduceAccount)
	assert.Equal(t, "445700", cfg.Invoice.VatSellAccount)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grandlivre.yaml")

	cfg := Default()
	cfg.Currency.Symbol = "$"
	cfg.Invoice.VatMode = VatModeInclTax
	cfg.Accounting.CustomerMask = "416[0-9]+"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grandlivre.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
