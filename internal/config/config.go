// Package config reads and writes the grandlivre.yaml parameter file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VAT entry modes for bill details.
const (
	VatModeNone     = 0 // no VAT
	VatModeExclTax  = 1 // prices entered tax-excluded, VAT added
	VatModeInclTax  = 2 // prices entered tax-included, VAT backed out
)

// Config represents the top-level grandlivre.yaml configuration.
type Config struct {
	Currency   CurrencyConfig `yaml:"currency"`
	Accounting AccountingConfig `yaml:"accounting"`
	Invoice    InvoiceConfig  `yaml:"invoice"`
	Database   DatabaseConfig `yaml:"database"`
}

// CurrencyConfig controls rounding and display of amounts.
type CurrencyConfig struct {
	Symbol   string `yaml:"symbol"`
	Decimals int32  `yaml:"decimals"`
}

// AccountingConfig selects the accounting system and its default accounts.
type AccountingConfig struct {
	System             string `yaml:"system"` // "french"
	CashAccount        string `yaml:"cash_account"`
	BankChargesAccount string `yaml:"bank_charges_account"`
	CustomerMask       string `yaml:"customer_mask,omitempty"` // overrides the system's customer mask
}

// InvoiceConfig holds the billing parameters.
type InvoiceConfig struct {
	VatMode            int    `yaml:"vat_mode"` // 0 none, 1 excl-tax, 2 incl-tax
	DefaultSellAccount string `yaml:"default_sell_account"`
	ReduceAccount      string `yaml:"reduce_account"`
	VatSellAccount     string `yaml:"vat_sell_account"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Load reads a grandlivre.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Currency: CurrencyConfig{
			Symbol:   "€",
			Decimals: 2,
		},
		Accounting: AccountingConfig{
			System:             "french",
			CashAccount:        "531000",
			BankChargesAccount: "627000",
		},
		Invoice: InvoiceConfig{
			VatMode:            VatModeNone,
			DefaultSellAccount: "706000",
			ReduceAccount:      "709000",
			VatSellAccount:     "445700",
		},
		Database: DatabaseConfig{
			Path: "data/grandlivre.db",
		},
	}
}
