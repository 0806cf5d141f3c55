/*
config.go - YAML configuration for the billing engine

PURPOSE:
  Loads the contract-level settings that parameterize a billing run:
  contract identity, upcharge rate, base year, invoice numbering,
  region mapping, and task-code extensions. Everything that changes
  per contract lives here; everything structural lives in code.

USAGE:
  cfg, err := config.Load("billing.yaml")
  classifier, err := factory.Classifier(cfg)

SEE ALSO:
  - factory/: Turns raw config values into domain objects
*/
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config carries the per-contract settings of the engine. Field names
// follow the keys of the YAML file.
type Config struct {
	ContractNumber string `yaml:"contractNumber"`
	Description    string `yaml:"description"`

	// BaseYear substitutes the 'X' digit of SubCLIN codes.
	BaseYear string `yaml:"baseYear"`

	// UpchargeRate is the G&A fraction applied on differential pay,
	// e.g. 0.35 for 35%.
	UpchargeRate float64 `yaml:"upchargeRate"`

	// Invoice numbering.
	InvoicePrefix     string `yaml:"invoicePrefix"`
	NextInvoiceNumber int    `yaml:"nextInvoiceNumber"`

	// Cost line CLINs.
	PostCLIN   string `yaml:"postCLIN"`
	HazardCLIN string `yaml:"hazardCLIN"`

	// Regions maps a region name to its CLIN.
	Regions map[string]string `yaml:"regions"`

	// Approvers maps a location to the signing approver's display name.
	Approvers map[string]string `yaml:"approvers"`

	// TaskCodes and TaskAliases extend the built-in classification
	// table. Values are canonical category names.
	TaskCodes   map[string]string `yaml:"taskCodes"`
	TaskAliases map[string]string `yaml:"taskAliases"`

	// WagesBasis selects which hours count as wages for differential
	// pay: "regular_task" (default) or "all_regular_hours".
	WagesBasis string `yaml:"wagesBasis"`

	// DatabasePath is the SQLite file backing the store.
	DatabasePath string `yaml:"databasePath"`

	// Listen is the HTTP bind address of the API server.
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when a key is absent from the
// file. The upcharge and CLIN values match the contract baseline.
func Default() Config {
	return Config{
		BaseYear:          "1",
		UpchargeRate:      0.35,
		InvoicePrefix:     "SDI-",
		NextInvoiceNumber: 1,
		PostCLIN:          "207",
		HazardCLIN:        "208",
		WagesBasis:        "regular_task",
		DatabasePath:      "billing.db",
		Listen:            ":8080",
	}
}

// Load reads path and merges it over Default. Environment variables
// BILLING_DB and BILLING_LISTEN override their file counterparts.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as an empty
// one: defaults plus environment overrides.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return cfg, err
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BILLING_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("BILLING_LISTEN"); v != "" {
		c.Listen = v
	}
}

// Validate rejects configurations that would make a run silently wrong.
func (c Config) Validate() error {
	if c.UpchargeRate < 0 || c.UpchargeRate >= 1 {
		return fmt.Errorf("upchargeRate %v out of range [0,1)", c.UpchargeRate)
	}
	if len(c.BaseYear) != 1 {
		return fmt.Errorf("baseYear %q must be a single digit", c.BaseYear)
	}
	if c.NextInvoiceNumber < 1 {
		return fmt.Errorf("nextInvoiceNumber %d must be positive", c.NextInvoiceNumber)
	}
	switch c.WagesBasis {
	case "regular_task", "all_regular_hours":
	default:
		return fmt.Errorf("wagesBasis %q: want regular_task or all_regular_hours", c.WagesBasis)
	}
	return nil
}

// Upcharge returns the upcharge rate as a decimal.
func (c Config) Upcharge() decimal.Decimal {
	return decimal.NewFromFloat(c.UpchargeRate)
}

// RegionForCLIN reverses the Regions map.
func (c Config) RegionForCLIN(clin string) string {
	for region, cl := range c.Regions {
		if cl == clin {
			return region
		}
	}
	return ""
}
