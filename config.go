package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// KindRule maps serial prefixes to one board kind and names the column in
// the consumption ledger that records usage of that kind.
type KindRule struct {
	Name         string   `yaml:"name"`
	Prefixes     []string `yaml:"prefixes"`
	LedgerColumn string   `yaml:"ledger_column"`
}

// Config is the service configuration. Everything has a working default so
// the server runs with no config file at all.
type Config struct {
	DBPath     string     `yaml:"db_path"`
	LedgerPath string     `yaml:"ledger_path"`
	Timezone   string     `yaml:"timezone"`
	AutoRepair *bool      `yaml:"auto_repair"`
	Kinds      []KindRule `yaml:"kinds"`
}

var (
	cfg        Config
	facilityTZ *time.Location
	autoRepair = true
	ledgerPath string
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func defaultConfig() Config {
	on := true
	return Config{
		DBPath:     "boards.db",
		LedgerPath: "assembly.db",
		Timezone:   "America/Los_Angeles",
		AutoRepair: &on,
		Kinds: []KindRule{
			{Name: KindAM7, Prefixes: []string{"^10030034"}, LedgerColumn: "am7"},
			{Name: KindAU8, Prefixes: []string{"^10030035"}, LedgerColumn: "au8"},
		},
	}
}

// loadConfig reads the YAML config file (optional), applies environment
// overrides and installs the result into the package globals.
func loadConfig(path string) error {
	c := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment overrides win over the file.
	if v := os.Getenv("BOARDTRACK_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("BOARDTRACK_LEDGER_PATH"); v != "" {
		c.LedgerPath = v
	}
	if v := os.Getenv("BOARDTRACK_AUTO_REPAIR"); v != "" {
		on := v == "1"
		c.AutoRepair = &on
	}
	if v := os.Getenv("BOARDTRACK_TZ"); v != "" {
		c.Timezone = v
	}

	if err := validateConfig(&c); err != nil {
		return err
	}

	tz, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}

	cfg = c
	facilityTZ = tz
	autoRepair = c.AutoRepair == nil || *c.AutoRepair
	ledgerPath = c.LedgerPath
	return setKindRules(c.Kinds)
}

// validateConfig rejects rules that would touch unknown kinds or produce
// unsafe ledger SQL identifiers. The kind set itself is fixed; only the
// serial mapping is configurable.
func validateConfig(c *Config) error {
	seen := map[string]bool{}
	for _, r := range c.Kinds {
		if r.Name != KindAM7 && r.Name != KindAU8 {
			return fmt.Errorf("unknown kind %q in config (only %s/%s)", r.Name, KindAM7, KindAU8)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate kind %q in config", r.Name)
		}
		seen[r.Name] = true
		if r.LedgerColumn != "" && !identRe.MatchString(r.LedgerColumn) {
			return fmt.Errorf("invalid ledger column %q for kind %s", r.LedgerColumn, r.Name)
		}
		for _, p := range r.Prefixes {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("invalid prefix pattern %q for kind %s: %w", p, r.Name, err)
			}
		}
	}
	if len(c.Kinds) == 0 {
		c.Kinds = defaultConfig().Kinds
	}
	return nil
}
