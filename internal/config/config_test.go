package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
initial_equity: 100000
inputs:
  - symbol: EURUSD
    format: intraday
    path: ./data/eurusd.csv
output:
  dir: ./results
  equity_curve: equity.csv
  precision: 6
logging:
  level: info
  format: text
dashboard:
  enabled: false
  port: 8080
`

func writeSample(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeSample(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InitialEquity != 100000 {
		t.Errorf("InitialEquity = %v, want 100000", cfg.InitialEquity)
	}
	if len(cfg.Inputs) != 1 || cfg.Inputs[0].Symbol != "EURUSD" {
		t.Fatalf("Inputs = %+v", cfg.Inputs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeSample(t, `
inputs:
  - symbol: EURUSD
    format: intraday
    path: ./data/eurusd.csv
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InitialEquity != 100000 {
		t.Errorf("InitialEquity = %v, want default 100000", cfg.InitialEquity)
	}
	if cfg.Output.Dir != "./results" {
		t.Errorf("Output.Dir = %q, want default ./results", cfg.Output.Dir)
	}
	if cfg.Output.Precision != 6 {
		t.Errorf("Output.Precision = %d, want default 6", cfg.Output.Precision)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeSample(t, sampleYAML)
	t.Setenv("BT_OUTPUT_DIR", "/tmp/override")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Dir != "/tmp/override" {
		t.Errorf("Output.Dir = %q, want /tmp/override", cfg.Output.Dir)
	}
}

func TestValidateRejectsMissingInputs(t *testing.T) {
	cfg := &Config{InitialEquity: 1000, Output: OutputConfig{Dir: "./x", Precision: 6}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for missing inputs")
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := &Config{
		InitialEquity: 1000,
		Inputs:        []InputConfig{{Symbol: "EURUSD", Format: "weekly", Path: "x.csv"}},
		Output:        OutputConfig{Dir: "./x", Precision: 6},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for bad format")
	}
}

func TestValidateRejectsPathAndURLTogether(t *testing.T) {
	cfg := &Config{
		InitialEquity: 1000,
		Inputs:        []InputConfig{{Symbol: "EURUSD", Format: "intraday", Path: "x.csv", URL: "http://x"}},
		Output:        OutputConfig{Dir: "./x", Precision: 6},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for path+url")
	}
}

func TestValidateRejectsBadDashboardPort(t *testing.T) {
	cfg := &Config{
		InitialEquity: 1000,
		Inputs:        []InputConfig{{Symbol: "EURUSD", Format: "intraday", Path: "x.csv"}},
		Output:        OutputConfig{Dir: "./x", Precision: 6},
		Dashboard:     DashboardConfig{Enabled: true, Port: 0},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for bad dashboard port")
	}
}
