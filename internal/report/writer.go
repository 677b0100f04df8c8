// Package report turns a finished BackTest into run artifacts: an
// equity-curve CSV, a logged summary, and (optionally) a live
// websocket dashboard fed from the driver's progress channel.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"backtest-engine/internal/backtest"
)

// WriteEquityCurve writes points as a CSV (timestamp,equity) to path,
// using the teacher's write-then-rename convention: the file is built
// at path+".tmp" and only swapped into place once it is complete, so a
// crash mid-write never leaves a truncated equity curve behind.
func WriteEquityCurve(path string, points []backtest.EquityPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "equity"}); err != nil {
		f.Close()
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, p := range points {
		row := []string{p.Timestamp.Format(time.RFC3339), p.Equity.String()}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("report: flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", tmp, err)
	}

	return os.Rename(tmp, path)
}

// UniqueName returns a path under dir based on base that does not yet
// exist, probing base-01.ext, base-02.ext, ... (matching unq_name's
// zero-padded, always-suffixed convention) so repeated runs never
// clobber a prior run's equity curve.
func UniqueName(dir, base string) (string, error) {
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-%02d%s", stem, n, ext))
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", fmt.Errorf("report: stat %s: %w", candidate, err)
		}
	}
}
