// Package tables reads and writes the tabular artifacts of a run: the
// observed-share table going in and the calibration diagnostics coming out.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/model"
)

// Column names of the observed-share table.
const (
	ColRegion  = "region"
	ColPurpose = "purpose"
	ColMode    = "mode"
	ColShare   = "share"
	ColFactor  = "factor"
)

// DiagnosticsHeader is the header row of the diagnostics table.
var DiagnosticsHeader = []string{"iteration", "region", "purpose", "mode", "observed_share", "simulated_share", "factor", "trips"}

// row maps column names to raw values.
type row map[string]string

func readRows(r io.Reader, required ...string) ([]row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty (no header row)", ErrMalformedTable)
	}

	headers := make([]string, len(records[0]))
	present := make(map[string]bool, len(headers))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
		present[headers[i]] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedTable, col)
		}
	}

	rows := make([]row, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrMalformedTable, i+2, len(record), len(headers))
		}
		rw := make(row, len(headers))
		for j, h := range headers {
			rw[h] = strings.TrimSpace(record[j])
		}
		rows = append(rows, rw)
	}
	return rows, nil
}

// ReadObservedShares parses an observed-share table with columns
// region,purpose,mode,share and an optional factor column.
func ReadObservedShares(r io.Reader) ([]calibration.Observation, error) {
	rows, err := readRows(r, ColRegion, ColPurpose, ColMode, ColShare)
	if err != nil {
		return nil, err
	}
	out := make([]calibration.Observation, 0, len(rows))
	for i, rw := range rows {
		obs, err := parseObservation(rw)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrMalformedTable, i+2, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

func parseObservation(rw row) (calibration.Observation, error) {
	var obs calibration.Observation
	region, err := strconv.Atoi(rw[ColRegion])
	if err != nil {
		return obs, fmt.Errorf("region: %w", err)
	}
	purpose, err := model.ParsePurpose(rw[ColPurpose])
	if err != nil {
		return obs, err
	}
	mode, err := model.ParseMode(rw[ColMode])
	if err != nil {
		return obs, err
	}
	share, err := strconv.ParseFloat(rw[ColShare], 64)
	if err != nil {
		return obs, fmt.Errorf("share: %w", err)
	}
	factor := 0.0
	if v := rw[ColFactor]; v != "" {
		if factor, err = strconv.ParseFloat(v, 64); err != nil {
			return obs, fmt.Errorf("factor: %w", err)
		}
	}
	return calibration.Observation{
		Region:  model.RegionID(region),
		Purpose: purpose,
		Mode:    mode,
		Share:   share,
		Factor:  factor,
	}, nil
}

// LoadObservedShares reads and validates the observed-share file at path.
func LoadObservedShares(path string) (*calibration.ObservedShares, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("observed shares: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	rows, err := ReadObservedShares(f)
	if err != nil {
		return nil, fmt.Errorf("observed shares %s: %w", path, err)
	}
	return calibration.NewObservedShares(rows)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteDiagnostics writes the diagnostics table with its header.
func WriteDiagnostics(w io.Writer, rows []calibration.DiagnosticRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DiagnosticsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Iteration),
			strconv.Itoa(int(r.Region)),
			r.Purpose.String(),
			r.Mode.String(),
			formatFloat(r.Observed),
			formatFloat(r.Simulated),
			formatFloat(r.Factor),
			strconv.Itoa(r.Trips),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveDiagnostics writes the diagnostics table to path, replacing any file.
func SaveDiagnostics(path string, rows []calibration.DiagnosticRow) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("diagnostics: create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := WriteDiagnostics(f, rows); err != nil {
		return fmt.Errorf("diagnostics: write %s: %w", path, err)
	}
	return nil
}
