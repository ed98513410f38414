package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"SignalHunter/internal/model"
)

// WriteCSV writes the records newest first as BOM-prefixed UTF-8 CSV so that
// spreadsheet applications detect the encoding.
func WriteCSV(w io.Writer, res *Result) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)

	header := []string{"date", "tier", "buy_price"}
	for _, h := range res.Horizons {
		header = append(header, fmt.Sprintf("price_%dd", h), fmt.Sprintf("return_%dd", h))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range newestFirst(res.Records) {
		row := []string{r.Date.Format("2006-01-02"), r.Tier.String(), ftoa(r.EntryPrice)}
		for _, o := range r.Forward {
			row = append(row, optToA(o.Price), optToA(o.Return))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return tw.Close()
}

// ExportCSV writes the export file at path, creating parent directories.
func ExportCSV(path string, res *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newestFirst(recs []Record) []Record {
	out := make([]Record, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index > out[j].Index })
	return out
}

func ftoa(x float64) string { return strconv.FormatFloat(x, 'f', 4, 64) }

func optToA(o model.Opt) string {
	if !o.OK {
		return ""
	}
	return ftoa(o.V)
}
