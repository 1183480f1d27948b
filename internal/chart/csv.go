// Package chart renders aggregation results as CSV, XLSX and SVG/PNG charts.
package chart

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/hamed0406/wanuptime/internal/domain"
)

// WriteCSV writes one row per bucket. An empty bucket has an empty fraction.
func WriteCSV(w io.Writer, res domain.AggregateResult) error {
	c := csv.NewWriter(w)

	if err := c.Write([]string{"bucket_start", "bucket_end", "total", "uptime_fraction"}); err != nil {
		return err
	}
	for _, b := range res.Series {
		frac := ""
		if b.UptimeFraction != nil {
			frac = strconv.FormatFloat(*b.UptimeFraction, 'g', -1, 64)
		}
		err := c.Write([]string{
			b.Start.UTC().Format(time.RFC3339),
			b.End.UTC().Format(time.RFC3339),
			strconv.Itoa(b.Total),
			frac,
		})
		if err != nil {
			return err
		}
	}

	c.Flush()
	return c.Error()
}
