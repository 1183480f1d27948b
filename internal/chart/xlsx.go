package chart

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hamed0406/wanuptime/internal/domain"
)

const (
	seriesSheet = "series"
	outageSheet = "outages"
	timeLayout  = "2006-01-02 15:04:05"

	percentFormat = 10 // built-in "0.00%"
)

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// WriteXLSX writes the bucket series and the outages as two sheets.
func WriteXLSX(w io.Writer, res domain.AggregateResult, generated time.Time) error {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", seriesSheet); err != nil {
		return err
	}
	if _, err := x.NewSheet(outageSheet); err != nil {
		return err
	}
	x.SetDocProps(&excelize.DocProperties{
		Title:   "WAN uptime",
		Created: generated.UTC().Format(time.RFC3339),
		Description: fmt.Sprintf("%s to %s",
			res.WindowStart.UTC().Format(time.RFC3339), res.WindowEnd.UTC().Format(time.RFC3339)),
	})

	pct, err := x.NewStyle(&excelize.Style{NumFmt: percentFormat})
	if err != nil {
		return err
	}

	for i, h := range []string{"bucket start (UTC)", "bucket end (UTC)", "probes", "uptime"} {
		x.SetCellStr(seriesSheet, cell(i+1, 1), h)
	}
	for i, b := range res.Series {
		row := i + 2
		x.SetCellStr(seriesSheet, cell(1, row), b.Start.UTC().Format(timeLayout))
		x.SetCellStr(seriesSheet, cell(2, row), b.End.UTC().Format(timeLayout))
		x.SetCellValue(seriesSheet, cell(3, row), b.Total)
		if b.UptimeFraction != nil {
			x.SetCellFloat(seriesSheet, cell(4, row), *b.UptimeFraction, -1, 64)
			x.SetCellStyle(seriesSheet, cell(4, row), cell(4, row), pct)
		}
	}
	x.SetColWidth(seriesSheet, "A", "B", 20)

	for i, h := range []string{"start (UTC)", "end (UTC)", "reason", "probes", "ongoing"} {
		x.SetCellStr(outageSheet, cell(i+1, 1), h)
	}
	for i, o := range res.Outages {
		row := i + 2
		x.SetCellStr(outageSheet, cell(1, row), o.Start.UTC().Format(timeLayout))
		x.SetCellStr(outageSheet, cell(2, row), o.End.UTC().Format(timeLayout))
		x.SetCellStr(outageSheet, cell(3, row), o.Reason)
		x.SetCellValue(outageSheet, cell(4, row), o.Probes)
		x.SetCellValue(outageSheet, cell(5, row), o.Ongoing)
	}
	x.SetColWidth(outageSheet, "A", "B", 20)

	return x.Write(w)
}
