package pairwatch

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/monitor"
)

// renderReport writes one row per checked pair and a footer with the totals
func renderReport(w io.Writer, report monitor.Report) error {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Pair", "Candles", "Price", "RSI", "EMA", "Lower", "Upper", "Signal", "Status"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	for _, result := range report.Results {
		row := []string{result.Pair, strconv.Itoa(result.Candles), "-", "-", "-", "-", "-", result.State.String(), result.Status()}

		if result.Snapshot != (core.Snapshot{}) {
			snap := result.Snapshot
			row[2] = formatPrice(snap.Price)
			row[3] = fmt.Sprintf("%.2f", snap.RSI)
			row[4] = formatPrice(snap.EMA)
			row[5] = formatPrice(snap.LowerBand)
			row[6] = formatPrice(snap.UpperBand)
		}

		table.Append(row)
	}

	table.SetFooter([]string{
		"TOTAL",
		strconv.Itoa(len(report.Results)),
		"", "", "", "", "",
		fmt.Sprintf("%d alerts", report.Alerts()),
		fmt.Sprintf("%d failed", report.Failures()),
	})
	table.Render()

	skipped := len(report.Requested) - len(report.Validated)
	_, err := fmt.Fprintf(w, "%s\ncycle %s: %d pairs checked, %d not listed, took %s\n",
		buffer.String(), report.ID, len(report.Results), skipped, report.Finished.Sub(report.Started).Round(time.Millisecond))
	return err
}

// formatPrice keeps six significant digits, so sub-cent pairs stay readable
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
