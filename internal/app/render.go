package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/utkarsh5026/forkjoin/internal/config"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

func renderBench(w io.Writer, cfg config.BenchConfig, results []BenchResult) {
	if cfg.NoColor {
		for _, c := range []*color.Color{bold, green, red, yellow} {
			c.DisableColor()
		}
	}

	_, _ = bold.Fprintf(w, "Range sum benchmark (threshold %d, best of %d)\n", cfg.Threshold, cfg.Repeats)

	table := tablewriter.NewWriter(w)
	table.Header("Size", "Workers", "Best", "Sequential", "Speedup", "Stolen", "Sum", "Check")

	for _, r := range results {
		_ = table.Append(
			formatCount(r.Size),
			fmt.Sprint(r.Workers),
			formatDuration(r.Best),
			formatDuration(r.Sequential),
			formatSpeedup(r.Speedup()),
			fmt.Sprint(r.Stolen),
			fmt.Sprint(r.Sum),
			formatCheck(r),
		)
	}

	_ = table.Render()
}

func formatCheck(r BenchResult) string {
	switch {
	case r.Verified:
		return green.Sprint("OK")
	case errors.Is(r.Err, errMismatch):
		return red.Sprint("MISMATCH")
	default:
		return red.Sprint("ERROR")
	}
}

func formatSpeedup(s float64) string {
	if s == 0 {
		return "-"
	}
	text := fmt.Sprintf("%.2fx", s)
	if s < 1 {
		return yellow.Sprint(text)
	}
	return text
}

// formatCount formats n with comma separators.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}

	var b strings.Builder
	b.WriteString(sign)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// formatDuration picks the unit that keeps the number short.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
