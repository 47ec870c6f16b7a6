// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	bold     = color.New(color.Bold).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

const rule = "────────────────────────────────────────────────────────────────"

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// euros formats a whole euro amount with thin grouping, e.g. "85 000 €".
func euros(v *int64) string {
	if v == nil {
		return "-"
	}
	digits := strconv.FormatInt(*v, 10)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + " €"
	if neg {
		out = "-" + out
	}
	return out
}

func surface(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + " m²"
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
