// Package report turns a ledger view into markdown and renders it for the
// terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/session"
)

// EmptyLedger is printed instead of tables when there are no records.
const EmptyLedger = "No inventory records yet."

// StyleRaw prints the markdown source without rendering.
const StyleRaw = "raw"

const wordWrap = 100

type Config struct {
	Currency string
	Style    string
}

// ConfigFromEnv reads REPORT_CURRENCY (default USD) and REPORT_STYLE
// (a glamour style name, "raw", default auto).
func ConfigFromEnv() Config {
	cur := strings.ToUpper(os.Getenv("REPORT_CURRENCY"))
	if cur == "" {
		cur = money.USD
	}
	style := os.Getenv("REPORT_STYLE")
	if style == "" {
		style = "auto"
	}
	return Config{Currency: cur, Style: style}
}

// Markdown lays the view out as a ledger table, a per-product summary table
// and the grand totals.
func Markdown(v session.View, currency string) (string, error) {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return "", fmt.Errorf("unknown currency %q", currency)
	}
	if v.Empty() {
		return EmptyLedger + "\n", nil
	}

	var b strings.Builder
	b.WriteString("## Ledger\n\n")
	b.WriteString("| ID | Product | Quantity | Unit price | Last updated |\n")
	b.WriteString("|---:|---|---:|---:|---|\n")
	for _, r := range v.Records {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			r.ID, cell(r.ProductName), Quantity(r.Quantity), Money(r.UnitPrice, cur), r.LastUpdated.Format("2006-01-02 15:04:05"))
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Product | Total quantity | Unit price | Total value |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, s := range v.Summaries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(s.ProductName), Quantity(s.TotalQuantity), Money(s.UnitPrice, cur), Money(s.TotalValue, cur))
	}

	fmt.Fprintf(&b, "\n**Total quantity:** %s\n\n", Quantity(v.GrandTotalQuantity))
	fmt.Fprintf(&b, "**Total value:** %s\n", Money(v.GrandTotalValue, cur))
	return b.String(), nil
}

// Render writes md to w through glamour using the named style.
func Render(w io.Writer, md, style string) error {
	if style == StyleRaw {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// Money formats d in the currency, rounded to its minor unit: $1,234.50.
func Money(d decimal.Decimal, cur *money.Currency) string {
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

var quantityFormatter = money.NewFormatter(0, ".", ",", "", "1")

// Quantity formats n with thousands separators: 1,234.
func Quantity(n int64) string {
	return quantityFormatter.Format(n)
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
