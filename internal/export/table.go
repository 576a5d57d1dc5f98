package export

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"fintrack/internal/core"
)

// PrintSummaryTable writes totals and the per-category breakdown of s.
func PrintSummaryTable(w io.Writer, s core.Summary, cur Currency) {
	fmt.Fprintf(w, "Window: %s (%d records)\n\n", s.Window, s.Count)

	t := newTable(w)
	t.AppendHeader(table.Row{"", "Amount", "Records"})
	t.AppendRow(table.Row{"Income", text.FgGreen.Sprint(cur.Format(s.TotalIncome)), s.IncomeCount})
	t.AppendRow(table.Row{"Expenses", text.FgRed.Sprint(cur.Format(s.TotalExpense)), s.ExpenseCount})
	t.AppendSeparator()
	t.AppendFooter(table.Row{text.Bold.Sprint("Balance"), text.Bold.Sprint(cur.Format(s.Balance)), s.Count})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()

	for _, typ := range core.TransactionTypes() {
		rows := s.Breakdown(typ)
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintln(w)
		PrintBreakdownTable(w, s, typ, cur)
	}
}

// PrintBreakdownTable writes one row per category of typ, largest first.
func PrintBreakdownTable(w io.Writer, s core.Summary, typ core.TransactionType, cur Currency) {
	t := newTable(w)
	t.SetTitle("%s by category", typ)
	t.AppendHeader(table.Row{"Category", "Amount", "Share"})
	for _, row := range s.Breakdown(typ) {
		t.AppendRow(table.Row{row.Category, cur.Format(row.Amount), cur.Percent(s.Share(typ, row.Amount))})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
}

// PrintCategoriesTable lists candidate categories, marking custom ones.
func PrintCategoriesTable(w io.Writer, typ core.TransactionType, candidates []string, customs []string) {
	custom := make(map[string]bool, len(customs))
	for _, c := range customs {
		custom[c] = true
	}

	t := newTable(w)
	t.SetTitle("%s categories", typ)
	t.AppendHeader(table.Row{"Category", "Kind"})
	for _, c := range candidates {
		kind := "built-in"
		switch {
		case c == core.CustomSentinel:
			kind = text.FgHiBlack.Sprint("new entry")
		case custom[c]:
			kind = "custom"
		}
		t.AppendRow(table.Row{c, kind})
	}
	t.Render()
}

// PrintTransactionsTable lists records in the given order.
func PrintTransactionsTable(w io.Writer, records []core.Transaction, cur Currency) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Description", "Category", "Type", "Amount"})
	for _, r := range records {
		amount := cur.Format(r.Amount)
		if r.Type == core.Expense {
			amount = text.FgRed.Sprint(amount)
		} else {
			amount = text.FgGreen.Sprint(amount)
		}
		t.AppendRow(table.Row{r.Date.String(), r.Description, r.Category, r.Type, amount})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, Align: text.AlignRight}})
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}
