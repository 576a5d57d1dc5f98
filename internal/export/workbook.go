package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

const (
	TransactionsSheet = "Transactions"
	SummarySheet      = "Summary"
)

var transactionHeader = []any{"Date", "Description", "Amount", "Category", "Type", "ID"}

// WriteWorkbook writes an .xlsx with the records on one sheet and the
// summary totals and category breakdown on another.
func WriteWorkbook(w io.Writer, records []core.Transaction, s core.Summary, cur Currency) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TransactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeTransactions(f, records, styles); err != nil {
		return fmt.Errorf("write transactions sheet: %w", err)
	}
	if err := writeSummary(f, s, cur, styles); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header int
	amount int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err != nil {
		return styles{}, fmt.Errorf("header style: %w", err)
	}
	// Built-in format 4 is "#,##0.00".
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return styles{}, fmt.Errorf("amount style: %w", err)
	}
	return styles{header: header, amount: amount}, nil
}

func writeTransactions(f *excelize.File, records []core.Transaction, st styles) error {
	sheet := TransactionsSheet
	if err := f.SetSheetRow(sheet, "A1", &transactionHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", st.header); err != nil {
		return err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Date.String(), r.Description, r.Amount.Major(), r.Category, r.Type.String(), r.ID}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		last := fmt.Sprintf("C%d", len(records)+1)
		if err := f.SetCellStyle(sheet, "C2", last, st.amount); err != nil {
			return err
		}
	}

	for col, width := range map[string]float64{"A": 12, "B": 40, "C": 14, "D": 20, "E": 10, "F": 38} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummary(f *excelize.File, s core.Summary, cur Currency, st styles) error {
	sheet := SummarySheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Window", s.Window.String()},
		{"Currency", cur.Code},
		{"Records", s.Count},
		{},
		{"Total income", s.TotalIncome.Major()},
		{"Total expenses", s.TotalExpense.Major()},
		{"Balance", s.Balance.Major()},
	}
	next := 1
	for _, row := range rows {
		if err := setRow(f, sheet, next, row); err != nil {
			return err
		}
		next++
	}
	if err := f.SetCellStyle(sheet, "B5", "B7", st.amount); err != nil {
		return err
	}

	for _, typ := range core.TransactionTypes() {
		breakdown := s.Breakdown(typ)
		if len(breakdown) == 0 {
			continue
		}
		next++
		title := fmt.Sprintf("%s by category", typ)
		if err := setRow(f, sheet, next, []any{title, "Amount", "Share %"}); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", next), fmt.Sprintf("C%d", next), st.header); err != nil {
			return err
		}
		next++
		first := next
		for _, row := range breakdown {
			if err := setRow(f, sheet, next, []any{row.Category, row.Amount.Major(), s.Share(typ, row.Amount)}); err != nil {
				return err
			}
			next++
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("B%d", first), fmt.Sprintf("C%d", next-1), st.amount); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "C", 14)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
