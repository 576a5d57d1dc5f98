package http

import (
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/feed"
	"fintrack/internal/services"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type (
	transactionView struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      string    `json:"amount"`
		AmountCents int64     `json:"amountCents"`
		Category    string    `json:"category"`
		Type        string    `json:"type"`
		Date        string    `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	profileView struct {
		UID              string              `json:"uid"`
		Email            string              `json:"email"`
		Name             string              `json:"name"`
		PhotoURL         *string             `json:"photoURL"`
		CustomCategories map[string][]string `json:"customCategories"`
	}

	categoriesView struct {
		Type       string   `json:"type"`
		Categories []string `json:"categories"`
		Sentinel   string   `json:"sentinel"`
	}

	bucketView struct {
		Label   string `json:"label"`
		Start   string `json:"start"`
		Income  int64  `json:"incomeCents"`
		Expense int64  `json:"expenseCents"`
	}

	categoryAmountView struct {
		Category string  `json:"category"`
		Cents    int64   `json:"amountCents"`
		Share    float64 `json:"share"`
		Color    string  `json:"color"`
	}

	summaryView struct {
		Window       string               `json:"window"`
		Granularity  string               `json:"granularity"`
		TotalIncome  int64                `json:"totalIncomeCents"`
		TotalExpense int64                `json:"totalExpenseCents"`
		Balance      int64                `json:"balanceCents"`
		Count        int                  `json:"count"`
		IncomeCount  int                  `json:"incomeCount"`
		ExpenseCount int                  `json:"expenseCount"`
		Income       []categoryAmountView `json:"incomeByCategory"`
		Expense      []categoryAmountView `json:"expenseByCategory"`
		Series       []bucketView         `json:"series"`
	}

	dashboardView struct {
		Summary summaryView       `json:"summary"`
		Recent  []transactionView `json:"recent"`
	}

	snapshotView struct {
		Version      uint64            `json:"version"`
		TakenAt      time.Time         `json:"takenAt"`
		Transactions []transactionView `json:"transactions"`
		Summary      *summaryView      `json:"summary,omitempty"`
	}
)

func newTransactionView(tx core.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Type:        tx.Type.String(),
		Date:        tx.Date.String(),
		CreatedAt:   tx.CreatedAt,
	}
}

func newTransactionViews(list []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(list))
	for _, tx := range list {
		out = append(out, newTransactionView(tx))
	}
	return out
}

func newProfileView(p core.UserProfile) profileView {
	v := profileView{
		UID:              p.UID,
		Email:            p.Email,
		Name:             p.Name,
		CustomCategories: make(map[string][]string, 2),
	}
	if p.PhotoURL != "" {
		url := p.PhotoURL
		v.PhotoURL = &url
	}
	for _, t := range core.TransactionTypes() {
		v.CustomCategories[t.String()] = p.CustomCategories.For(t)
	}
	return v
}

func newSummaryView(s core.Summary) summaryView {
	v := summaryView{
		Window:       s.Window.String(),
		Granularity:  s.Granularity.String(),
		TotalIncome:  s.TotalIncome.Cents,
		TotalExpense: s.TotalExpense.Cents,
		Balance:      s.Balance.Cents,
		Count:        s.Count,
		IncomeCount:  s.IncomeCount,
		ExpenseCount: s.ExpenseCount,
		Income:       breakdownView(s, core.Income),
		Expense:      breakdownView(s, core.Expense),
		Series:       make([]bucketView, 0, len(s.Series)),
	}
	for _, b := range s.Series {
		v.Series = append(v.Series, bucketView{
			Label:   b.Label,
			Start:   b.Start.String(),
			Income:  b.Income.Cents,
			Expense: b.Expense.Cents,
		})
	}
	return v
}

func breakdownView(s core.Summary, t core.TransactionType) []categoryAmountView {
	rows := s.Breakdown(t)
	out := make([]categoryAmountView, 0, len(rows))
	for _, r := range rows {
		out = append(out, categoryAmountView{
			Category: r.Category,
			Cents:    r.Amount.Cents,
			Share:    s.Share(t, r.Amount),
			Color:    r.Color,
		})
	}
	return out
}

func newDashboardView(d services.Dashboard) dashboardView {
	return dashboardView{
		Summary: newSummaryView(d.Summary),
		Recent:  newTransactionViews(d.Recent),
	}
}

func newSnapshotView(snap feed.Snapshot) snapshotView {
	return snapshotView{
		Version:      snap.Version,
		TakenAt:      snap.TakenAt,
		Transactions: newTransactionViews(snap.Transactions),
	}
}
