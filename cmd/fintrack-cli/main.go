package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/feed"
	"fintrack/internal/identity"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type Params struct {
	Command     string `descr:"What to print or write" positional:"true" alts:"summary,transactions,categories,export" strict:"true"`
	Email       string `descr:"Account email address"`
	Window      string `descr:"Time window (all, 7d, 30d)" default:"30d"`
	Granularity string `descr:"Series granularity (daily, monthly)" default:"daily"`
	Type        string `descr:"Transaction type for categories and transactions (expense, income)" optional:"true"`
	Sort        string `descr:"Sort field for transactions (date, amount, description, category)" default:"date"`
	Currency    string `descr:"ISO 4217 currency code used for formatting" default:"EUR"`
	Out         string `descr:"Workbook path for export" default:"fintrack.xlsx"`
}

type app struct {
	transactions *services.TransactionService
	profiles     *services.ProfileService
	analytics    *services.AnalyticsService
	currency     export.Currency
	uid          string
}

func main() {
	boa.NewCmdT[Params]("fintrack-cli").
		WithShort("Inspect and export a fintrack account").
		WithLong("Reads an account's records from the configured store and prints summaries, transactions or categories as tables, or writes them to an .xlsx workbook.").
		WithRunFunc(func(params *Params) {
			if err := run(context.Background(), params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(ctx context.Context, params *Params) error {
	cli.LoadEnvFile()

	bootstrap := applog.New(applog.Config{Level: applog.ParseLevel("warn"), Format: "text", Output: os.Stderr})
	cfg := cli.LoadAndValidateConfig(bootstrap)
	// Read-only: changes are never announced.
	cfg.AMQPURL = ""

	logger := applog.New(applog.Config{
		Level:  applog.ParseLevel(levelOrWarn(cfg.LogLevel)),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
	}()

	builtins, err := config.LoadBuiltins(cfg.CategoriesFile)
	if err != nil {
		return err
	}

	email, err := identity.NormalizeEmail(params.Email)
	if err != nil {
		return fmt.Errorf("email %q: %w", params.Email, err)
	}
	cred, err := res.Store.GetCredentialByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up account %s: %w", email, err)
	}

	hub := feed.NewHub(res.Store, nil, logger)
	defer hub.Close()

	profiles := services.NewProfileService(res.Store, res.Blobs, builtins, logger)
	a := &app{
		transactions: services.NewTransactionService(res.Store, profiles, services.NewNotifier(hub, nil, nil, logger), nil, logger),
		profiles:     profiles,
		analytics:    services.NewAnalyticsService(res.Store, cache.NewLRUCache[core.Summary](8, time.Minute), nil, logger),
		currency:     export.NewCurrency(params.Currency),
		uid:          cred.UserID,
	}

	switch params.Command {
	case "summary":
		return a.summary(ctx, params)
	case "transactions":
		return a.list(ctx, params)
	case "categories":
		return a.categories(ctx, params)
	case "export":
		return a.export(ctx, params)
	default:
		return fmt.Errorf("unknown command %q", params.Command)
	}
}

func (a *app) summary(ctx context.Context, params *Params) error {
	w, err := core.ParseWindow(params.Window)
	if err != nil {
		return err
	}
	g, err := core.ParseGranularity(params.Granularity)
	if err != nil {
		return err
	}
	s, err := a.analytics.Summary(ctx, a.uid, w, g)
	if err != nil {
		return err
	}
	export.PrintSummaryTable(os.Stdout, s, a.currency)
	return nil
}

func (a *app) list(ctx context.Context, params *Params) error {
	w, err := core.ParseWindow(params.Window)
	if err != nil {
		return err
	}
	opts := services.ListOptions{Desc: true}
	if params.Type != "" {
		if opts.Type, err = core.ParseTransactionType(params.Type); err != nil {
			return err
		}
	}
	if opts.Sort, err = core.ParseSortField(params.Sort); err != nil {
		return err
	}

	records, err := a.transactions.List(ctx, a.uid, opts)
	if err != nil {
		return err
	}
	records = core.Filter(records, w, time.Now())
	if len(records) == 0 {
		fmt.Println("No transactions in this window.")
		return nil
	}
	export.PrintTransactionsTable(os.Stdout, records, a.currency)
	return nil
}

func (a *app) categories(ctx context.Context, params *Params) error {
	types := core.TransactionTypes()
	if params.Type != "" {
		t, err := core.ParseTransactionType(params.Type)
		if err != nil {
			return err
		}
		types = []core.TransactionType{t}
	}

	profile, err := a.profiles.Profile(ctx, a.uid)
	if err != nil {
		return err
	}
	for i, t := range types {
		candidates, err := a.profiles.Categories(ctx, a.uid, t)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Println()
		}
		export.PrintCategoriesTable(os.Stdout, t, candidates, profile.CustomCategories.For(t))
	}
	return nil
}

func (a *app) export(ctx context.Context, params *Params) error {
	w, err := core.ParseWindow(params.Window)
	if err != nil {
		return err
	}
	g, err := core.ParseGranularity(params.Granularity)
	if err != nil {
		return err
	}

	records, err := a.transactions.List(ctx, a.uid, services.ListOptions{})
	if err != nil {
		return err
	}
	records = core.Filter(records, w, time.Now())
	s, err := a.analytics.Summary(ctx, a.uid, w, g)
	if err != nil {
		return err
	}

	f, err := os.Create(params.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", params.Out, err)
	}
	if err := export.WriteWorkbook(f, records, s, a.currency); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d transactions to %s\n", len(records), params.Out)
	return nil
}

func levelOrWarn(level string) string {
	if os.Getenv("LOG_LEVEL") == "" {
		return "warn"
	}
	return level
}
