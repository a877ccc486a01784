package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin"

	"organify/internal/auth"
	"organify/internal/cli"
	"organify/internal/config"
	"organify/internal/core"
	applog "organify/internal/log"
	"organify/internal/storage"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)
	cli.LoadEnvFile()

	app := kingpin.New("organify-cli", "Administrative commands for the organify ledger")
	dbPath := app.Flag("db", "SQLite database path (defaults to SQLITE_DB_PATH)").String()
	verbose := app.Flag("verbose", "Log at info level").Short('v').Bool()

	cmdMigrate := app.Command("migrate", "Apply database migrations")

	cmdUser := app.Command("user", "Manage users")
	cmdUserCreate := cmdUser.Command("create", "Create a user")
	userEmail := cmdUserCreate.Arg("email", "Email address").Required().String()

	cmdToken := app.Command("token", "Issue a bearer token for a user")
	tokenUser := cmdToken.Arg("user", "User id or email").Required().String()

	cmdSeed := app.Command("seed", "Add the default categories to a user")
	seedUser := cmdSeed.Arg("user", "User id or email").Required().String()

	cmdSummary := app.Command("summary", "Print the monthly summary and running balance")
	summaryUser := cmdSummary.Arg("user", "User id or email").Required().String()
	summaryMonth := cmdSummary.Flag("month", "Month as YYYY-MM (defaults to the current month)").String()

	cmdExport := app.Command("export", "Write the XLSX statement of a month")
	exportUser := cmdExport.Arg("user", "User id or email").Required().String()
	exportMonth := cmdExport.Flag("month", "Month as YYYY-MM (defaults to the current month)").String()
	exportOut := cmdExport.Flag("output", "Output file").Short('o').String()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg := config.Load()
	if *dbPath != "" {
		cfg.SQLiteDBPath = *dbPath
	}
	// The CLI never writes ledger rows, so it has no events to publish.
	cfg.AMQPURL = ""
	level := "warn"
	if *verbose {
		level = "info"
	}
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)

	ctx := context.Background()

	if cmd == cmdMigrate.FullCommand() {
		migrate(cfg.SQLiteDBPath)
		return
	}

	a, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	switch cmd {
	case cmdUserCreate.FullCommand():
		u, err := a.Repo.CreateUser(ctx, strings.TrimSpace(*userEmail))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(u.ID)

	case cmdToken.FullCommand():
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is required to issue tokens")
		}
		id := resolveUser(ctx, a.Repo, *tokenUser)
		tok, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL).Issue(id)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(tok)

	case cmdSeed.FullCommand():
		added, err := a.Categories.SeedDefaultCategories(ctx, resolveUser(ctx, a.Repo, *seedUser))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%d categories added\n", added)

	case cmdSummary.FullCommand():
		id := resolveUser(ctx, a.Repo, *summaryUser)
		ref := parseMonth(*summaryMonth)
		s, err := a.Ledger.GetSummaryTotals(ctx, id, ref)
		if err != nil {
			log.Fatal(err)
		}
		rb, err := a.Ledger.GetRunningBalance(ctx, id, ref)
		if err != nil {
			log.Fatal(err)
		}
		printSummary(ref, s, rb)

	case cmdExport.FullCommand():
		id := resolveUser(ctx, a.Repo, *exportUser)
		ref := parseMonth(*exportMonth)
		b, err := a.Exports.MonthlyStatement(ctx, id, ref)
		if err != nil {
			log.Fatal(err)
		}
		out := *exportOut
		if out == "" {
			out = fmt.Sprintf("statement-%s.xlsx", core.MonthKey(ref))
		}
		if err := os.WriteFile(out, b, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", out, len(b))
	}
}

func migrate(dbPath string) {
	if err := storage.RunMigrations(dbPath); err != nil {
		log.Fatal(err)
	}
	version, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("schema version %d (dirty=%v)\n", version, dirty)
}

// resolveUser accepts either a user id or an email address.
func resolveUser(ctx context.Context, repo *storage.SQLiteRepository, ref string) string {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "@") {
		return ref
	}
	u, err := repo.GetUserByEmail(ctx, ref)
	if err != nil {
		log.Fatalf("lookup %s: %v", ref, err)
	}
	return u.ID
}

func parseMonth(s string) time.Time {
	if strings.TrimSpace(s) == "" {
		return time.Now().UTC()
	}
	d, err := core.ParseMonth(strings.TrimSpace(s))
	if err != nil {
		log.Fatalf("invalid month %q: expected YYYY-MM", s)
	}
	return d.Time
}

func printSummary(ref time.Time, s core.SummaryTotals, rb core.RunningBalance) {
	fmt.Printf("Summary for %s\n", core.MonthKey(ref))
	fmtAmount("Income", s.Income)
	fmtAmount("Fixed expenses", s.FixedExpense)
	fmtAmount("Variable expenses", s.VariableExpense)
	fmtAmount("Investments", s.Investment)
	fmtAmount("Balance", s.Balance)
	fmt.Println()
	fmtAmount("Running balance", rb.RunningBalance)
	fmtAmount("Invested to date", rb.InvestmentTotal)
}

func fmtAmount(label string, m core.Money) {
	fmt.Printf("%-20s %14s\n", label, m.String())
}
