package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/mjansen/boekhouding/internal/bankimport"
	"github.com/mjansen/boekhouding/internal/categorize"
	"github.com/mjansen/boekhouding/internal/config"
	"github.com/mjansen/boekhouding/internal/domain"
	infraBQ "github.com/mjansen/boekhouding/internal/infra/bigquery"
	"github.com/mjansen/boekhouding/internal/logger"
	"github.com/mjansen/boekhouding/internal/reports"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "categorize":
		runCategorize(log)
	case "btw":
		runBTW(log)
	case "ib":
		runIB(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Boekhouding CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse       Parse a bank statement export and print the rows")
	fmt.Println("  categorize  Parse a statement and propose categories per row")
	fmt.Println("  btw         Print the VAT return summary for a quarter")
	fmt.Println("  ib          Print the income tax summary for a year")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the bank export file")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	stmt := parseFile(log, *filePath)

	fmt.Printf("\n=== Statement (%s, %d rows, %d skipped) ===\n", stmt.Format, len(stmt.Rows), stmt.Skipped)
	for _, row := range stmt.Rows {
		fmt.Printf("%s  %12s  %s\n", row.Date, row.Amount.StringFixed(2), row.Description)
	}
	fmt.Println()
}

func runCategorize(log zerolog.Logger) {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the bank export file")
	user := fs.String("user", "demo", "User the rows belong to")
	offline := fs.Bool("offline", false, "Skip duplicate detection against the transaction store")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	stmt := parseFile(log, *filePath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var store categorize.TransactionStore = noDuplicateStore{}
	var audit categorize.OutputAuditor
	if !*offline {
		repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository, use -offline to skip duplicate detection")
		}
		defer repo.Close()
		store = repo
		audit = repo
	}

	oracle := categorize.NewGeminiOracle(cfg.GeminiModel, cfg.OracleTimeout)
	engine := categorize.NewEngine(oracle, store, audit, log)

	proposals, err := engine.Categorize(ctx, *user, stmt.Rows)
	if err != nil {
		log.Fatal().Err(err).Msg("Categorization failed")
	}

	fmt.Printf("\n=== Proposals (%d rows) ===\n", len(proposals))
	for _, p := range proposals {
		dup := " "
		if p.IsDuplicate {
			dup = "D"
		}
		fmt.Printf("%s %s  %-7s %12s  %-21s %2d%%  %-4s  %s\n",
			dup, p.Row.Date, p.Type, p.Amount.StringFixed(2), p.Category, p.VATRate, p.Confidence, p.Row.Description)
	}
	fmt.Println("\nD = possible duplicate of an already imported transaction")
}

func runBTW(log zerolog.Logger) {
	fs := flag.NewFlagSet("btw", flag.ExitOnError)
	year := fs.Int("year", 0, "Target year")
	quarter := fs.Int("quarter", 0, "Target quarter (1-4)")
	user := fs.String("user", "demo", "User the report is for")
	fs.Parse(os.Args[2:])

	if *year == 0 || *quarter == 0 {
		log.Fatal().Msg("Error: -year and -quarter are required")
	}

	ctx, repo := openRepository(log)
	defer repo.Close()

	engine := reports.NewBTWEngine(repo, log)
	s, err := engine.Summary(ctx, *user, *year, *quarter)
	if err != nil {
		log.Fatal().Err(err).Msg("BTW summary failed")
	}

	fmt.Printf("\n=== BTW aangifte %d Q%d ===\n", s.Year, s.Quarter)
	fmt.Printf("1a  Omzet hoog tarief (21%%):     %12s   btw %12s\n", s.Omzet21.StringFixed(2), s.Btw21.StringFixed(2))
	fmt.Printf("1b  Omzet laag tarief (9%%):      %12s   btw %12s\n", s.Omzet9.StringFixed(2), s.Btw9.StringFixed(2))
	fmt.Printf("1e  Omzet 0%% / vrijgesteld:      %12s\n", s.Omzet0.StringFixed(2))
	fmt.Printf("4a  Verlegd van buiten de EU:    %12s   btw %12s\n", s.ReverseChargeNonEU.Turnover.StringFixed(2), s.ReverseChargeNonEU.VAT.StringFixed(2))
	fmt.Printf("4b  Verlegd binnen de EU:        %12s   btw %12s\n", s.ReverseChargeEU.Turnover.StringFixed(2), s.ReverseChargeEU.VAT.StringFixed(2))
	fmt.Printf("5b  Voorbelasting:               %12s\n", s.Voorbelasting.StringFixed(2))
	fmt.Printf("5c  Te betalen / (terug):        %12s\n", s.NetVATPayable.StringFixed(2))
	fmt.Printf("\nTransacties in kwartaal: %d\n", s.TransactionCount)
	if s.IncompleteReverseChargeCount > 0 {
		fmt.Printf("Let op: %d verlegde transacties zonder EU/niet-EU aanduiding\n", s.IncompleteReverseChargeCount)
	}
	fmt.Println()
}

func runIB(log zerolog.Logger) {
	fs := flag.NewFlagSet("ib", flag.ExitOnError)
	year := fs.Int("year", 0, "Target year")
	user := fs.String("user", "demo", "User the report is for")
	fs.Parse(os.Args[2:])

	if *year == 0 {
		log.Fatal().Msg("Error: -year is required")
	}

	ctx, repo := openRepository(log)
	defer repo.Close()

	engine := reports.NewIBEngine(repo, log)
	s, err := engine.Summary(ctx, *user, *year)
	if err != nil {
		log.Fatal().Err(err).Msg("IB summary failed")
	}

	fmt.Printf("\n=== Inkomstenbelasting %d ===\n", s.Year)
	fmt.Printf("Omzet:   %12s\n", s.Omzet.StringFixed(2))
	fmt.Printf("Kosten:  %12s\n", s.Kosten.StringFixed(2))
	fmt.Printf("Winst:   %12s\n", s.Winst.StringFixed(2))

	fmt.Println("\nPer maand:")
	for _, m := range s.Monthly {
		fmt.Printf("  %-9s  omzet %12s   kosten %12s\n",
			time.Month(m.Month), m.Omzet.StringFixed(2), m.Kosten.StringFixed(2))
	}

	fmt.Println("\nKosten per categorie:")
	for _, c := range s.KostenPerCategory {
		fmt.Printf("  %-24s %12s\n", c.Category, c.Amount.StringFixed(2))
	}

	fmt.Println("\nAftrekbaarheid:")
	fmt.Printf("  Volledig aftrekbaar:       %12s\n", s.KostenVolledigAftrekbaar.StringFixed(2))
	fmt.Printf("  Beperkt aftrekbaar (80%%):  %12s\n", s.KostenBeperktAftrekbaar.StringFixed(2))
	fmt.Printf("  Niet aftrekbaar:           %12s\n", s.KostenNietAftrekbaar.StringFixed(2))
	fmt.Println()
}

func parseFile(log zerolog.Logger, path string) *bankimport.Statement {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read file")
	}

	stmt, err := bankimport.ParseStatement(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse statement")
	}
	return stmt
}

func openRepository(log zerolog.Logger) (context.Context, *infraBQ.Repository) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	return ctx, repo
}

// noDuplicateStore disables duplicate detection for offline runs.
type noDuplicateStore struct{}

func (noDuplicateStore) ListTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error) {
	return nil, nil
}
