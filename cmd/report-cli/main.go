// report-cli fetches one assessment, runs the aggregation and prints the
// result. Useful for checking report numbers without the HTTP service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/navvicorp/datrix/internal/localstore"
	"github.com/navvicorp/datrix/internal/narrative"
	"github.com/navvicorp/datrix/internal/report"
	"github.com/navvicorp/datrix/internal/reportdata"
	"github.com/navvicorp/datrix/internal/rowstore"
)

func main() {
	var (
		assessmentID = flag.String("assessment", "", "Assessment id to report on (required)")
		dbFlag       = flag.String("db", "", "Path to SQLite database file (overrides DATRIX_SQLITE_PATH)")
		format       = flag.String("format", "json", "Output format: json or markdown")
	)
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(*assessmentID) == "" {
		log.Fatal("--assessment is required")
	}

	store, closeStore, err := buildStore(*dbFlag)
	if err != nil {
		log.Fatal(err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	sum, err := reportdata.Build(context.Background(), store, *assessmentID, reportdata.Options{
		AnnualCostBase: annualCostBase(),
	})
	if err != nil {
		log.Fatalf("build report: %v", err)
	}

	switch *format {
	case "markdown":
		text, _ := narrative.Fallback{}.Generate(context.Background(), sum)
		fmt.Print(report.Markdown(sum, text))
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			log.Fatalf("encode: %v", err)
		}
	default:
		log.Fatalf("unknown format %q", *format)
	}
}

func buildStore(dbFlag string) (rowstore.Selector, func() error, error) {
	baseURL := strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	serviceKey := strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY"))
	if baseURL != "" && serviceKey != "" {
		return rowstore.NewRESTClient(baseURL, serviceKey), nil, nil
	}

	dbPath := dbFlag
	if dbPath == "" {
		dbPath = strings.TrimSpace(os.Getenv("DATRIX_SQLITE_PATH"))
	}
	if dbPath == "" {
		return nil, nil, fmt.Errorf("no store configured: set SUPABASE_URL/SUPABASE_SERVICE_ROLE_KEY, DATRIX_SQLITE_PATH or --db")
	}
	store, err := localstore.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, store.Close, nil
}

func annualCostBase() float64 {
	raw := strings.TrimSpace(os.Getenv("DATRIX_ANNUAL_COST_BASE"))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}
