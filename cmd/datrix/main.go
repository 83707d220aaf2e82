package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/navvicorp/datrix/internal/demo"
	"github.com/navvicorp/datrix/internal/httpapi"
	"github.com/navvicorp/datrix/internal/localstore"
	"github.com/navvicorp/datrix/internal/logger"
	"github.com/navvicorp/datrix/internal/mailer"
	"github.com/navvicorp/datrix/internal/narrative"
	"github.com/navvicorp/datrix/internal/rowstore"
	"github.com/navvicorp/datrix/internal/telemetry"
)

func main() {
	var (
		addr     = flag.String("addr", "", "Listen address (default: :8080 or PORT env)")
		dbFlag   = flag.String("db", "", "Path to SQLite database file (overrides DATRIX_SQLITE_PATH)")
		seedDemo = flag.Bool("seed-demo", false, "Seed the SQLite store with the demo question catalog")
	)
	flag.Parse()

	// Missing .env is fine; containers set the environment directly.
	_ = godotenv.Load()

	log := logger.New()

	listen := *addr
	if listen == "" {
		listen = ":8080"
		if port := os.Getenv("PORT"); port != "" {
			listen = ":" + port
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "datrix")
	if err != nil {
		log.WithError(err).Warn("tracing disabled")
	} else {
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			_ = shutdownTracing(flushCtx)
		}()
	}

	store, closeStore := buildStore(ctx, *dbFlag, *seedDemo, log)
	if closeStore != nil {
		defer closeStore()
	}

	var narrator narrative.Generator
	if gen, err := narrative.NewAnthropicFromEnv(); err == nil {
		narrator = gen
		log.Info("anthropic narrative generator enabled")
	} else {
		log.Info("narrative generator not configured, using templated summaries")
	}

	var sender mailer.Sender
	if client, err := mailer.NewClientFromEnv(); err == nil {
		sender = client
		log.Info("report email delivery enabled")
	} else {
		log.Info("report email delivery not configured")
	}

	handler := httpapi.NewServer(httpapi.Config{
		Store:          store,
		Narrator:       narrator,
		Mailer:         sender,
		AnnualCostBase: annualCostBase(log),
		Log:            log,
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.WithField("addr", listen).Info("datrix listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server exited")
	}
}

// buildStore resolves the data store in priority order: Supabase REST
// when its credentials are set, then a local SQLite file, else none
// (the API serves demo data).
func buildStore(ctx context.Context, dbFlag string, seedDemo bool, log *logger.Logger) (rowstore.Selector, func() error) {
	baseURL := strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	serviceKey := strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY"))
	if baseURL != "" && serviceKey != "" {
		log.WithField("url", baseURL).Info("using supabase rest store")
		return rowstore.NewRESTClient(baseURL, serviceKey), nil
	}

	dbPath := dbFlag
	if dbPath == "" {
		dbPath = strings.TrimSpace(os.Getenv("DATRIX_SQLITE_PATH"))
	}
	if dbPath != "" {
		store, err := localstore.Open(dbPath)
		if err != nil {
			log.WithError(err).Fatal("open sqlite store")
		}
		if seedDemo {
			qs, cs := demo.Catalog()
			if err := store.SeedCatalog(ctx, qs, cs); err != nil {
				log.WithError(err).Fatal("seed catalog")
			}
			log.Info("seeded demo question catalog")
		}
		log.WithField("path", dbPath).Info("using sqlite store")
		return store, store.Close
	}

	log.Warn("no data store configured, serving demo data")
	return nil, nil
}

func annualCostBase(log *logger.Logger) float64 {
	raw := strings.TrimSpace(os.Getenv("DATRIX_ANNUAL_COST_BASE"))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.WithField("value", raw).Warn("ignoring invalid DATRIX_ANNUAL_COST_BASE")
		return 0
	}
	return v
}
