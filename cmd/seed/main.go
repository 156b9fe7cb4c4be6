package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"libraryapi/internal/config"
	"libraryapi/internal/ingest"
	"libraryapi/internal/library"
	"libraryapi/internal/platform/logging"
	"libraryapi/internal/platform/openlibrary"

	"github.com/go-kit/log/level"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	fixturePath := flag.String("file", "db/seed/catalog.yaml", "YAML catalog fixture to load")
	subjects := flag.String("subjects", "", "comma separated Open Library subjects to import instead of the fixture")
	limit := flag.Int("limit", 20, "search results per subject")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		level.Error(logger).Log("msg", "failed to connect to database", "dsn", config.RedactDSN(cfg.DatabaseDSN), "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := library.NewService(library.NewPostgresRepo(pool, cfg.DBTimeout))

	if *subjects != "" {
		client := openlibrary.NewClient(cfg.OpenLibraryURL, "libraryapi-seed/1.0", cfg.OpenLibraryRPS, 3)
		importer := ingest.NewService(client, svc, ingest.Config{Subjects: splitSubjects(*subjects), Limit: *limit}, logger)
		if _, err := importer.Run(ctx); err != nil {
			level.Error(logger).Log("msg", "ingest failed", "err", err)
			pool.Close()
			os.Exit(1)
		}
		return
	}

	f, err := os.Open(*fixturePath)
	if err != nil {
		level.Error(logger).Log("msg", "cannot open fixture", "file", *fixturePath, "err", err)
		pool.Close()
		os.Exit(1)
	}
	fixture, err := ParseFixture(f)
	f.Close()
	if err != nil {
		level.Error(logger).Log("msg", "cannot parse fixture", "file", *fixturePath, "err", err)
		pool.Close()
		os.Exit(1)
	}

	start := time.Now()
	res, err := Apply(ctx, svc, fixture)
	if err != nil {
		level.Error(logger).Log("msg", "seed failed", "authors", res.Authors, "books", res.Books, "err", err)
		pool.Close()
		os.Exit(1)
	}

	level.Info(logger).Log(
		"msg", "seed complete",
		"authors", res.Authors,
		"books", res.Books,
		"links", res.Links,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func splitSubjects(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
