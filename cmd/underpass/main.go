// Command underpass is the ingestion engine's CLI entrypoint: bulk PBF
// import, schema bootstrap, and replication streaming (spec §6), wired
// together the way the teacher's cmd/api and cmd/worker wire config,
// logger, and store into a single main.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/cache"
	"github.com/emi420/underpass-go/internal/config"
	"github.com/emi420/underpass-go/internal/geo"
	"github.com/emi420/underpass-go/internal/pbf"
	"github.com/emi420/underpass-go/internal/pkg/logger"
	"github.com/emi420/underpass-go/internal/rawwriter"
	"github.com/emi420/underpass-go/internal/replication"
	"github.com/emi420/underpass-go/internal/store"
	"github.com/emi420/underpass-go/internal/tasker"
	"github.com/emi420/underpass-go/internal/usecase"
)

var (
	importPath   = flag.String("import", "", "path to a .osm.pbf file to bulk-import")
	bootstrap    = flag.Bool("bootstrap", false, "apply schema DDL and build indexes around --import")
	replicateRun = flag.Bool("replicate", false, "run the replication cursors until interrupted")
	startTime    = flag.String("start-time", "", "ISO-8601 timestamp to locate the starting replication sequence from (required with --replicate)")
	frequency    = flag.String("frequency", "minute", "osmChange replication stream cadence: minute, hour, or day")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	switch {
	case *importPath != "":
		runImport(cfg, log)
	case *replicateRun:
		runReplicate(cfg, log)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func mustAreaFilter(cfg *config.Config, log *zap.Logger) *geo.AreaFilter {
	aoi, err := geo.LoadAOI(cfg.AOI.Path)
	if err != nil {
		log.Fatal("failed to load AOI", zap.Error(err))
	}
	if len(aoi) > 0 {
		log.Info("AOI loaded", zap.Int("polygon_count", len(aoi)))
	}
	return geo.NewAreaFilter(aoi)
}

func mustStore(cfg *config.Config, log *zap.Logger) *store.Gateway {
	gw, err := store.New(store.Config{
		DSN:             cfg.DSN(),
		MaxConns:        cfg.Store.MaxConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to store", zap.Error(err))
	}
	return gw
}

// runImport drives spec §6's "--import" and "--bootstrap" combination: a
// fresh schema (if --bootstrap), a three-pass PBF import, and indexes
// (if --bootstrap).
func runImport(cfg *config.Config, log *zap.Logger) {
	log.Info("starting import", zap.String("pbf", *importPath), zap.Bool("bootstrap", *bootstrap))

	gw := mustStore(cfg, log)
	defer gw.Close()

	uc := usecase.NewBootstrapUseCase(gw, cfg.Store.DDLDir, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := rawwriter.New()
	t := tasker.New(ctx, cfg.Import.PageSize, cfg.Import.Concurrency, writer, gw, log)
	reader := pbf.New(*importPath, cfg.Import.Concurrency, log)

	if *bootstrap {
		if err := uc.Bootstrap(ctx, reader, t); err != nil {
			log.Fatal("bootstrap failed", zap.Error(err))
		}
	} else {
		if err := uc.Import(reader, t); err != nil {
			log.Fatal("import failed", zap.Error(err))
		}
	}

	if err := t.Err(); err != nil {
		log.Fatal("import produced write errors", zap.Error(err))
	}

	log.Info("import finished")
}

// runReplicate drives spec §6's "--replicate --start-time" combination: it
// blocks until the process receives SIGINT/SIGTERM, at which point both
// replication cursors are asked to stop.
func runReplicate(cfg *config.Config, log *zap.Logger) {
	if *startTime == "" {
		log.Fatal("--start-time is required with --replicate")
	}
	start, err := time.Parse(time.RFC3339, *startTime)
	if err != nil {
		log.Fatal("invalid --start-time, expected ISO-8601/RFC3339", zap.Error(err))
	}

	freq, err := parseFrequency(*frequency)
	if err != nil {
		log.Fatal("invalid --frequency", zap.Error(err))
	}

	gw := mustStore(cfg, log)
	defer gw.Close()

	filter := mustAreaFilter(cfg, log)

	dlCache, err := cache.New(cfg.Redis, 24*time.Hour, log)
	if err != nil {
		log.Warn("replication download cache unavailable, continuing without it", zap.Error(err))
		dlCache = nil
	}

	client := replication.NewClient(cfg.Replication.RequestTimeout, dlCache, log)
	uc := usecase.NewReplicateUseCase(
		client, gw, filter,
		cfg.Replication.BaseURL, cfg.Replication.ChangesetURL,
		cfg.Replication.PollInterval, log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	log.Info("starting replication", zap.String("frequency", string(freq)), zap.Time("start_time", start))
	if err := uc.Run(ctx, freq, start); err != nil {
		log.Fatal("replication failed", zap.Error(err))
	}
	log.Info("replication stopped")
}

func parseFrequency(s string) (replication.Frequency, error) {
	switch s {
	case "minute":
		return replication.Minutely, nil
	case "hour":
		return replication.Hourly, nil
	case "day":
		return replication.Daily, nil
	default:
		return "", fmt.Errorf("unknown replication frequency %q", s)
	}
}
