package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/m-a-x-v/buildings-dashboard/internal/cache"
	"github.com/m-a-x-v/buildings-dashboard/internal/config"
	"github.com/m-a-x-v/buildings-dashboard/internal/ingest"
	"github.com/m-a-x-v/buildings-dashboard/internal/server"
	"github.com/m-a-x-v/buildings-dashboard/internal/transport"
	"github.com/m-a-x-v/buildings-dashboard/internal/version"
	"github.com/m-a-x-v/buildings-dashboard/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	once := flag.Bool("once", false, "run one ingestion, print totals, and exit without serving")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration before the logger, so log level/format can be configured.
	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("buildings dashboard starting", zap.String("version", version.Short()))
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.Open(v.GetString("cache.path"), logger.Named("cache"))
	if err != nil {
		// The cache is best-effort; run without one rather than failing.
		logger.Warn("summary cache unavailable", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	client := transport.NewClient(v.GetString("source.url"), v.GetDuration("source.timeout"))

	hub := ws.NewHub(logger.Named("ws"))

	opts := ingest.Options{
		EmitInterval:     v.GetDuration("ingest.emit_interval"),
		PreviewDelay:     v.GetDuration("ingest.preview_delay"),
		PreviewBytes:     v.GetInt64("ingest.preview_bytes"),
		PreviewHeaderCap: v.GetInt("ingest.preview_header_cap"),
	}
	var summaryCache ingest.SummaryCache
	if store != nil {
		summaryCache = store
	}
	ingestor := ingest.New(client, summaryCache, logger.Named("ingest"), opts, func(st ingest.State) {
		hub.Broadcast(ws.FromState(st))
	})

	if *once {
		runOnce(ctx, ingestor, logger)
		return
	}

	ready := func(context.Context) error {
		if store == nil {
			return errors.New("summary cache unavailable")
		}
		return nil
	}
	var summaryReader server.SummaryReader
	if store != nil {
		summaryReader = store
	}
	api := server.NewAPIHandler(ingestor, summaryReader, ctx, logger.Named("api"))
	srv := server.New(config.ListenAddr(v), logger.Named("server"), ready,
		api, ws.NewHandler(hub, logger.Named("ws")))

	if err := ingestor.Start(ctx); err != nil {
		logger.Error("initial ingestion did not start", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func runOnce(ctx context.Context, ingestor *ingest.Ingestor, logger *zap.Logger) {
	if err := ingestor.Run(ctx); err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}
	st := ingestor.State()
	if st.Snapshot == nil {
		logger.Fatal("ingestion produced no snapshot")
	}
	t := st.Snapshot.Totals
	fmt.Printf("buildings=%d floors=%d spaces=%d rooms=%d devices=%d online=%d types=%d\n",
		t.Buildings, t.Floors, t.Spaces, t.Rooms, t.Devices, t.OnlineDevices,
		len(st.Snapshot.DeviceTypes))
}
