package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Xassemblianist/ATALWF/internal/acquire"
	"github.com/Xassemblianist/ATALWF/internal/api"
	"github.com/Xassemblianist/ATALWF/internal/config"
	"github.com/Xassemblianist/ATALWF/internal/era5"
	"github.com/Xassemblianist/ATALWF/internal/log"
	"github.com/Xassemblianist/ATALWF/internal/scheduler"
	"github.com/Xassemblianist/ATALWF/internal/store"
	"github.com/Xassemblianist/ATALWF/internal/vm"
	"github.com/Xassemblianist/ATALWF/internal/weather"
)

var (
	configFile = flag.String("config", "config.yaml", "path to the YAML configuration file")
	debug      = flag.Bool("debug", false, "enable debug logging")
	export     = flag.Bool("export", false, "publish the reading from the dataset file to Victoria Metrics and exit")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// log is not initialized yet
		os.Stderr.WriteString("could not load .env: " + err.Error() + "\n")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		os.Stderr.WriteString("could not load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := log.Init(*debug || cfg.Debug); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	logger := log.GetSugaredLogger()

	if *export {
		err = runExport(logger, cfg)
	} else {
		err = serve(logger, cfg)
	}
	if err != nil {
		logger.Errorw("Exiting", "err", err)
		log.Sync()
		os.Exit(1)
	}
}

// newPublisher returns nil when Victoria Metrics is not configured.
func newPublisher(cfg *config.Config) (weather.Publisher, error) {
	if cfg.Metrics.InsertURL == "" {
		return nil, nil
	}
	cli, err := vm.NewClient(log.Named("vm"), cfg.Metrics.InsertURL, cfg.Metrics.MaxConns, cfg.Metrics.MetricPrefix)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

func serve(logger *zap.SugaredLogger, cfg *config.Config) error {
	target := cfg.Target()
	extractor := era5.NewExtractor(cfg.DataFile, target, era5.WithResolver(cfg.Resolver()))

	var acquirer weather.Acquirer
	if cfg.Source.URL != "" {
		a, err := acquire.New(log.Named("acquire"), cfg.Acquire(), cfg.DataFile, target)
		if err != nil {
			return err
		}
		acquirer = a
	} else {
		logger.Warn("No retrieval URL configured; serving the existing dataset only")
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}

	svc := weather.NewService(
		log.Named("weather"),
		acquirer,
		extractor,
		store.NewMemoryStore(cfg.History.MaxReadings, cfg.History.MaxAge),
		publisher,
	)

	srv, err := api.NewServer(log.Named("api"), svc, cfg.Source.Timeout)
	if err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if acquirer != nil {
		sched = scheduler.New(log.Named("scheduler"), svc, cfg.RefreshInterval, cfg.Source.Timeout)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("Listening", "addr", cfg.Listen, "location", target.Name, "hasData", svc.HasData())
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runExport(logger *zap.SugaredLogger, cfg *config.Config) error {
	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	if publisher == nil {
		return errors.New("victoria_metrics.insert_url is required for -export")
	}

	ds, err := era5.OpenDataset(cfg.DataFile)
	if err != nil {
		return err
	}
	logger.Infow("ERA5 summary", ds.Summary()...)
	ds.Close()

	r, err := era5.NewExtractor(cfg.DataFile, cfg.Target(), era5.WithResolver(cfg.Resolver())).Sample()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := publisher.Insert(ctx, []era5.Reading{r}); err != nil {
		return err
	}
	logger.Infow("Exported reading", "validTime", r.ValidTime, "temperature", r.Temperature)
	return nil
}
