package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pixshift/config"
	"pixshift/credentials"
	"pixshift/encoder"
	"pixshift/job"
	"pixshift/logger"
	"pixshift/models"
	"pixshift/routes"
	"pixshift/store"
	writerbackends "pixshift/writerBackends"

	"golang.org/x/sync/errgroup"
)

const usage = `usage: pixshift <command> [flags]

commands:
  convert [flags] <file or URL>...   convert images with the saved settings
  serve                              start the HTTP API
  settings [show|reset|profiles]     inspect the saved settings
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ApplyLogging(); err != nil {
		logger.Fatalf("Failed to configure logging: %v", err)
	}
	defer logger.Close()

	logger.Debug("Opening settings database")
	db, err := store.Open(config.GetSettingsDBPath())
	if err != nil {
		logger.Fatalf("Failed to open settings database: %v", err)
	}
	defer db.Close()
	settings := store.NewSettingsStore(db)

	logger.Debug("Opening credentials database")
	if err := credentials.OpenDB(config.GetCredentialsDBPath()); err != nil {
		logger.Fatalf("Failed to open credentials database: %v", err)
	}
	defer credentials.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "convert":
		err = runConvert(ctx, cfg, settings, os.Args[2:])
	case "serve":
		err = runServe(ctx, cfg, settings)
	case "settings":
		err = runSettings(cfg, settings, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Errorf("%s: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func runConvert(ctx context.Context, cfg config.Config, settings *store.SettingsStore, args []string) error {
	st, err := settings.Load(cfg.Profile)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	format := fs.String("format", st.TargetFormat, "target format (webp, jpeg, png, avif, tiff, gif, bmp)")
	quality := fs.Int("quality", -1, "encoder quality 0..100 (default: saved quality for the format)")
	speed := fs.Int("speed", st.AVIFSpeed, "avif encoder speed 1..10")
	outDir := fs.String("out", st.OutputDir, "output directory, or "+models.UseSourceDir)
	subfolder := fs.String("subfolder", "", "write into this subfolder of the output directory")
	concurrency := fs.Uint("concurrency", st.Concurrency, "jobs converted at once (0 = all CPUs)")
	noExif := fs.Bool("no-exif", !st.PreserveExif, "drop the EXIF block")
	noTimes := fs.Bool("no-times", !st.PreserveTimestamps, "do not copy source file times")
	fallback := fs.String("fallback-dir", st.RemoteFallbackDir, "output directory for URL inputs when writing beside sources")
	report := fs.String("report", "", "write a JSON report of the batch to this path")
	publish := fs.Bool("publish", false, "upload results to the configured publish targets")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return errors.New("no input files")
	}

	st.TargetFormat = *format
	req := st.BatchRequest()
	if *quality >= 0 {
		req.Quality = uint8(min(*quality, 100))
	}
	req.Speed = speedFlag(*speed)
	req.OutputDir = *outDir
	req.Concurrency = *concurrency
	req.PreserveExif = !*noExif
	req.PreserveTimestamps = !*noTimes
	req.RemoteFallbackDir = *fallback
	if *subfolder != "" {
		req.CreateSubfolder = true
		req.SubfolderName = *subfolder
	}

	reg := job.NewRegistry()
	client := &http.Client{Timeout: cfg.FetchTimeout}
	for _, in := range fs.Args() {
		var j models.ConversionJob
		if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
			j, err = job.FromURL(ctx, client, in)
		} else {
			j, err = job.FromPath(in)
		}
		if err != nil {
			logger.Errorf("Skipping %s: %v", in, err)
			continue
		}
		if err := reg.Add(j); err != nil {
			logger.Warnf("Skipping %s: %v", in, err)
		}
	}

	progress := func(ev models.ProgressEvent) {
		switch ev.Status {
		case models.StatusCompleted:
			fmt.Printf("converted  %s -> %s\n", ev.JobName, ev.SavedPath)
		case models.StatusSkipped:
			fmt.Printf("skipped    %s (%s exists)\n", ev.JobName, ev.SavedPath)
		case models.StatusError:
			fmt.Printf("failed     %s: %s\n", ev.JobName, ev.ErrorMessage)
		}
	}

	batch := job.NewBatch(reg, &job.Scheduler{Progress: progress})
	outcomes, err := batch.Run(ctx, req)
	if err != nil {
		return err
	}
	results := job.Results(outcomes)

	var original, saved uint64
	for _, res := range results {
		original += res.OriginalSize
		saved += res.ConvertedSize
	}
	fmt.Printf("%d of %d converted, %d -> %d bytes\n", len(results), len(outcomes), original, saved)

	if *report != "" {
		if err := job.WriteReport(*report, job.NewReport(req, outcomes)); err != nil {
			return err
		}
	}

	if *publish {
		if len(cfg.PublishTargets) == 0 {
			return errors.New("no publish targets configured")
		}
		failures := writerbackends.Publish(ctx, cfg.PublishTargets, results, cfg.PublishConcurrency)
		for _, f := range failures {
			fmt.Printf("publish failed  %s -> %s: %s\n", f.File, f.Target, f.Error)
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Kind == models.OutcomeFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
	}
	return nil
}

func runServe(ctx context.Context, cfg config.Config, settings *store.SettingsStore) error {
	handlers := routes.NewHandlers(cfg, settings)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("pixshift server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runSettings(cfg config.Config, settings *store.SettingsStore, args []string) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "show":
		st, err := settings.Load(cfg.Profile)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "reset":
		if err := settings.Reset(cfg.Profile); err != nil {
			return err
		}
		fmt.Printf("settings profile %q reset to defaults\n", cfg.Profile)
		return nil
	case "profiles":
		names, err := settings.Profiles()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	default:
		return fmt.Errorf("unknown settings action %q", action)
	}
}

// speedFlag clamps the -speed flag into the AVIF range before narrowing it.
func speedFlag(v int) uint8 {
	return uint8(encoder.ClampSpeed(v))
}
