package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/ledgerlens/internal/clients/frankfurter"
	"github.com/aristath/ledgerlens/internal/clients/nager"
	"github.com/aristath/ledgerlens/internal/config"
	"github.com/aristath/ledgerlens/internal/database"
	"github.com/aristath/ledgerlens/internal/modules/enrich"
	"github.com/aristath/ledgerlens/internal/modules/export"
	"github.com/aristath/ledgerlens/internal/modules/ingest"
	"github.com/aristath/ledgerlens/internal/modules/pipeline"
	"github.com/aristath/ledgerlens/internal/modules/reports"
	"github.com/aristath/ledgerlens/internal/modules/warehouse"
	"github.com/aristath/ledgerlens/internal/scheduler"
	"github.com/aristath/ledgerlens/internal/server"
	"github.com/aristath/ledgerlens/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting LedgerLens")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	repo := warehouse.NewRepository(db, log)
	if err := repo.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize warehouse schema")
	}

	// Enrichment engine with optional external lookups
	var holidays enrich.HolidayLookup
	if cfg.EnableHolidays {
		holidays = nager.NewClient(log)
	}
	var rates enrich.RateLookup
	if cfg.EnableFX {
		rates = frankfurter.NewClient(log)
	}

	engine := enrich.NewEngine(enrich.Settings{
		EnableHolidays:         cfg.EnableHolidays,
		HolidayCountry:         cfg.HolidayCountry,
		EnableFX:               cfg.EnableFX,
		FXTargetCurrency:       cfg.FXTargetCurrency,
		LargeAmountThreshold:   cfg.LargeAmountThreshold,
		OutlierZThreshold:      cfg.OutlierZThreshold,
		RareCategoryRule:       cfg.RareCategoryRule,
		RareCategoryMaxCount:   cfg.RareCategoryMaxCount,
		RecurringMinCount:      cfg.RecurringMinCount,
		DuplicateWindowDays:    cfg.DuplicateWindowDays,
		DuplicateAmountEpsilon: cfg.DuplicateAmountEpsilon,
		MinDescriptionLength:   cfg.MinDescriptionLength,
		QualityWeights:         enrich.DefaultQualityWeights(),
	}, holidays, rates, log)

	// Batch source: real accounts API, or deterministic synthetic data in dev
	var source pipeline.Source
	if cfg.DevMode {
		source = ingest.NewGenerator(1, log)
	} else {
		source = ingest.NewService(cfg.SourceAPIURL, log)
	}

	// Optional S3 upload of SQL dumps
	var uploader *export.Uploader
	if cfg.S3Bucket != "" {
		uploader, err = export.NewUploader(context.Background(), export.Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 uploader")
		}
	}

	pipe := pipeline.NewService(
		source,
		ingest.NewArchive(cfg.DataDir, log),
		engine,
		repo,
		uploader,
		cfg.DataDir,
		log,
	)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := pipe.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("Pipeline run failed")
		}
		return
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if cfg.PipelineSchedule != "" {
		if err := sched.AddJob(cfg.PipelineSchedule, pipeline.NewJob(pipe, 10*time.Minute)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register pipeline job")
		}
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		DB:       db,
		Config:   cfg,
		DevMode:  cfg.DevMode,
		Pipeline: pipe,
		Runs:     repo,
		Reports:  reports.NewService(db, log),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
