package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ruleforge/ruleforge/internal/config"
	"github.com/ruleforge/ruleforge/internal/database"
	"github.com/ruleforge/ruleforge/internal/enrichment"
	"github.com/ruleforge/ruleforge/internal/ingest"
	"github.com/ruleforge/ruleforge/internal/logger"
	"github.com/ruleforge/ruleforge/internal/metrics"
	"github.com/ruleforge/ruleforge/internal/notify"
	"github.com/ruleforge/ruleforge/internal/objectstore"
	"github.com/ruleforge/ruleforge/internal/scheduler"
	"github.com/ruleforge/ruleforge/internal/server"
	"github.com/ruleforge/ruleforge/internal/trigger"
	"github.com/ruleforge/ruleforge/internal/version"
)

func main() {
	// Setup logging with rotation
	logDir := filepath.Join("data", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Fatalf("create log directory: %v", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "ruleforge.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	out := io.MultiWriter(os.Stdout, rotator)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Debug, out)

	logger.Log().Infof("starting %s version %s", version.Name, version.Full())

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	nvd := enrichment.NewNVDClient(cfg.NVDAPIURL, cfg.NVDAPIKey)
	fetcher := enrichment.NewFetcher(db, nvd, cfg.EnrichBatchSize, cfg.EnrichDelay)
	runner := ingest.NewRunner(db)
	notifier := notify.New(cfg.NotifyURL)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "ingest":
		var bucket, key string
		switch len(os.Args) {
		case 3:
			bucket, key = cfg.S3Bucket, os.Args[2]
		case 4:
			bucket, key = os.Args[2], os.Args[3]
		}
		if bucket == "" || key == "" {
			log.Fatalf("usage: %s ingest [bucket] <key> (bucket defaults to RF_S3_BUCKET)", os.Args[0])
		}
		handler, err := newTriggerHandler(cfg, runner)
		if err != nil {
			log.Fatalf("build trigger handler: %v", err)
		}

		event := trigger.Event{Records: []trigger.EventRecord{{
			S3: trigger.S3Entity{
				Bucket: trigger.BucketEntity{Name: bucket},
				Object: trigger.ObjectEntity{Key: key},
			},
		}}}
		res := handler.Handle(context.Background(), event)
		metrics.ObserveIngest(res)
		notifier.RunSummary("Rule ingestion run", res)
		printSummary(res)

	case "enrich":
		res := fetcher.Run(context.Background())
		metrics.ObserveEnrichment(res.Enriched, res.MappingsCreated, res.Errors)
		notifier.RunSummary("Vulnerability enrichment run", res)
		printSummary(res)

	case "serve":
		handler, err := newTriggerHandler(cfg, runner)
		if err != nil {
			log.Fatalf("build trigger handler: %v", err)
		}

		sched, err := scheduler.New(cfg.EnrichSchedule, func() {
			res := fetcher.Run(context.Background())
			metrics.ObserveEnrichment(res.Enriched, res.MappingsCreated, res.Errors)
			notifier.RunSummary("Vulnerability enrichment run", res)
		})
		if err != nil {
			log.Fatalf("start scheduler: %v", err)
		}
		sched.Start()
		defer sched.Stop()

		srv := server.New(cfg, server.Dependencies{
			Trigger:  handler,
			Fetcher:  fetcher,
			Notifier: notifier,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Log().Infof("listening on :%s", cfg.HTTPPort)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("server error: %v", err)
		}

	default:
		log.Fatalf("unknown command %q (expected serve, ingest or enrich)", command)
	}
}

func newTriggerHandler(cfg config.Config, runner *ingest.Runner) (*trigger.Handler, error) {
	store, err := objectstore.New(context.Background(), objectstore.Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}

	return &trigger.Handler{
		Store:   store,
		Runner:  runner,
		Elastic: ingest.NewElasticAdapter(cfg.KibanaURL),
		Trinity: ingest.NewTrinityCyberAdapter(),
	}, nil
}

func printSummary(summary interface{}) {
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatalf("encode run summary: %v", err)
	}
	fmt.Println(string(body))
}
