// cmd/intake-runner/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reprocess-intake/internal/catalog"
	commonaws "reprocess-intake/internal/common/aws"
	"reprocess-intake/internal/common/config"
	"reprocess-intake/internal/common/database"
	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/intake/archive"
	"reprocess-intake/internal/intake/dispatch"
	"reprocess-intake/internal/intake/expand"
	"reprocess-intake/internal/intake/notify"
	"reprocess-intake/internal/intake/pipeline"
	"reprocess-intake/internal/intake/validator"
	"reprocess-intake/internal/models"
	"reprocess-intake/pkg/registry"
)

func main() {
	requestFile := flag.String("request-file", "", "Path to the submission request.json")
	submitter := flag.String("submitter", "", "Authenticated submitter identity (e.g. the PR author)")
	timestamp := flag.String("timestamp", time.Now().UTC().Format("20060102150405"), "Submission timestamp, YYYYMMDDHHMMSS")
	schemaPath := flag.String("schema", "schemas/request-schema.json", "Path to the request JSON schema")
	reportPath := flag.String("report", "", "Report output path (default: config report.output_path, else stdout)")
	keepIntake := flag.Bool("keep-intake", false, "Leave the intake file in place after archiving")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address for the duration of the run (e.g. :9090)")
	configPath := flag.String("config", "", "Explicit config file path (default: search ./configs)")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if *requestFile == "" || *submitter == "" {
		fmt.Fprintln(os.Stderr, "usage: intake-runner -request-file <path> -submitter <identity> [-timestamp YYYYMMDDHHMMSS]")
		os.Exit(2)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	if cfg.Logging.Level != "" {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		log = logger.NewZapAdapter(zapLog)
	}

	// In-flight dispatches finish on SIGINT/SIGTERM; no new ones start.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn("metrics listener stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	report, err := run(ctx, cfg, log, *requestFile, *schemaPath, models.SubmissionContext{
		Submitter: *submitter,
		Timestamp: *timestamp,
	}, *keepIntake)
	if err != nil {
		zapLog.Error("submission processing failed", zap.Error(err))
		os.Exit(2)
	}

	out := *reportPath
	if out == "" {
		out = cfg.Report.OutputPath
	}
	if err := writeReport(report, out); err != nil {
		zapLog.Error("report write failed", zap.Error(err))
		os.Exit(2)
	}

	log.Info("run complete", map[string]interface{}{
		"submissionId": report.SubmissionID,
		"accepted":     report.Accepted(),
		"failed":       report.Failed(),
		"failedItems":  report.FailedItems(),
	})

	if report.Failed() > 0 || report.FailedItems() > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger, requestFile, schemaPath string, sub models.SubmissionContext, keepIntake bool) (*models.SubmissionReport, error) {
	raw, err := os.ReadFile(requestFile)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	reg, err := registry.LoadRegistry(cfg.Mission.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load instrument registry: %w", err)
	}

	v, err := validator.New(schemaPath, reg, log)
	if err != nil {
		return nil, err
	}

	res, err := buildReservation(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := archive.NewStore(cfg.Archive.Root, res, log)

	cat, err := buildCatalog(cfg)
	if err != nil {
		return nil, err
	}
	gen := expand.NewGenerator(catalog.NewRegistryBoundary(reg), log)

	invoker, err := buildInvoker(ctx, cfg, cat)
	if err != nil {
		return nil, err
	}
	disp := dispatch.New(invoker,
		cfg.Dispatch.GetMaxAttempts(),
		cfg.Dispatch.GetInitialBackoff(),
		cfg.Dispatch.GetTimeout(),
		log)

	pipe := pipeline.New(v, store, gen, disp, cfg.Dispatch.GetMaxParallel(), log)

	report, err := pipe.Process(ctx, raw, sub)
	if err != nil {
		return nil, err
	}

	if !keepIntake {
		if err := store.ClearIntake(requestFile); err != nil {
			log.Warn("intake file not cleared", map[string]interface{}{"error": err.Error()})
		}
	}

	if cfg.AWS.SES.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			log.Warn("ses client unavailable, skipping notification", map[string]interface{}{"error": err.Error()})
		} else {
			n := notify.New(sesClient, cfg.AWS.SES.FromEmail, cfg.AWS.SES.Recipients, log)
			_ = n.SendReport(ctx, report)
		}
	}

	return report, nil
}

func buildReservation(ctx context.Context, cfg *config.Config) (archive.Reservation, error) {
	switch cfg.Archive.Reservation.Backend {
	case "redis":
		rc, err := database.NewRedis(cfg.Archive.Reservation.Redis)
		if err != nil {
			return nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			return nil, err
		}
		return archive.NewRedisReservation(rc.Client), nil
	case "postgres":
		pc, err := database.NewPostgres(cfg.Archive.Reservation.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pc.Ping(ctx); err != nil {
			return nil, err
		}
		res := archive.NewPostgresReservation(pc.DB)
		if err := res.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return res, nil
	default:
		return archive.NewMemoryReservation(), nil
	}
}

func buildCatalog(cfg *config.Config) (catalog.Catalog, error) {
	switch cfg.Catalog.Backend {
	case "elasticsearch":
		es, err := database.NewElasticsearch(cfg.Catalog.Elasticsearch)
		if err != nil {
			return nil, err
		}
		return catalog.NewElasticsearchCatalog(es.Client, cfg.Catalog.Index), nil
	default:
		// Without a file index, filename payloads pass through unresolved.
		return nil, nil
	}
}

func buildInvoker(ctx context.Context, cfg *config.Config, cat catalog.Catalog) (dispatch.Invoker, error) {
	envelope := &dispatch.EnvelopeBuilder{Catalog: cat}
	switch cfg.Dispatch.Backend {
	case "sns":
		client, err := commonaws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		return dispatch.NewSNSInvoker(client, cfg.Dispatch.TopicARN, envelope), nil
	default:
		client, err := commonaws.NewLambdaClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		return dispatch.NewLambdaInvoker(client, cfg.Dispatch.FunctionName, envelope), nil
	}
}

func writeReport(report *models.SubmissionReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
