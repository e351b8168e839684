// Command evaluator runs the conversation evaluation pipeline: on a
// schedule (or once, for ad hoc runs) it discovers coaching
// conversations that have not been evaluated, scores each with every
// configured judge, and persists the combined evaluation records.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/caarlos0/env/v6"
	"github.com/chainguard-dev/clog"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/coacheval/infrastructure/judge"
	"github.com/ahrav/coacheval/infrastructure/middleware"
	"github.com/ahrav/coacheval/infrastructure/store/dynamo"
	"github.com/ahrav/coacheval/internal/application"
	"github.com/ahrav/coacheval/internal/ports"
)

type envConfig struct {
	// JudgesConfig is the path to the YAML file declaring the judge set.
	JudgesConfig string `env:"JUDGES_CONFIG" envDefault:"judges.yaml"`

	// Schedule is the cron spec for periodic batches.
	Schedule string `env:"EVAL_SCHEDULE" envDefault:"@every 1h"`

	// RunOnce executes a single batch and exits instead of scheduling.
	RunOnce bool `env:"EVAL_RUN_ONCE" envDefault:"false"`

	// ConversationDelay spaces consecutive conversations within a batch.
	ConversationDelay time.Duration `env:"CONVERSATION_DELAY" envDefault:"1s"`

	// JudgeConcurrency bounds concurrent judge calls per conversation.
	JudgeConcurrency int `env:"JUDGE_CONCURRENCY" envDefault:"5"`

	// MetricsAddr serves the Prometheus scrape endpoint.
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	AWSRegion        string `env:"AWS_REGION" envDefault:"us-east-1"`
	DynamoEndpoint   string `env:"DYNAMO_ENDPOINT"`
	ChatsTable       string `env:"CHATS_TABLE"`
	UsersTable       string `env:"USERS_TABLE"`
	EvaluationsTable string `env:"EVALUATIONS_TABLE"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		clog.InfoContextf(ctx, "no .env file loaded: %v", err)
	}

	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		clog.FatalContextf(ctx, "failed to parse environment: %v", err)
	}

	judges, err := buildJudges(cfg.JudgesConfig)
	if err != nil {
		clog.FatalContextf(ctx, "failed to configure judges: %v", err)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "failed to configure store: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)
	go serveMetrics(ctx, cfg.MetricsAddr, reg)

	evaluator, err := application.NewEvaluator(store, judges, application.Config{
		ConversationDelay: cfg.ConversationDelay,
		JudgeConcurrency:  cfg.JudgeConcurrency,
	}, metrics)
	if err != nil {
		clog.FatalContextf(ctx, "failed to create evaluator: %v", err)
	}

	if cfg.RunOnce {
		if err := evaluator.Run(ctx); err != nil {
			clog.FatalContextf(ctx, "evaluation batch failed: %v", err)
		}
		return
	}

	sched := application.NewScheduler(cfg.Schedule, evaluator.Run)
	if err := sched.Start(ctx); err != nil {
		clog.FatalContextf(ctx, "failed to start scheduler: %v", err)
	}
	clog.InfoContextf(ctx, "evaluator started, schedule %q", cfg.Schedule)

	<-ctx.Done()
	sched.Stop()
	clog.InfoContextf(context.Background(), "evaluator stopped")
}

// buildJudges loads the judge set and wraps each client with tracing.
func buildJudges(path string) ([]ports.Judge, error) {
	configs, err := judge.LoadConfigs(path)
	if err != nil {
		return nil, err
	}

	judges := make([]ports.Judge, 0, len(configs))
	for _, jc := range configs {
		client, err := judge.NewStreamClient(jc)
		if err != nil {
			return nil, err
		}
		judges = append(judges, judge.WithTracing(client))
	}
	return judges, nil
}

// buildStore assembles the DynamoDB-backed conversation store. A
// configured endpoint override targets a local DynamoDB with static
// development credentials.
func buildStore(ctx context.Context, cfg envConfig) (*dynamo.Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.DynamoEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	})

	tables := dynamo.DefaultTables()
	if cfg.ChatsTable != "" {
		tables.Chats = cfg.ChatsTable
	}
	if cfg.UsersTable != "" {
		tables.Users = cfg.UsersTable
	}
	if cfg.EvaluationsTable != "" {
		tables.Evaluations = cfg.EvaluationsTable
	}
	return dynamo.New(client, tables)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		clog.ErrorContextf(ctx, "metrics server failed: %v", err)
	}
}
