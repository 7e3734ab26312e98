package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labchat/internal/config"
	dbRedis "github.com/kailas-cloud/labchat/internal/db/redis"
	"github.com/kailas-cloud/labchat/internal/domain"
	domqa "github.com/kailas-cloud/labchat/internal/domain/qa"
	logpkg "github.com/kailas-cloud/labchat/internal/logger"
	"github.com/kailas-cloud/labchat/internal/metrics"
	qarepo "github.com/kailas-cloud/labchat/internal/repository/qa"
	openaiTransport "github.com/kailas-cloud/labchat/internal/transport/openai"
	ingestuc "github.com/kailas-cloud/labchat/internal/usecase/ingest"
	"github.com/kailas-cloud/labchat/internal/version"
)

var (
	envName     string
	concurrency int
	dropFirst   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "labchat-ingest",
		Short:        "Load troubleshooting Q/A pairs into the labchat vector store",
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "config environment (config/<env>.yaml)")

	ingestCmd := &cobra.Command{
		Use:   "ingest <file.md>",
		Short: "Parse a Markdown file, embed every pair and store it",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	ingestCmd.Flags().IntVar(&concurrency, "concurrency", ingestuc.DefaultConcurrency, "parallel embedding calls")
	ingestCmd.Flags().BoolVar(&dropFirst, "drop-indexes", false, "drop existing vector indexes before ingesting")

	indexesCmd := &cobra.Command{
		Use:   "indexes",
		Short: "Create the vector indexes if they do not exist",
		Args:  cobra.NoArgs,
		RunE:  runIndexes,
	}
	indexesCmd.Flags().BoolVar(&dropFirst, "drop", false, "drop and recreate the indexes")

	parseCmd := &cobra.Command{
		Use:   "parse <file.md>",
		Short: "Print the pairs found in a Markdown file without storing them",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}

	root.AddCommand(ingestCmd, indexesCmd, parseCmd)
	return root
}

// app holds what the store-touching commands share.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store
	repo   *qarepo.Repo
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	keys := domain.Keyspace{Database: cfg.Database.Name, Collection: cfg.Database.Collection}
	repo := qarepo.New(store, keys, cfg.Database.VectorDim).WithHNSW(qarepo.HNSWConfig{
		M:           cfg.Database.HNSWM,
		EFConstruct: cfg.Database.HNSWEFConstruct,
	})

	return &app{cfg: cfg, logger: logger, store: store, repo: repo}, nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

func (a *app) targets() []domain.SearchTarget {
	out := make([]domain.SearchTarget, len(a.cfg.Search.Targets))
	for i, t := range a.cfg.Search.Targets {
		out[i] = domain.SearchTarget{Field: t.Field, Index: t.Index, Candidates: t.Candidates, Limit: t.Limit}
	}
	return out
}

func (a *app) service() *ingestuc.Service {
	metrics.RegisterEmbeddingMetrics()
	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:   a.cfg.OpenAI.APIKey,
		BaseURL:  a.cfg.OpenAI.BaseURL,
		Model:    a.cfg.OpenAI.EmbeddingModel,
		Provider: "openai",
		Timeout:  time.Duration(a.cfg.OpenAI.TimeoutSec) * time.Second,
		Logger:   a.logger,
	})
	return ingestuc.New(embedder, a.repo, a.targets(), a.logger).WithConcurrency(concurrency)
}

func runIngest(cmd *cobra.Command, args []string) error {
	pairs, err := parseFile(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if dropFirst {
		if err := a.repo.DropIndexes(ctx, a.targets()); err != nil {
			return err
		}
	}

	report, err := a.service().Ingest(ctx, pairs)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "parsed %d pairs, stored %d, skipped %d duplicates\n",
		report.Pairs, report.Stored, report.Duplicates)
	for _, name := range report.CreatedIndexes {
		fmt.Fprintf(cmd.OutOrStdout(), "created index %s\n", name)
	}
	return nil
}

func runIndexes(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if dropFirst {
		if err := a.repo.DropIndexes(ctx, a.targets()); err != nil {
			return err
		}
	}

	created, err := a.repo.EnsureIndexes(ctx, a.targets())
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "all indexes already exist")
	}
	for _, name := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "created index %s\n", name)
	}
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	pairs, err := parseFile(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pairs)
}

func parseFile(path string) ([]domqa.Pair, error) {
	src, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ingestuc.ParseMarkdown(src), nil
}
