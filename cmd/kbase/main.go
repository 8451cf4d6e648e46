package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/chunker"
	"github.com/xxxsen/kbase/internal/config"
	"github.com/xxxsen/kbase/internal/filestore"
	"github.com/xxxsen/kbase/internal/handler"
	"github.com/xxxsen/kbase/internal/job"
	"github.com/xxxsen/kbase/internal/middleware"
	"github.com/xxxsen/kbase/internal/query"
	"github.com/xxxsen/kbase/internal/queue"
	"github.com/xxxsen/kbase/internal/repo"
	"github.com/xxxsen/kbase/internal/rerank"
	"github.com/xxxsen/kbase/internal/schedule"
	"github.com/xxxsen/kbase/internal/service"
	"github.com/xxxsen/kbase/internal/vectorindex"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "kbase",
		Short: "knowledge base retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run kbase server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(buildDSN(cfg))
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db, cfg.AI.EmbedDim); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode)
}

func runServer(cfg *config.Config, db *sql.DB) error {
	rootLogger := logutil.GetLogger(context.Background())
	rootLogger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.String("object_store", cfg.Store.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	docRepo := repo.NewDocumentRepo(db)
	kbRepo := repo.NewKnowledgeBaseRepo(db)

	blobs, err := filestore.New(cfg.Store.Type, cfg.Store.Data)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	chatProvider, err := ai.NewChatProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	aiTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	chatClient := ai.NewChatClient(chatProvider, cfg.AI.ChatModel, aiTimeout)
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel, aiTimeout, cfg.AI.EmbedCacheSize)

	index := vectorindex.NewPGVectorIndex(db, cfg.Search.ScoreOffset)

	ingestQueue := queue.NewMemoryQueue(cfg.Ingest.QueueWorkers, cfg.Ingest.MaxRetries)
	embedQueue := queue.NewMemoryQueue(cfg.Ingest.QueueWorkers, cfg.Ingest.MaxRetries)

	ingestService := service.NewIngestService(docRepo, kbRepo, blobs, index,
		ingestQueue, embedQueue, chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap))
	indexService := service.NewIndexService(docRepo, blobs, embedder, index,
		cfg.Ingest.CompletionAttempts, time.Duration(cfg.Ingest.CompletionDelayMS)*time.Millisecond)

	understander := query.NewUnderstander(
		query.NewLLMClassifier(chatClient),
		query.NewHeuristicClassifier(),
	)
	searchService := service.NewSearchService(kbRepo, understander, embedder, index,
		rerank.New(), cfg.Search.DefaultLimit, cfg.Search.DefaultThreshold)

	deps := handler.RouterDeps{
		KnowledgeBases: handler.NewKnowledgeBaseHandler(kbRepo, docRepo, ingestService),
		Documents:      handler.NewDocumentHandler(ingestService, docRepo),
		Search:         handler.NewSearchHandler(searchService),
		JWTSecret:      []byte(cfg.JWTSecret),
		SearchWindow:   time.Duration(cfg.Search.RateLimitWindowMS) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingestQueue.Start(ctx, ingestService.HandleIngestMessage)
	embedQueue.Start(ctx, indexService.HandleEmbedMessage)
	defer ingestQueue.Stop()
	defer embedQueue.Stop()

	stuckAge := time.Duration(cfg.Ingest.RetryStuckAfterMins) * time.Minute
	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewCompletionSweepJob(docRepo, indexService, stuckAge), "*/5 * * * *"); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewIngestRetryJob(docRepo, ingestService, stuckAge), "*/10 * * * *"); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	rootLogger.Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			rootLogger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	rootLogger.Info("server stopping...")
	return nil
}
