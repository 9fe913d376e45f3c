package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/checkpoint"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/classifier"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/config"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/conversation"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/embeddings"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/events"
	httpserver "github.com/PandyaSumit/mini--AI-tutor-sub008/internal/http"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/kvstore"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/llm"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/logging"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/telemetry"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/tutor"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

// app owns every long-lived dependency. closers run in reverse order.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	logger  *zap.Logger
	index   *vectorstore.Service
	server  *httpserver.Server
	closers []func() error
}

// newApp initializes dependencies in order:
//  1. configuration, logging, telemetry
//  2. key-value stores (primary and optional archive)
//  3. embedding provider and cache pipeline
//  4. vector index
//  5. completion client, router, context manager, event publisher
//  6. tutor service and HTTP server
func newApp(ctx context.Context, configPath string) (_ *app, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// The global log provider forwards to the one telemetry installs below.
	lg, err := logging.New(&cfg.Logging, global.GetLoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, log: lg, logger: lg.Underlying()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	lg.Info(ctx, "starting tutord",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("auth", cfg.Server.AuthToken.IsSet()),
	)

	tel, err := telemetry.New(ctx, &cfg.Telemetry, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return tel.Shutdown(shutdownCtx)
	})

	store, err := kvstore.New(ctx, cfg.Store, a.logger.Named("kvstore"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	var archive kvstore.Store
	if cfg.ArchiveEnabled() {
		archive, err = kvstore.New(ctx, cfg.Archive, a.logger.Named("archive"))
		if err != nil {
			return nil, fmt.Errorf("failed to open archive store: %w", err)
		}
		a.closers = append(a.closers, archive.Close)
	}

	provider, err := embeddings.NewProvider(cfg.Embeddings.ProviderConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	pipeline, err := embeddings.NewPipeline(provider, store, cfg.Embeddings.Pipeline(), a.logger.Named("embeddings"))
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}
	a.closers = append(a.closers, pipeline.Close)

	vs, err := vectorstore.NewStore(cfg.VectorStore, pipeline, a.logger.Named("vectorstore"))
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	a.index = vectorstore.NewService(vs, cfg.VectorStore.Collections, cfg.VectorStore.VectorSize, a.logger.Named("vectorstore"))
	a.closers = append(a.closers, a.index.Close)

	client, err := llm.New(cfg.LLM, a.logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	router := classifier.New(cfg.Classifier,
		classifier.WithEmbedder(pipeline),
		classifier.WithIndex(a.index),
		classifier.WithLogger(a.logger.Named("classifier")),
	)
	if err := telemetry.RegisterCollectors(prometheus.DefaultRegisterer, classifier.NewCollector(router)); err != nil {
		return nil, fmt.Errorf("failed to register classifier metrics: %w", err)
	}

	checkpoints, err := checkpoint.NewService(&cfg.Checkpoint, store, a.logger.Named("checkpoint"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint service: %w", err)
	}
	a.closers = append(a.closers, checkpoints.Close)

	publisher, err := events.New(cfg.Events, a.logger.Named("events"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)

	contexts := conversation.NewManager(cfg.Conversation,
		conversation.NewLLMSummarizer(client), a.logger.Named("conversation"))

	opts := []tutor.Option{
		tutor.WithContextManager(contexts),
		tutor.WithRouter(router),
		tutor.WithIndex(a.index),
		tutor.WithPublisher(publisher),
		tutor.WithLogger(a.logger.Named("tutor")),
	}
	if archive != nil {
		opts = append(opts, tutor.WithArchive(archive))
	}
	tutorSvc, err := tutor.NewService(cfg.Tutor, client, checkpoints, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tutor service: %w", err)
	}

	a.server, err = httpserver.NewServer(&httpserver.Config{
		Addr:           cfg.Server.Addr,
		RequestTimeout: cfg.Server.RequestTimeout.Duration(),
		BodyLimit:      cfg.Server.BodyLimit,
		AuthToken:      cfg.Server.AuthToken.Value(),
		Version:        version,
	}, httpserver.Deps{
		Classifier: router,
		Embedder:   pipeline,
		Index:      a.index,
		Tutor:      tutorSvc,
		Gatherer:   prometheus.DefaultGatherer,
	}, a.logger.Named("http"))
	if err != nil {
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}

	return a, nil
}

// Serve starts the index and the HTTP server and blocks until ctx is done.
func (a *app) Serve(ctx context.Context) error {
	go a.startIndex(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// startIndex creates configured collections, retrying while the backend is
// unreachable. Index routes answer not-ready until it succeeds.
func (a *app) startIndex(ctx context.Context) {
	backoff := time.Second
	for {
		err := a.index.Start(ctx)
		if err == nil {
			return
		}
		a.log.Warn(ctx, "vector store not ready, retrying", zap.Error(err), zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// Close releases dependencies in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
