// Command server starts the AI interview analyzer HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/events/redpanda"
	httpserver "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/lock/redislock"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/media/ffmpeg"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/speech/gcpspeech"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/storage/local"
	tikaext "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/video/twelvelabs"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/app"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/config"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.AuthEnabled() {
		slog.Error("JWT_SECRET missing; refusing to serve unauthenticated requests")
		os.Exit(1)
	}

	bank, err := config.LoadQuestionBank(cfg.QuestionBankFile)
	if err != nil {
		slog.Error("question bank load failed", slog.String("path", cfg.QuestionBankFile), slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("question bank loaded", slog.Int("questions", len(bank)))

	// Infra: DB pool
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	progressRepo := postgres.NewProgressRepo(pool)
	resultRepo := postgres.NewResultRepo(pool)
	resumeRepo := postgres.NewResumeRepo(pool)
	analysisRepo := postgres.NewResumeAnalysisRepo(pool)

	// Optional per-user lock around question rotation
	var locker domain.UserLocker
	var redisPing app.Pinger
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		locker = redislock.New(rdb, cfg.LockTTL)
		redisPing = app.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		slog.Info("question rotation lock enabled", slog.Duration("ttl", cfg.LockTTL))
	}

	// Optional domain events
	var events domain.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			slog.Error("event publisher setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer pub.Close()
		events = pub
		slog.Info("event publishing enabled", slog.String("topic", cfg.EventsTopic))
	}

	store, err := local.New(cfg.UploadDir)
	if err != nil {
		slog.Error("upload dir setup failed", slog.String("dir", cfg.UploadDir), slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.UploadSweepInterval > 0 {
		go store.RunPeriodic(ctx, cfg.UploadSweepInterval, cfg.UploadMaxAge)
		slog.Info("upload sweeper started", slog.Duration("interval", cfg.UploadSweepInterval), slog.Duration("max_age", cfg.UploadMaxAge))
	}

	ext := tikaext.New(cfg.TikaURL, store.ResumeRoot())

	maxElapsed, initial, maxInterval, multiplier := cfg.GetAIBackoffConfig()
	video := twelvelabs.New(twelvelabs.Config{
		BaseURL:      cfg.TwelveLabsBaseURL,
		APIKey:       cfg.TwelveLabsAPIKey,
		IndexID:      cfg.TwelveLabsIndexID,
		PollInterval: cfg.TwelveLabsPollInterval,
		MaxWait:      cfg.TwelveLabsMaxWait,
		Backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = maxElapsed
			b.InitialInterval = initial
			b.MaxInterval = maxInterval
			b.Multiplier = multiplier
			return b
		},
		Breaker: observability.NewCircuitBreaker("twelvelabs", cfg.BreakerMaxFailures, cfg.BreakerCooldown),
	})
	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := video.Ping(pingCtx); err != nil {
		slog.Warn("twelvelabs connection check failed", slog.Any("error", err))
	}
	cancelPing()

	gen, err := gemini.New(ctx, cfg.GeminiAPIKey, gemini.Options{
		Model:              cfg.GeminiModel,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerCooldown:    cfg.BreakerCooldown,
	})
	if err != nil {
		slog.Error("gemini client setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = gen.Close() }()

	speech, err := gcpspeech.New(ctx, cfg.SpeechLanguageCode, gcpspeech.ClientOptions(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)...)
	if err != nil {
		slog.Error("speech client setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = speech.Close() }()

	audio := ffmpeg.New(cfg.FFmpegPath)
	if err := audio.AssertReady(); err != nil {
		slog.Warn("ffmpeg unavailable; transcripts will be empty", slog.Any("error", err))
	}

	// Usecases
	questionSvc := usecase.NewQuestionService(progressRepo, locker, bank)
	transcriptSvc := usecase.NewTranscriptService(audio, speech, store.TempDir())
	analysisSvc := usecase.NewAnalysisService(progressRepo, video, transcriptSvc, usecase.NewEvaluationService(gen), resultRepo, events)
	analysisSvc.MaxBytes = cfg.MaxVideoBytes
	historySvc := usecase.NewHistoryService(resultRepo)
	resumeSvc := usecase.NewResumeService(resumeRepo, analysisRepo, ext, gen)
	resumeSvc.Budget = tokencount.NewCounter(cfg.GeminiModel)
	resumeSvc.MaxPromptTokens = cfg.ResumePromptMaxTokens
	resumeSvc.Events = events

	checks := app.BuildReadinessChecks(cfg, pool, redisPing, ext)
	srv := httpserver.NewServer(cfg, questionSvc, analysisSvc, historySvc, resumeSvc, store, checks...)
	handler := app.BuildRouter(cfg, srv, httpserver.NewTokenVerifier(cfg.JWTSecret))

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown", slog.Any("error", err))
	}
}
