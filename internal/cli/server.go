package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"kotoba-quiz-service/internal/app"
	"kotoba-quiz-service/internal/config"
	"kotoba-quiz-service/internal/domain"
	"kotoba-quiz-service/internal/infra/memory"
	pgloader "kotoba-quiz-service/internal/infra/postgres"
	infraredis "kotoba-quiz-service/internal/infra/redis"
	transport "kotoba-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port, redisAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, *redisAddr)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag, redisAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ContentLoader = memory.NewStaticContentLoader(sampleContentSets())
	if pool != nil {
		loader = pgloader.NewContentLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Quiz.ContentTTL, 10*time.Minute)
	var content app.ContentRepository
	if redisClient != nil {
		content = infraredis.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		content = memory.NewContentRepository(loader, contentTTL)
	}

	var progress app.ProgressSink = memory.NewProgressLog()
	if redisClient != nil {
		progress = infraredis.NewProgressSink(redisClient, cfg.Redis.KeepProgress)
	}

	service := app.NewQuizService(memory.NewSessionStore(), content, progress, logAnnouncer{}, app.Options{
		CloseThreshold:  cfg.Quiz.CloseThreshold,
		DistractorCount: cfg.Quiz.DistractorCount,
		Timing: app.TimingPolicy{
			CountdownByDifficulty: cfg.Countdowns(),
			DefaultCountdown:      config.TTLDuration(cfg.Quiz.DefaultCountdown, 0),
			AdvanceCorrect:        config.TTLDuration(cfg.Quiz.AdvanceCorrect, 0),
			AdvanceWrong:          config.TTLDuration(cfg.Quiz.AdvanceWrong, 0),
		},
	})
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting kotoba quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// logAnnouncer stands in for the TTS collaborator: announcements are logged
// so operators can see prompts flowing even without an audio backend.
type logAnnouncer struct{}

func (logAnnouncer) AnnouncePrompt(surface, audioURL string) {
	if audioURL != "" {
		log.Printf("announce prompt %q (audio %s)", surface, audioURL)
		return
	}
	log.Printf("announce prompt %q", surface)
}

// sampleContentSets provides built-in pools so the server runs with no
// database configured; swap the loader for the postgres one in production.
func sampleContentSets() map[string]domain.ContentSet {
	return map[string]domain.ContentSet{
		"hiragana": {
			ID: "hiragana",
			Items: []domain.ContentItem{
				{Surface: "あ", Answer: "a"},
				{Surface: "い", Answer: "i"},
				{Surface: "う", Answer: "u"},
				{Surface: "え", Answer: "e"},
				{Surface: "お", Answer: "o"},
				{Surface: "か", Answer: "ka"},
				{Surface: "き", Answer: "ki"},
				{Surface: "く", Answer: "ku"},
				{Surface: "け", Answer: "ke"},
				{Surface: "こ", Answer: "ko"},
			},
		},
		"katakana": {
			ID: "katakana",
			Items: []domain.ContentItem{
				{Surface: "ア", Answer: "a"},
				{Surface: "イ", Answer: "i"},
				{Surface: "ウ", Answer: "u"},
				{Surface: "エ", Answer: "e"},
				{Surface: "オ", Answer: "o"},
			},
		},
		"vocab-n5": {
			ID: "vocab-n5",
			Items: []domain.ContentItem{
				{Surface: "ねこ", Answer: "neko", Meaning: "cat", Difficulty: "n5"},
				{Surface: "いぬ", Answer: "inu", Meaning: "dog", Difficulty: "n5"},
				{Surface: "とうきょう", Answer: "tōkyō", Alternates: []string{"toukyou"}, Meaning: "Tokyo", Difficulty: "n5"},
				{Surface: "ありがとう", Answer: "arigatou", Meaning: "thank you", Difficulty: "n5"},
				{Surface: "ケーキ", Answer: "keeki", Meaning: "cake", Difficulty: "n5"},
			},
		},
	}
}
