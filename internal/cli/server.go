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

	"journey-quiz-service/internal/app"
	"journey-quiz-service/internal/config"
	"journey-quiz-service/internal/domain"
	"journey-quiz-service/internal/infra/memory"
	pginfra "journey-quiz-service/internal/infra/postgres"
	redisinfra "journey-quiz-service/internal/infra/redis"
	"journey-quiz-service/internal/scoring"
	transport "journey-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session/attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
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

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pginfra.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		// redis.ttl overrides quiz.ttl for Redis-held entries.
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, quizTTL))
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	var attempts app.AttemptRepository
	var ledger app.AnswerLedger
	if pool != nil {
		sessions = pginfra.NewSessionRepository(pool)
		attempts = pginfra.NewAttemptRepository(pool)
		ledger = pginfra.NewAnswerLedger(pool)
	} else {
		sessions = memory.NewSessionRepository()
		attempts = memory.NewAttemptRepository()
		ledger = memory.NewAnswerLedger()
	}

	strategy, err := scoring.FromName(cfg.Quiz.Scoring)
	if err != nil {
		return err
	}

	broadcaster := app.NewLiveBroadcaster()
	ranking := app.NewRankingCoordinator(sessions, attempts, nil, broadcaster.Publish)
	sessionEngine := app.NewSessionEngine(sessions, quizRepo, ledger, ranking, nil, strategy)
	attemptEngine := app.NewAttemptEngine(attempts, quizRepo, ledger, ranking, memory.AllowAllAccess{}, strategy)
	wsHandler := transport.NewWSHandler(sessionEngine, broadcaster)
	sessionHandler := transport.NewSessionHandler(sessionEngine)
	attemptHandler := transport.NewAttemptHandler(attemptEngine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	sessionHandler.Register(mux)
	attemptHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting journey quiz service on :%s (scoring=%s)", finalPort, strategy.Name())
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

// sampleQuizzes provides minimal demo content for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Alternatives: []domain.Alternative{
						{ID: "a1", Text: "3", Correct: false},
						{ID: "a2", Text: "4", Correct: true},
						{ID: "a3", Text: "5", Correct: false},
					},
					Points:           100,
					TimeLimitSeconds: 30,
				},
			},
		},
	}
}
