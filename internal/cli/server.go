package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"gesture-quiz-service/internal/app"
	"gesture-quiz-service/internal/config"
	"gesture-quiz-service/internal/domain"
	"gesture-quiz-service/internal/gesture"
	"gesture-quiz-service/internal/infra/gemini"
	"gesture-quiz-service/internal/infra/memory"
	pgstore "gesture-quiz-service/internal/infra/postgres"
	redisstore "gesture-quiz-service/internal/infra/redis"
	"gesture-quiz-service/internal/logger"
	"gesture-quiz-service/internal/metrics"
	"gesture-quiz-service/internal/tracing"
	transport "gesture-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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

	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()

	if cfg.Classifier.APIKey == "" {
		return errors.New("classifier api key not configured (classifier.api_key or GEMINI_API_KEY)")
	}

	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = "gesture-quiz-service"
	}
	shutdownTracing, err := tracing.Init(serviceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	metrics.Register(prometheus.DefaultRegisterer)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := listenPort(portFlag, cfg)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = openBun(cfg.Postgres.URL)
		defer db.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var attempts app.AttemptStore = memory.NewAttemptStore()
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
		attempts = pgstore.NewAttemptStore(db)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo    app.QuizRepository
		sessions    app.SessionRepository
		leaderboard app.Leaderboard
		wsOpts      []transport.WSOption
	)
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL, log)
		sessionStore := redisstore.NewSessionStore(redisClient, redisTTL, log)
		sessions = sessionStore
		leaderboard = redisstore.NewLeaderboard(redisClient)
		wsOpts = append(wsOpts, transport.WithHeartbeat(sessionStore.Touch))
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		sessions = memory.NewSessionStore()
		leaderboard = memory.NewLeaderboard()
	}

	classifier, err := gemini.New(ctx, gemini.Config{
		APIKey:            cfg.Classifier.APIKey,
		Model:             cfg.Classifier.Model,
		RequestsPerSecond: cfg.Classifier.RequestsPerSecond,
		Burst:             cfg.Classifier.Burst,
	}, log)
	if err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}

	settings := settingsFromConfig(cfg)
	service := app.NewQuizService(app.Dependencies{
		Sessions:    sessions,
		Quizzes:     quizRepo,
		Attempts:    attempts,
		Leaderboard: leaderboard,
		Classifier:  classifier,
		Guard:       gesture.NewGuard(settings.Cooldown),
		Settings:    settings,
		Logger:      log,
	})

	frameMaxAge := config.Duration(cfg.Gesture.FrameMaxAge, 3*time.Second)
	wsHandler := transport.NewWSHandler(service, frameMaxAge, log, wsOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/metrics", metrics.Handler())
	transport.NewAPIHandler(service, log).Register(mux)

	// No WriteTimeout: websocket connections outlive any fixed write deadline.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting gesture quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// listenPort prefers the --port flag (or PORT), then server.port, then 8080.
func listenPort(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.Server.Port != "" {
		return cfg.Server.Port
	}
	return "8080"
}

func settingsFromConfig(cfg config.Config) app.Settings {
	def := app.DefaultSettings()
	return app.Settings{
		PollInterval:       config.Duration(cfg.Gesture.PollInterval, def.PollInterval),
		StabilityThreshold: config.Int(cfg.Gesture.StabilityThreshold, def.StabilityThreshold),
		BurstSize:          config.Int(cfg.Gesture.BurstSize, def.BurstSize),
		BurstDelay:         config.Duration(cfg.Gesture.BurstDelay, def.BurstDelay),
		ClassifierTimeout:  config.Duration(cfg.Gesture.ClassifierTimeout, def.ClassifierTimeout),
		Cooldown:           config.Duration(cfg.Gesture.Cooldown, def.Cooldown),
	}
}

// sampleQuizzes serves quizzes when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Animals",
			Questions: []domain.Question{
				domain.ChoiceQuestion{
					ID:           "q1",
					Text:         "Which animal barks?",
					Options:      []string{"Cat", "Dog", "Cow", "Owl"},
					CorrectIndex: 1,
				},
				domain.ChoiceQuestion{
					ID:           "q2",
					Text:         "Cows drink milk.",
					TrueFalse:    true,
					Options:      []string{"True", "False"},
					CorrectIndex: 1,
				},
				domain.MappingQuestion{
					ID:             "q3",
					Text:           "Match each animal to its sound",
					Items:          []string{"Cat", "Dog", "Cow"},
					Targets:        []string{"Woof", "Moo", "Meow"},
					CorrectMapping: map[int]int{0: 2, 1: 0, 2: 1},
				},
			},
		},
	}
}
