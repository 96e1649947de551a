package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rancho-chat/config"
	"rancho-chat/internal/events"
	"rancho-chat/internal/handler"
	"rancho-chat/internal/middleware"
	"rancho-chat/internal/redis"
	"rancho-chat/internal/repository"
	"rancho-chat/internal/security"
	"rancho-chat/internal/server"
	"rancho-chat/internal/services"
	"rancho-chat/internal/storage"
	"rancho-chat/internal/websocket"
	"rancho-chat/pkg/database"
	"rancho-chat/pkg/logger"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"
)

type stores struct {
	accounts      repository.AccountRepository
	conversations repository.ConversationRepository
	invitations   repository.InvitationRepository
	health        map[string]server.HealthCheck
	close         func()
}

func main() {
	cfg := config.LoadConfig()
	l, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rancho-chat: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogger(l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = run(ctx, cfg, l)
	stop()
	l.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rancho-chat: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, l *logger.Logger) error {
	st, err := openStores(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer st.close()

	hub := websocket.NewHub()
	resolver := events.NewConversationChannelResolver()

	accounts := st.accounts
	var (
		publisher services.EventPublisher = websocket.NewLocalPublisher(hub, resolver)
		limiter   middleware.RateLimiter
		bridge    *websocket.RedisBridge
	)
	if cfg.RedisEnabled {
		rc, err := redis.Connect(ctx, redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		l.Infof("Redis connection established")

		cache := redis.NewCacheStore(rc, redis.DefaultAccountTTL)
		accounts = repository.NewCachedAccountRepository(accounts, cache, l)
		limiter = redis.NewRateLimiter(rc, redis.RateLimitConfig{
			MessageLimit: cfg.RateLimitMessages,
			AuthLimit:    cfg.RateLimitAuth,
		})
		pubsub := redis.NewPubSub(rc)
		publisher = events.NewRedisPublisher(pubsub, resolver)
		bridge = websocket.NewRedisBridge(pubsub, hub, l)
		st.health["redis"] = func(ctx context.Context) error { return redis.HealthCheck(ctx, rc) }
	}

	var transcripts services.TranscriptStore
	if cfg.S3Enabled() {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			return err
		}
		transcripts = s3Client
	} else {
		l.Warnf("S3 is not configured, conversation export is disabled")
	}

	authService := services.NewAuthService(
		accounts,
		security.NewBcryptHasher(cfg.BcryptCost),
		security.NewJWTEncrypter(cfg.JWTSecret, time.Duration(cfg.JWTExpiryMin)*time.Minute),
	)
	conversationService := services.NewConversationService(accounts, st.conversations, publisher, l)
	messageService := services.NewMessageService(accounts, st.conversations, services.MessageOptions{
		StrictRemoval: cfg.StrictMessageRemoval,
	}, publisher, l)
	invitationService := services.NewInvitationService(st.conversations, st.invitations, services.InvitationOptions{
		AcceptGrantsMembership: cfg.AcceptGrantsMembership,
	}, publisher, l)
	exportService := services.NewExportService(st.conversations, transcripts)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Auth:         handler.NewAuthHandler(authService, l),
		Conversation: handler.NewConversationHandler(conversationService, exportService, l),
		Message:      handler.NewMessageHandler(messageService, l),
		Invitation:   handler.NewInvitationHandler(invitationService, l),
		WebSocket: websocket.NewHandler(authService,
			websocket.NewChannelAuthorizer(st.conversations), hub, l),
	}, server.Dependencies{
		Auth:         authService,
		RateLimiter:  limiter,
		HealthChecks: st.health,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if bridge != nil {
		g.Go(func() error { return bridge.Run(gctx) })
	}
	g.Go(func() error { return srv.Start(gctx) })
	return g.Wait()
}

func openStores(ctx context.Context, cfg *config.Config, l *logger.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		l.Infof("Database connection established")
		return postgresStores(db), nil

	case config.StoreDriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		l.Infof("MongoDB connection established")
		return mongoStores(client, db), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func postgresStores(db *sql.DB) *stores {
	return &stores{
		accounts:      repository.NewAccountRepository(db),
		conversations: repository.NewConversationRepository(db),
		invitations:   repository.NewInvitationRepository(db),
		health: map[string]server.HealthCheck{
			"postgres": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
		},
		close: func() { db.Close() },
	}
}

func mongoStores(client *mongo.Client, db *mongo.Database) *stores {
	return &stores{
		accounts:      repository.NewMongoAccountRepository(db),
		conversations: repository.NewMongoConversationRepository(db),
		invitations:   repository.NewMongoInvitationRepository(db),
		health: map[string]server.HealthCheck{
			"mongo": func(ctx context.Context) error { return database.MongoHealthCheck(ctx, client) },
		},
		close: func() { _ = client.Disconnect(context.Background()) },
	}
}
