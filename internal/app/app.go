// Package app собирает зависимости, общие для API-сервера и воркера генерации.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"kidzy-server/internal/ai"
	"kidzy-server/internal/blob"
	"kidzy-server/internal/config"
	"kidzy-server/internal/gallery"
	"kidzy-server/internal/library"
	"kidzy-server/internal/session"
	"kidzy-server/internal/storybook"
	pgdb "kidzy-server/pkg/database"
	"kidzy-server/pkg/migration"
	sharedDatabase "kidzy-server/shared/database"
	"kidzy-server/shared/interfaces"
	"kidzy-server/shared/messaging"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	sessionKeyPrefix  = "kidzy:"
	imageFetchTimeout = 30 * time.Second
)

// Infra - внешние подключения процесса.
type Infra struct {
	Firebase  *firebase.App
	Firestore *firestore.Client
	Postgres  *pgxpool.Pool
	Redis     *redis.Client

	Stories      interfaces.StoryRepository
	Photos       interfaces.PhotoRepository
	Transactions interfaces.TransactionRepository
	Blobs        interfaces.BlobStore

	// LocalBlobRoot - каталог локального хранилища, который раздает API-сервер. Пусто для Firebase.
	LocalBlobRoot string

	logger *zap.Logger
}

// OpenInfra подключается к хранилищам по конфигурации. withFirebase принудительно
// создает Firebase App, даже если хранилища его не используют (нужно для Auth).
func OpenInfra(ctx context.Context, cfg *config.Config, withFirebase bool, logger *zap.Logger) (*Infra, error) {
	infra := &Infra{logger: logger.Named("Infra")}

	if withFirebase || cfg.NeedsFirebase() {
		var opts []option.ClientOption
		if cfg.Firebase.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		}
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{
			ProjectID:     cfg.Firebase.ProjectID,
			StorageBucket: cfg.Firebase.StorageBucket,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
		}
		infra.Firebase = fbApp
		logger.Info("Firebase app initialized", zap.String("project", cfg.Firebase.ProjectID))
	}

	if err := infra.openDatabase(ctx, cfg); err != nil {
		infra.Close()
		return nil, err
	}
	if err := infra.openBlobs(ctx, cfg); err != nil {
		infra.Close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := client.Ping(ctx).Result(); err != nil {
			_ = client.Close()
			infra.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		infra.Redis = client
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("REDIS_ADDR not set, sessions are kept in process memory")
	}
	return infra, nil
}

func (i *Infra) openDatabase(ctx context.Context, cfg *config.Config) error {
	switch cfg.Database.Driver {
	case config.DatabaseDriverFirestore:
		client, err := i.Firebase.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("failed to create Firestore client: %w", err)
		}
		i.Firestore = client
		i.Stories = sharedDatabase.NewFirestoreStoryRepository(client, i.logger)
		i.Photos = sharedDatabase.NewFirestorePhotoRepository(client, i.logger)
		i.Transactions = sharedDatabase.NewFirestoreTransactionRepository(client, i.logger)
	case config.DatabaseDriverPostgres:
		i.logger.Info("Connecting to PostgreSQL", zap.String("dsn", cfg.Database.MaskedDSN()))
		pool, err := pgdb.Connect(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, i.logger)
		if err != nil {
			return err
		}
		i.Postgres = pool
		migrator := migration.NewMigrator(migration.Config{
			MigrationsFS:   sharedDatabase.MigrationsFS,
			MigrationsPath: sharedDatabase.MigrationsPath,
		}, pool, i.logger)
		if err := migrator.Up(ctx); err != nil {
			return err
		}
		i.Stories = sharedDatabase.NewPgStoryRepository(pool, i.logger)
		i.Photos = sharedDatabase.NewPgPhotoRepository(pool, i.logger)
		i.Transactions = sharedDatabase.NewPgTransactionRepository(pool, i.logger)
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return nil
}

func (i *Infra) openBlobs(ctx context.Context, cfg *config.Config) error {
	switch cfg.Blob.Driver {
	case config.BlobDriverFirebase:
		client, err := i.Firebase.Storage(ctx)
		if err != nil {
			return fmt.Errorf("failed to create Storage client: %w", err)
		}
		bucket, err := client.Bucket(cfg.Firebase.StorageBucket)
		if err != nil {
			return fmt.Errorf("failed to open bucket %s: %w", cfg.Firebase.StorageBucket, err)
		}
		i.Blobs = blob.NewFirebaseStore(bucket, cfg.Firebase.StorageBucket, i.logger)
	case config.BlobDriverLocal:
		store, err := blob.NewLocalStore(cfg.Blob.LocalPath, cfg.Blob.PublicBaseURL, i.logger)
		if err != nil {
			return err
		}
		i.Blobs = store
		i.LocalBlobRoot = store.Root()
	default:
		return fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
	return nil
}

// SessionStore - Redis, если он настроен, иначе память процесса.
func (i *Infra) SessionStore() session.Store {
	if i.Redis != nil {
		return session.NewRedisStore(i.Redis, sessionKeyPrefix, i.logger)
	}
	return session.NewMemoryStore()
}

// Close закрывает подключения. Безопасен для частично открытой инфраструктуры.
func (i *Infra) Close() {
	if i.Firestore != nil {
		if err := i.Firestore.Close(); err != nil {
			i.logger.Warn("Error closing Firestore client", zap.Error(err))
		}
	}
	if i.Postgres != nil {
		i.Postgres.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("Error closing Redis client", zap.Error(err))
		}
	}
}

// Services - доменные сервисы, через которые идут и HTTP-запросы, и задачи генерации.
type Services struct {
	AI       ai.Service
	Sessions *session.Sessions
	Library  *library.Service
	Stories  *storybook.Service
	Gallery  *gallery.Service
}

// NewServices создает доменные сервисы. tasks и notifier определяют, где выполняется
// генерация и куда уходят события прогресса.
func NewServices(
	ctx context.Context,
	cfg *config.Config,
	infra *Infra,
	tasks messaging.TaskPublisher,
	notifier messaging.ClientUpdatePublisher,
	logger *zap.Logger,
) (*Services, error) {
	aiModels, err := ai.NewModels(ctx, cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI models: %w", err)
	}
	fetcher := ai.NewHTTPImageFetcher(imageFetchTimeout, cfg.AI.MaxFetchBytes, blobURLPrefixes(cfg), logger)
	aiService := ai.NewService(aiModels.Text, aiModels.Image, fetcher, logger)

	sessions := session.NewSessions(infra.SessionStore(), cfg.Story.SessionTTL)
	lib := library.NewService(infra.Stories, infra.Photos, infra.Blobs, logger)

	tickets, err := gallery.NewTickets(cfg.Download.TicketSecret, cfg.Download.TicketTTL, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		AI:       aiService,
		Sessions: sessions,
		Library:  lib,
		Stories: storybook.NewService(aiService, sessions, lib, tasks, notifier, storybook.Config{
			PageDelay: cfg.Story.PageDelay,
			LockTTL:   cfg.Story.LockTTL,
		}, logger),
		Gallery: gallery.NewService(aiService, sessions, lib, tasks, notifier, tickets, logger),
	}, nil
}

// blobURLPrefixes - адреса хранилища, с которых сервер может скачивать изображения.
func blobURLPrefixes(cfg *config.Config) []string {
	switch cfg.Blob.Driver {
	case config.BlobDriverFirebase:
		return []string{blob.DownloadURLPrefix(cfg.Firebase.StorageBucket)}
	case config.BlobDriverLocal:
		return []string{cfg.Blob.PublicBaseURL}
	}
	return nil
}

// InstanceID - идентификатор процесса для тегов консьюмера и метрик.
func InstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
