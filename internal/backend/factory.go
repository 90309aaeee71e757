// Package backend builds the configured data backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"expirygenie/internal/config"
	"expirygenie/internal/storage"
	"expirygenie/internal/store"
	"expirygenie/internal/store/memory"
	s3store "expirygenie/internal/store/s3"
)

type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
	S3Backend     Type = "s3"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, S3Backend:
		return true
	}
	return false
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result is the assembled backend. SQLite is non-nil only for the
// sqlite backend; callers use it for sync bookkeeping and the reminder
// log, which the other backends don't support.
type Result struct {
	Store     store.Backend
	Predictor store.ExpiryPredictor
	SQLite    *storage.SQLiteRepository
	Cleanup   CleanupFunc
}

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create builds the backend selected by cfg.DataBackend.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch backendType {
	case SQLiteBackend:
		return f.createSQLite(cfg)
	case S3Backend:
		return f.createS3(ctx, cfg)
	default:
		return f.createMemory()
	}
}

func (f *Factory) createSQLite(cfg *config.Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	return &Result{
		Store:     repo,
		Predictor: repo,
		SQLite:    repo,
		Cleanup:   repo.Close,
	}, nil
}

func (f *Factory) createS3(ctx context.Context, cfg *config.Config) (*Result, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	st := s3store.New(awss3.NewFromConfig(awsCfg), cfg.S3Bucket)

	f.logger.Info("Initialized S3 backend",
		"bucket", cfg.S3Bucket,
		"region", cfg.AWSRegion)

	return &Result{
		Store:     st,
		Predictor: st,
	}, nil
}

func (f *Factory) createMemory() (*Result, error) {
	st := memory.New()
	f.logger.Info("Initialized in-memory backend")

	return &Result{
		Store:     st,
		Predictor: st,
	}, nil
}
