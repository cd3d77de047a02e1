package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/skillproof/testing-service/internal/cache"
	"github.com/skillproof/testing-service/internal/repositories"
	"github.com/skillproof/testing-service/internal/repositories/redisrepo"
)

// PostgreSQLRepository implements the aggregate Repository interface.
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	subject    repositories.SubjectRepository
	question   repositories.QuestionRepository
	assignment repositories.AssignmentRepository
	user       repositories.UserRepository
	session    repositories.SessionRepository
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates the repository aggregate with all
// sub-repositories bound to the given connections.
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}

	repo.subject = NewSubjectPostgreSQL(config.DB, cacheManager)
	repo.question = NewQuestionPostgreSQL(config.DB, cacheManager)
	repo.assignment = NewAssignmentPostgreSQL(config.DB)
	repo.user = NewUserPostgreSQL(config.DB)

	// Sessions live in Redis; the engine only revokes them.
	repo.session = redisrepo.NewSessionRedis(config.RedisClient)

	return repo
}

func (r *PostgreSQLRepository) Subject() repositories.SubjectRepository {
	return r.subject
}

func (r *PostgreSQLRepository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *PostgreSQLRepository) Assignment() repositories.AssignmentRepository {
	return r.assignment
}

func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

func (r *PostgreSQLRepository) Session() repositories.SessionRepository {
	return r.session
}

// WithTransaction executes fn within one database transaction. The
// Repository passed to fn is a clone whose sub-repositories are bound to the
// transaction; the session store is unaffected (Redis has no part in the
// relational transaction).
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
			subject:      NewSubjectPostgreSQL(tx, r.cacheManager),
			question:     NewQuestionPostgreSQL(tx, r.cacheManager),
			assignment:   NewAssignmentPostgreSQL(tx),
			user:         NewUserPostgreSQL(tx),
			session:      r.session,
		}
		return fn(txRepo)
	})
}

// Ping verifies database (and, when configured, Redis) connectivity.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connections.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	if r.redisClient != nil {
		return r.redisClient.Close()
	}
	return nil
}

// ===== REPOSITORY MANAGER =====

type postgresRepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a manager for repository lifecycle.
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &postgresRepositoryManager{config: config}
}

func (m *postgresRepositoryManager) Initialize() error {
	if m.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}
	m.repo = NewPostgreSQLRepository(m.config)
	return nil
}

func (m *postgresRepositoryManager) GetRepository() repositories.Repository {
	return m.repo
}

func (m *postgresRepositoryManager) HealthCheck(ctx context.Context) error {
	if m.repo == nil {
		return fmt.Errorf("repositories not initialized")
	}
	return m.repo.Ping(ctx)
}

func (m *postgresRepositoryManager) Shutdown(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	return m.repo.Close()
}
