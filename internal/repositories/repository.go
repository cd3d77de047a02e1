package repositories

import "context"

// Repository aggregates every store the lifecycle engine consumes.
type Repository interface {
	Subject() SubjectRepository
	Question() QuestionRepository
	Assignment() AssignmentRepository
	User() UserRepository
	Session() SessionRepository

	// WithTransaction runs fn inside one database transaction; every
	// repository call made through the passed Repository joins it.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
