package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/exim-session/internal/domain"
)

// pgExecutor is satisfied by *pgxpool.Pool and by pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository defines persistence access for EXIM accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

var userColumns = []string{
	"id", "name", "email", "password_hash", "role", "ie_codes", "modules", "status", "created_at", "updated_at",
}

type userRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(exec pgExecutor) UserRepository {
	return &userRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.IECodes == nil {
		user.IECodes = []string{}
	}
	if user.Modules == nil {
		user.Modules = []string{}
	}
	query, args, err := r.builder.
		Insert("users").
		Columns("name", "email", "password_hash", "role", "ie_codes", "modules", "status").
		Values(user.Name, user.Email, user.PasswordHash, user.Role, user.IECodes, user.Modules, user.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}
	return r.exec.QueryRow(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

func (r *userRepository) getBy(ctx context.Context, where squirrel.Eq) (*domain.User, error) {
	query, args, err := r.builder.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var user domain.User
	if err := r.exec.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IECodes,
		&user.Modules,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
