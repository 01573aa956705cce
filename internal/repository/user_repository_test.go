package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/exim-session/internal/domain"
)

func userRows(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns).AddRow(
		"user-1", "Asha", "asha@exim.test", "hash",
		domain.RoleImporter, []string{"0304012345"}, []string{"jobs", "currency"},
		domain.UserStatusActive, now, now,
	)
}

func TestUserRepositoryGetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("asha@exim.test").
		WillReturnRows(userRows(now))

	repo := NewUserRepository(mock)
	user, err := repo.GetByEmail(context.Background(), "asha@exim.test")
	require.NoError(t, err)

	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, domain.RoleImporter, user.Role)
	assert.Equal(t, []string{"0304012345"}, user.IECodes)
	assert.Equal(t, []string{"jobs", "currency"}, user.Modules)
	assert.True(t, user.Active())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mock)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	user := &domain.User{
		Name:         "Root",
		Email:        "root@exim.test",
		PasswordHash: "hash",
		Role:         domain.RoleSuperadmin,
		Status:       domain.UserStatusActive,
	}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(user.Name, user.Email, user.PasswordHash, user.Role, []string{}, []string{}, user.Status).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("admin-1", now, now))

	repo := NewUserRepository(mock)
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, "admin-1", user.ID)
	assert.Equal(t, now, user.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
