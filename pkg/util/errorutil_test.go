package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	cause := errors.New("disk on fire")

	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "domain error", err: NewSessionExpired("gone"), code: "SESSION_EXPIRED", status: http.StatusUnauthorized},
		{name: "wrapped domain error", err: fmt.Errorf("ctx: %w", NewForbidden("no")), code: "FORBIDDEN", status: http.StatusForbidden},
		{name: "pgx no rows", err: pgx.ErrNoRows, code: "NOT_FOUND", status: http.StatusNotFound},
		{name: "redis nil", err: redis.Nil, code: "NOT_FOUND", status: http.StatusNotFound},
		{name: "anything else", err: cause, code: "INTERNAL_ERROR", status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
	assert.ErrorIs(t, ToDomainError(cause), cause)
}

func TestDomainErrorMessage(t *testing.T) {
	assert.Equal(t, "session expired", NewSessionExpired("session expired").Error())
	assert.Equal(t, "internal server error: boom", NewInternalError(errors.New("boom")).Error())
}
