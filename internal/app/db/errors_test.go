package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_idx"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create user: %w", unique)))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestConstraintName(t *testing.T) {
	owner := &pgconn.PgError{Code: "23505", ConstraintName: "users_single_owner_idx"}

	assert.Equal(t, "users_single_owner_idx", ConstraintName(owner))
	assert.Equal(t, "users_single_owner_idx", ConstraintName(fmt.Errorf("create user: %w", owner)))

	// only unique violations carry a usable constraint
	assert.Empty(t, ConstraintName(&pgconn.PgError{Code: "23503", ConstraintName: "users_fk"}))
	assert.Empty(t, ConstraintName(errors.New("connection refused")))
	assert.Empty(t, ConstraintName(nil))
}
