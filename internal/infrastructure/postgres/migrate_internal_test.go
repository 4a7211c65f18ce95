package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/sri?sslmode=disable", migrateURL("postgres://u:p@db:5432/sri?sslmode=disable"))
	assert.Equal(t, "pgx5://u:p@db/sri", migrateURL("postgresql://u:p@db/sri"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestWriteErr_MapsConstraintViolations(t *testing.T) {
	unique := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})
	check := &pgconn.PgError{Code: "23514"}
	other := errors.New("connection reset")

	assert.ErrorIs(t, writeErr("insert receivable", unique), domain.ErrDuplicate)
	assert.ErrorIs(t, writeErr("update lot available", check), domain.ErrConflict)

	err := writeErr("insert invoice", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)
}

func TestExpectOne_NoRowsIsNotFound(t *testing.T) {
	err := expectOne("update invoice", pgconn.NewCommandTag("UPDATE 0"), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, expectOne("update invoice", pgconn.NewCommandTag("UPDATE 1"), nil))
}
