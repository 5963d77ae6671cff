package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound se devuelve cuando el registro solicitado no existe.
var ErrNotFound = errors.New("record not found")

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// pgxRows is a minimal interface to allow scanning from pgx rows and simplify testing.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
