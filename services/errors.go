package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrPermissionDenied is returned when a caller without an elevated role
// attempts toggle or delete. The router turns it into a reply.
var ErrPermissionDenied = errors.New("permission denied")

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
