package db

import (
	"errors"
	"fmt"
)

// ErrStorage wraps every failure of the underlying database.
var ErrStorage = errors.New("storage failure")

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
