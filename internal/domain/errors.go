package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrPoolNotFound       = errors.New("pool not found")
	ErrPoolInactive       = errors.New("pool is inactive")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrPoolExhausted      = errors.New("no eligible account")
)

// ExhaustionError is returned when every account in the pool is blocked or
// the pool is empty. It matches ErrPoolExhausted with errors.Is.
type ExhaustionError struct {
	Model    string
	PoolSize int
	Blocked  int
}

func (e *ExhaustionError) Error() string {
	if e.PoolSize == 0 {
		return fmt.Sprintf("%s for model %q: pool is empty", ErrPoolExhausted, e.Model)
	}
	return fmt.Sprintf("%s for model %q: %d of %d accounts blocked", ErrPoolExhausted, e.Model, e.Blocked, e.PoolSize)
}

func (e *ExhaustionError) Is(target error) bool {
	return target == ErrPoolExhausted
}
