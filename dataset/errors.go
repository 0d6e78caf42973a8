package dataset

import "errors"

var (
	ErrInvalidConfig = errors.New("dataset: invalid config")
	ErrNotFound      = errors.New("dataset: not found")
)
