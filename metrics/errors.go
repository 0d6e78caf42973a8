package metrics

import "errors"

var ErrWriteFailed = errors.New("metrics: write failed")
