package signal

import "errors"

var (
	ErrUnknownPredicate = errors.New("signal: unknown predicate")
	ErrUnknownTagger    = errors.New("signal: unknown tagger")
	ErrSelection        = errors.New("signal: invalid selection")
)
