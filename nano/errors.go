package nano

import "errors"

// ErrSchema reports a batch that does not carry an expected collection or
// attribute. Batches failing this way are unusable.
var ErrSchema = errors.New("nano: schema mismatch")
