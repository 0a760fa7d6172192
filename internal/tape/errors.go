package tape

import "errors"

// ErrUnderflow is returned when the data pointer would move below index 0.
// It is always fatal: the engine does not attempt to recover from it.
var ErrUnderflow = errors.New("tape: pointer moved below index 0")
