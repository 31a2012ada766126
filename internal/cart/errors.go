package cart

import "errors"

var (
	ErrPersist = errors.New("saving cart")
	ErrCorrupt = errors.New("corrupt cart data")
)
