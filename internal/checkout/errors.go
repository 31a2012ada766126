package checkout

import (
	"errors"
	"fmt"
)

// FailureMessage is shown to the shopper whenever a checkout cannot be completed.
const FailureMessage = "Unable to complete. Please try again after sometime."

var (
	ErrInvalidRequest = errors.New("invalid checkout request")
	ErrCheckoutFailed = errors.New("checkout failed")
	ErrOrderNotFound  = errors.New("order not found")
	ErrAPI            = errors.New("orders API request failed")
)

// ValidationError describes one invalid field of a Request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidRequest) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
