package gateway

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// validateObjectID rejects empty or over-long object ids before they
// reach the lock manager. inboundFrame's struct tag declares the same
// bound, but WebSocket frames are not run through the validator.
func validateObjectID(objectID string) error {
	return getValidator().Var(objectID, "required,max=256")
}

// validateCommand rejects anything outside the known command set.
func validateCommand(command string) error {
	return getValidator().Var(command, "required,oneof=acquire release prolong")
}
