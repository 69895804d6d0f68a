package ffi

import "fmt"

// BridgeException is the sentinel a LanguageBridge.Dispatch implementation
// returns (wrapped as the error) to report a foreign-side exception, as
// opposed to a Go-side plumbing failure. CallFunction translates it to the
// `foreign-exception` taxonomy code via handleException (spec §4.3 step 7,
// §7: "C3 translates bridge-specific errors to the taxonomy via
// handle_exception").
type BridgeException struct {
	Lang    string
	Message string
	cause   error
}

// NewBridgeException constructs a BridgeException.
func NewBridgeException(lang, message string) *BridgeException {
	return &BridgeException{Lang: lang, Message: message}
}

func (e *BridgeException) Error() string {
	return fmt.Sprintf("%s exception: %s", e.Lang, e.Message)
}

func (e *BridgeException) Unwrap() error {
	return e.cause
}

// handleException extracts a human-readable message from a bridge-reported
// exception, falling back to the raw error text for bridges that return a
// plain error instead of a *BridgeException.
func handleException(err error) string {
	if be, ok := err.(*BridgeException); ok {
		return be.Message
	}
	return err.Error()
}
