package router

import (
	"errors"
	"fmt"
)

// ErrNoProviders is returned at construction when no backend is configured.
var ErrNoProviders = errors.New("no providers configured")

// ErrNoCompletion is returned when a backend answers 2xx but the response
// carries no usable completion.
var ErrNoCompletion = errors.New("no completion returned")

// ErrUnknownModel is returned when a per-call model override names a model
// no configured profile owns.
var ErrUnknownModel = errors.New("model not owned by any configured provider")

// BackendError is a classified non-2xx inference failure. Callers decide
// whether to retry; the transport has already retried transient statuses.
type BackendError struct {
	Provider string
	Status   int
	Body     string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("provider %s returned %d: %s", e.Provider, e.Status, e.Body)
}
