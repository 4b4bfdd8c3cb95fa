package api

import (
	"errors"
	"net/http"

	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrBackpressure     = types.ErrBackpressure
	ErrUnavailable      = types.ErrUnavailable
	ErrInternal         = errors.New("internal error")
)

// OpError records the operation and kind of a failed request.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		base += ": " + e.Err.Error()
	}
	return base
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind without a cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind returns err annotated with op and kind.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with op, keeping a known kind if err carries one and
// falling back to ErrInternal otherwise.
func Wrap(op string, err error) error {
	return &OpError{Op: op, Kind: kindOf(err), Err: err}
}

var kinds = []struct {
	kind   error
	status int
	code   string
}{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{ErrMethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed"},
	{ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
	{ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

func kindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.kind
		}
	}
	return ErrInternal
}

// statusOf maps err to an HTTP status and a machine-readable code.
func statusOf(err error) (int, string) {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// publicMessage is the message shown to clients: the cause for client
// errors, a generic text for server errors.
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return http.StatusText(status)
	}
	var oe *OpError
	if errors.As(err, &oe) {
		if oe.Err != nil {
			return oe.Err.Error()
		}
		return oe.Kind.Error()
	}
	return err.Error()
}
