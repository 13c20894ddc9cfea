// Package errors classifies failures at the boundary to the backend.
//
// Every call crossing the network returns (T, error). When error is not nil,
// it is a *BoundaryError telling what kind of failure it was. Report is the
// one place deciding what the user sees and what goes to the log.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	// not classified
	KindUnknown Kind = iota

	// the request did not reach the server, or the response did not come back
	KindTransport

	// the server responded with non-2xx status
	KindStatus

	// the response is not what the client can read
	KindMalformed

	// the client refused to send the request
	KindRejected

	// the access token cannot be refreshed anymore
	KindSessionExpired

	// the response was overtaken by a newer request
	KindStale
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindMalformed:
		return "malformed"
	case KindRejected:
		return "rejected"
	case KindSessionExpired:
		return "session expired"
	case KindStale:
		return "stale"
	default:
		return "unknown"
	}
}

type Verbose interface {
	Verbose() string
}

// CUIError is an error which can tell more when asked.
type CUIError interface {
	error
	Verbose
}

type BoundaryError struct {
	Kind Kind

	// HTTP status code. 0 unless Kind is KindStatus (or a 401 turned into KindSessionExpired).
	Status int

	// one-line message for users
	Summary string

	// extra lines, for example, a message from the server
	Detail string

	cause error
}

var _ CUIError = &BoundaryError{}

func (be *BoundaryError) Error() string {
	if be.Detail == "" {
		return be.Summary
	}
	return be.Summary + "\n" + be.Detail
}

func (be *BoundaryError) Unwrap() error {
	return be.cause
}

func (be *BoundaryError) Verbose() string {
	message := []string{fmt.Sprintf("[%s] %s", be.Kind, be.Error())}
	if be.Status != 0 {
		message = append(message, fmt.Sprintf(" (status code = %d) ", be.Status))
	}

	switch base := be.cause.(type) {
	case nil:
		// no-op
	case Verbose:
		message = append(message, "caused by: ", base.Verbose())
	default:
		message = append(message, "caused by: ", base.Error())
	}
	return strings.Join(message, "\n")
}

// Is reports target is a sentinel of the same kind.
func (be *BoundaryError) Is(target error) bool {
	s, ok := target.(sentinel)
	return ok && s.kind == be.Kind
}

type sentinel struct {
	kind Kind
}

func (s sentinel) Error() string {
	return s.kind.String()
}

// sentinels to be used with errors.Is
var (
	ErrTransport      error = sentinel{kind: KindTransport}
	ErrStatus         error = sentinel{kind: KindStatus}
	ErrMalformed      error = sentinel{kind: KindMalformed}
	ErrRejected       error = sentinel{kind: KindRejected}
	ErrSessionExpired error = sentinel{kind: KindSessionExpired}
	ErrStale          error = sentinel{kind: KindStale}
)

type Option func(*BoundaryError) *BoundaryError

func WithDetail(detail string) Option {
	return func(be *BoundaryError) *BoundaryError {
		be.Detail = detail
		return be
	}
}

func WithCause(err error) Option {
	return func(be *BoundaryError) *BoundaryError {
		be.cause = err
		return be
	}
}

func WithStatus(code int) Option {
	return func(be *BoundaryError) *BoundaryError {
		be.Status = code
		return be
	}
}

func New(kind Kind, summary string, options ...Option) *BoundaryError {
	be := &BoundaryError{Kind: kind, Summary: summary}
	for _, o := range options {
		be = o(be)
	}
	return be
}

func Transport(err error) *BoundaryError {
	return New(KindTransport, "cannot reach the server", WithCause(err))
}

func Status(code int, summary string, detail string) *BoundaryError {
	return New(KindStatus, summary, WithStatus(code), WithDetail(detail))
}

func Malformed(err error) *BoundaryError {
	return New(KindMalformed, "unexpected response from the server", WithCause(err))
}

func Rejected(summary string) *BoundaryError {
	return New(KindRejected, summary)
}

func SessionExpired(cause error) *BoundaryError {
	return New(KindSessionExpired, "session expired. please log in again", WithCause(cause))
}

func Stale(generation uint64) *BoundaryError {
	return New(KindStale, fmt.Sprintf("response for submission #%d is outdated", generation))
}

// KindOf returns the Kind of err, or KindUnknown when err is not a BoundaryError.
func KindOf(err error) Kind {
	be := new(BoundaryError)
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

type Printer interface {
	Println(...any)
}

// Report decides how err is shown.
//
// The verbose form goes to logger. The returned string is for users; it is
// empty for nil and for stale responses, which are dropped silently.
func Report(logger Printer, err error) string {
	if err == nil {
		return ""
	}

	be := new(BoundaryError)
	if !errors.As(err, &be) {
		if logger != nil {
			logger.Println(err)
		}
		return err.Error()
	}

	if logger != nil {
		logger.Println(be.Verbose())
	}

	switch be.Kind {
	case KindStale:
		return ""
	case KindTransport:
		return "cannot reach the server. check your network and try again"
	case KindMalformed:
		return "unexpected response from the server"
	case KindSessionExpired:
		return be.Summary
	case KindStatus:
		if 500 <= be.Status {
			return fmt.Sprintf("server error (status code = %d)", be.Status)
		}
		return be.Summary
	default:
		return be.Summary
	}
}
