package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	gerr "github.com/glycoshape/glyco/pkg/errors"
)

type recorder struct {
	lines []string
}

func (r *recorder) Println(v ...any) {
	r.lines = append(r.lines, fmt.Sprint(v...))
}

func TestBoundaryError(t *testing.T) {
	t.Run("it matches sentinel of its kind, even when wrapped", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", gerr.Rejected("File type not allowed."))
		if !errors.Is(err, gerr.ErrRejected) {
			t.Error("not ErrRejected")
		}
		if errors.Is(err, gerr.ErrTransport) {
			t.Error("unexpectedly ErrTransport")
		}
		if gerr.KindOf(err) != gerr.KindRejected {
			t.Errorf("unexpected kind: %s", gerr.KindOf(err))
		}
	})

	t.Run("it unwraps to its cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := gerr.Transport(cause)
		if !errors.Is(err, cause) {
			t.Error("cause is lost")
		}
		if !strings.Contains(err.Verbose(), "connection refused") {
			t.Errorf("verbose message lacks the cause: %s", err.Verbose())
		}
	})

	t.Run("Error includes detail on the next line", func(t *testing.T) {
		err := gerr.Status(404, "Wrong uniprot id or pdb id", `{"reason": "not found"}`)
		if err.Error() != "Wrong uniprot id or pdb id\n{\"reason\": \"not found\"}" {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("KindOf returns KindUnknown for plain errors", func(t *testing.T) {
		if k := gerr.KindOf(errors.New("plain")); k != gerr.KindUnknown {
			t.Errorf("unexpected kind: %s", k)
		}
	})
}

func TestReport(t *testing.T) {
	type then struct {
		message string
		logged  bool
	}
	theory := func(err error, then then) func(*testing.T) {
		return func(t *testing.T) {
			r := &recorder{}
			actual := gerr.Report(r, err)
			if actual != then.message {
				t.Errorf("unexpected message: (actual, expected) = (%q, %q)", actual, then.message)
			}
			if (0 < len(r.lines)) != then.logged {
				t.Errorf("unexpected logging: %v", r.lines)
			}
		}
	}

	t.Run("nil is not reported", theory(nil, then{message: "", logged: false}))
	t.Run("stale response is dropped silently but logged", theory(
		gerr.Stale(3), then{message: "", logged: true},
	))
	t.Run("client error shows its summary", theory(
		gerr.Status(400, "Wrong uniprot id or pdb id", "detail"),
		then{message: "Wrong uniprot id or pdb id", logged: true},
	))
	t.Run("server error shows status code", theory(
		gerr.Status(502, "whatever", ""),
		then{message: "server error (status code = 502)", logged: true},
	))
	t.Run("transport error shows generic message", theory(
		gerr.Transport(errors.New("dial tcp: refused")),
		then{message: "cannot reach the server. check your network and try again", logged: true},
	))
	t.Run("malformed response shows generic message", theory(
		gerr.Malformed(errors.New("invalid character")),
		then{message: "unexpected response from the server", logged: true},
	))
	t.Run("rejected request shows its summary", theory(
		gerr.Rejected("File type not allowed."),
		then{message: "File type not allowed.", logged: true},
	))
	t.Run("session expiry asks to log in", theory(
		gerr.SessionExpired(nil),
		then{message: "session expired. please log in again", logged: true},
	))
	t.Run("plain error is shown as is", theory(
		errors.New("plain"), then{message: "plain", logged: true},
	))
}
