package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorMessage is an error payload of the backend.
//
// The backend is not consistent: it answers {"error": ...}, {"message": ...}
// or {"reason": ...} depending on the endpoint. All of them are accepted.
type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
}

func (em *ErrorMessage) UnmarshalJSON(bytes []byte) error {
	f := new(struct {
		Reason  *string `json:"reason"`
		Message *string `json:"message"`
		Error   *string `json:"error"`
		Detail  *string `json:"detail"`
		Advice  *string `json:"advice,omitempty"`
	})
	if err := json.Unmarshal(bytes, f); err != nil {
		return err
	}

	switch {
	case f.Reason != nil:
		em.Reason = *f.Reason
	case f.Message != nil:
		em.Reason = *f.Message
	case f.Error != nil:
		em.Reason = *f.Error
	case f.Detail != nil:
		em.Reason = *f.Detail
	default:
		return fmt.Errorf(`required field missing: one of "reason", "message", "error" or "detail"`)
	}

	if f.Advice != nil {
		em.Advice = *f.Advice
	}

	return nil
}

func (e ErrorMessage) String() string {
	lines := []string{e.Reason}
	if e.Advice != "" {
		lines = append(lines, e.Advice)
	}
	return strings.Join(lines, "\n")
}

func (e ErrorMessage) Error() string {
	return e.String()
}
