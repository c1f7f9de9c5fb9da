package records

import "encoding/json"

// Result is the uniform envelope every gateway operation returns. Failures
// never escape as Go errors; callers surface Error to the user.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
	Message string
	// Details lists individual validation problems when Error joins several.
	Details []string

	hasData bool
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data, hasData: true}
}

// Done is a successful envelope that carries no data.
func Done[T any]() Result[T] {
	return Result[T]{Success: true}
}

// Fail builds a failed envelope from a message.
func Fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// Invalid builds a failed envelope from a validation error.
func Invalid[T any](v *ValidationError) Result[T] {
	return Result[T]{Error: v.Error(), Details: append([]string(nil), v.Problems...)}
}

// WithMessage attaches a user-facing confirmation message.
func (r Result[T]) WithMessage(msg string) Result[T] {
	r.Message = msg
	return r
}

// HasData reports whether the envelope carries a payload.
func (r Result[T]) HasData() bool {
	return r.hasData
}

type wireResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Details []string        `json:"details,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	w := wireResult{Success: r.Success, Error: r.Error, Message: r.Message, Details: r.Details}
	if r.hasData {
		data, err := json.Marshal(r.Data)
		if err != nil {
			return nil, err
		}
		w.Data = data
	}
	return json.Marshal(w)
}

func (r *Result[T]) UnmarshalJSON(b []byte) error {
	var w wireResult
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Result[T]{Success: w.Success, Error: w.Error, Message: w.Message, Details: w.Details}
	if len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, &r.Data); err != nil {
			return err
		}
		r.hasData = true
	}
	return nil
}
