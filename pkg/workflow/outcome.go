package workflow

import (
	"context"
	"fmt"
)

// Outcome is the normalized result of one task invocation.
type Outcome struct {
	// Success reports whether the invocation succeeded.
	Success bool `json:"success"`
	// Message carries detail about the outcome. Always preserved even on
	// success; display code decides whether to show it.
	Message string `json:"message,omitempty"`
}

// Succeeded returns a successful Outcome with no message.
func Succeeded() Outcome {
	return Outcome{Success: true}
}

// SucceededWith returns a successful Outcome carrying a message.
func SucceededWith(msg string) Outcome {
	return Outcome{Success: true, Message: msg}
}

// Failed returns a failed Outcome with the given message.
func Failed(msg string) Outcome {
	return Outcome{Success: false, Message: msg}
}

// Failedf returns a failed Outcome with a formatted message.
func Failedf(format string, args ...interface{}) Outcome {
	return Outcome{Success: false, Message: fmt.Sprintf(format, args...)}
}

// FromBool lifts a plain success flag into an Outcome. A false flag
// carries no message; the execution wrapper supplies the default.
func FromBool(ok bool) Outcome {
	return Outcome{Success: ok}
}

// FromError lifts an error into an Outcome. A nil error is success.
func FromError(err error) Outcome {
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	return Outcome{Success: true}
}

// BoolFunc adapts a bool-returning function to the canonical Func shape.
func BoolFunc(fn func(ctx context.Context) bool) Func {
	return func(ctx context.Context) Outcome {
		return FromBool(fn(ctx))
	}
}

// ErrFunc adapts an error-returning function to the canonical Func shape.
func ErrFunc(fn func(ctx context.Context) error) Func {
	return func(ctx context.Context) Outcome {
		return FromError(fn(ctx))
	}
}
