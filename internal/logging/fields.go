// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// With applies fields to e in order and returns it.
func With(e *bolt.Event, fields ...Field) *bolt.Event {
	for _, f := range fields {
		e = f(e)
	}
	return e
}

// SessionID adds a session_id field.
func SessionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("session_id", id)
	}
}

// Transition adds from_status and to_status fields.
func Transition(from, to string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", from).Str("to_status", to)
	}
}

// Page adds a zero-based page_index field.
func Page(index int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("page_index", index)
	}
}

// Pages adds a page_count field.
func Pages(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("page_count", n)
	}
}

// Operation adds an operation type field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Bytes adds a byte-count field under key.
func Bytes(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// ErrorField adds an error field. A nil error adds nothing.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Str adds a string field with a custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
