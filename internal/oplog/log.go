// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oplog

import (
	"encoding/json"
	"fmt"
)

// Log is an append-only ordered sequence of operations validated against a
// known page count. Insertion order is the order operations are applied in.
// Conflicting operations are kept verbatim; the remote processor interprets
// them. Log is not safe for concurrent use; the session serializes access.
type Log struct {
	pageCount int
	ops       []Operation
}

// New returns an empty log for a document with pageCount pages.
func New(pageCount int) *Log {
	return &Log{pageCount: pageCount}
}

// PageCount returns the page count operations are validated against.
func (l *Log) PageCount() int { return l.pageCount }

// Len returns the number of recorded operations.
func (l *Log) Len() int { return len(l.ops) }

// Append validates op and records it. A rejected op leaves the log unchanged.
func (l *Log) Append(op Operation) error {
	if err := op.Validate(l.pageCount); err != nil {
		return err
	}
	l.ops = append(l.ops, op)
	return nil
}

// Operations returns a copy of the recorded operations in insertion order.
func (l *Log) Operations() []Operation {
	out := make([]Operation, len(l.ops))
	copy(out, l.ops)
	return out
}

// Serializable returns the operations in transmission form. The result is
// never nil so an empty log encodes as [].
func (l *Log) Serializable() []Operation {
	return l.Operations()
}

// MarshalJSON encodes the log as a JSON array in insertion order.
func (l *Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Serializable())
}

// JSON returns the serialized operations as a string.
func (l *Log) JSON() (string, error) {
	data, err := json.Marshal(l.Serializable())
	if err != nil {
		return "", fmt.Errorf("encoding operations: %w", err)
	}
	return string(data), nil
}

// Reset clears all operations and sets the page count for the next document.
func (l *Log) Reset(pageCount int) {
	l.pageCount = pageCount
	l.ops = nil
}
