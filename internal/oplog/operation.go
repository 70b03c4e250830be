// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oplog records page-level edit operations in the order a user
// requests them. Operations describe intent only; no document bytes are
// touched here.
package oplog

import (
	"errors"
	"fmt"
)

// Kind identifies an operation type on the wire.
type Kind string

const (
	KindRotate    Kind = "rotate"
	KindDelete    Kind = "delete"
	KindDuplicate Kind = "duplicate"
)

// DefaultCopies is the duplicate count used when the caller gives none.
const DefaultCopies = 2

// Sentinel errors wrapped by ValidationError.
var (
	ErrPageOutOfRange   = errors.New("page index out of range")
	ErrInvalidDegrees   = errors.New("degrees must be 90, 180, or 270")
	ErrInvalidCopies    = errors.New("copies must be at least 1")
	ErrUnknownOperation = errors.New("unknown operation type")
)

// ValidationError reports an operation rejected before it reached the log.
type ValidationError struct {
	Op  Operation
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s operation on page index %d: %v", e.Op.Type, e.Op.PageIndex, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Operation is a single edit record. PageIndex always refers to the page's
// position in the original document. Degrees is set only for rotate and
// Copies only for duplicate.
type Operation struct {
	Type      Kind `json:"type" yaml:"type"`
	PageIndex int  `json:"pageIndex" yaml:"pageIndex"`
	Degrees   int  `json:"degrees,omitempty" yaml:"degrees,omitempty"`
	Copies    int  `json:"copies,omitempty" yaml:"copies,omitempty"`
}

// Rotate returns a rotate operation.
func Rotate(pageIndex, degrees int) Operation {
	return Operation{Type: KindRotate, PageIndex: pageIndex, Degrees: degrees}
}

// Delete returns a delete operation.
func Delete(pageIndex int) Operation {
	return Operation{Type: KindDelete, PageIndex: pageIndex}
}

// Duplicate returns a duplicate operation.
func Duplicate(pageIndex, copies int) Operation {
	return Operation{Type: KindDuplicate, PageIndex: pageIndex, Copies: copies}
}

// Validate checks op against a document with pageCount pages.
func (op Operation) Validate(pageCount int) error {
	if op.PageIndex < 0 || op.PageIndex >= pageCount {
		return &ValidationError{Op: op, Err: fmt.Errorf("%w: %d not in [0, %d)", ErrPageOutOfRange, op.PageIndex, pageCount)}
	}
	switch op.Type {
	case KindRotate:
		switch op.Degrees {
		case 90, 180, 270:
		default:
			return &ValidationError{Op: op, Err: fmt.Errorf("%w: got %d", ErrInvalidDegrees, op.Degrees)}
		}
		if op.Copies != 0 {
			return &ValidationError{Op: op, Err: errors.New("copies not allowed on rotate")}
		}
	case KindDelete:
		if op.Degrees != 0 || op.Copies != 0 {
			return &ValidationError{Op: op, Err: errors.New("delete takes no parameters")}
		}
	case KindDuplicate:
		if op.Copies < 1 {
			return &ValidationError{Op: op, Err: fmt.Errorf("%w: got %d", ErrInvalidCopies, op.Copies)}
		}
		if op.Degrees != 0 {
			return &ValidationError{Op: op, Err: errors.New("degrees not allowed on duplicate")}
		}
	default:
		return &ValidationError{Op: op, Err: fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)}
	}
	return nil
}

// Describe returns the status line shown after op is accepted. Page numbers
// are 1-based for display.
func (op Operation) Describe() string {
	page := op.PageIndex + 1
	switch op.Type {
	case KindRotate:
		return fmt.Sprintf("Page %d marked for rotation", page)
	case KindDelete:
		return fmt.Sprintf("Page %d marked for deletion", page)
	case KindDuplicate:
		return fmt.Sprintf("Page %d will be duplicated", page)
	default:
		return fmt.Sprintf("Page %d marked", page)
	}
}
