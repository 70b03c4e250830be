// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pdiddy/pdf-organizer/internal/oplog"
)

const defaultDegrees = 90

// parseIndexParam splits "i" or "i:n" into its parts. def is returned for
// n when it is omitted.
func parseIndexParam(s string, def int) (int, int, error) {
	idx, param, hasParam := strings.Cut(strings.TrimSpace(s), ":")
	i, err := strconv.Atoi(idx)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid page index %q", idx)
	}
	if !hasParam {
		return i, def, nil
	}
	n, err := strconv.Atoi(param)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q after page index %d", param, i)
	}
	return i, n, nil
}

// parseOperation converts one flag value of the given kind into an
// operation. Validation against the page count happens when the operation
// is applied to a session.
func parseOperation(kind oplog.Kind, v string) (oplog.Operation, error) {
	switch kind {
	case oplog.KindRotate:
		i, deg, err := parseIndexParam(v, defaultDegrees)
		if err != nil {
			return oplog.Operation{}, err
		}
		return oplog.Rotate(i, deg), nil
	case oplog.KindDelete:
		if strings.Contains(v, ":") {
			return oplog.Operation{}, fmt.Errorf("delete takes no value")
		}
		i, _, err := parseIndexParam(v, 0)
		if err != nil {
			return oplog.Operation{}, err
		}
		return oplog.Delete(i), nil
	case oplog.KindDuplicate:
		i, copies, err := parseIndexParam(v, oplog.DefaultCopies)
		if err != nil {
			return oplog.Operation{}, err
		}
		return oplog.Duplicate(i, copies), nil
	}
	return oplog.Operation{}, fmt.Errorf("%w: %q", oplog.ErrUnknownOperation, kind)
}

// opList collects operations from every operation flag in command-line
// order.
type opList struct {
	ops []oplog.Operation
}

// opFlag is a pflag.Value for one operation kind. All kinds of one command
// share an opList, so --delete 0 --rotate 2 records the delete first.
type opFlag struct {
	kind oplog.Kind
	list *opList
	raw  []string
}

var _ pflag.Value = (*opFlag)(nil)

func (f *opFlag) Set(v string) error {
	op, err := parseOperation(f.kind, v)
	if err != nil {
		return err
	}
	f.raw = append(f.raw, v)
	f.list.ops = append(f.list.ops, op)
	return nil
}

func (f *opFlag) String() string { return strings.Join(f.raw, ",") }

func (f *opFlag) Type() string { return "stringArray" }

// addOperationFlags registers --rotate, --delete, and --duplicate on cmd
// against one shared list.
func addOperationFlags(cmd *cobra.Command) {
	list := &opList{}
	fs := cmd.Flags()
	fs.Var(&opFlag{kind: oplog.KindRotate, list: list}, "rotate",
		"rotate page i by deg degrees (i[:deg], deg is 90, 180, or 270; default 90)")
	fs.Var(&opFlag{kind: oplog.KindDelete, list: list}, "delete", "delete page i")
	fs.Var(&opFlag{kind: oplog.KindDuplicate, list: list}, "duplicate",
		"duplicate page i (i[:copies], default 2 copies)")
}

// flagOperations returns the operations given through the operation flags
// of cmd, in the order they appeared on the command line.
func flagOperations(cmd *cobra.Command) []oplog.Operation {
	f := cmd.Flags().Lookup("rotate")
	if f == nil {
		return nil
	}
	of, ok := f.Value.(*opFlag)
	if !ok {
		return nil
	}
	return append([]oplog.Operation(nil), of.list.ops...)
}
