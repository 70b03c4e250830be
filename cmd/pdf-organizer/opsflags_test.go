// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-organizer/internal/oplog"
)

func TestParseIndexParam(t *testing.T) {
	tests := []struct {
		in        string
		wantIndex int
		wantParam int
		wantErr   bool
	}{
		{"3", 3, 7, false},
		{"3:180", 3, 180, false},
		{" 0:270 ", 0, 270, false},
		{"-1", -1, 7, false},
		{"x", 0, 0, true},
		{"2:", 0, 0, true},
		{"2:abc", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			i, n, err := parseIndexParam(tt.in, 7)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, i)
			assert.Equal(t, tt.wantParam, n)
		})
	}
}

func newOpsCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "organize"}
	addOperationFlags(cmd)
	cmd.Flags().String("ops-file", "", "")
	return cmd
}

func TestFlagOperations_CommandLineOrder(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []oplog.Operation
	}{
		{
			name: "delete before rotate",
			args: []string{"--delete", "0", "--rotate", "2"},
			want: []oplog.Operation{oplog.Delete(0), oplog.Rotate(2, 90)},
		},
		{
			name: "interleaved kinds",
			args: []string{"--duplicate", "3", "--rotate", "0:180", "--delete", "1", "--rotate", "2", "--duplicate", "4:5"},
			want: []oplog.Operation{
				oplog.Duplicate(3, oplog.DefaultCopies),
				oplog.Rotate(0, 180),
				oplog.Delete(1),
				oplog.Rotate(2, 90),
				oplog.Duplicate(4, 5),
			},
		},
		{
			name: "equals form",
			args: []string{"--rotate=1:270", "--delete=0"},
			want: []oplog.Operation{oplog.Rotate(1, 270), oplog.Delete(0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newOpsCommand(t)
			require.NoError(t, cmd.ParseFlags(tt.args))

			ops, err := requestedOperations(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ops)
		})
	}
}

func TestFlagOperations_AfterScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "ops.yaml")
	require.NoError(t, os.WriteFile(script, []byte("operations:\n  - type: duplicate\n    pageIndex: 1\n    copies: 2\n"), 0o644))

	cmd := newOpsCommand(t)
	require.NoError(t, cmd.ParseFlags([]string{"--delete", "0", "--ops-file", script}))

	ops, err := requestedOperations(cmd)
	require.NoError(t, err)
	assert.Equal(t, []oplog.Operation{oplog.Duplicate(1, 2), oplog.Delete(0)}, ops)
}

func TestFlagOperations_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"bad rotate", []string{"--rotate", "a"}, "--rotate"},
		{"delete with value", []string{"--delete", "1:2"}, "delete takes no value"},
		{"bad duplicate", []string{"--duplicate", "1:x"}, "--duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newOpsCommand(t).ParseFlags(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFlagOperations_Empty(t *testing.T) {
	cmd := newOpsCommand(t)
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Empty(t, flagOperations(cmd))
	assert.Empty(t, flagOperations(&cobra.Command{}))
}
