package syncerr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: KindUnknown},
		{name: "direct", err: New(KindScanRead, "hash", "a.txt", fs.ErrPermission), want: KindScanRead},
		{name: "wrapped", err: fmt.Errorf("scan source: %w", New(KindStructural, "stat", "/dst", nil)), want: KindStructural},
		{name: "cancelled sentinel", err: fmt.Errorf("execute: %w", ErrCancelled), want: KindCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorIsAndUnwrap(t *testing.T) {
	err := New(KindExecution, "copy", "dir/a.txt", fs.ErrNotExist)

	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("errors.Is(err, fs.ErrNotExist) = false, want true")
	}
	if errors.Is(err, ErrCancelled) {
		t.Errorf("execution error must not match ErrCancelled")
	}
	if got, want := err.Error(), "copy dir/a.txt: file does not exist"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cancelled := New(KindCancelled, "scan", "/src", nil)
	if !errors.Is(cancelled, ErrCancelled) {
		t.Errorf("errors.Is(cancelled, ErrCancelled) = false, want true")
	}
	if !IsCancelled(fmt.Errorf("wrap: %w", cancelled)) {
		t.Errorf("IsCancelled() = false, want true")
	}
	if got, want := cancelled.Error(), "scan /src: cancelled"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
