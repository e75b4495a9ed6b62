package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   error
		want error
	}{
		{nil, nil},
		{fmt.Errorf("toggle like: %w", ErrUnauthorized), ErrUnauthorized},
		{fmt.Errorf("product p1: %w", ErrNotFound), ErrNotFound},
		{fmt.Errorf("purchase: %w", ErrConflict), ErrConflict},
		{ErrBusy, ErrBusy},
		{fmt.Errorf("%w: title required", ErrValidation), ErrValidation},
		{errors.New("connection reset by peer"), ErrTransient},
		{context.DeadlineExceeded, ErrTransient},
	}
	for _, c := range cases {
		if got := Classify(c.in); got != c.want {
			t.Fatalf("Classify(%v)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	if Message(nil) != "" {
		t.Fatalf("nil error must render empty")
	}
	if !strings.Contains(Message(ErrUnauthorized), "log in") {
		t.Fatalf("unauthorized should prompt for login: %q", Message(ErrUnauthorized))
	}
	if got := Message(fmt.Errorf("%w: price must be a number", ErrValidation)); !strings.Contains(got, "price must be a number") {
		t.Fatalf("validation message should carry details: %q", got)
	}
	if got := Message(fmt.Errorf("purchase: %w: already sold", ErrConflict)); !strings.Contains(got, "already sold") {
		t.Fatalf("conflict message should carry details: %q", got)
	}
	if got := Message(errors.New("boom")); got == "" || strings.Contains(got, "boom") {
		t.Fatalf("transient errors must render a generic message, got %q", got)
	}
}
