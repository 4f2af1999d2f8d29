package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsShutdown(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"canceled", context.Canceled, true},
		{"wrapped canceled", fmt.Errorf("read loop: %w", context.Canceled), true},
		{"deadline", context.DeadlineExceeded, false},
		{"real failure", errors.New("bind: address already in use"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isShutdown(tc.err); got != tc.want {
				t.Fatalf("isShutdown(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
