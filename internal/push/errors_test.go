package push

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	transient := errors.New("connection reset by peer")

	cases := []struct {
		name     string
		err      error
		stopping bool
		want     failureKind
	}{
		{name: "transient", err: transient, want: failureTransient},
		{name: "transient while stopping", err: transient, stopping: true, want: failureStopping},
		{name: "auth", err: fmt.Errorf("login: %w", ErrAuthenticationFailed), want: failureAuth},
		{name: "auth while stopping", err: ErrAuthenticationFailed, stopping: true, want: failureAuth},
		{name: "no idle", err: fmt.Errorf("%w: conn", ErrNotIdleCapable), stopping: true, want: failureNoIdle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.err, tc.stopping), "got %s", classify(tc.err, tc.stopping))
		})
	}
}
