package wait

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"immediate", Immediate, false},
		{"Wait-Then-Fail", WaitThenFail, false},
		{"wait-then-fallback", WaitThenFallback, false},
		{"eventually", Immediate, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParseMode(t, got.String()))
		})
	}
}

func mustParseMode(t *testing.T, s string) Mode {
	t.Helper()
	m, err := ParseMode(s)
	require.NoError(t, err)
	return m
}

func TestParseReadiness(t *testing.T) {
	for r := Present; r <= Editable; r++ {
		got, err := ParseReadiness(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseReadiness("clickable")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Readiness(42).String())
}

func TestExpectsAbsence(t *testing.T) {
	assert.True(t, AbsentOrInvisible.expectsAbsence())
	assert.True(t, Invisible.expectsAbsence())
	assert.False(t, Present.expectsAbsence())
	assert.False(t, Visible.expectsAbsence())
	assert.False(t, Editable.expectsAbsence())
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"immediate ignores durations", Policy{Mode: Immediate, Wait: -time.Second}, false},
		{"negative wait", FailAfter(-time.Second, time.Millisecond), true},
		{"negative poll", FallbackAfter(time.Second, -time.Millisecond), true},
		{"unknown mode", Policy{Mode: Mode(7)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.True(t, core.IsKind(err, core.KindNullArgument), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicy_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   Policy
		want Policy
	}{
		{"unchanged", FailAfter(time.Second, 100*time.Millisecond), FailAfter(time.Second, 100*time.Millisecond)},
		{"zero poll", FailAfter(time.Second, 0), FailAfter(time.Second, DefaultPoll)},
		{"tiny poll", FailAfter(time.Second, time.Millisecond), FailAfter(time.Second, MinPoll)},
		{"poll beyond wait", FallbackAfter(50*time.Millisecond, time.Second), FallbackAfter(50*time.Millisecond, 50*time.Millisecond)},
		{"negative wait", FailAfter(-time.Second, 20*time.Millisecond), FailAfter(0, 20*time.Millisecond)},
		{"immediate", Immediately(), Immediately()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.normalized())
		})
	}
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "immediate", Immediately().String())
	assert.Equal(t, "wait-then-fail(wait=10s, poll=250ms)", DefaultPolicy().String())
}
