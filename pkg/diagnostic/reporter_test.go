package diagnostic

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

func records(n int) []*core.ExceptionRecord {
	out := make([]*core.ExceptionRecord, n)
	for i := range out {
		out[i] = core.NewRecord(core.KindNotFound, fmt.Sprintf("missing %d", i))
	}
	return out
}

func TestReporter_CollectKeepsRaiseOrder(t *testing.T) {
	r := NewReporter(CollectErrors)
	recs := records(5)

	aborts := 0
	for _, rec := range recs {
		if err := r.Deliver(rec); err != nil {
			aborts++
		}
	}

	assert.Equal(t, 0, aborts)
	assert.Equal(t, recs, r.Collected())
}

func TestReporter_ThrowAbortsAtFirst(t *testing.T) {
	r := NewReporter(ThrowImmediately)
	recs := records(5)

	var delivered []error
	for _, rec := range recs {
		if err := r.Deliver(rec); err != nil {
			delivered = append(delivered, err)
			break
		}
	}

	require.Len(t, delivered, 1)
	assert.Same(t, recs[0], delivered[0])
	assert.Empty(t, r.Collected())
}

func TestReporter_ClearAndDrain(t *testing.T) {
	r := NewReporter(CollectErrors)
	for _, rec := range records(3) {
		require.NoError(t, r.Deliver(rec))
	}

	drained := r.Drain()
	assert.Len(t, drained, 3)
	assert.Empty(t, r.Collected())

	require.NoError(t, r.Deliver(core.NewRecord(core.KindTimeout, "late")))
	r.Clear()
	assert.Empty(t, r.Collected())
}

func TestReporter_SetMode(t *testing.T) {
	r := NewReporter(CollectErrors)
	require.NoError(t, r.Deliver(core.NewRecord(core.KindTimeout, "kept")))

	r.SetMode(ThrowImmediately)
	assert.Equal(t, ThrowImmediately, r.Mode())
	assert.Error(t, r.Deliver(core.NewRecord(core.KindTimeout, "thrown")))
	assert.Len(t, r.Collected(), 1, "switching modes keeps collected records")

	assert.NoError(t, r.Deliver(nil))
}

func TestReporter_ConcurrentDeliver(t *testing.T) {
	r := NewReporter(CollectErrors)
	var wg sync.WaitGroup
	for _, rec := range records(50) {
		wg.Add(1)
		go func(rec *core.ExceptionRecord) {
			defer wg.Done()
			_ = r.Deliver(rec)
		}(rec)
	}
	wg.Wait()
	assert.Len(t, r.Collected(), 50)
}

func TestParseDeliveryMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DeliveryMode
		wantErr bool
	}{
		{"", ThrowImmediately, false},
		{"throw", ThrowImmediately, false},
		{"COLLECT", CollectErrors, false},
		{"ignore", ThrowImmediately, true},
	}
	for _, tt := range tests {
		got, err := ParseDeliveryMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		if tt.in != "" {
			assert.Equal(t, got.String(), strings.ToLower(tt.in))
		}
	}
}
