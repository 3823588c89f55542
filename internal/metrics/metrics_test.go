package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.Mutation("worker.create", nil)
	p.Mutation("worker.create", fmt.Errorf("create: %w", domain.NoCapacity("room 101 is full")))
	p.Mutation("worker.create", errors.New("db down"))
	p.ImportRow("rooms", true)
	p.ImportRow("rooms", false)
	p.ImportRow("rooms", false)
	p.ReportCache(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.mutations.WithLabelValues("worker.create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mutations.WithLabelValues("worker.create", "no_capacity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mutations.WithLabelValues("worker.create", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.importRows.WithLabelValues("rooms", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.reportCache.WithLabelValues("hit")))
}

func TestPrometheus_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg)
	require.NoError(t, err)
	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}
