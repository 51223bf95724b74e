package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.ObserveLookup(ResultFound)
	c.ObserveLookup(ResultFound)
	c.ObserveLookup(ResultNotFound)
	c.ObserveSave(ResultOverflow)
	c.ObserveBlob(128)
	c.ObserveCorrupt()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.lookups.WithLabelValues(ResultFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues(ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.saves.WithLabelValues(ResultOverflow)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.corruptBlobs))
	assert.Equal(t, 1, testutil.CollectAndCount(c.blobBytes))
}

func TestCollectors_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
}

func TestCollectors_NilIsNoop(t *testing.T) {
	var c *Collectors
	c.ObserveLookup(ResultError)
	c.ObserveSave(ResultCreated)
	c.ObserveBlob(1)
	c.ObserveCorrupt()
}
