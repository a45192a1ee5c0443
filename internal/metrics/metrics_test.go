package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveOp("create", nil)
	m.ObserveOp("create", nil)
	m.ObserveOp("create", errors.New("db down"))
	m.ObserveRender("bookmark", false)
	m.ObserveRender("bookmark", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommentOps.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommentOps.WithLabelValues("create", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ThreadRenders.WithLabelValues("bookmark")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadRenderErr.WithLabelValues("bookmark")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOp("vote", nil)
		m.ObserveRender("announcement", true)
	})
}
