package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreExposedOnHandler(t *testing.T) {
	mp, err := SetupPrometheusMetrics()
	require.NoError(t, err)
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp.Provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSend(ctx, "delivered")
	m.RecordRefresh(ctx, "chat_list", errors.New("boom"))
	m.RecordResponder(ctx, "ok", 20*time.Millisecond)
	m.RecordCache(ctx, true)

	srv := httptest.NewServer(mp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "chat_sends_total")
	assert.Contains(t, string(body), `outcome="delivered"`)
	assert.Contains(t, string(body), `view="chat_list"`)
	assert.Contains(t, string(body), "cache_lookups_total")
}

func TestNoopMetricsDoNotPanic(t *testing.T) {
	m := Noop()
	assert.NotPanics(t, func() {
		m.RecordSend(context.Background(), "busy")
		m.RecordRefresh(context.Background(), "conversation", nil)
	})
}

func TestSetupTracingWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing("assistant-test", true, &buf)
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "unit")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "unit"`)
}

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing("assistant-test", false, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
