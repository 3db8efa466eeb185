package watcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwait_TimesOutAfterMaxAttempts(t *testing.T) {
	var polls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		assert.Equal(t, "transaction", r.URL.Query().Get("module"))
		assert.Equal(t, "gettxreceiptstatus", r.URL.Query().Get("action"))
		assert.Equal(t, "0xdead", r.URL.Query().Get("txhash"))
		assert.Equal(t, "scan-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"status":"1","result":{"status":"0"}}`))
	}))
	defer srv.Close()

	w := New(srv.URL, "scan-key", WithInterval(time.Millisecond), WithMaxAttempts(7))
	err := w.Await(context.Background(), "0xdead")

	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.Equal(t, int64(7), polls.Load(), "must poll exactly maxAttempts times")
}

func TestAwait_StopsOnSuccess(t *testing.T) {
	var polls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			w.Write([]byte(`{"status":"1","result":{"status":"0"}}`))
			return
		}
		w.Write([]byte(`{"status":"1","result":{"status":"1"}}`))
	}))
	defer srv.Close()

	w := New(srv.URL, "scan-key", WithInterval(time.Millisecond), WithMaxAttempts(40))
	err := w.Await(context.Background(), "0xbeef")

	require.NoError(t, err)
	assert.Equal(t, int64(3), polls.Load())
}

func TestAwait_KeepsPollingThroughExplorerFailures(t *testing.T) {
	var polls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			w.Write([]byte(`not json`))
			return
		}
		w.Write([]byte(`{"status":"1","result":{"status":"1"}}`))
	}))
	defer srv.Close()

	w := New(srv.URL, "scan-key", WithInterval(time.Millisecond), WithMaxAttempts(5))
	err := w.Await(context.Background(), "0xbeef")

	require.NoError(t, err)
	assert.Equal(t, int64(2), polls.Load())
}

func TestAwait_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","result":{"status":"0"}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(srv.URL, "scan-key", WithInterval(time.Hour), WithMaxAttempts(40))
	err := w.Await(ctx, "0xbeef")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","result":{"status":"1"}}`))
	}))
	defer srv.Close()

	w := New(srv.URL, "scan-key")
	confirmed, err := w.Check(context.Background(), "0xbeef")
	require.NoError(t, err)
	assert.True(t, confirmed)
}
