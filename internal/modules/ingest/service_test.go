package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 1, "transactionDate": "2024-05-01", "description": "A", "debit": "$10.00"},
			{"id": 2, "transactionDate": "2024-05-02", "description": "B", "credit": "$20.00"}
		]`)
	}))
	defer server.Close()

	s := NewService(server.URL, zerolog.Nop())
	batch, err := s.FetchBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "A", batch[0]["description"])
}

func TestFetchBatch_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"id": 1, "debit": "5.00"}]`)
	}))
	defer server.Close()

	s := NewService(server.URL, zerolog.Nop())
	batch, err := s.FetchBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchBatch_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewService(server.URL, zerolog.Nop())
	_, err := s.FetchBatch(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchBatch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewService(server.URL, zerolog.Nop())
	_, err := s.FetchBatch(ctx)
	assert.Error(t, err)
}
