package frankfurter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2024-05-01", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("from"))
		assert.Equal(t, "USD", r.URL.Query().Get("to"))
		fmt.Fprint(w, `{"base": "EUR", "date": "2024-05-01", "rates": {"USD": 1.0731}}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, zerolog.Nop())
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	rate, err := client.Rate(context.Background(), date, "EUR", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 1.0731, rate, 1e-9)
}

func TestRate_SameCurrencySkipsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, zerolog.Nop())
	rate, err := client.Rate(context.Background(), time.Now(), "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	assert.False(t, called)
}

func TestRate_MissingTargetCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base": "EUR", "date": "2024-05-01", "rates": {"GBP": 0.85}}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, zerolog.Nop())
	_, err := client.Rate(context.Background(), time.Now(), "EUR", "USD")
	assert.Error(t, err)
}

func TestRate_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown currency", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, zerolog.Nop())
	_, err := client.Rate(context.Background(), time.Now(), "ZZZ", "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
