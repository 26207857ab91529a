package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatesClient_FetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/INR", r.URL.Path)
		w.Write([]byte(`{"result":"success","base_code":"INR","rates":{"INR":1,"USD":0.012}}`))
	}))
	defer srv.Close()

	rates, err := NewRatesClient(srv.URL).FetchRates(context.Background(), "INR")
	require.NoError(t, err)
	assert.InDelta(t, 0.012, rates["USD"], 1e-9)
}

func TestRatesClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "error result", status: http.StatusOK, body: `{"result":"error","error-type":"unsupported-code"}`},
		{name: "wrong base", status: http.StatusOK, body: `{"result":"success","base_code":"USD","rates":{"USD":1}}`},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRatesClient(srv.URL).FetchRates(context.Background(), "INR")
			assert.Error(t, err)
		})
	}
}
