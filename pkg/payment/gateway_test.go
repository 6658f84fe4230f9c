package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-1", body["reference"])
		assert.Equal(t, float64(2550), body["amount"])
		assert.Equal(t, "https://app.example/paid", body["callback_url"])

		w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://pay.example/abc","access_code":"abc","reference":"ref-1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "sk_test", "https://app.example/paid")
	sess, err := c.CreateSession(context.Background(), SessionRequest{
		Reference: "ref-1", Amount: 25.50, Currency: "GHS", Email: "a@b.c",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", sess.AuthorizationURL)
	assert.Equal(t, "ref-1", sess.Reference)
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref-2", r.URL.Path)
		w.Write([]byte(`{"status":true,"data":{"reference":"ref-2","status":"SUCCESS","amount":1000,"currency":"GHS","paid_at":"2026-05-01T10:00:00Z"}}`))
	}))
	defer srv.Close()

	v, err := NewClient(srv.URL, "sk", "").Verify(context.Background(), "ref-2")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, v.Status)
	assert.Equal(t, 10.0, v.Amount)
	require.NotNil(t, v.PaidAt)
}

func TestGatewayErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-200", http.StatusUnauthorized, `{"status":false,"message":"bad key"}`},
		{"status false", http.StatusOK, `{"status":false,"message":"duplicate reference"}`},
		{"garbage", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "sk", "").Verify(context.Background(), "ref")
			assert.ErrorIs(t, err, ErrGateway)
		})
	}
}
