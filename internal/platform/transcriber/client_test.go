package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Submit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/transcript", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn/p1.mp3", body["audio_url"])

		_, _ = w.Write([]byte(`{"id":"tr_1","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v2/", "key-123")
	res, err := c.Submit(context.Background(), "https://cdn/p1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "tr_1", res.ID)
	assert.False(t, res.Done())
}

func TestClient_Fetch(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       bool
		wantTransient bool
		wantDone      bool
	}{
		{name: "completed", status: 200, body: `{"id":"tr_1","status":"completed","text":"hello"}`, wantDone: true},
		{name: "provider error", status: 200, body: `{"id":"tr_1","status":"error","error":"bad audio"}`, wantDone: true},
		{name: "rate limited", status: 429, wantErr: true, wantTransient: true},
		{name: "server error", status: 503, wantErr: true, wantTransient: true},
		{name: "unauthorized", status: 401, body: `{"error":"bad key"}`, wantErr: true},
		{name: "garbage", status: 200, body: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transcript/tr_1", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := NewClient(srv.URL, "k").Fetch(context.Background(), "tr_1")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantTransient, errors.Is(err, ErrTransient))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDone, res.Done())
		})
	}
}
