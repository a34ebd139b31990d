package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type payload struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

func TestSend_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "llama3.2", p.Model)
		assert.Equal(t, "hello", p.Text)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(5 * time.Second)
	resp, err := c.Send(context.Background(), srv.URL, payload{Model: "llama3.2", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, resp.DecodeJSON(&out))
	assert.True(t, out.OK)
}

func TestSend_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	}))
	defer srv.Close()

	_, err := New(5*time.Second).Send(context.Background(), srv.URL, payload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHTTPStatus))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "not found")
}

func TestSend_AcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := New(5*time.Second).Send(context.Background(), srv.URL, payload{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestSend_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "localhost:11434/api/chat"},
		{"ftp", "ftp://example.com/api/chat"},
		{"no host", "http:///api/chat"},
		{"bad port", "http://[::1]:namedport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(time.Second).Send(context.Background(), tt.url, payload{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidURL), "got: %v", err)
		})
	}
}

func TestSend_UnreachableEndpointReleasesResources(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(2 * time.Second)
	_, err := c.Send(context.Background(), url, payload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed), "got: %v", err)
	c.CloseIdleConnections()
}

func TestSend_SuccessReleasesConnection(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))

	c := New(2 * time.Second)
	_, err := c.Send(context.Background(), srv.URL, payload{})
	require.NoError(t, err)

	c.CloseIdleConnections()
	srv.Close()
}

func TestSend_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := New(2*time.Second).Send(ctx, srv.URL, payload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(50*time.Millisecond).Send(context.Background(), srv.URL, payload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
}

func TestSend_UnmarshalablePayload(t *testing.T) {
	_, err := New(time.Second).Send(context.Background(), "http://localhost:1", map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport: marshaling payload")
}

func TestResponse_DecodeJSON(t *testing.T) {
	var v map[string]any

	err := (&Response{Body: []byte("not json")}).DecodeJSON(&v)
	assert.True(t, errors.Is(err, ErrDecodeFailed))

	err = (&Response{Body: []byte{'"', 0xff, 0xfe, '"'}}).DecodeJSON(&v)
	assert.True(t, errors.Is(err, ErrDecodeFailed))
	assert.Contains(t, err.Error(), "UTF-8")

	require.NoError(t, (&Response{Body: []byte(`{"a":1}`)}).DecodeJSON(&v))
	assert.Equal(t, float64(1), v["a"])
}
