package mcp

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil similarity service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSimilarityService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Similarity: &mockSimilarityService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil similarity service returns error", func(t *testing.T) {
		ports := &Ports{Keyword: &mockKeywordService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSimilarityService)
	})

	t.Run("similarity only is valid", func(t *testing.T) {
		ports := &Ports{
			Similarity: &mockSimilarityService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Similarity: &mockSimilarityService{},
			Keyword:    &mockKeywordService{},
			Sync:       &mockSyncOrchestrator{},
			Gallery:    &mockGalleryService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func TestServer_ServeHTTP(t *testing.T) {
	server, err := NewServer(&Ports{Similarity: &mockSimilarityService{}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.serveHTTP(ctx, ln) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+ln.Addr().String()+"/", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestServer_RunHTTPBadAddress(t *testing.T) {
	server, err := NewServer(&Ports{Similarity: &mockSimilarityService{}})
	require.NoError(t, err)

	err = server.RunHTTP(context.Background(), "127.0.0.1:-1")

	assert.Error(t, err)
}
