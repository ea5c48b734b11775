package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"tickphysics-lab/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	store := new(MockStore)
	router := NewRouter(zap.NewNop(), store, NewMetrics())
	srv := NewServer(&config.Server{Port: port, ReadTimeout: time.Second, WriteTimeout: time.Second}, router, zap.NewNop())

	errCh := srv.Start()

	url := "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/health/live"
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	_, open := <-errCh
	assert.False(t, open)
}
