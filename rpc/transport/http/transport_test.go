package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ValentinKolb/privlock/rpc/common"
)

// newTestServer serves the transport handler on an httptest server
func newTestServer(t *testing.T, handler func(serviceID uint64, req []byte) []byte) *httptest.Server {
	t.Helper()

	st := &httpServerTransport{}
	st.RegisterHandler(handler)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{serviceId}", loggerMiddleware(st.handleRequest))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHttpRoundTrip(t *testing.T) {
	server := newTestServer(t, func(serviceID uint64, req []byte) []byte {
		return []byte(fmt.Sprintf("%d:%s", serviceID, req))
	})

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{Endpoints: []string{server.URL}, TimeoutSecond: 2, RetryCount: 1}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Send(200, []byte("on"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "200:on" {
		t.Errorf("Expected 200:on, got %q", resp)
	}
}

func TestHttpInvalidServiceID(t *testing.T) {
	server := newTestServer(t, func(serviceID uint64, req []byte) []byte { return req })

	resp, err := http.Post(server.URL+"/not-a-number", "application/octet-stream", nil)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestHttpSendWithoutConnect(t *testing.T) {
	if _, err := NewHttpClientTransport().Send(1, nil); err == nil {
		t.Errorf("Expected error for unconnected transport")
	}
}

func TestHttpServerCloseBeforeListen(t *testing.T) {
	st := NewHttpServerTransport()
	st.RegisterHandler(func(serviceID uint64, req []byte) []byte { return req })

	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := st.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}); err != nil {
		t.Errorf("Listen after Close should return nil, got %v", err)
	}
}
