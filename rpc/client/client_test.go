package client_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/privlock/lib/backend"
	"github.com/ValentinKolb/privlock/lib/backend/noop"
	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/client"
	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/ValentinKolb/privlock/rpc/server"
	"github.com/ValentinKolb/privlock/rpc/transport/unix"
)

var agentBackend = noop.New()

func init() {
	backend.Register("client-test-agent", func(backend.Options) (privacy.IBackend, error) {
		return agentBackend, nil
	})
}

// startServer runs a privlock server on a unix socket with a lock on 100 and an overlay on 200
func startServer(t *testing.T, overlayAsync bool) string {
	t.Helper()

	endpoint := filepath.Join(t.TempDir(), "privlock.sock")
	s := server.NewRPCServer(common.ServerConfig{
		Services: []common.ServerService{
			{ServiceID: 100, Type: common.ServiceTypeLock, Backend: "noop"},
			{ServiceID: 200, Type: common.ServiceTypeOverlay, Backend: "client-test-agent"},
		},
		OverlayAsync:  overlayAsync,
		Endpoint:      endpoint,
		TimeoutSecond: 2,
		LogLevel:      "info",
	}, backend.DefaultOptions(), unix.NewUnixDefaultServerTransport(), serializer.NewBinarySerializer())

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("unix", endpoint)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		<-done
	})
	return endpoint
}

func clientConfig(endpoint string) common.ClientConfig {
	return common.ClientConfig{
		Endpoints:     []string{endpoint},
		TimeoutSecond: 2,
		RetryCount:    2,
	}
}

func TestRPCPrivacyLock(t *testing.T) {
	endpoint := startServer(t, false)

	lock, err := client.NewRPCPrivacyLock(100, clientConfig(endpoint), unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("NewRPCPrivacyLock failed: %v", err)
	}
	defer lock.Close()

	if err := lock.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if lock.ImplKey() != "noop" || lock.IsAsync() {
		t.Errorf("Unexpected lock description: key=%s async=%t", lock.ImplKey(), lock.IsAsync())
	}

	if ok, err := lock.Acquire(1); !ok || err != nil {
		t.Fatalf("Acquire(1) = %t, %v", ok, err)
	}
	if ok, err := lock.Acquire(1); !ok || err != nil {
		t.Errorf("Re-entrant Acquire(1) = %t, %v", ok, err)
	}
	if ok, err := lock.Acquire(2); ok || !errors.Is(err, privacy.ErrAlreadyHeld) {
		t.Errorf("Acquire(2) = %t, %v, expected ErrAlreadyHeld", ok, err)
	}
	if ok, err := lock.Acquire(privacy.InvalidConnID); ok || err == nil {
		t.Errorf("Acquire with the invalid id must fail")
	}

	if owner := lock.CurrentOwner(); owner != 1 {
		t.Errorf("Expected owner 1, got %d", owner)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := privacy.AwaitConfirmed(ctx, lock, 1, 10*time.Millisecond); err != nil {
		t.Errorf("AwaitConfirmed failed: %v", err)
	}

	info, err := lock.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Owner != 1 || info.Stats["noop.enable.count"] != 1 {
		t.Errorf("Unexpected info: %+v", info)
	}

	lock.Release(2)
	if owner := lock.CurrentOwner(); owner != 1 {
		t.Errorf("Release by a non owner changed the owner to %d", owner)
	}

	lock.Release(1)
	if owner := lock.CurrentOwner(); owner != privacy.InvalidConnID {
		t.Errorf("Expected no owner, got %d", owner)
	}

	// teardown force releases
	if ok, _ := lock.Acquire(3); !ok {
		t.Fatalf("Acquire(3) failed")
	}
	lock.Teardown()
	if owner := lock.CurrentOwner(); owner != privacy.InvalidConnID {
		t.Errorf("Expected no owner after teardown, got %d", owner)
	}
}

func TestOverlayBackendThroughRegistry(t *testing.T) {
	endpoint := startServer(t, false)

	opts := backend.DefaultOptions()
	opts.OverlayServiceID = 200
	opts.OverlayTransport = "unix"
	opts.OverlaySerializer = "binary"
	opts.OverlayClient = clientConfig(endpoint)

	b, err := backend.New(backend.KeyOverlay, opts)
	if err != nil {
		t.Fatalf("backend.New failed: %v", err)
	}

	lock := privacy.NewPrivacyLock(b, backend.KeyOverlay)
	defer lock.Close()

	if err := lock.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if ok, err := lock.Acquire(7); !ok || err != nil {
		t.Fatalf("Acquire(7) = %t, %v", ok, err)
	}
	if !agentBackend.Enabled() {
		t.Errorf("Expected the agent backend to be enabled")
	}
	if ok, err := lock.Confirmed(7); !ok || err != nil {
		t.Errorf("Confirmed(7) = %t, %v", ok, err)
	}

	lock.Release(7)
	if agentBackend.Enabled() {
		t.Errorf("Expected the agent backend to be disabled")
	}
}

func TestAsyncOverlayAgent(t *testing.T) {
	endpoint := startServer(t, true)

	b, err := client.NewRPCOverlayBackend(200, clientConfig(endpoint), unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("NewRPCOverlayBackend failed: %v", err)
	}

	lock := privacy.NewPrivacyLock(b, backend.KeyOverlay)
	defer lock.Close()

	if err := lock.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !lock.IsAsync() {
		t.Errorf("Expected the lock to report an async backend")
	}

	if ok, err := lock.Acquire(9); !ok || err != nil {
		t.Fatalf("Acquire(9) = %t, %v", ok, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := privacy.AwaitConfirmed(ctx, lock, 9, 10*time.Millisecond); err != nil {
		t.Fatalf("AwaitConfirmed failed: %v", err)
	}

	status, err := b.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Active || !status.Async || status.Pending {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestNewClientTransport(t *testing.T) {
	for _, name := range client.TransportNames {
		if _, err := client.NewClientTransport(name); err != nil {
			t.Errorf("NewClientTransport(%q) failed: %v", name, err)
		}
	}
	if _, err := client.NewClientTransport("carrier-pigeon"); err == nil {
		t.Errorf("Expected error for unknown transport")
	}
}

func TestOverlayBackendNeedsEndpoint(t *testing.T) {
	_, err := client.NewRPCOverlayBackend(200, common.ClientConfig{}, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
	if err == nil {
		t.Errorf("Expected error without endpoints")
	}
}
