package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/transport"
	"github.com/hashicorp/go-multierror"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// shutdownTimeout bounds how long Close waits for running handlers
const shutdownTimeout = 5 * time.Second

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector         IServerConnector
	handler           transport.ServerHandleFunc
	config            common.ServerConfig
	listenerMu        sync.Mutex
	listener          net.Listener
	conns             *xsync.MapOf[net.Conn, struct{}]
	closed            atomic.Bool
	bufferPool        *sync.Pool
	maxWorkersPerConn int

	// handlers counts running handler calls of all connections. handlersMu
	// orders handlers.Add against the Wait in Close.
	handlersMu sync.RWMutex
	handlers   sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with a per-connection worker pool
func NewBaseServerTransport(connector IServerConnector, bufferSize int, maxWorkersPerConn int) transport.IRPCServerTransport {
	// minimum one worker per connection
	if maxWorkersPerConn < 1 {
		maxWorkersPerConn = 1
	}
	if bufferSize < headerSize {
		bufferSize = headerSize
	}

	return &serverTransport{
		connector:         connector,
		maxWorkersPerConn: maxWorkersPerConn,
		conns:             xsync.NewMapOf[net.Conn, struct{}](),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.listenerMu.Lock()
	if t.closed.Load() {
		t.listenerMu.Unlock()
		_ = listener.Close()
		return nil
	}
	t.listener = listener
	t.listenerMu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), config.Endpoint, t.maxWorkersPerConn)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		t.conns.Store(conn, struct{}{})
		go t.handleConnection(conn)
	}
}

// Close stops the listener, closes all connections and waits until running
// handlers returned, so the services behind the handler can be torn down safely.
func (t *serverTransport) Close() error {
	t.handlersMu.Lock()
	alreadyClosed := t.closed.Swap(true)
	t.handlersMu.Unlock()
	if alreadyClosed {
		return nil
	}

	var result *multierror.Error

	t.listenerMu.Lock()
	if t.listener != nil {
		if err := t.listener.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	t.listenerMu.Unlock()

	t.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		t.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		Logger.Warningf("%s server: handlers still running after %s", t.connector.GetName(), shutdownTimeout)
		result = multierror.Append(result, fmt.Errorf("handlers still running after %s", shutdownTimeout))
	}
	return result.ErrorOrNil()
}

// startHandler registers a handler call, it fails once the transport is closed
func (t *serverTransport) startHandler() bool {
	t.handlersMu.RLock()
	defer t.handlersMu.RUnlock()
	if t.closed.Load() {
		return false
	}
	t.handlers.Add(1)
	return true
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection handles incoming requests for one connection.
// Idle connections are kept open; the timeout only bounds writes.
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer func() {
		t.conns.Delete(conn)
		_ = conn.Close()
	}()

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// counting semaphore limiting concurrent workers for this connection
	workerSemaphore := make(chan struct{}, t.maxWorkersPerConn)
	var wg sync.WaitGroup
	var writeMu sync.Mutex

	handleResponse := func(serviceID, requestID uint64, data []byte) {
		if !t.startHandler() {
			Logger.Debugf("Dropping request %d for service %d, server is closing", requestID, serviceID)
			return
		}
		start := time.Now()
		resp := t.handler(serviceID, data)
		t.handlers.Done()
		Logger.Debugf("Processed request for service %d with requestID %d took %s", serviceID, requestID, time.Since(start))

		writeMu.Lock()
		defer writeMu.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		if err := writeFrame(conn, serviceID, requestID, resp); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	}

	for {
		buf := t.bufferPool.Get().([]byte)

		serviceID, requestID, data, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				Logger.Debugf("Connection closed")
			default:
				Logger.Errorf("Error reading request: %v", err)
			}
			break
		}

		// blocks while maxWorkersPerConn requests are in progress
		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer func() {
				t.bufferPool.Put(buf)
				<-workerSemaphore
				wg.Done()
			}()
			handleResponse(serviceID, requestID, data)
		}()
	}

	// Wait for all workers so no in-progress work is lost
	wg.Wait()
}
