package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

const (
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection represents a single net connection
type clientConnection struct {
	endpoint     string
	parent       *clientTransport
	connMu       sync.Mutex // Protects conn and serializes writes
	conn         net.Conn
	requestChans *xsync.MapOf[uint64, chan responseResult]
	stopCh       chan struct{} // Close signal for the reader goroutine
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connectionsMu sync.RWMutex
	connections   []*clientConnection
	nextConnIndex atomic.Uint64 // Round Robin counter
	nextRequestID atomic.Uint64 // unique request IDs
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()
	t.config = config

	connectionsPerEP := 1
	if config.ConnectionsPerEndpoint > 0 {
		connectionsPerEP = config.ConnectionsPerEndpoint
	}

	connections := make([]*clientConnection, 0, len(config.Endpoints)*connectionsPerEP)
	for _, endpoint := range config.Endpoints {
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint:     endpoint,
				parent:       t,
				requestChans: xsync.NewMapOf[uint64, chan responseResult](),
				stopCh:       make(chan struct{}),
			}

			if err := clientConn.reconnect(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}

			connections = append(connections, clientConn)
			go clientConn.readResponses()
		}
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Debugf("Connected %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(config.Endpoints)*connectionsPerEP, len(config.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(serviceID uint64, req []byte) ([]byte, error) {
	maxRetries := t.config.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	backoff := initialBackoff

	for i := 0; i < maxRetries; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		data, err := conn.send(serviceID, t.nextRequestID.Add(1), req)
		if err == nil {
			return data, nil
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			time.Sleep(jitter(backoff))
			backoff = min(backoff*2, maxBackoff)
		}
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	switch len(t.connections) {
	case 0:
		return nil
	case 1:
		return t.connections[0]
	default:
		index := t.nextConnIndex.Add(1) % uint64(len(t.connections))
		return t.connections[index]
	}
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		close(c.stopCh)

		c.connMu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()

		c.failPending(fmt.Errorf("transport closed"))
	}
}

// timeout returns the configured request timeout (0 = none)
func (t *clientTransport) timeout() time.Duration {
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

// send writes one request and waits for its response
func (c *clientConnection) send(serviceID, requestID uint64, req []byte) ([]byte, error) {
	respCh := make(chan responseResult, 1)
	c.requestChans.Store(requestID, respCh)
	defer c.requestChans.Delete(requestID)

	timeout := c.parent.timeout()

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		return nil, fmt.Errorf("connection to %s is not established", c.endpoint)
	}
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := writeFrame(c.conn, serviceID, requestID, req)
	c.connMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, fmt.Errorf("request timed out after %s", timeout)
	case <-c.stopCh:
		return nil, fmt.Errorf("transport closed")
	}
}

// readResponses reads responses in a loop and distributes them to waiting requests.
// A broken connection fails all pending requests and is re-established in the background.
func (c *clientConnection) readResponses() {
	backoff := initialBackoff

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if err := c.reconnect(); err != nil {
				Logger.Debugf("Failed to reconnect to %s: %v", c.endpoint, err)
				select {
				case <-c.stopCh:
					return
				case <-time.After(jitter(backoff)):
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			Logger.Infof("Reconnected to %s", c.endpoint)
			backoff = initialBackoff
			continue
		}

		serviceID, requestID, data, err := readFrame(conn, nil)
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}

			if !errors.Is(err, net.ErrClosed) {
				Logger.Warningf("Connection to %s lost: %v", c.endpoint, err)
			}

			c.connMu.Lock()
			if c.conn == conn {
				_ = conn.Close()
				c.conn = nil
			}
			c.connMu.Unlock()

			c.failPending(fmt.Errorf("connection lost: %w", err))
			continue
		}

		if respCh, found := c.requestChans.Load(requestID); found {
			respCh <- responseResult{data: data}
		} else {
			Logger.Warningf("Received response for unknown request ID %d with service ID %d", requestID, serviceID)
		}
	}
}

// failPending completes all waiting requests with err
func (c *clientConnection) failPending(err error) {
	c.requestChans.Range(func(requestID uint64, respCh chan responseResult) bool {
		select {
		case respCh <- responseResult{err: err}:
		default:
		}
		return true
	})
}

// reconnect establishes or restores the connection to the endpoint
func (c *clientConnection) reconnect() error {
	conn, err := c.parent.connector.Connect(c.endpoint, c.parent.timeout())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	select {
	case <-c.stopCh:
		_ = conn.Close()
		return fmt.Errorf("transport closed")
	default:
	}

	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	return nil
}

// jitter applies a random jitter of +-10% to d
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.9 + 0.2*rand.Float64()))
}
