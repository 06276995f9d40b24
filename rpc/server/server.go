package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/privlock/lib/backend"
	"github.com/ValentinKolb/privlock/lib/overlay"
	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/ValentinKolb/privlock/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("server")

// serverService is a service hosted by the RPC server
type serverService struct {
	Config  common.ServerService
	Adapter IRPCServerAdapter
	Lock    *privacy.Lock // nil for overlay services
}

// NewRPCServer creates a new RPC server
// It takes a config, the backend options, a transport and a serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		backend.DefaultOptions(),
//		unix.NewUnixDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	backendOpts backend.Options,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	return &RPCServer{
		config:      config,
		backendOpts: backendOpts,
		transport:   transport,
		serializer:  serializer,
		services:    xsync.NewMapOf[uint64, serverService](),
	}
}

type RPCServer struct {
	config      common.ServerConfig
	backendOpts backend.Options
	transport   transport.IRPCServerTransport
	serializer  serializer.IRPCSerializer
	services    *xsync.MapOf[uint64, serverService]

	metricsServer *http.Server
	closeOnce     sync.Once
	closeErr      error
}

// Init creates all services of the configuration and registers the transport
// handler. Serve calls Init, it only needs to be called directly when the
// server is used without its transport (e.g. in tests).
func (s *RPCServer) Init() error {
	ids := make(map[uint64]bool)
	usedBackends := make(map[string]uint64)

	for _, service := range s.config.Services {
		if ids[service.ServiceID] {
			return fmt.Errorf("duplicate service id %d", service.ServiceID)
		}
		ids[service.ServiceID] = true

		// two services on one backend would fight over the same display
		if other, used := usedBackends[service.Backend]; used {
			return fmt.Errorf("backend %q of service %d is already used by service %d", service.Backend, service.ServiceID, other)
		}
		usedBackends[service.Backend] = service.ServiceID
	}

	for _, service := range s.config.Services {
		created, err := s.createService(service)
		if err != nil {
			_ = s.closeServices()
			return fmt.Errorf("service %d: %w", service.ServiceID, err)
		}
		s.services.Store(service.ServiceID, created)
		Logger.Infof("created %s service %d with %s backend", service.Type, service.ServiceID, service.Backend)
	}

	s.transport.RegisterHandler(s.handle)
	return nil
}

// Serve starts the RPC server
// This function initializes the services, starts the transport layer and
// blocks until the server is closed or receives SIGINT or SIGTERM.
func (s *RPCServer) Serve() error {
	Logger.Infof("Starting RPC Server")
	Logger.Infof("%s", s.config.String())

	if err := s.Init(); err != nil {
		return err
	}

	if s.config.MetricsEndpoint != "" {
		s.startMetricsServer()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stopCh := make(chan struct{})
	defer close(stopCh)

	go func() {
		select {
		case sig := <-sigCh:
			Logger.Infof("received %s, shutting down", sig)
			if err := s.Close(); err != nil {
				Logger.Errorf("shutdown: %v", err)
			}
		case <-stopCh:
		}
	}()

	if err := s.transport.Listen(s.config); err != nil {
		result := multierror.Append(nil, fmt.Errorf("listen: %w", err))
		if closeErr := s.Close(); closeErr != nil {
			result = multierror.Append(result, closeErr)
		}
		return result.ErrorOrNil()
	}
	return s.Close()
}

// Close stops the transport and the metrics endpoint, tears down every lock and
// closes every overlay controller. It is safe to call Close more than once.
func (s *RPCServer) Close() error {
	s.closeOnce.Do(func() {
		var result *multierror.Error

		if err := s.transport.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close transport: %w", err))
		}

		if s.metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.metricsServer.Shutdown(ctx); err != nil {
				result = multierror.Append(result, fmt.Errorf("close metrics endpoint: %w", err))
			}
			cancel()
		}

		if err := s.closeServices(); err != nil {
			result = multierror.Append(result, err)
		}

		s.closeErr = result.ErrorOrNil()
		Logger.Infof("RPC Server stopped")
	})
	return s.closeErr
}

// WritePrometheus writes the metrics of all locks and the process metrics
// in Prometheus text format to w.
func (s *RPCServer) WritePrometheus(w io.Writer) {
	for _, id := range s.serviceIDs() {
		if service, ok := s.services.Load(id); ok && service.Lock != nil {
			service.Lock.WritePrometheus(w)
		}
	}
	metrics.WritePrometheus(w, true)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// createService creates the backend and the adapter of one service
func (s *RPCServer) createService(config common.ServerService) (serverService, error) {
	b, err := backend.New(config.Backend, s.backendOpts)
	if err != nil {
		return serverService{}, err
	}

	registry := gometrics.NewRegistry()
	b = backend.Instrument(b, registry, config.Backend)
	stats := func() map[string]float64 { return backend.Snapshot(registry) }

	switch config.Type {
	case common.ServiceTypeLock:
		lock := privacy.NewPrivacyLock(b, config.Backend)
		if err := lock.Init(); err != nil {
			_ = lock.Close()
			return serverService{}, err
		}
		return serverService{
			Config:  config,
			Adapter: NewPrivacyLockServerAdapter(lock, stats),
			Lock:    lock,
		}, nil

	case common.ServiceTypeOverlay:
		controller := overlay.NewController(b, s.config.OverlayAsync)
		if err := controller.Init(); err != nil {
			_ = controller.Close()
			return serverService{}, err
		}
		return serverService{
			Config:  config,
			Adapter: NewOverlayServerAdapter(controller),
		}, nil

	default:
		return serverService{}, fmt.Errorf("invalid service type: %s", config.Type)
	}
}

// handle decodes a request, routes it to the service and encodes the response
func (s *RPCServer) handle(serviceID uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if service, ok := s.services.Load(serviceID); !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("service %d not found", serviceID))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = service.Adapter.Handle(&msg)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response for service %d: %v", serviceID, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// closeServices closes all services in reverse id order
func (s *RPCServer) closeServices() error {
	var result *multierror.Error

	ids := s.serviceIDs()
	for i := len(ids) - 1; i >= 0; i-- {
		service, ok := s.services.LoadAndDelete(ids[i])
		if !ok {
			continue
		}
		if err := service.Adapter.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close service %d: %w", ids[i], err))
		}
		Logger.Infof("closed %s service %d", service.Config.Type, ids[i])
	}
	return result.ErrorOrNil()
}

// serviceIDs returns the sorted ids of all services
func (s *RPCServer) serviceIDs() []uint64 {
	var ids []uint64
	s.services.Range(func(id uint64, _ serverService) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// startMetricsServer serves /metrics on the configured endpoint
func (s *RPCServer) startMetricsServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		s.WritePrometheus(w)
	})

	s.metricsServer = &http.Server{
		Addr:              s.config.MetricsEndpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		Logger.Infof("Serving metrics on %s/metrics", s.config.MetricsEndpoint)
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint: %v", err)
		}
	}()
}
