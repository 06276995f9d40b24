package common

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerServiceType string

const (
	ServiceTypeLock    ServerServiceType = "lock"
	ServiceTypeOverlay ServerServiceType = "overlay"
)

type ServerService struct {
	// ServiceID is the id clients address the service with
	ServiceID uint64
	// Type decides whether the service hosts a privacy lock or an overlay controller
	Type ServerServiceType
	// Backend is the registry key of the backend driven by the service
	Backend string
}

// String returns the service in the same notation ParseServices accepts
func (s ServerService) String() string {
	return fmt.Sprintf("%d=%s(%s)", s.ServiceID, s.Type, s.Backend)
}

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// Services hosted by the server
	Services []ServerService

	// OverlayAsync makes overlay services apply state changes in the background
	OverlayAsync bool

	// request timeout
	TimeoutSecond int64

	// RPC endpoint
	Endpoint string

	// HTTP endpoint serving prometheus metrics (empty disables it)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Services
	addSection("Services")
	for _, service := range c.Services {
		addField(strconv.FormatUint(service.ServiceID, 10), fmt.Sprintf("%s (%s)", service.Type, service.Backend))
	}
	addField("Overlay Async", fmt.Sprintf("%t", c.OverlayAsync))

	return sb.String()
}

var serviceRegex = regexp.MustCompile(`^(\d+)=(lock|overlay)\(([a-z0-9_-]+)\)$`)

// ParseServices parses a comma separated service list like
// "100=lock(noop),200=overlay(backlight)".
func ParseServices(s string) ([]ServerService, error) {
	var services []ServerService
	seen := make(map[uint64]bool)

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		matches := serviceRegex.FindStringSubmatch(part)
		if matches == nil {
			return nil, fmt.Errorf("invalid service %q: expected <id>=lock(<backend>) or <id>=overlay(<backend>)", part)
		}

		id, err := strconv.ParseUint(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid service id %q: %w", matches[1], err)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate service id %d", id)
		}
		seen[id] = true

		services = append(services, ServerService{
			ServiceID: id,
			Type:      ServerServiceType(matches[2]),
			Backend:   matches[3],
		})
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no services configured")
	}
	return services, nil
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
