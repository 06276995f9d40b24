package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ValentinKolb/privlock/lib/privacy"
)

func TestParseServices(t *testing.T) {
	services, err := ParseServices("100=lock(noop), 200=overlay(backlight)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}

	want := []ServerService{
		{ServiceID: 100, Type: ServiceTypeLock, Backend: "noop"},
		{ServiceID: 200, Type: ServiceTypeOverlay, Backend: "backlight"},
	}
	for i := range want {
		if services[i] != want[i] {
			t.Errorf("service %d: got %+v, want %+v", i, services[i], want[i])
		}
	}

	if got := services[1].String(); got != "200=overlay(backlight)" {
		t.Errorf("unexpected string %q", got)
	}
}

func TestParseServicesInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"only separators", ", ,"},
		{"missing backend", "100=lock"},
		{"unknown type", "100=store(noop)"},
		{"negative id", "-1=lock(noop)"},
		{"id overflow", "99999999999999999999999=lock(noop)"},
		{"duplicate id", "100=lock(noop),100=overlay(backlight)"},
		{"upper case backend", "100=lock(Noop)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseServices(tt.input); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestReasonRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		reason   ErrorReason
		sentinel error
	}{
		{"already held", fmt.Errorf("%w: transition in progress", privacy.ErrAlreadyHeld), ReasonAlreadyHeld, privacy.ErrAlreadyHeld},
		{"backend unavailable", fmt.Errorf("%w: dbus", privacy.ErrBackendUnavailable), ReasonBackendUnavailable, privacy.ErrBackendUnavailable},
		{"not owner", privacy.ErrNotOwner, ReasonNotOwner, privacy.ErrNotOwner},
		{"other", errors.New("boom"), ReasonOther, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonOf(tt.err); got != tt.reason {
				t.Fatalf("ReasonOf = %d, want %d", got, tt.reason)
			}

			resp := NewAcquireResponse(false, tt.err)
			err := resp.ResponseError()
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.err.Error()) {
				t.Errorf("remote message lost: %v", err)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v to wrap %v", err, tt.sentinel)
			}
		})
	}
}

func TestResponseErrorNone(t *testing.T) {
	if err := NewAcquireResponse(true, nil).ResponseError(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if ReasonOf(nil) != ReasonNone {
		t.Errorf("expected ReasonNone for nil")
	}
	if err := NewErrorResponse("unknown service").ResponseError(); err == nil {
		t.Errorf("expected error for error response")
	}
}

func TestMessageTypeJSON(t *testing.T) {
	data, err := json.Marshal(NewOverlayStatusRequest())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"overlayStatus"`) {
		t.Errorf("expected type name in %s", data)
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.MsgType != MsgTOVLStatus {
		t.Errorf("got type %s, want %s", m.MsgType, MsgTOVLStatus)
	}

	if err := json.Unmarshal([]byte(`{"msg_type":"teleport"}`), &m); err == nil {
		t.Errorf("expected error for unknown type")
	}
}
