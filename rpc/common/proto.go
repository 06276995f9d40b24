package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/privlock/lib/privacy"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	ConnID  int32  `json:"conn_id,omitempty"` // Used for: Acquire, Release, Confirmed (request), Owner (response)
	Enabled bool   `json:"enabled,omitempty"` // Used for: OverlaySet (request), OverlayStatus (response, desired state)
	Active  bool   `json:"active,omitempty"`  // Used for: OverlayStatus (response)
	Async   bool   `json:"async,omitempty"`   // Used for: Info, OverlayStatus (response)
	Pending bool   `json:"pending,omitempty"` // Used for: OverlayStatus (response)
	Key     string `json:"key,omitempty"`     // Used for: Info (response, backend impl key)
	Detail  string `json:"detail,omitempty"`  // Used for: OverlayStatus (response, last backend error)

	// Response only fields
	Ok     bool        `json:"ok,omitempty"`     // Used for: Acquire, Confirmed responses
	Reason ErrorReason `json:"reason,omitempty"` // Classifies Err so clients can rebuild sentinel errors
	Err    string      `json:"err,omitempty"`    // Empty if no error, otherwise contains the error message

	// Stats of the backend (Info response)
	Stats map[string]float64 `json:"stats,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewAcquireRequest creates a new Acquire request
func NewAcquireRequest(connID privacy.ConnID) *Message {
	return &Message{MsgType: MsgTPRVAcquire, ConnID: int32(connID)}
}

// NewAcquireResponse creates a new Acquire response
func NewAcquireResponse(ok bool, err error) *Message {
	msg := &Message{MsgType: MsgTPRVAcquire, Ok: ok}
	msg.setErr(err)
	return msg
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(connID privacy.ConnID) *Message {
	return &Message{MsgType: MsgTPRVRelease, ConnID: int32(connID)}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse() *Message {
	return &Message{MsgType: MsgTPRVRelease}
}

// NewOwnerRequest creates a new Owner request
func NewOwnerRequest() *Message {
	return &Message{MsgType: MsgTPRVOwner}
}

// NewOwnerResponse creates a new Owner response
func NewOwnerResponse(owner privacy.ConnID) *Message {
	return &Message{MsgType: MsgTPRVOwner, ConnID: int32(owner)}
}

// NewConfirmedRequest creates a new Confirmed request
func NewConfirmedRequest(connID privacy.ConnID) *Message {
	return &Message{MsgType: MsgTPRVConfirmed, ConnID: int32(connID)}
}

// NewConfirmedResponse creates a new Confirmed response
func NewConfirmedResponse(ok bool, err error) *Message {
	msg := &Message{MsgType: MsgTPRVConfirmed, Ok: ok}
	msg.setErr(err)
	return msg
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{MsgType: MsgTPRVInfo}
}

// NewInfoResponse creates a new Info response
func NewInfoResponse(implKey string, async bool, owner privacy.ConnID, stats map[string]float64) *Message {
	return &Message{
		MsgType: MsgTPRVInfo,
		Key:     implKey,
		Async:   async,
		ConnID:  int32(owner),
		Stats:   stats,
	}
}

// NewOverlaySetRequest creates a new OverlaySet request
func NewOverlaySetRequest(enabled bool) *Message {
	return &Message{MsgType: MsgTOVLSet, Enabled: enabled}
}

// NewOverlaySetResponse creates a new OverlaySet response
func NewOverlaySetResponse(err error) *Message {
	msg := &Message{MsgType: MsgTOVLSet}
	msg.setErr(err)
	return msg
}

// NewOverlayStatusRequest creates a new OverlayStatus request
func NewOverlayStatusRequest() *Message {
	return &Message{MsgType: MsgTOVLStatus}
}

// NewOverlayStatusResponse creates a new OverlayStatus response.
// lastErr is the last error of the overlay backend (empty if none).
func NewOverlayStatusResponse(desired, active, pending, async bool, lastErr string) *Message {
	return &Message{
		MsgType: MsgTOVLStatus,
		Enabled: desired,
		Active:  active,
		Pending: pending,
		Async:   async,
		Detail:  lastErr,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err, Reason: ReasonOther}
}

// setErr stores err and its reason in the message
func (m *Message) setErr(err error) {
	if err == nil {
		return
	}
	m.Err = err.Error()
	m.Reason = ReasonOf(err)
}

// --------------------------------------------------------------------------
// Error Reasons
// --------------------------------------------------------------------------

// ErrorReason tells the client which sentinel error a response error wraps
type ErrorReason uint8

const (
	ReasonNone ErrorReason = iota
	ReasonAlreadyHeld
	ReasonBackendUnavailable
	ReasonNotOwner
	ReasonOther
)

// ReasonOf classifies an error returned by the privacy lock
func ReasonOf(err error) ErrorReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, privacy.ErrAlreadyHeld):
		return ReasonAlreadyHeld
	case errors.Is(err, privacy.ErrBackendUnavailable):
		return ReasonBackendUnavailable
	case errors.Is(err, privacy.ErrNotOwner):
		return ReasonNotOwner
	default:
		return ReasonOther
	}
}

// ResponseError rebuilds the error carried by a response. The returned error
// wraps the matching privacy sentinel, so errors.Is works across the wire.
func (m *Message) ResponseError() error {
	if m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	switch m.Reason {
	case ReasonAlreadyHeld:
		return fmt.Errorf("%w (remote: %s)", privacy.ErrAlreadyHeld, m.Err)
	case ReasonBackendUnavailable:
		return fmt.Errorf("%w (remote: %s)", privacy.ErrBackendUnavailable, m.Err)
	case ReasonNotOwner:
		return fmt.Errorf("%w (remote: %s)", privacy.ErrNotOwner, m.Err)
	default:
		return fmt.Errorf("remote error: %s", m.Err)
	}
}

// --------------------------------------------------------------------------
// Message Type
// --------------------------------------------------------------------------

// MessageType defines the type of message
type MessageType uint8

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IPrivacyLock operations

	MsgTPRVAcquire   // Acquire the privacy lock
	MsgTPRVRelease   // Release the privacy lock
	MsgTPRVOwner     // Query the current owner
	MsgTPRVConfirmed // Ask whether privacy mode is confirmed for a connection
	MsgTPRVInfo      // Backend information and stats

	// Overlay agent operations

	MsgTOVLSet    // Turn the overlay on or off
	MsgTOVLStatus // Query the overlay state
)

var messageTypeNames = map[MessageType]string{
	MsgTUnknown:      "unknown",
	MsgTSuccess:      "success",
	MsgTError:        "error",
	MsgTPRVAcquire:   "acquire",
	MsgTPRVRelease:   "release",
	MsgTPRVOwner:     "owner",
	MsgTPRVConfirmed: "confirmed",
	MsgTPRVInfo:      "info",
	MsgTOVLSet:       "overlaySet",
	MsgTOVLStatus:    "overlayStatus",
}

// String returns the string representation of the MessageType
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}
