package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

//----------------------------------------------------------------------------------------------------
// Structs for Message Payloads (store rows -> typed records)
//----------------------------------------------------------------------------------------------------

// MessageKind is the closed set of message variants the exporter understands.
// Every other value found in the wire payload maps to KindUnknown and produces
// no log output.
type MessageKind string

const (
	KindIncoming       MessageKind = "incoming"
	KindOutgoing       MessageKind = "outgoing"
	KindKeyChange      MessageKind = "keychange"
	KindVerifiedChange MessageKind = "verified-change"
	KindUnknown        MessageKind = "unknown"
)

// FlexID is an identifier field that older store versions wrote as a JSON
// number and newer ones write as a string. It decodes from either.
type FlexID string

// UnmarshalJSON accepts a JSON string, number or null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// AttachmentRef represents the metadata a message payload carries about one
// attachment. It describes the bytes, it does not contain them; Path is the
// location of the bytes inside the attachment store, relative or absolute,
// and is absent when the bytes were never downloaded locally.
type AttachmentRef struct {
	ContentType string  `json:"contentType"`
	FileName    *string `json:"fileName"`
	Path        *string `json:"path"`
	ID          string  `json:"id"`
	CdnID       string  `json:"cdnId"`
	CdnKey      string  `json:"cdnKey"`
	Size        int64   `json:"size"`
}

// RawMessage represents one decoded message payload from the store's messages
// table. The JSON payload is open; only the fields relevant to the known
// message kinds are decoded, everything else is ignored.
type RawMessage struct {
	Type            string          `json:"type"`
	Body            *string         `json:"body"`
	SentAt          int64           `json:"sent_at"`
	ReceivedAt      int64           `json:"received_at"`
	ReceivedAtMS    int64           `json:"received_at_ms"`
	Source          FlexID          `json:"source"`
	SourceServiceID FlexID          `json:"sourceServiceId"`
	KeyChanged      FlexID          `json:"key_changed"`
	VerifiedChanged FlexID          `json:"verifiedChanged"`
	Verified        json.RawMessage `json:"verified"`
	Attachments     []AttachmentRef `json:"attachments"`
}

// ParseRawMessage decodes one raw JSON payload from the messages table.
func ParseRawMessage(payload []byte) (*RawMessage, error) {
	var msg RawMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decoding message payload: %w", err)
	}
	return &msg, nil
}

// Kind maps the open wire `type` value onto the closed variant set.
func (m *RawMessage) Kind() MessageKind {
	switch MessageKind(m.Type) {
	case KindIncoming, KindOutgoing, KindKeyChange, KindVerifiedChange:
		return MessageKind(m.Type)
	default:
		return KindUnknown
	}
}

// TimestampSeconds derives the event timestamp in seconds. The
// millisecond-precision receipt field is preferred; older rows only carry the
// second-precision one.
func (m *RawMessage) TimestampSeconds() int64 {
	millis := m.ReceivedAtMS
	if millis == 0 {
		millis = m.ReceivedAt * 1000
	}
	return millis / 1000
}

// VerifiedState renders the raw verified-state value for display. The store
// has written both numeric and string states over the years.
func (m *RawMessage) VerifiedState() string {
	if len(m.Verified) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Verified, &s); err == nil {
		return s
	}
	return string(m.Verified)
}
