package classify

import (
	"encoding/json"
	"testing"

	"signal-export/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ids = map[string]string{
	"+15551230001": "Alice",
	"uuid-bob":     "Bob",
}

func str(s string) *string { return &s }

func TestClassifyIncoming(t *testing.T) {
	msg := &domain.RawMessage{
		Type:       "incoming",
		Body:       str("hi there"),
		ReceivedAt: 100,
		Source:     "+15551230001",
	}
	event := Classify(ids, "Me", msg)
	require.NotNil(t, event)
	assert.Equal(t, "Alice", event.ActorName)
	assert.Equal(t, "hi there", event.Body)
	assert.Equal(t, int64(100), event.Timestamp)
}

func TestClassifyIncomingOpaqueSource(t *testing.T) {
	msg := &domain.RawMessage{Type: "incoming", SourceServiceID: "uuid-bob", Body: str("yo")}
	event := Classify(ids, "Me", msg)
	require.NotNil(t, event)
	assert.Equal(t, "Bob", event.ActorName)
}

func TestClassifyIncomingUnknownSender(t *testing.T) {
	unmapped := &domain.RawMessage{Type: "incoming", Source: "+19990000000", Body: str("?")}
	event := Classify(ids, "Me", unmapped)
	require.NotNil(t, event)
	assert.Equal(t, UnknownActor, event.ActorName)

	absent := &domain.RawMessage{Type: "incoming", Body: str("?")}
	event = Classify(ids, "Me", absent)
	require.NotNil(t, event)
	assert.Equal(t, UnknownActor, event.ActorName)
}

func TestClassifyOutgoing(t *testing.T) {
	msg := &domain.RawMessage{Type: "outgoing", Body: str("hey"), ReceivedAt: 200}
	event := Classify(ids, "Me", msg)
	require.NotNil(t, event)
	assert.Equal(t, "Me", event.ActorName)
	assert.Equal(t, "hey", event.Body)
}

func TestClassifyAttachmentSummaryPrefix(t *testing.T) {
	msg := &domain.RawMessage{
		Type: "incoming",
		Body: str("look"),
		Attachments: []domain.AttachmentRef{
			{FileName: str("cat.png"), ContentType: "image/png", Path: str("ab/cdef")},
			{ContentType: "image/jpeg"},
		},
	}
	event := Classify(ids, "Me", msg)
	require.NotNil(t, event)
	assert.Equal(t, "[Attachment(s): cat.png(ab/cdef), image/jpeg(N/A)] look", event.Body)
	assert.Len(t, event.Attachments, 2)
}

func TestClassifyNormalizesBodyText(t *testing.T) {
	msg := &domain.RawMessage{Type: "incoming", Source: "+15551230001", Body: str("olé 👍")}
	event := Classify(ids, "Me", msg)
	require.NotNil(t, event)
	assert.NotContains(t, event.Body, "👍")
	assert.Contains(t, event.Body, "ole")
}

func TestClassifyKeyChange(t *testing.T) {
	msg := &domain.RawMessage{Type: "keychange", KeyChanged: "uuid-bob", ReceivedAt: 300}
	event := Classify(ids, "Me", msg)
	require.NotNil(t, event)
	assert.Equal(t, "Bob", event.ActorName)
	assert.Equal(t, "[Safety number changed]", event.Body)
}

func TestClassifyVerifiedChange(t *testing.T) {
	msg := &domain.RawMessage{
		Type:            "verified-change",
		VerifiedChanged: "+15551230001",
		Verified:        json.RawMessage(`"VERIFIED"`),
	}
	event := Classify(ids, "Me", msg)
	require.NotNil(t, event)
	assert.Equal(t, "Alice", event.ActorName)
	assert.Equal(t, "[Contact verification status set to VERIFIED]", event.Body)
}

func TestClassifyDropsUnknownKinds(t *testing.T) {
	for _, wire := range []string{"change-number", "group-v2-change", "profile-change", ""} {
		msg := &domain.RawMessage{Type: wire, Body: str("internal")}
		assert.Nil(t, Classify(ids, "Me", msg), "wire type %q", wire)
	}
}
