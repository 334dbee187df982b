// Package classify maps raw message payloads onto normalized log events.
package classify

import (
	"fmt"
	"strings"

	"signal-export/domain"
	"signal-export/util"
)

// UnknownActor is substituted when a sender identifier is absent or not in
// the identity map. Never fatal, the line is still worth exporting.
const UnknownActor = "Unknown"

//----------------------------------------------------------------------------------------------------
// Message Classification
//----------------------------------------------------------------------------------------------------

// Classify turns one raw message into a log event, or nil when the message's
// variant is not meant for a human-readable log. The drop is intentional for
// system and internal message kinds; it is the only case that produces no
// event.
func Classify(ids map[string]string, selfName string, msg *domain.RawMessage) *domain.LogEvent {
	event := &domain.LogEvent{Timestamp: msg.TimestampSeconds()}

	switch msg.Kind() {
	case domain.KindIncoming:
		event.ActorName = actorFor(ids, msg.Source, msg.SourceServiceID)
		event.Body = normalizedBody(msg)
		event.Attachments = msg.Attachments
	case domain.KindOutgoing:
		event.ActorName = selfName
		event.Body = normalizedBody(msg)
		event.Attachments = msg.Attachments
	case domain.KindKeyChange:
		event.ActorName = actorFor(ids, msg.KeyChanged)
		event.Body = "[Safety number changed]"
	case domain.KindVerifiedChange:
		event.ActorName = actorFor(ids, msg.VerifiedChanged)
		event.Body = fmt.Sprintf("[Contact verification status set to %s]", msg.VerifiedState())
	default:
		return nil
	}

	if event.ActorName == "" {
		event.ActorName = UnknownActor
	}
	return event
}

// actorFor resolves the first non-empty identifier against the identity map.
func actorFor(ids map[string]string, keys ...domain.FlexID) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if name, ok := ids[string(key)]; ok {
			return name
		}
		return UnknownActor
	}
	return UnknownActor
}

// normalizedBody builds the log body for a conversational message: the
// attachment summary prefix, then the message text, passed through emoji
// tokenization and ASCII transliteration exactly once.
func normalizedBody(msg *domain.RawMessage) string {
	body := attachmentSummary(msg.Attachments) + util.ValueOrDefault(msg.Body)
	return util.ToASCII(util.NormalizeEmoji(body))
}

// attachmentSummary renders the "[Attachment(s): ...] " prefix, or nothing
// when the message carries no attachments. Each entry names the attachment by
// its declared file name (content type as fallback) and its store path, with
// "N/A" for bytes that were never downloaded locally.
func attachmentSummary(refs []domain.AttachmentRef) string {
	if len(refs) == 0 {
		return ""
	}
	entries := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := util.ValueOr(ref.FileName, ref.ContentType)
		path := util.ValueOr(ref.Path, "N/A")
		entries = append(entries, fmt.Sprintf("%s(%s)", name, path))
	}
	return fmt.Sprintf("[Attachment(s): %s] ", strings.Join(entries, ", "))
}
