// Package identity resolves the store's sender and conversation identifiers
// into human-readable display names.
package identity

import (
	"signal-export/domain"
	"signal-export/util"
)

// UnknownGroup is the display name for a group conversation that carries no
// name of its own.
const UnknownGroup = "Unknown group"

// ResolveDisplayName resolves a conversation record to a display name through
// the fallback chain: explicit name, "~"-prefixed profile name, the group
// placeholder, the raw id. It never fails; absent fields only move the chain
// along.
func ResolveDisplayName(rec *domain.ConversationRecord) string {
	name := ""
	switch {
	case util.ValueOrDefault(rec.Name) != "":
		name = *rec.Name
	case util.ValueOrDefault(rec.ProfileName) != "":
		name = "~" + *rec.ProfileName
	case rec.IsGroup():
		name = UnknownGroup
	default:
		name = rec.ID
	}
	// Modern contact names arrive wrapped in directional isolates; they must
	// not reach the ASCII transliteration stage.
	return util.StripDirectionIsolates(name)
}

// BuildIdentityMap maps every known sender identifier to its resolved display
// name. Phone-like identifiers are inserted first, then the opaque service
// identifiers are overlaid; on a key collision the opaque id wins, it is the
// more specific identifier.
func BuildIdentityMap(records []domain.ConversationRecord) map[string]string {
	ids := make(map[string]string, len(records))
	for i := range records {
		if e164 := util.ValueOrDefault(records[i].E164); e164 != "" {
			ids[e164] = ResolveDisplayName(&records[i])
		}
	}
	for i := range records {
		if svc := util.ValueOrDefault(records[i].ServiceID); svc != "" {
			ids[svc] = ResolveDisplayName(&records[i])
		}
	}
	return ids
}

// BuildConversationMap maps every conversation id to its resolved display
// name. Every conversation has an id, so every record contributes an entry.
func BuildConversationMap(records []domain.ConversationRecord) map[string]string {
	names := make(map[string]string, len(records))
	for i := range records {
		names[records[i].ID] = ResolveDisplayName(&records[i])
	}
	return names
}
