package domain

//----------------------------------------------------------------------------------------------------
// Structs for the Conversations Table
//----------------------------------------------------------------------------------------------------

// Conversation kinds as stored in the `type` column of the conversations table.
const (
	ConversationDirect = "private"
	ConversationGroup  = "group"
)

// ConversationRecord represents one row of the store's conversations table,
// covering both direct chats and groups. Optional columns are pointers; a
// resolvable display name always exists via the identity fallback chain.
type ConversationRecord struct {
	ID          string  // Internal conversation key, always present
	Name        *string // Explicit display name (contact or group name)
	ProfileName *string // Profile name shared by the contact
	Type        string  // "private" or "group"
	E164        *string // Phone-number-like identifier, when known
	ServiceID   *string // Opaque service UUID identifier, when known
}

// IsGroup reports whether the record describes a group conversation.
func (c *ConversationRecord) IsGroup() bool {
	return c.Type == ConversationGroup
}
