package domain

//----------------------------------------------------------------------------------------------------
// Structs for Normalized Log Output
//----------------------------------------------------------------------------------------------------

// LogEvent represents one classified message, normalized for the text log.
// ActorName is never empty (the classifier substitutes "Unknown") and Body
// already carries any attachment-summary prefix, fully normalized.
type LogEvent struct {
	Timestamp   int64           // Event time in Unix seconds
	ActorName   string          // Resolved sender display name
	Body        string          // Normalized log line body
	Attachments []AttachmentRef // References to materialize, possibly empty
}
