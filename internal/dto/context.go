package dto

// Keys under which middleware stores per-request values on the gin context.
const (
	BaseURLKey   = "base_url"
	OrganizerKey = "organizer"
)
