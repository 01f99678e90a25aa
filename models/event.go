package models

const (
	PostTypeMetaEvent = "meta_event"
	PostTypeMessage   = "message"
	PostTypeNotice    = "notice"
	PostTypeRequest   = "request"
	PostTypeResponse  = "response"

	MessageTypeGroup   = "group"
	MessageTypePrivate = "private"

	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Event is one inbound frame from a chat transport. Identifiers are kept as
// strings so OneBot numbers and Telegram int64 ids share one shape.
type Event struct {
	PostType    string
	MessageType string
	NoticeType  string
	UserID      string
	GroupID     string
	MessageID   string
	RawMessage  string
	Role        string

	// Status and Echo are set on action responses rather than events.
	Status string
	Echo   string

	roleLookup func() string
}

// WithRoleLookup attaches a resolver used by CallerRole when Role is unset,
// for transports where the role costs a remote call.
func (e Event) WithRoleLookup(lookup func() string) Event {
	e.roleLookup = lookup
	return e
}

// CallerRole returns the sender's role, resolving it on demand.
func (e Event) CallerRole() string {
	if e.Role == "" && e.roleLookup != nil {
		return e.roleLookup()
	}
	return e.Role
}

// IsResponse reports whether the frame answers an earlier outbound action.
func (e Event) IsResponse() bool {
	return e.Status == "ok" || (e.PostType == "" && (e.Status != "" || e.Echo != ""))
}

// Kind is the post type with responses folded in.
func (e Event) Kind() string {
	if e.PostType == "" {
		return PostTypeResponse
	}
	return e.PostType
}
