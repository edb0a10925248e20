package domain

// RequestContext is the organization scoped identity threaded through every
// workflow call. It is passed explicitly, never read from globals.
type RequestContext struct {
	ActorID        int32
	OrganizationID int32
	Role           MemberRole // as asserted by the token; services re-read membership where it matters
	IP             string
	UserAgent      string
	RequestID      string
}
