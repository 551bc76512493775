package model

import "strings"

// Kind names an entity type. It doubles as the path segment used in
// verification URLs and routes.
type Kind string

const (
    KindInvitation Kind = "invitation"
    KindTicket     Kind = "ticket"
)

func (k Kind) String() string { return string(k) }

// ParseKind accepts the singular or plural spelling, case-insensitively.
func ParseKind(s string) (Kind, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "invitation", "invitations":
        return KindInvitation, true
    case "ticket", "tickets":
        return KindTicket, true
    }
    return "", false
}

// Record is the common view over Invitation and Ticket.
type Record interface {
    RecordID() string
    RecordKind() Kind
    IsScanned() bool
}
