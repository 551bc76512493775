package model

import "time"

// Invitation is a guest invitation as persisted in invitations.json (or the
// `invitations` table). The JSON names match the files written by earlier
// versions of the app so existing collections load unchanged.
//
// Fields:
//  ID        – uuid, generated at creation and embedded in the QR payload.
//  Name      – guest name.
//  Email     – guest email.
//  CreatedAt – creation timestamp (UTC).
//  Scanned   – whether the invitation has been consumed at the entrance.
//  ScannedAt – set exactly when Scanned flips to true, nil otherwise.
type Invitation struct {
    ID        string     `json:"id"`        // invitations.id
    Name      string     `json:"name"`      // invitations.name
    Email     string     `json:"email"`     // invitations.email
    CreatedAt time.Time  `json:"createdAt"` // invitations.created_at
    Scanned   bool       `json:"scanned"`   // invitations.scanned
    ScannedAt *time.Time `json:"scannedAt"` // invitations.scanned_at (nullable)
}

// RecordID implements Record.
func (i Invitation) RecordID() string { return i.ID }

// RecordKind implements Record.
func (i Invitation) RecordKind() Kind { return KindInvitation }

// IsScanned implements Record.
func (i Invitation) IsScanned() bool { return i.Scanned }
