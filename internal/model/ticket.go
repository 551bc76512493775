package model

import "time"

// Ticket is a numbered event ticket. Tickets are generated in batches, sold
// to a buyer, scanned once at the door and can be reset for reissue.
//
// Fields:
//  ID         – uuid embedded in the QR payload.
//  Number     – sequence number, max(existing)+1 at creation; unique.
//  Sold       – true once the ticket has been sold; SoldAt is set with it.
//  BuyerName  – buyer name, nil until sold.
//  BuyerEmail – buyer email, nil until sold.
//  Scanned    – true once consumed; ScannedAt is set with it.
//  CreatedAt  – creation timestamp (UTC).
type Ticket struct {
    ID         string     `json:"id"`         // tickets.id
    Number     int        `json:"number"`     // tickets.number
    Sold       bool       `json:"sold"`       // tickets.sold
    SoldAt     *time.Time `json:"soldAt"`     // tickets.sold_at (nullable)
    BuyerName  *string    `json:"buyerName"`  // tickets.buyer_name (nullable)
    BuyerEmail *string    `json:"buyerEmail"` // tickets.buyer_email (nullable)
    Scanned    bool       `json:"scanned"`    // tickets.scanned
    ScannedAt  *time.Time `json:"scannedAt"`  // tickets.scanned_at (nullable)
    CreatedAt  time.Time  `json:"createdAt"`  // tickets.created_at
}

// RecordID implements Record.
func (t Ticket) RecordID() string { return t.ID }

// RecordKind implements Record.
func (t Ticket) RecordKind() Kind { return KindTicket }

// IsScanned implements Record.
func (t Ticket) IsScanned() bool { return t.Scanned }

// Buyer returns the buyer name or "" when the ticket is unsold.
func (t Ticket) Buyer() string {
    if t.BuyerName == nil {
        return ""
    }
    return *t.BuyerName
}
