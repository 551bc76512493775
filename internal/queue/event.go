// Package queue defines message payloads exchanged over the message broker.
package queue

// ScanQueueName is the durable queue receiving RecordScannedEvent.
const ScanQueueName = "record.scanned"

// RecordScannedEvent is published when a code is accepted at the entrance.
// It carries enough to write an audit line or notify the holder without
// reading the store again.
type RecordScannedEvent struct {
    Kind        string `json:"kind"`             // invitation | ticket
    RecordID    string `json:"record_id"`
    Number      int    `json:"number,omitempty"` // tickets only
    HolderName  string `json:"holder_name"`
    HolderEmail string `json:"holder_email"`
    ScannedAt   string `json:"scanned_at"` // RFC 3339
    ScannedBy   string `json:"scanned_by"` // staff email from the JWT, or "anon"
}
