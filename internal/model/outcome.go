package model

// OutcomeStatus is the discriminant of a verification attempt.
type OutcomeStatus string

const (
    OutcomeInvalid        OutcomeStatus = "INVALID"
    OutcomeNotSold        OutcomeStatus = "NOT_SOLD"
    OutcomeAlreadyScanned OutcomeStatus = "ALREADY_SCANNED"
    OutcomeValid          OutcomeStatus = "VALID"
)

// Outcome is the result of a verification attempt. Record is the snapshot
// as of the outcome and is nil only for OutcomeInvalid.
type Outcome struct {
    Status  OutcomeStatus `json:"outcome"`
    Message string        `json:"message"`
    Record  Record        `json:"record"`
}

// OK reports whether the code was accepted.
func (o Outcome) OK() bool { return o.Status == OutcomeValid }
