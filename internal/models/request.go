package models

import "time"

// RequestType categorises student requests.
type RequestType string

const (
	RequestRedemption RequestType = "REDEMPTION"
	RequestOther      RequestType = "OTHER"
)

// RequestStatus tracks the review lifecycle of a student request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// Valid reports whether the request type is known.
func (t RequestType) Valid() bool {
	return t == RequestRedemption || t == RequestOther
}

// StudentRequest is a student-initiated request. Coin-costing redemptions
// create a linked global negative adjustment when submitted.
type StudentRequest struct {
	ID         string        `db:"id" json:"id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	Type       RequestType   `db:"type" json:"type"`
	Detail     string        `db:"detail" json:"detail"`
	Cost       int           `db:"cost" json:"cost"`
	Status     RequestStatus `db:"status" json:"status"`
	ReviewedBy *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}
