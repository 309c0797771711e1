package models

import (
	"strings"
	"time"
)

// Message is one entry in a request's audit ledger. The ledger is strictly
// append-only: no code path updates or deletes a persisted message.
type Message struct {
	ID           string    `json:"id" db:"id"`
	RequestID    string    `json:"request_id" db:"request_id"`
	Content      string    `json:"content" db:"content"`
	TypeMessage  string    `json:"type_message" db:"type_message"`
	WhoseMessage string    `json:"whose_message" db:"whose_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MaxMessageContentLength bounds ledger entries; longer content is rejected
// before any write happens.
const MaxMessageContentLength = 500

type MessageType string

const (
	MessageTypeVerification MessageType = "VERIFICACION"
	MessageTypeAssigned     MessageType = "ASIGNADO"
	MessageTypeApproved     MessageType = "APROBADA"
	MessageTypeRejected     MessageType = "RECHAZADO"
)

func (t MessageType) String() string {
	return string(t)
}

// rejectionMarker matches both RECHAZADO and RECHAZADA spellings found in
// historical ledgers.
const rejectionMarker = "RECHAZAD"

// IsRejectionMarker reports whether a message type counts as a rejection
// for the approval gate.
func IsRejectionMarker(typeMessage string) bool {
	return strings.Contains(strings.ToUpper(typeMessage), rejectionMarker)
}

// Role identifies which side of the conversation authored a message or
// initiated an operation. It is always an explicit input, never inferred
// from ambient session state.
type Role string

const (
	RoleCoordinator Role = "COORDINADOR"
	RoleInstructor  Role = "INSTRUCTOR"
)

func (r Role) String() string {
	return string(r)
}

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(raw)) {
	case RoleCoordinator:
		return RoleCoordinator, true
	case RoleInstructor:
		return RoleInstructor, true
	}
	return "", false
}

// Actor is the authenticated principal behind an orchestrator call.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
