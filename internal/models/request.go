package models

import (
	"time"
)

// Request is one apprentice's productive-stage application. Its state only
// ever changes through the assignment workflow; rows are never deleted.
type Request struct {
	ID           string     `json:"id" db:"id"`
	ApprenticeID string     `json:"apprentice_id" db:"apprentice_id"`
	EnterpriseID string     `json:"enterprise_id" db:"enterprise_id"`
	Modality     string     `json:"modality" db:"modality"`
	RequestState string     `json:"request_state" db:"request_state"`
	InstructorID *string    `json:"instructor_id,omitempty" db:"instructor_id"`
	RequestDate  time.Time  `json:"request_date" db:"request_date"`
	StartDate    *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty" db:"end_date"`
	Version      int        `json:"version" db:"version"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type RequestWithInstructor struct {
	Request
	InstructorName  string `json:"instructor_name,omitempty" db:"instructor_name"`
	InstructorEmail string `json:"instructor_email,omitempty" db:"instructor_email"`
}

type RequestState string

const (
	StateUnassigned  RequestState = "SIN_ASIGNAR"
	StateVerifying   RequestState = "VERIFICANDO"
	StatePreApproved RequestState = "PRE-APROBADO"
	StateAssigned    RequestState = "ASIGNADO"
	StateRejected    RequestState = "RECHAZADO"
)

func (s RequestState) String() string {
	return string(s)
}

// Terminal reports whether no further transition is allowed.
func (s RequestState) Terminal() bool {
	return s == StateRejected
}

// ParseRequestState maps the stored value onto the closed enum. An empty
// value is treated as SIN_ASIGNAR, matching requests created before the
// coordinator has acted on them.
func ParseRequestState(raw string) (RequestState, bool) {
	switch RequestState(raw) {
	case StateUnassigned, StateVerifying, StatePreApproved, StateAssigned, StateRejected:
		return RequestState(raw), true
	}
	if raw == "" {
		return StateUnassigned, true
	}
	return "", false
}

// ModalityApprenticeshipContract skips the verification round entirely:
// assignment lands directly in ASIGNADO.
const ModalityApprenticeshipContract = "Contrato de aprendizaje"

// SkipsVerification centralises the fast-track rule so widening it to more
// modalities stays a one-line change.
func SkipsVerification(modality string) bool {
	return modality == ModalityApprenticeshipContract
}
