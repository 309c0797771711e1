package models

import "time"

// Data Transfer Objects

type AssignInstructorRequest struct {
	InstructorID string `json:"instructor_id" validate:"required,uuid"`
	Content      string `json:"content" validate:"required,min=1,max=500"`
	Version      int    `json:"version" validate:"required,min=1"`

	// Contract period, supplied when the modality carries one (Contrato
	// de aprendizaje). Optional; omitted dates leave the stored values
	// untouched.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// CreateRequestRequest is the portal-submitted intake of a new
// productive-stage request. It always enters the workflow as SIN_ASIGNAR.
type CreateRequestRequest struct {
	ApprenticeID string     `json:"apprentice_id" validate:"required,uuid"`
	EnterpriseID string     `json:"enterprise_id" validate:"required,uuid"`
	Modality     string     `json:"modality" validate:"required"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

type CreateInstructorRequest struct {
	FirstName           string `json:"first_name" validate:"required"`
	LastName            string `json:"last_name" validate:"required"`
	Document            string `json:"document" validate:"required"`
	Email               string `json:"email" validate:"required,email"`
	Phone               string `json:"phone"`
	KnowledgeAreaID     string `json:"knowledge_area_id" validate:"required,uuid"`
	MaxAssignedLearners int    `json:"max_assigned_learners"`
}

type PreApproveRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
	Version int    `json:"version" validate:"required,min=1"`
}

// VerdictRequest is the instructor's reply after reviewing a request:
// either a confirmation or a rejection-marker observation that blocks the
// coordinator's final approval.
type VerdictRequest struct {
	Approve bool   `json:"approve"`
	Content string `json:"content" validate:"required,min=1,max=500"`
	Version int    `json:"version" validate:"required,min=1"`
}

type RejectRequest struct {
	Reason  string `json:"reason" validate:"required,min=1,max=500"`
	Version int    `json:"version" validate:"required,min=1"`
}

type SetLimitRequest struct {
	NewLimit int `json:"new_limit" validate:"required,min=1"`
}

type TransitionResponse struct {
	Request *Request `json:"request"`
	Message *Message `json:"message"`
}

// FormRequest is the apprentice form data held by the admin portal,
// fetched on demand to enrich the request detail view.
type FormRequest struct {
	NameApprentice           string `json:"name_apprentice"`
	TypeIdentification       string `json:"type_identification"`
	NumberIdentification     string `json:"number_identification"`
	Ficha                    string `json:"ficha"`
	DateStartProductionStage string `json:"date_start_production_stage"`
	Program                  string `json:"program"`
	RequestDate              string `json:"request_date"`
	ModalityProductiveStage  string `json:"modality_productive_stage"`
}

// RequestDetail aggregates everything the portal renders for one request.
// FormUnavailable flags a degraded response when the portal lookup failed;
// the request itself is still served.
type RequestDetail struct {
	Request         *RequestWithInstructor `json:"request"`
	Messages        []Message              `json:"messages"`
	Form            *FormRequest           `json:"form,omitempty"`
	FormUnavailable bool                   `json:"form_unavailable,omitempty"`
}

type InstructorSummary struct {
	InstructorWithArea
	LoadBand LoadBand `json:"load_band"`
}

type InstructorsResponse struct {
	Instructors []InstructorSummary `json:"instructors"`
	Total       int                 `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
}

type RequestsResponse struct {
	Requests []RequestWithInstructor `json:"requests"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	Limit    int                     `json:"limit"`
}

// PortalEnvelope is the portal's response wrapper: domain errors arrive
// inside a 200-level envelope with status "error", so callers must inspect
// the payload, not only the transport status.
type PortalEnvelope struct {
	Status string       `json:"status"`
	Detail string       `json:"detail,omitempty"`
	Data   *FormRequest `json:"data,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}
