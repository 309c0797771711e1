package models

import (
	"time"
)

// Instructor is a follow-up instructor eligible for assignment. The pair
// assigned_learners / max_assigned_learners is the one genuinely shared,
// contended resource in the system; it is only ever adjusted through
// guarded updates in the repository.
type Instructor struct {
	ID                  string    `json:"id" db:"id"`
	FirstName           string    `json:"first_name" db:"first_name"`
	LastName            string    `json:"last_name" db:"last_name"`
	Document            string    `json:"document" db:"document"`
	Email               string    `json:"email" db:"email"`
	Phone               string    `json:"phone" db:"phone"`
	KnowledgeAreaID     string    `json:"knowledge_area_id" db:"knowledge_area_id"`
	AssignedLearners    int       `json:"assigned_learners" db:"assigned_learners"`
	MaxAssignedLearners int       `json:"max_assigned_learners" db:"max_assigned_learners"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

type InstructorWithArea struct {
	Instructor
	KnowledgeAreaName string `json:"knowledge_area_name" db:"knowledge_area_name"`
}

// KnowledgeArea resolves an area id to its display name; searches filter
// against the resolved name, not the id.
type KnowledgeArea struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

const (
	// DefaultMaxAssignedLearners is the capacity ceiling given to new
	// instructors.
	DefaultMaxAssignedLearners = 80

	// LimitHeadroom is the mandatory buffer above current load required
	// when editing an instructor's ceiling.
	LimitHeadroom = 10
)

type LoadBand string

const (
	LoadBandGreen LoadBand = "green"
	LoadBandAmber LoadBand = "amber"
	LoadBandRed   LoadBand = "red"
)
