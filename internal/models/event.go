package models

// Events published to the portal's notification exchange after a committed
// transition. Publishing is best effort and never rolls back a transition.

type RequestAssignedEvent struct {
	RequestID    string `json:"request_id"`
	InstructorID string `json:"instructor_id"`
	RequestState string `json:"request_state"`
	TypeMessage  string `json:"type_message"`
	ActorID      string `json:"actor_id"`
	ActorRole    string `json:"actor_role"`
	Timestamp    int64  `json:"timestamp"`
}

type RequestRejectedEvent struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Timestamp int64  `json:"timestamp"`
}
