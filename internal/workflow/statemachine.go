package workflow

import (
	"fmt"

	"github.com/sena-seguimiento/assignment-service/internal/models"
)

// Outcome is what the actor is trying to do to a request.
type Outcome int

const (
	// OutcomeAssign is the coordinator selecting (or reselecting) a
	// follow-up instructor.
	OutcomeAssign Outcome = iota
	// OutcomePreApprove is the coordinator's final approval after the
	// instructor's verification round.
	OutcomePreApprove
	// OutcomeVerify is the instructor confirming the request checks out.
	OutcomeVerify
	// OutcomeObserve is the instructor recording a rejection-marker
	// observation. It does not move the state but blocks pre-approval.
	OutcomeObserve
	// OutcomeReject is the terminal rejection, available to either role.
	OutcomeReject
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAssign:
		return "assign"
	case OutcomePreApprove:
		return "pre-approve"
	case OutcomeVerify:
		return "verify"
	case OutcomeObserve:
		return "observe"
	case OutcomeReject:
		return "reject"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the state/message-type pair a successful transition persists.
type Result struct {
	Next models.RequestState
	Type models.MessageType
}

// Transition computes the next state and ledger message type for an
// outcome, or reports why the combination is illegal. It is pure: the
// ledger-based pre-approval gate is the orchestrator's job, since the
// machine itself never touches storage.
func Transition(rawState, modality string, actor models.Role, outcome Outcome) (Result, error) {
	state, ok := models.ParseRequestState(rawState)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidState, rawState)
	}

	if state.Terminal() {
		return Result{}, fmt.Errorf("%w: %s", ErrTerminalState, state)
	}

	if err := checkActor(actor, outcome); err != nil {
		return Result{}, err
	}

	switch outcome {
	case OutcomeAssign:
		return assign(state, modality), nil

	case OutcomePreApprove:
		return Result{Next: models.StateAssigned, Type: models.MessageTypeApproved}, nil

	case OutcomeVerify:
		switch state {
		case models.StateVerifying, models.StatePreApproved:
			return Result{Next: models.StatePreApproved, Type: models.MessageTypeApproved}, nil
		default:
			return Result{}, fmt.Errorf("%w: verify from %s", ErrInvalidTransition, state)
		}

	case OutcomeObserve:
		switch state {
		case models.StateVerifying, models.StatePreApproved, models.StateAssigned:
			// State is untouched; the RECHAZADO-typed message is what
			// blocks the coordinator's approval.
			return Result{Next: state, Type: models.MessageTypeRejected}, nil
		default:
			return Result{}, fmt.Errorf("%w: observe from %s", ErrInvalidTransition, state)
		}

	case OutcomeReject:
		return Result{Next: models.StateRejected, Type: models.MessageTypeRejected}, nil
	}

	return Result{}, fmt.Errorf("%w: unknown outcome %s", ErrInvalidTransition, outcome)
}

// assign never fails on a non-terminal state: unknown intermediate states
// were already rejected by ParseRequestState.
func assign(state models.RequestState, modality string) Result {
	if models.SkipsVerification(modality) {
		return Result{Next: models.StateAssigned, Type: models.MessageTypeAssigned}
	}

	switch state {
	case models.StateAssigned:
		// Reassignment keeps the assigned state.
		return Result{Next: models.StateAssigned, Type: models.MessageTypeAssigned}
	default:
		// SIN_ASIGNAR starts verification; VERIFICANDO and PRE-APROBADO
		// re-affirm it.
		return Result{Next: models.StateVerifying, Type: models.MessageTypeVerification}
	}
}

func checkActor(actor models.Role, outcome Outcome) error {
	switch outcome {
	case OutcomeAssign, OutcomePreApprove:
		if actor != models.RoleCoordinator {
			return fmt.Errorf("%w: %s requires %s", ErrActorNotAllowed, outcome, models.RoleCoordinator)
		}
	case OutcomeVerify, OutcomeObserve:
		if actor != models.RoleInstructor {
			return fmt.Errorf("%w: %s requires %s", ErrActorNotAllowed, outcome, models.RoleInstructor)
		}
	case OutcomeReject:
		// Either role may reject.
	}
	return nil
}
