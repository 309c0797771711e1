package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

func newAssignmentService(store *fakeStore) (AssignmentService, *fakePortalClient, *fakeEventPublisher) {
	portal := &fakePortalClient{}
	events := &fakeEventPublisher{}
	svc := NewAssignmentService(
		&fakeRequestRepo{store: store},
		&fakeInstructorRepo{store: store},
		&fakeMessageRepo{store: store},
		portal,
		events,
		zerolog.Nop(),
	)
	return svc, portal, events
}

var coordinator = models.Actor{ID: "coord-1", Role: models.RoleCoordinator}
var instructorActor = models.Actor{ID: "inst-1", Role: models.RoleInstructor}

func TestCreateRequest(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc, _, _ := newAssignmentService(store)

	created, err := svc.CreateRequest(context.Background(), &models.CreateRequestRequest{
		ApprenticeID: "appr-1",
		EnterpriseID: "ent-1",
		Modality:     "Pasantía",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "SIN_ASIGNAR", created.RequestState)
	require.Equal(t, 1, created.Version)
	require.Nil(t, created.InstructorID)
	require.Contains(t, store.requests, created.ID)

	// Missing fields fail before any write.
	_, err = svc.CreateRequest(context.Background(), &models.CreateRequestRequest{
		ApprenticeID: "appr-1",
		Modality:     "Pasantía",
	})
	require.ErrorIs(t, err, workflow.ErrValidation)

	_, err = svc.CreateRequest(context.Background(), &models.CreateRequestRequest{
		ApprenticeID: "appr-1",
		EnterpriseID: "ent-1",
		Modality:     "   ",
	})
	require.ErrorIs(t, err, workflow.ErrValidation)
	require.Len(t, store.requests, 1)
}

func TestAssignInstructorStartsVerification(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Pasantía", nil)
	store.addInstructor("inst-7", 10, 80)
	svc, _, events := newAssignmentService(store)

	resp, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "Revisar",
		Version:      1,
	})
	require.NoError(t, err)

	require.Equal(t, "VERIFICANDO", resp.Request.RequestState)
	require.Equal(t, "inst-7", *resp.Request.InstructorID)
	require.Equal(t, 2, resp.Request.Version)

	require.NotNil(t, resp.Message)
	require.Equal(t, "VERIFICACION", resp.Message.TypeMessage)
	require.Equal(t, "COORDINADOR", resp.Message.WhoseMessage)
	require.Equal(t, "Revisar", resp.Message.Content)

	require.Equal(t, 11, store.instructors["inst-7"].AssignedLearners)
	require.Len(t, events.assigned, 1)
	require.Equal(t, "VERIFICANDO", events.assigned[0].RequestState)
}

func TestAssignInstructorFastTrackModality(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Contrato de aprendizaje", nil)
	store.addInstructor("inst-7", 10, 80)
	svc, _, _ := newAssignmentService(store)

	resp, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "Asignación directa",
		Version:      1,
	})
	require.NoError(t, err)
	require.Equal(t, "ASIGNADO", resp.Request.RequestState)
	require.Equal(t, "ASIGNADO", resp.Message.TypeMessage)
}

func TestAssignInstructorRecordsContractPeriod(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Contrato de aprendizaje", nil)
	store.addInstructor("inst-7", 10, 80)
	svc, _, _ := newAssignmentService(store)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)

	resp, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "Asignación con contrato",
		Version:      1,
		StartDate:    &start,
		EndDate:      &end,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Request.StartDate)
	require.NotNil(t, resp.Request.EndDate)
	require.Equal(t, start, *resp.Request.StartDate)
	require.Equal(t, end, *resp.Request.EndDate)
	require.Equal(t, start, *store.requests["req-1"].StartDate)
	require.Equal(t, end, *store.requests["req-1"].EndDate)

	// Reassigning without dates leaves the recorded period untouched.
	_, err = svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "Confirmación",
		Version:      2,
	})
	require.NoError(t, err)
	require.Equal(t, start, *store.requests["req-1"].StartDate)
	require.Equal(t, end, *store.requests["req-1"].EndDate)
}

func TestAssignInstructorValidation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Pasantía", nil)
	store.addInstructor("inst-7", 10, 80)
	svc, _, _ := newAssignmentService(store)

	// Missing instructor.
	_, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		Content: "Revisar",
		Version: 1,
	})
	require.ErrorIs(t, err, workflow.ErrValidation)

	// Empty content.
	_, err = svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "   ",
		Version:      1,
	})
	require.ErrorIs(t, err, workflow.ErrEmptyContent)

	// Over-length content.
	_, err = svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      strings.Repeat("a", 501),
		Version:      1,
	})
	require.ErrorIs(t, err, workflow.ErrContentTooLong)

	// No side effects from any of the failures.
	require.Empty(t, store.transitions)
	require.Empty(t, store.messages)
	require.Equal(t, "SIN_ASIGNAR", store.requests["req-1"].RequestState)
}

func TestAssignInstructorCapacityMovements(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	instructorID := "inst-old"
	store.addRequest("req-1", "ASIGNADO", "Pasantía", &instructorID)
	store.addInstructor("inst-old", 5, 80)
	store.addInstructor("inst-new", 20, 80)
	svc, _, _ := newAssignmentService(store)

	// Reassignment to a different instructor releases the old slot and
	// takes a new one.
	_, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-new",
		Content:      "Cambio de instructor",
		Version:      1,
	})
	require.NoError(t, err)
	require.Equal(t, 4, store.instructors["inst-old"].AssignedLearners)
	require.Equal(t, 21, store.instructors["inst-new"].AssignedLearners)

	// Reconfirming the same instructor moves no capacity.
	_, err = svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-new",
		Content:      "Confirmación",
		Version:      2,
	})
	require.NoError(t, err)
	require.Equal(t, 21, store.instructors["inst-new"].AssignedLearners)
}

func TestAssignInstructorCapacityExhausted(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Pasantía", nil)
	store.addInstructor("inst-full", 80, 80)
	svc, _, _ := newAssignmentService(store)

	_, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-full",
		Content:      "Revisar",
		Version:      1,
	})
	require.ErrorIs(t, err, workflow.ErrCapacityExhausted)
	require.Equal(t, 80, store.instructors["inst-full"].AssignedLearners)
	require.Equal(t, "SIN_ASIGNAR", store.requests["req-1"].RequestState)
}

func TestAssignInstructorVersionConflict(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Pasantía", nil)
	store.addInstructor("inst-7", 10, 80)
	svc, _, _ := newAssignmentService(store)

	_, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "Revisar",
		Version:      99,
	})
	require.ErrorIs(t, err, workflow.ErrVersionConflict)
}

func TestAssignInstructorSurfacesPartialFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Pasantía", nil)
	store.addInstructor("inst-7", 10, 80)
	store.applyErr = workflow.ErrPartialFailure
	svc, _, events := newAssignmentService(store)

	_, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "Revisar",
		Version:      1,
	})
	require.ErrorIs(t, err, workflow.ErrPartialFailure)

	// No event leaves the service when the transaction outcome is unknown.
	require.Empty(t, events.assigned)
}

func TestAssignInstructorTerminalRequest(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "RECHAZADO", "Pasantía", nil)
	store.addInstructor("inst-7", 10, 80)
	svc, _, _ := newAssignmentService(store)

	_, err := svc.AssignInstructor(context.Background(), coordinator, "req-1", &models.AssignInstructorRequest{
		InstructorID: "inst-7",
		Content:      "Revisar",
		Version:      1,
	})
	require.ErrorIs(t, err, workflow.ErrTerminalState)
	require.Empty(t, store.transitions)
}

func TestPreApprove(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	instructorID := "inst-7"
	store.addRequest("req-1", "PRE-APROBADO", "Pasantía", &instructorID)
	store.addInstructor("inst-7", 10, 80)
	svc, _, _ := newAssignmentService(store)

	resp, err := svc.PreApprove(context.Background(), coordinator, "req-1", &models.PreApproveRequest{
		Content: "Aprobado para inicio",
		Version: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "ASIGNADO", resp.Request.RequestState)
	require.Equal(t, "APROBADA", resp.Message.TypeMessage)

	// Pre-approval does not consume extra capacity: the slot was taken
	// when the instructor was bound.
	require.Equal(t, 10, store.instructors["inst-7"].AssignedLearners)
}

func TestPreApproveBlockedByInstructorRejection(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	instructorID := "inst-7"
	store.addRequest("req-1", "VERIFICANDO", "Pasantía", &instructorID)
	store.addInstructor("inst-7", 10, 80)
	store.messages = append(store.messages, models.Message{
		ID:           "msg-1",
		RequestID:    "req-1",
		Content:      "La empresa no cumple",
		TypeMessage:  "RECHAZADO",
		WhoseMessage: "INSTRUCTOR",
	})
	svc, _, _ := newAssignmentService(store)

	_, err := svc.PreApprove(context.Background(), coordinator, "req-1", &models.PreApproveRequest{
		Content: "Aprobado",
		Version: 1,
	})
	require.ErrorIs(t, err, workflow.ErrBlockedByInstructorRejection)

	// No message appended, no state change.
	require.Len(t, store.messages, 1)
	require.Equal(t, "VERIFICANDO", store.requests["req-1"].RequestState)
	require.Empty(t, store.transitions)
}

func TestPreApproveCoordinatorRejectionDoesNotBlock(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	instructorID := "inst-7"
	store.addRequest("req-1", "VERIFICANDO", "Pasantía", &instructorID)
	store.addInstructor("inst-7", 10, 80)
	store.messages = append(store.messages, models.Message{
		ID:           "msg-1",
		RequestID:    "req-1",
		Content:      "Observación previa",
		TypeMessage:  "RECHAZADO",
		WhoseMessage: "COORDINADOR",
	})
	svc, _, _ := newAssignmentService(store)

	_, err := svc.PreApprove(context.Background(), coordinator, "req-1", &models.PreApproveRequest{
		Content: "Aprobado",
		Version: 1,
	})
	require.NoError(t, err)
}

func TestInstructorVerdict(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	instructorID := "inst-7"
	store.addRequest("req-1", "VERIFICANDO", "Pasantía", &instructorID)
	store.addInstructor("inst-7", 10, 80)
	svc, _, _ := newAssignmentService(store)

	resp, err := svc.InstructorVerdict(context.Background(), instructorActor, "req-1", &models.VerdictRequest{
		Approve: true,
		Content: "Verificado sin novedades",
		Version: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "PRE-APROBADO", resp.Request.RequestState)
	require.Equal(t, "APROBADA", resp.Message.TypeMessage)
	require.Equal(t, "INSTRUCTOR", resp.Message.WhoseMessage)

	// An observation leaves the state untouched but blocks approval.
	resp, err = svc.InstructorVerdict(context.Background(), instructorActor, "req-1", &models.VerdictRequest{
		Approve: false,
		Content: "Documentación incompleta",
		Version: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "PRE-APROBADO", resp.Request.RequestState)
	require.Equal(t, "RECHAZADO", resp.Message.TypeMessage)

	_, err = svc.PreApprove(context.Background(), coordinator, "req-1", &models.PreApproveRequest{
		Content: "Aprobado",
		Version: 3,
	})
	require.ErrorIs(t, err, workflow.ErrBlockedByInstructorRejection)
}

func TestGetRequestDetailDegradesWithoutPortal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "VERIFICANDO", "Pasantía", nil)
	svc, portal, _ := newAssignmentService(store)

	portal.form = &models.FormRequest{NameApprentice: "Carlos Ruiz", Ficha: "2558101"}
	detail, err := svc.GetRequestDetail(context.Background(), "req-1")
	require.NoError(t, err)
	require.NotNil(t, detail.Form)
	require.False(t, detail.FormUnavailable)
	require.Equal(t, "Carlos Ruiz", detail.Form.NameApprentice)

	portal.form = nil
	detail, err = svc.GetRequestDetail(context.Background(), "req-1")
	require.NoError(t, err)
	require.Nil(t, detail.Form)
	require.True(t, detail.FormUnavailable)
}

func TestGetRequestsFiltersByState(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addRequest("req-1", "SIN_ASIGNAR", "Pasantía", nil)
	store.addRequest("req-2", "ASIGNADO", "Pasantía", nil)
	store.addRequest("req-3", "SIN_ASIGNAR", "Pasantía", nil)
	svc, _, _ := newAssignmentService(store)

	resp, err := svc.GetRequests(context.Background(), "SIN_ASIGNAR", 1, 20)
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)

	_, err = svc.GetRequests(context.Background(), "NO_EXISTE", 1, 20)
	require.ErrorIs(t, err, workflow.ErrInvalidState)
}
