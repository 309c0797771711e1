package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/repository"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

// fakeStore backs the hand-rolled repository fakes so a transition's
// effects are visible through every repo, the way one database would be.
type fakeStore struct {
	requests    map[string]*models.RequestWithInstructor
	messages    []models.Message
	instructors map[string]*models.InstructorWithArea
	transitions []repository.TransitionParams
	applyErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:    map[string]*models.RequestWithInstructor{},
		instructors: map[string]*models.InstructorWithArea{},
	}
}

func (s *fakeStore) addRequest(id, state, modality string, instructorID *string) *models.RequestWithInstructor {
	request := &models.RequestWithInstructor{
		Request: models.Request{
			ID:           id,
			ApprenticeID: "apprentice-1",
			EnterpriseID: "enterprise-1",
			Modality:     modality,
			RequestState: state,
			InstructorID: instructorID,
			Version:      1,
		},
	}
	s.requests[id] = request
	return request
}

func (s *fakeStore) addInstructor(id string, assigned, max int) *models.InstructorWithArea {
	instructor := &models.InstructorWithArea{
		Instructor: models.Instructor{
			ID:                  id,
			FirstName:           "Laura",
			LastName:            "Gomez",
			Document:            "10203040",
			Email:               "laura@example.com",
			KnowledgeAreaID:     "area-1",
			AssignedLearners:    assigned,
			MaxAssignedLearners: max,
		},
		KnowledgeAreaName: "Software",
	}
	s.instructors[id] = instructor
	return instructor
}

type fakeRequestRepo struct {
	store *fakeStore
}

func (r *fakeRequestRepo) Create(_ context.Context, request *models.Request) error {
	r.store.requests[request.ID] = &models.RequestWithInstructor{Request: *request}
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id string) (*models.RequestWithInstructor, error) {
	request, ok := r.store.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *request
	return &copied, nil
}

func (r *fakeRequestRepo) GetAll(_ context.Context, state string, limit, offset int) ([]models.RequestWithInstructor, int, error) {
	var all []models.RequestWithInstructor
	for _, request := range r.store.requests {
		if state == "" || request.RequestState == state {
			all = append(all, *request)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeRequestRepo) ApplyTransition(_ context.Context, params repository.TransitionParams) error {
	if r.store.applyErr != nil {
		return r.store.applyErr
	}

	request, ok := r.store.requests[params.RequestID]
	if !ok {
		return workflow.ErrRequestNotFound
	}
	if request.Version != params.ExpectedVersion {
		return workflow.ErrVersionConflict
	}

	if params.ReserveInstructorID != nil {
		instructor, ok := r.store.instructors[*params.ReserveInstructorID]
		if !ok {
			return workflow.ErrInstructorNotFound
		}
		if instructor.AssignedLearners >= instructor.MaxAssignedLearners {
			return workflow.ErrCapacityExhausted
		}
		instructor.AssignedLearners++
	}
	if params.ReleaseInstructorID != nil {
		if instructor, ok := r.store.instructors[*params.ReleaseInstructorID]; ok && instructor.AssignedLearners > 0 {
			instructor.AssignedLearners--
		}
	}

	request.RequestState = params.NextState.String()
	if params.NewInstructorID != nil {
		request.InstructorID = params.NewInstructorID
	}
	if params.StartDate != nil {
		request.StartDate = params.StartDate
	}
	if params.EndDate != nil {
		request.EndDate = params.EndDate
	}
	request.Version++

	r.store.messages = append(r.store.messages, *params.Message)
	r.store.transitions = append(r.store.transitions, params)
	return nil
}

type fakeMessageRepo struct {
	store *fakeStore
}

func (r *fakeMessageRepo) Append(_ context.Context, message *models.Message) error {
	r.store.messages = append(r.store.messages, *message)
	return nil
}

func (r *fakeMessageRepo) GetByRequestID(_ context.Context, requestID string) ([]models.Message, error) {
	var out []models.Message
	for _, message := range r.store.messages {
		if message.RequestID == requestID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) LatestByAuthor(_ context.Context, requestID string, author models.Role) (*models.Message, error) {
	for i := len(r.store.messages) - 1; i >= 0; i-- {
		message := r.store.messages[i]
		if message.RequestID == requestID && message.WhoseMessage == author.String() {
			return &message, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) HasRejectionFrom(_ context.Context, requestID string, author models.Role) (bool, error) {
	for _, message := range r.store.messages {
		if message.RequestID == requestID &&
			message.WhoseMessage == author.String() &&
			models.IsRejectionMarker(message.TypeMessage) {
			return true, nil
		}
	}
	return false, nil
}

type fakeInstructorRepo struct {
	store *fakeStore
}

func (r *fakeInstructorRepo) Create(_ context.Context, instructor *models.Instructor) error {
	r.store.instructors[instructor.ID] = &models.InstructorWithArea{Instructor: *instructor}
	return nil
}

func (r *fakeInstructorRepo) GetByID(_ context.Context, id string) (*models.InstructorWithArea, error) {
	instructor, ok := r.store.instructors[id]
	if !ok {
		return nil, nil
	}
	copied := *instructor
	return &copied, nil
}

func (r *fakeInstructorRepo) Search(_ context.Context, query, areaName string, limit, offset int) ([]models.InstructorWithArea, int, error) {
	var out []models.InstructorWithArea
	for _, instructor := range r.store.instructors {
		if query != "" &&
			!strings.Contains(strings.ToLower(instructor.FirstName+" "+instructor.LastName), strings.ToLower(query)) &&
			!strings.Contains(instructor.Document, query) {
			continue
		}
		if areaName != "" && instructor.KnowledgeAreaName != areaName {
			continue
		}
		out = append(out, *instructor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeInstructorRepo) SetLimit(_ context.Context, id string, newLimit int) (*models.InstructorWithArea, error) {
	instructor, ok := r.store.instructors[id]
	if !ok {
		return nil, workflow.ErrInstructorNotFound
	}
	if newLimit < instructor.AssignedLearners+models.LimitHeadroom {
		return nil, workflow.ErrLimitBelowHeadroom
	}
	instructor.MaxAssignedLearners = newLimit
	copied := *instructor
	return &copied, nil
}

func (r *fakeInstructorRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.store.instructors[id]
	return ok, nil
}

type fakeAreaRepo struct {
	areas map[string]string
}

func (r *fakeAreaRepo) GetAll(_ context.Context) ([]models.KnowledgeArea, error) {
	var out []models.KnowledgeArea
	for id, name := range r.areas {
		out = append(out, models.KnowledgeArea{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeAreaRepo) ResolveName(_ context.Context, id string) (string, error) {
	return r.areas[id], nil
}

type fakePortalClient struct {
	form *models.FormRequest
	err  error
}

func (c *fakePortalClient) GetFormRequest(context.Context, string) (*models.FormRequest, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.form == nil {
		return nil, errors.New("no form configured")
	}
	return c.form, nil
}

type fakeEventPublisher struct {
	assigned []*models.RequestAssignedEvent
	rejected []*models.RequestRejectedEvent
	err      error
}

func (p *fakeEventPublisher) PublishAssigned(_ context.Context, event *models.RequestAssignedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.assigned = append(p.assigned, event)
	return nil
}

func (p *fakeEventPublisher) PublishRejected(_ context.Context, event *models.RequestRejectedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.rejected = append(p.rejected, event)
	return nil
}

func (p *fakeEventPublisher) Close() error { return nil }
