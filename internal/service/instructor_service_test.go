package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

func newInstructorService(store *fakeStore, areas map[string]string) InstructorService {
	return NewInstructorService(
		&fakeInstructorRepo{store: store},
		&fakeAreaRepo{areas: areas},
		zerolog.Nop(),
	)
}

func TestLoadBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		assigned int
		max      int
		want     models.LoadBand
	}{
		{0, 80, models.LoadBandGreen},
		{55, 80, models.LoadBandGreen},  // 68.75%
		{56, 80, models.LoadBandAmber},  // 70%
		{71, 80, models.LoadBandAmber},  // 88.75%
		{72, 80, models.LoadBandRed},    // 90%
		{80, 80, models.LoadBandRed},    // 100%
		{100, 80, models.LoadBandRed},   // over ceiling still total
		{0, 1, models.LoadBandGreen},
		{1, 1, models.LoadBandRed},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, LoadBand(tt.assigned, tt.max), "assigned=%d max=%d", tt.assigned, tt.max)
	}

	// Degenerate max must still produce a deterministic answer.
	require.Equal(t, models.LoadBandRed, LoadBand(0, 0))
}

func TestValidateLimitBoundary(t *testing.T) {
	t.Parallel()

	// assigned=75: 84 is below 75+10, 85 is exactly the floor.
	require.ErrorIs(t, ValidateLimit(75, 84), workflow.ErrLimitBelowHeadroom)
	require.NoError(t, ValidateLimit(75, 85))
	require.NoError(t, ValidateLimit(75, 200))
	require.ErrorIs(t, ValidateLimit(0, 9), workflow.ErrLimitBelowHeadroom)
	require.NoError(t, ValidateLimit(0, 10))
}

func TestCreateInstructor(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newInstructorService(store, nil)

	created, err := svc.Create(context.Background(), &models.CreateInstructorRequest{
		FirstName:       "Laura",
		LastName:        "Gomez",
		Document:        "10203040",
		Email:           "laura@example.com",
		KnowledgeAreaID: "area-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, 0, created.AssignedLearners)
	require.Equal(t, models.DefaultMaxAssignedLearners, created.MaxAssignedLearners)
	require.Equal(t, models.LoadBandGreen, created.LoadBand)
	require.Contains(t, store.instructors, created.ID)

	// An explicit ceiling overrides the default.
	created, err = svc.Create(context.Background(), &models.CreateInstructorRequest{
		FirstName:           "Pedro",
		LastName:            "Mendez",
		Document:            "99887766",
		Email:               "pedro@example.com",
		KnowledgeAreaID:     "area-1",
		MaxAssignedLearners: 40,
	})
	require.NoError(t, err)
	require.Equal(t, 40, created.MaxAssignedLearners)

	// Missing required fields fail before any write.
	_, err = svc.Create(context.Background(), &models.CreateInstructorRequest{
		FirstName: "  ",
		LastName:  "Gomez",
		Document:  "11111111",
	})
	require.ErrorIs(t, err, workflow.ErrValidation)
	require.Len(t, store.instructors, 2)
}

func TestSetLimit(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addInstructor("inst-7", 75, 80)
	svc := newInstructorService(store, nil)

	_, err := svc.SetLimit(context.Background(), "inst-7", 84)
	require.ErrorIs(t, err, workflow.ErrLimitBelowHeadroom)
	require.Equal(t, 80, store.instructors["inst-7"].MaxAssignedLearners)

	updated, err := svc.SetLimit(context.Background(), "inst-7", 85)
	require.NoError(t, err)
	require.Equal(t, 85, updated.MaxAssignedLearners)
	require.Equal(t, models.LoadBandAmber, updated.LoadBand) // 75/85 ≈ 88%

	_, err = svc.SetLimit(context.Background(), "missing", 100)
	require.ErrorIs(t, err, workflow.ErrInstructorNotFound)
}

// staleReadInstructorRepo serves a read that undercounts load, so the
// service's fast-fail check passes and the guarded write has to catch the
// headroom violation itself. Its errors come back wrapped.
type staleReadInstructorRepo struct {
	*fakeInstructorRepo
}

func (r *staleReadInstructorRepo) GetByID(ctx context.Context, id string) (*models.InstructorWithArea, error) {
	instructor, err := r.fakeInstructorRepo.GetByID(ctx, id)
	if instructor != nil {
		instructor.AssignedLearners = 0
	}
	return instructor, err
}

func (r *staleReadInstructorRepo) SetLimit(ctx context.Context, id string, newLimit int) (*models.InstructorWithArea, error) {
	updated, err := r.fakeInstructorRepo.SetLimit(ctx, id, newLimit)
	if err != nil {
		return nil, fmt.Errorf("set limit: %w", err)
	}
	return updated, nil
}

func TestSetLimitGuardedWriteCatchesStaleRead(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addInstructor("inst-7", 75, 80)
	svc := NewInstructorService(
		&staleReadInstructorRepo{fakeInstructorRepo: &fakeInstructorRepo{store: store}},
		&fakeAreaRepo{},
		zerolog.Nop(),
	)

	// 50 clears the stale fast-fail check (assigned read as 0) but not the
	// authoritative guard against the real load of 75.
	_, err := svc.SetLimit(context.Background(), "inst-7", 50)
	require.ErrorIs(t, err, workflow.ErrLimitBelowHeadroom)
	require.Equal(t, 80, store.instructors["inst-7"].MaxAssignedLearners)
}

func TestSearchResolvesKnowledgeArea(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	software := store.addInstructor("inst-1", 10, 80)
	software.KnowledgeAreaName = "Software"
	electric := store.addInstructor("inst-2", 50, 80)
	electric.KnowledgeAreaName = "Electricidad"
	electric.FirstName = "Pedro"
	electric.LastName = "Mendez"
	electric.Document = "99887766"

	svc := newInstructorService(store, map[string]string{"area-sw": "Software"})

	// Area id resolves to a name before filtering.
	resp, err := svc.Search(context.Background(), "", "area-sw", 1, 20)
	require.NoError(t, err)
	require.Len(t, resp.Instructors, 1)
	require.Equal(t, "inst-1", resp.Instructors[0].ID)

	// Unresolvable id degrades to the raw value, matching nothing rather
	// than failing.
	resp, err = svc.Search(context.Background(), "", "area-unknown", 1, 20)
	require.NoError(t, err)
	require.Empty(t, resp.Instructors)

	// Name and document search.
	resp, err = svc.Search(context.Background(), "pedro", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, resp.Instructors, 1)
	require.Equal(t, "inst-2", resp.Instructors[0].ID)

	resp, err = svc.Search(context.Background(), "99887766", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, resp.Instructors, 1)

	// Load band rides along for presentation.
	resp, err = svc.Search(context.Background(), "", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, resp.Instructors, 2)
	for _, instructor := range resp.Instructors {
		if instructor.ID == "inst-1" {
			require.Equal(t, models.LoadBandGreen, instructor.LoadBand)
		}
	}
}
