package testutil

import (
	"context"

	"github.com/planpilot/planpilot/internal/domain/plan"
	ierr "github.com/planpilot/planpilot/internal/errors"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{InMemoryStore: NewInMemoryStore[*plan.Plan]()}
}

func copyPlan(p *plan.Plan) *plan.Plan {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Features = append([]string(nil), p.Features...)
	return &copied
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			WithHint("Plan cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if _, err := s.GetByName(ctx, p.Name); err == nil {
		return ierr.NewError("plan with this name already exists").
			WithHint("A plan with this name already exists").
			WithReportableDetails(map[string]any{"name": p.Name}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.InMemoryStore.Create(ctx, p.ID, copyPlan(p)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create plan").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanStore) GetByName(ctx context.Context, name string) (*plan.Plan, error) {
	plans := s.InMemoryStore.List(ctx, func(_ context.Context, p *plan.Plan) bool {
		return p.Name == name
	}, nil)
	if len(plans) == 0 {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]any{"name": name}).
			Mark(ierr.ErrNotFound)
	}
	return copyPlan(plans[0]), nil
}

func (s *InMemoryPlanStore) List(ctx context.Context, limit, offset int) ([]*plan.Plan, error) {
	plans := s.InMemoryStore.List(ctx, nil, func(i, j *plan.Plan) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})

	if offset >= len(plans) {
		return []*plan.Plan{}, nil
	}
	plans = plans[offset:]
	if limit > 0 && limit < len(plans) {
		plans = plans[:limit]
	}

	out := make([]*plan.Plan, len(plans))
	for i, p := range plans {
		out[i] = copyPlan(p)
	}
	return out, nil
}

func (s *InMemoryPlanStore) Update(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			WithHint("Plan cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if err := s.InMemoryStore.Update(ctx, p.ID, copyPlan(p)); err != nil {
		return ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]any{"id": p.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryPlanStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
