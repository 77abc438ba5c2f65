package service

import (
	"context"
	"strconv"

	"github.com/planpilot/planpilot/internal/api/dto"
	"github.com/planpilot/planpilot/internal/cache"
	"github.com/planpilot/planpilot/internal/domain/plan"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/samber/lo"
)

const (
	// cacheKeyPrefixPlans scopes every plan cache entry so mutations can
	// invalidate them all with one prefix delete.
	cacheKeyPrefixPlans = "plans"

	defaultPlanListLimit = 100
	maxPlanListLimit     = 1000
)

// PlanService owns the plan catalog. Reads are memoized through the TTL
// cache; every mutation invalidates the whole plans prefix.
type PlanService interface {
	CreatePlan(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	ListPlans(ctx context.Context, limit, offset int) (*dto.ListPlansResponse, error)
	UpdatePlan(ctx context.Context, id string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error)
	DeletePlan(ctx context.Context, id string) error
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) CreatePlan(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPlan(ctx)

	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Cache.DeleteByPrefix(ctx, cacheKeyPrefixPlans)
	s.Logger.Infow("plan created", "plan_id", p.ID, "name", p.Name)

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan ID is required").
			WithHint("Please provide a valid plan ID").
			Mark(ierr.ErrValidation)
	}

	key := cache.BuildKey(cacheKeyPrefixPlans, "id", id)
	resp, err := cache.GetOrSet(ctx, s.Cache, key, 0, func(ctx context.Context) (*dto.PlanResponse, error) {
		p, err := s.PlanRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &dto.PlanResponse{Plan: p}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *planService) ListPlans(ctx context.Context, limit, offset int) (*dto.ListPlansResponse, error) {
	if limit <= 0 {
		limit = defaultPlanListLimit
	}
	if limit > maxPlanListLimit {
		limit = maxPlanListLimit
	}
	if offset < 0 {
		offset = 0
	}

	key := cache.BuildKey(cacheKeyPrefixPlans, "list", strconv.Itoa(limit), strconv.Itoa(offset))
	resp, err := cache.GetOrSet(ctx, s.Cache, key, 0, func(ctx context.Context) (*dto.ListPlansResponse, error) {
		plans, err := s.PlanRepo.List(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		items := lo.Map(plans, func(p *plan.Plan, _ int) *dto.PlanResponse {
			return &dto.PlanResponse{Plan: p}
		})
		return &dto.ListPlansResponse{Items: items, Total: len(items)}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *planService) UpdatePlan(ctx context.Context, id string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan ID is required").
			WithHint("Please provide a valid plan ID").
			Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Cache.DeleteByPrefix(ctx, cacheKeyPrefixPlans)
	s.Logger.Infow("plan updated", "plan_id", p.ID)

	return &dto.PlanResponse{Plan: p}, nil
}

// DeletePlan removes a plan from the catalog. Plans still referenced by
// ACTIVE subscriptions cannot be deleted; existing terminal subscriptions
// keep their plan reference for history.
func (s *planService) DeletePlan(ctx context.Context, id string) error {
	if id == "" {
		return ierr.NewError("plan ID is required").
			WithHint("Please provide a valid plan ID").
			Mark(ierr.ErrValidation)
	}

	active, err := s.SubRepo.CountActiveByPlan(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ierr.NewErrorf("plan %s has %d active subscriptions", id, active).
			WithHint("Cannot delete a plan with active subscriptions").
			WithReportableDetails(map[string]interface{}{
				"active_subscriptions": active,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.PlanRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.Cache.DeleteByPrefix(ctx, cacheKeyPrefixPlans)
	s.Logger.Infow("plan deleted", "plan_id", id)
	return nil
}
