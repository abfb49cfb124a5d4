package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"skh-agent/internal/domain"
)

const (
	TabBlueprint = "blueprint"
	TabDemo      = "demo"
)

// Blueprint is the plan and mockup generated for one idea. ActiveTab names
// the view the site should open first.
type Blueprint struct {
	Plan      string             `json:"plan"`
	Demo      *domain.DemoConfig `json:"demo"`
	ActiveTab string             `json:"activeTab"`
}

// GenerateBlueprint runs GeneratePlan and GenerateVisualDemo concurrently.
// A plan failure fails the call; a missing demo only switches the tab.
func (s *Service) GenerateBlueprint(ctx context.Context, idea string) (Blueprint, error) {
	if _, err := s.validateIdea(idea); err != nil {
		return Blueprint{}, err
	}

	var out Blueprint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan, err := s.GeneratePlan(gctx, idea)
		if err != nil {
			return err
		}
		out.Plan = plan
		return nil
	})
	g.Go(func() error {
		demo, err := s.GenerateVisualDemo(gctx, idea)
		if err != nil {
			return err
		}
		out.Demo = demo
		return nil
	})
	if err := g.Wait(); err != nil {
		return Blueprint{}, err
	}

	out.ActiveTab = TabBlueprint
	if out.Demo != nil {
		out.ActiveTab = TabDemo
	}
	return out, nil
}
