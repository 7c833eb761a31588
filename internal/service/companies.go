package service

import (
	"context"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
)

// CompaniesService exposes the organization's company catalogue.
type CompaniesService struct {
	repo repository.CompaniesRepository
}

// NewCompaniesService creates a new instance of CompaniesService.
func NewCompaniesService(repo repository.CompaniesRepository) *CompaniesService {
	return &CompaniesService{repo: repo}
}

// ListCompanies returns companies respecting pagination defaults.
func (s *CompaniesService) ListCompanies(ctx context.Context, id auth.Identity, filter dto.ListFilter) ([]entity.Company, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	return s.repo.List(ctx, id.OrganizationID, repository.CompanyFilter{
		Q:      filter.Q,
		Limit:  filter.PerPage,
		Offset: (filter.Page - 1) * filter.PerPage,
	})
}
