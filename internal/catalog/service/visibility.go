package service

import (
	"context"
	"time"

	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// VisibleFilter narrows the donor-facing cause listing.
type VisibleFilter struct {
	Tag            string
	Type           domain.ContributionType
	OrganizationID *domain.OrganizationID
	Query          string
	Limit          int
	Offset         int
}

// Visible resolves whether cause is donor-visible at now using stores, which
// may be a transaction. Callers that act on the answer should hold the
// cause's lock.
func Visible(ctx context.Context, stores storage.Stores, cause *catalog.Cause, now time.Time) (bool, error) {
	if !cause.Active {
		return false, nil
	}
	byCause, err := stores.Campaigns().ListByCauses(ctx, []domain.CauseID{cause.ID})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaigns")
	}
	return catalog.IsVisible(cause, byCause[cause.ID], now), nil
}

// IsCauseVisible reports whether donors can currently see and fund a cause.
func (s *Service) IsCauseVisible(ctx context.Context, id domain.CauseID) (bool, error) {
	cause, err := loadCause(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	return Visible(ctx, s.db, cause, requestcontext.Now(ctx))
}

// ListVisibleCauses returns the causes donors may fund right now, ordered by
// creation time. Campaign membership is resolved in a single batch.
func (s *Service) ListVisibleCauses(ctx context.Context, filter VisibleFilter) ([]*catalog.Cause, error) {
	causes, err := s.db.Causes().List(ctx, storage.CauseFilter{
		OrganizationID: filter.OrganizationID,
		ActiveOnly:     true,
		Tag:            filter.Tag,
		Type:           filter.Type,
		Query:          filter.Query,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list causes")
	}
	if len(causes) == 0 {
		return []*catalog.Cause{}, nil
	}

	ids := make([]domain.CauseID, 0, len(causes))
	for _, c := range causes {
		ids = append(ids, c.ID)
	}
	byCause, err := s.db.Campaigns().ListByCauses(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaigns")
	}

	now := requestcontext.Now(ctx)
	visible := make([]*catalog.Cause, 0, len(causes))
	for _, c := range causes {
		if catalog.IsVisible(c, byCause[c.ID], now) {
			visible = append(visible, c)
		}
	}
	return page(visible, filter.Limit, filter.Offset), nil
}

func page(causes []*catalog.Cause, limit, offset int) []*catalog.Cause {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	if offset < 0 || offset >= len(causes) {
		return []*catalog.Cause{}
	}
	end := min(offset+limit, len(causes))
	return causes[offset:end]
}
