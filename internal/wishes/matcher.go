package wishes

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
)

// MatchTarget describes the listing a match run is scoped to.
type MatchTarget struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
	ModelID    uuid.UUID
	BrandID    uuid.UUID
	PriceCents int64
}

// MatchResult is the union of matching wishes with deduplicated owners.
type MatchResult struct {
	WishIDs []uuid.UUID
	UserIDs []uuid.UUID
}

// Matcher resolves which pending wishes a new listing satisfies.
type Matcher struct {
	repo Repository
	logg *logger.Logger
}

// NewMatcher builds a matcher over the wish repository.
func NewMatcher(repo Repository, logg *logger.Logger) (*Matcher, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wish repo is required")
	}
	return &Matcher{repo: repo, logg: logg}, nil
}

// FindMatches queries the three wish dimensions concurrently and unions the
// results. Wish IDs are unique by construction; user IDs are deduplicated so
// a user with several satisfied wishes is notified once.
func (m *Matcher) FindMatches(ctx context.Context, target MatchTarget) (MatchResult, error) {
	queries := []struct {
		dimension enums.WishDimension
		targetID  uuid.UUID
	}{
		{enums.WishDimensionCategory, target.CategoryID},
		{enums.WishDimensionModel, target.ModelID},
		{enums.WishDimensionBrand, target.BrandID},
	}

	var mtx sync.Mutex
	var matched []models.Wish

	group, groupCtx := errgroup.WithContext(ctx)
	for _, query := range queries {
		query := query
		if query.targetID == uuid.Nil {
			continue
		}
		group.Go(func() error {
			rows, err := m.repo.FindPendingByDimension(groupCtx, query.dimension, query.targetID, target.PriceCents)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query "+string(query.dimension)+" wishes")
			}
			mtx.Lock()
			matched = append(matched, rows...)
			mtx.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return MatchResult{}, err
	}

	seenWishes := make(map[uuid.UUID]struct{}, len(matched))
	seenUsers := make(map[uuid.UUID]struct{}, len(matched))
	result := MatchResult{}
	for _, wish := range matched {
		if _, ok := seenWishes[wish.ID]; ok {
			continue
		}
		seenWishes[wish.ID] = struct{}{}
		result.WishIDs = append(result.WishIDs, wish.ID)
		if _, ok := seenUsers[wish.UserID]; !ok {
			seenUsers[wish.UserID] = struct{}{}
			result.UserIDs = append(result.UserIDs, wish.UserID)
		}
	}

	if m.logg != nil {
		logCtx := m.logg.WithFields(ctx, map[string]any{
			"product_id": target.ProductID.String(),
			"wishes":     len(result.WishIDs),
			"users":      len(result.UserIDs),
		})
		m.logg.Info(logCtx, "wish match run completed")
	}
	return result, nil
}
