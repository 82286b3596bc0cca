package service

import (
	"context"
	"strings"

	"snapshare/internal/repository"
)

// Pagination bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageParams is the raw pagination window of a listing request.
type PageParams struct {
	Limit    int
	Offset   int
	LimitSet bool
}

// ListParams are the filters of a post listing. Empty strings mean the
// filter is absent.
type ListParams struct {
	PageParams
	Tag       string
	Author    string
	Favorited string
}

// FeedQuery is a resolved predicate with its pagination window.
type FeedQuery struct {
	Predicate repository.Predicate
	Page      repository.Page
}

// NormalizePage applies the default limit, clamps negatives to zero and caps
// the limit at MaxPageLimit.
func NormalizePage(p PageParams) repository.Page {
	limit := DefaultPageLimit
	if p.LimitSet {
		limit = p.Limit
	}
	limit = max(0, min(limit, MaxPageLimit))
	return repository.Page{Limit: limit, Offset: max(0, p.Offset)}
}

// FilterBuilder resolves listing filters into a post predicate.
type FilterBuilder struct {
	users repository.UserRepository
}

// NewFilterBuilder creates a FilterBuilder.
func NewFilterBuilder(users repository.UserRepository) *FilterBuilder {
	return &FilterBuilder{users: users}
}

// Build resolves params. An author or favoriter that does not exist makes
// the whole predicate match nothing; it is not an error.
func (b *FilterBuilder) Build(ctx context.Context, params ListParams) (FeedQuery, error) {
	q := FeedQuery{Page: NormalizePage(params.PageParams)}
	var clauses []repository.Predicate

	if tag := strings.ToLower(strings.TrimSpace(params.Tag)); tag != "" {
		clauses = append(clauses, repository.HasTag{Tag: tag})
	}

	if name := strings.TrimSpace(params.Author); name != "" {
		id, found, err := b.resolve(ctx, name)
		if err != nil {
			return q, err
		}
		if !found {
			q.Predicate = repository.MatchNone{}
			return q, nil
		}
		clauses = append(clauses, repository.AuthoredBy{UserIDs: []uint{id}})
	}

	if name := strings.TrimSpace(params.Favorited); name != "" {
		id, found, err := b.resolve(ctx, name)
		if err != nil {
			return q, err
		}
		if !found {
			q.Predicate = repository.MatchNone{}
			return q, nil
		}
		clauses = append(clauses, repository.FavoritedBy{UserID: id})
	}

	switch len(clauses) {
	case 0:
		q.Predicate = repository.MatchAll{}
	case 1:
		q.Predicate = clauses[0]
	default:
		q.Predicate = repository.AllOf{Clauses: clauses}
	}
	return q, nil
}

func (b *FilterBuilder) resolve(ctx context.Context, username string) (uint, bool, error) {
	user, err := b.users.GetByUsername(ctx, username)
	if err != nil {
		err = translate(err, "user", username)
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return user.ID, true, nil
}
