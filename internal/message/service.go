package message

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"inlet/internal/constants"
	pkgerrors "inlet/pkg/errors"
)

// QueryService validates read parameters before the store is touched.
// Out-of-range pagination fails fast with InvalidArgument instead of being
// clamped, so callers are never misled about result completeness.
type QueryService struct {
	store Store
}

func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

func (s *QueryService) List(ctx context.Context, f Filter, limit, offset int) (*Page, error) {
	if limit < constants.MinLimit || limit > constants.MaxLimit {
		return nil, pkgerrors.ErrInvalidArgument.WithDetail("message",
			fmt.Sprintf("limit must be between %d and %d, got %d", constants.MinLimit, constants.MaxLimit, limit))
	}
	if offset < 0 {
		return nil, pkgerrors.ErrInvalidArgument.WithDetail("message",
			fmt.Sprintf("offset must not be negative, got %d", offset))
	}

	msgs, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	return &Page{
		Data:   msgs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s *QueryService) Get(ctx context.Context, id string) (*Message, error) {
	if id == "" {
		return nil, pkgerrors.ErrInvalidArgument.WithDetail("message", "id must not be empty")
	}
	return s.store.Get(ctx, id)
}

// ParseListParams turns raw query-string values into validated pagination
// values. Empty strings take the defaults.
func ParseListParams(limitStr, offsetStr string) (limit, offset int, err error) {
	limit = constants.DefaultLimit
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, pkgerrors.ErrInvalidArgument.WithDetail("message",
				fmt.Sprintf("limit must be an integer, got %q", limitStr))
		}
	}

	offset = 0
	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, pkgerrors.ErrInvalidArgument.WithDetail("message",
				fmt.Sprintf("offset must be an integer, got %q", offsetStr))
		}
	}

	return limit, offset, nil
}

// ParseFilter builds a Filter from raw query-string values. since accepts
// RFC3339.
func ParseFilter(sender, since, query string) (Filter, error) {
	f := Filter{Sender: sender, Query: query}

	if since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return Filter{}, pkgerrors.ErrInvalidArgument.WithDetail("message",
				fmt.Sprintf("since must be an RFC3339 timestamp, got %q", since))
		}
		utc := ts.UTC()
		f.Since = &utc
	}

	return f, nil
}
