package vote

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Reset is the ballot value that zeroes both counters.
const Reset = "reset"

// Store is the subset of the key-value store the service needs.
type Store interface {
	Get(ctx context.Context, keys ...string) ([]int64, error)
	Set(ctx context.Context, key string, value int64) error
	SetIfAbsent(ctx context.Context, key string, value int64) (bool, error)
	Increment(ctx context.Context, key string, by int64) (int64, error)
}

type Options struct {
	Title   string
	Option1 string
	Option2 string
}

// Results is what the page renders after every successful request.
type Results struct {
	Title   string
	Option1 string
	Option2 string
	Count1  int64
	Count2  int64
}

type Service struct {
	store Store
	opts  Options
}

// NewService makes sure both counters exist, creating missing ones at zero.
// Existing counts are kept.
func NewService(ctx context.Context, store Store, opts Options) (*Service, error) {
	s := &Service{store: store, opts: opts}

	for _, key := range s.keys() {
		if _, err := store.SetIfAbsent(ctx, key, 0); err != nil {
			return nil, fmt.Errorf("%w: init counter %q: %w", ErrStoreUnavailable, key, err)
		}
	}

	return s, nil
}

func (s *Service) Options() Options {
	return s.opts
}

// Counts reads both counters.
func (s *Service) Counts(ctx context.Context) (Results, error) {
	counts, err := s.store.Get(ctx, s.keys()...)
	if err != nil {
		return Results{}, fmt.Errorf("%w: read counters: %w", ErrStoreUnavailable, err)
	}

	return Results{
		Title:   s.opts.Title,
		Option1: s.opts.Option1,
		Option2: s.opts.Option2,
		Count1:  counts[0],
		Count2:  counts[1],
	}, nil
}

// SubmitVote applies value and returns the counters read back afterwards.
// A write that succeeded stays applied even if the read back fails.
func (s *Service) SubmitVote(ctx context.Context, value string) (Results, error) {
	if err := s.Validate(value); err != nil {
		return Results{}, err
	}

	if value == Reset {
		// Two independent writes: a failure between them leaves one counter
		// reset and the other untouched.
		for _, key := range s.keys() {
			if err := s.store.Set(ctx, key, 0); err != nil {
				return Results{}, fmt.Errorf("%w: reset counter %q: %w", ErrStoreUnavailable, key, err)
			}
		}
		return s.Counts(ctx)
	}

	if _, err := s.store.Increment(ctx, value, 1); err != nil {
		return Results{}, fmt.Errorf("%w: increment %q: %w", ErrStoreUnavailable, value, err)
	}

	return s.Counts(ctx)
}

// Validate accepts either option label or Reset. The empty string is invalid.
func (s *Service) Validate(value string) error {
	err := validation.Validate(value,
		validation.Required,
		validation.In(s.opts.Option1, s.opts.Option2, Reset),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidVote, value, err)
	}
	return nil
}

func (s *Service) keys() []string {
	return []string{s.opts.Option1, s.opts.Option2}
}
