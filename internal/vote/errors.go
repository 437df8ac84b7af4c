package vote

import "errors"

var (
	ErrMissingVote      = errors.New("missing vote parameter")
	ErrInvalidVote      = errors.New("invalid vote value")
	ErrStoreUnavailable = errors.New("vote store unavailable")
)
