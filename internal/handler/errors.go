package handler

import (
	"errors"
	"net/http"

	"github.com/angeloszaimis/azure-vote/internal/store"
	"github.com/angeloszaimis/azure-vote/internal/vote"
)

const (
	msgMissingVote = "Missing vote parameter"
	msgInvalidVote = "Invalid vote value"
	msgReadFailed  = "Failed to retrieve vote counts"
	msgResetFailed = "Failed to reset vote counts"
	msgVoteFailed  = "Failed to process vote"
)

var errorStatusMap = map[error]int{
	vote.ErrMissingVote:      http.StatusBadRequest,
	vote.ErrInvalidVote:      http.StatusBadRequest,
	vote.ErrStoreUnavailable: http.StatusInternalServerError,
	store.ErrUnreachable:     http.StatusInternalServerError,
	store.ErrNotInteger:      http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, vote.ErrMissingVote):
		return msgMissingVote
	case errors.Is(err, vote.ErrInvalidVote):
		return msgInvalidVote
	default:
		return http.StatusText(statusFromError(err))
	}
}
