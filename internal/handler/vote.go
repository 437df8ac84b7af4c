package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/angeloszaimis/azure-vote/internal/metrics"
	"github.com/angeloszaimis/azure-vote/internal/view"
	"github.com/angeloszaimis/azure-vote/internal/vote"
	"github.com/angeloszaimis/azure-vote/pkg/logger"
)

const voteField = "vote"

type Voter interface {
	Counts(ctx context.Context) (vote.Results, error)
	SubmitVote(ctx context.Context, value string) (vote.Results, error)
}

type VoteHandler struct {
	logger           *slog.Logger
	voter            Voter
	renderer         *view.Renderer
	metricsCollector *metrics.Collector
}

// NewVoteHandler wires the page handler. collector may be nil.
func NewVoteHandler(logger *slog.Logger, voter Voter, renderer *view.Renderer, collector *metrics.Collector) *VoteHandler {
	return &VoteHandler{
		logger:           logger,
		voter:            voter,
		renderer:         renderer,
		metricsCollector: collector,
	}
}

// Index renders the current counts.
func (h *VoteHandler) Index(w http.ResponseWriter, r *http.Request) {
	res, err := h.voter.Counts(r.Context())
	if err != nil {
		h.fail(w, r, err, msgReadFailed)
		return
	}

	h.render(w, r, res)
}

// Vote applies the submitted ballot and renders the updated counts.
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, vote.ErrMissingVote, msgMissingVote)
		return
	}

	values, ok := r.PostForm[voteField]
	if !ok || len(values) == 0 {
		h.fail(w, r, vote.ErrMissingVote, msgMissingVote)
		return
	}
	value := values[0]

	res, err := h.voter.SubmitVote(r.Context(), value)
	if err != nil {
		msg := msgVoteFailed
		if value == vote.Reset {
			msg = msgResetFailed
		}
		h.fail(w, r, err, msg)
		return
	}

	if value == vote.Reset {
		logger.FromContext(r.Context(), h.logger).Info("Votes reset")
		h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventVotesReset})
	} else {
		logger.FromContext(r.Context(), h.logger).Debug("Vote recorded", slog.String("option", value))
		h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventVoteCast, Option: value})
	}

	h.render(w, r, res)
}

func (h *VoteHandler) render(w http.ResponseWriter, r *http.Request, res vote.Results) {
	page := view.Page{
		Results:   res,
		CSRFField: csrf.TemplateField(r),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, page); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("Failed to render page", slog.Any("err", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail writes the status mapped from err. Client errors carry their own
// message; store failures get the operation specific storeMsg.
func (h *VoteHandler) fail(w http.ResponseWriter, r *http.Request, err error, storeMsg string) {
	status := statusFromError(err)
	log := logger.FromContext(r.Context(), h.logger)

	msg := storeMsg
	if status < http.StatusInternalServerError {
		msg = clientMessage(err)
		log.Warn("Rejected vote", slog.Int("status", status), slog.Any("err", err))
	} else {
		log.Error(msg, slog.Int("status", status), slog.Any("err", err))
	}

	http.Error(w, msg, status)
}
