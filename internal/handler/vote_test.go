package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/azure-vote/internal/handler"
	"github.com/angeloszaimis/azure-vote/internal/metrics"
	"github.com/angeloszaimis/azure-vote/internal/store"
	"github.com/angeloszaimis/azure-vote/internal/view"
	"github.com/angeloszaimis/azure-vote/internal/vote"
	"github.com/angeloszaimis/azure-vote/pkg/logger"
)

// failingVoter returns err from every call.
type failingVoter struct{ err error }

func (f failingVoter) Counts(context.Context) (vote.Results, error) {
	return vote.Results{}, f.err
}

func (f failingVoter) SubmitVote(context.Context, string) (vote.Results, error) {
	return vote.Results{}, f.err
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

var _ = Describe("VoteHandler", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		mr        *miniredis.Miniredis
		renderer  *view.Renderer
		collector *metrics.Collector
		h         *handler.VoteHandler
	)

	counter := func(key string) int {
		raw, err := mr.Get(key)
		Expect(err).NotTo(HaveOccurred())
		n, err := strconv.Atoi(raw)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	seed := func(cats, dogs int) {
		Expect(mr.Set("Cats", strconv.Itoa(cats))).To(Succeed())
		Expect(mr.Set("Dogs", strconv.Itoa(dogs))).To(Succeed())
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)

		mr = miniredis.RunT(GinkgoT())
		redisStore, err := store.New(ctx, store.Options{Addr: mr.Addr()})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(redisStore.Close)

		svc, err := vote.NewService(ctx, redisStore, vote.Options{
			Title: "Azure Voting App", Option1: "Cats", Option2: "Dogs",
		})
		Expect(err).NotTo(HaveOccurred())

		renderer, err = view.New()
		Expect(err).NotTo(HaveOccurred())

		collector = metrics.NewCollector(100, logger.Discard())
		collector.Start(ctx)

		h = handler.NewVoteHandler(logger.Discard(), svc, renderer, collector)
	})

	Describe("Index", func() {
		It("should render zero counts after startup", func() {
			rec := httptest.NewRecorder()
			h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/html"))
			Expect(rec.Body.String()).To(ContainSubstring("Cats - 0 | Dogs - 0"))
		})

		It("should render the stored counts", func() {
			seed(5, 3)

			rec := httptest.NewRecorder()
			h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Cats - 5 | Dogs - 3"))
			Expect(rec.Body.String()).To(ContainSubstring("Azure Voting App"))
		})

		It("should answer 500 when the store read fails", func() {
			failing := handler.NewVoteHandler(logger.Discard(),
				failingVoter{err: fmt.Errorf("%w: boom", vote.ErrStoreUnavailable)}, renderer, nil)

			rec := httptest.NewRecorder()
			failing.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring("Failed to retrieve vote counts"))
		})
	})

	Describe("Vote", func() {
		It("should increment the chosen option", func() {
			seed(5, 3)

			rec := httptest.NewRecorder()
			h.Vote(rec, postForm(url.Values{"vote": {"Cats"}}))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Cats - 6 | Dogs - 3"))
			Expect(counter("Cats")).To(Equal(6))
			Expect(counter("Dogs")).To(Equal(3))
		})

		It("should reset both counters", func() {
			seed(6, 3)

			rec := httptest.NewRecorder()
			h.Vote(rec, postForm(url.Values{"vote": {"reset"}}))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Cats - 0 | Dogs - 0"))
		})

		It("should reject an unknown value with 400", func() {
			seed(5, 3)

			rec := httptest.NewRecorder()
			h.Vote(rec, postForm(url.Values{"vote": {"unknown"}}))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Invalid vote value"))
			Expect(counter("Cats")).To(Equal(5))
			Expect(counter("Dogs")).To(Equal(3))
		})

		It("should reject an empty value with 400", func() {
			rec := httptest.NewRecorder()
			h.Vote(rec, postForm(url.Values{"vote": {""}}))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Invalid vote value"))
		})

		It("should reject a missing field with 400", func() {
			seed(5, 3)

			rec := httptest.NewRecorder()
			h.Vote(rec, postForm(url.Values{"other": {"Cats"}}))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Missing vote parameter"))
			Expect(counter("Cats")).To(Equal(5))
			Expect(counter("Dogs")).To(Equal(3))
		})

		It("should ignore a vote passed in the query string", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/?vote=Cats", nil)
			h.Vote(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(counter("Cats")).To(Equal(0))
		})

		It("should answer 500 with the vote message when the store fails", func() {
			failing := handler.NewVoteHandler(logger.Discard(),
				failingVoter{err: fmt.Errorf("%w: boom", vote.ErrStoreUnavailable)}, renderer, nil)

			rec := httptest.NewRecorder()
			failing.Vote(rec, postForm(url.Values{"vote": {"Cats"}}))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring("Failed to process vote"))
		})

		It("should answer 500 with the reset message when the reset fails", func() {
			failing := handler.NewVoteHandler(logger.Discard(),
				failingVoter{err: fmt.Errorf("%w: boom", vote.ErrStoreUnavailable)}, renderer, nil)

			rec := httptest.NewRecorder()
			failing.Vote(rec, postForm(url.Values{"vote": {"reset"}}))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring("Failed to reset vote counts"))
		})

		It("should answer 500 for an unexpected error", func() {
			failing := handler.NewVoteHandler(logger.Discard(),
				failingVoter{err: errors.New("surprise")}, renderer, nil)

			rec := httptest.NewRecorder()
			failing.Vote(rec, postForm(url.Values{"vote": {"Dogs"}}))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})

		It("should emit vote and reset metrics", func() {
			h.Vote(httptest.NewRecorder(), postForm(url.Values{"vote": {"Dogs"}}))
			h.Vote(httptest.NewRecorder(), postForm(url.Values{"vote": {"Dogs"}}))
			h.Vote(httptest.NewRecorder(), postForm(url.Values{"vote": {"reset"}}))

			Eventually(func() int64 { return collector.Snapshot().Resets }).Should(Equal(int64(1)))
			Expect(collector.Snapshot().Votes).To(HaveKeyWithValue("Dogs", int64(2)))
		})

		It("should not count rejected votes in metrics", func() {
			h.Vote(httptest.NewRecorder(), postForm(url.Values{"vote": {"Birds"}}))
			h.Vote(httptest.NewRecorder(), postForm(url.Values{"vote": {"reset"}}))

			Eventually(func() int64 { return collector.Snapshot().Resets }).Should(Equal(int64(1)))
			Expect(collector.Snapshot().Votes).To(BeEmpty())
		})
	})
})
