package view_test

import (
	"bytes"
	"html/template"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/azure-vote/internal/view"
	"github.com/angeloszaimis/azure-vote/internal/vote"
)

var _ = Describe("Renderer", func() {
	var renderer *view.Renderer

	BeforeEach(func() {
		var err error
		renderer, err = view.New()
		Expect(err).NotTo(HaveOccurred())
	})

	page := func(res vote.Results) view.Page {
		return view.Page{
			Results:   res,
			CSRFField: template.HTML(`<input type="hidden" name="gorilla.csrf.Token" value="tok">`),
		}
	}

	It("should render title, labels and counts", func() {
		var buf bytes.Buffer
		err := renderer.Render(&buf, page(vote.Results{
			Title: "Azure Voting App", Option1: "Cats", Option2: "Dogs", Count1: 6, Count2: 3,
		}))
		Expect(err).NotTo(HaveOccurred())

		html := buf.String()
		Expect(html).To(ContainSubstring("<title>Azure Voting App</title>"))
		Expect(html).To(ContainSubstring(`value="Cats"`))
		Expect(html).To(ContainSubstring(`value="Dogs"`))
		Expect(html).To(ContainSubstring(`value="reset"`))
		Expect(html).To(ContainSubstring("Cats - 6 | Dogs - 3"))
	})

	It("should format large counts with separators", func() {
		var buf bytes.Buffer
		err := renderer.Render(&buf, page(vote.Results{
			Title: "t", Option1: "Cats", Option2: "Dogs", Count1: 1234567, Count2: 0,
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Cats - 1,234,567 | Dogs - 0"))
	})

	It("should include the CSRF field unescaped", func() {
		var buf bytes.Buffer
		Expect(renderer.Render(&buf, page(vote.Results{Title: "t", Option1: "a", Option2: "b"}))).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`name="gorilla.csrf.Token" value="tok"`))
	})

	It("should escape labels", func() {
		var buf bytes.Buffer
		Expect(renderer.Render(&buf, page(vote.Results{
			Title: "<script>alert(1)</script>", Option1: "a", Option2: "b",
		}))).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("<script>alert(1)</script>"))
	})
})

var _ = Describe("Static", func() {
	It("should serve the stylesheet", func() {
		rec := httptest.NewRecorder()
		view.Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/default.css", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("text/css"))
		Expect(rec.Body.String()).To(ContainSubstring("div#results"))
	})
})
