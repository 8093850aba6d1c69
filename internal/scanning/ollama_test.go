package scanning

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
		text    string
		err     error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		scanner, newErr = NewOllama(server.URL(), "llava", 5*time.Second)
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		text, err = scanner.ScanReceipt(context.Background(), []byte("png bytes"), "image/png")
	})

	When("the API answers", func() {
		var received ollamaChatRequest

		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"message": map[string]any{"role": "assistant", "content": "Here: {\"amount\": 1}"},
					"done":    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the raw reply", func() {
			Expect(text).To(Equal(`Here: {"amount": 1}`))
		})

		It("attaches the image to the user message", func() {
			Expect(received.Stream).To(BeFalse())
			Expect(received.Messages).To(HaveLen(2))
			Expect(received.Messages[1].Images).To(HaveLen(1))
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})
})
