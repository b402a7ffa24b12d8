package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

func sampleJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

var _ = Describe("toPNG", func() {
	It("passes PNG data through untouched", func() {
		data := []byte("already png")
		out, err := toPNG(data, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("converts JPEG to PNG", func() {
		out, err := toPNG(sampleJPEG(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		Expect(out[:8]).To(Equal(pngSignature))
	})

	It("rejects data that is not an image", func() {
		_, err := toPNG([]byte("not an image"), "image/jpeg")
		Expect(err).To(MatchError(ContainSubstring("decoding image")))
	})
})

var _ = Describe("isHEIC", func() {
	It("detects the ftyp brand", func() {
		Expect(isHEIC([]byte("\x00\x00\x00\x18ftypheic\x00\x00"), "")).To(BeTrue())
	})

	It("trusts the MIME type", func() {
		Expect(isHEIC(nil, "image/heif")).To(BeTrue())
	})

	It("ignores other files", func() {
		Expect(isHEIC(sampleJPEG(), "image/jpeg")).To(BeFalse())
	})
})

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		scanner, err = NewOllama(server.URL()+"/", "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the model replies with a suggestion", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, err := io.ReadAll(r.Body)
					Expect(err).NotTo(HaveOccurred())
					var req ollamaChatRequest
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Model).To(Equal("llava"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: `{"name": "Café de la Gare", "date": "2024-02-10", "amount": 18.4, "type": "Restaurants et bars"}`,
					},
					Done: true,
				}),
			))
		})

		It("returns the parsed suggestion", func() {
			s, err := scanner.ScanReceipt(context.Background(), sampleJPEG(), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Name).To(Equal("Café de la Gare"))
			Expect(s.Date).To(Equal("2024-02-10"))
			Expect(s.Amount).To(Equal(18.4))
			Expect(s.Type).To(Equal("Restaurants et bars"))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error with the body", func() {
			_, err := scanner.ScanReceipt(context.Background(), []byte("png"), "image/png")
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})
})
