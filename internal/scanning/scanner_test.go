package scanning

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("scan", func() {
	It("hands the model PNG data under a deadline", func() {
		var (
			got         []byte
			hasDeadline bool
		)
		ask := func(ctx context.Context, png []byte) (string, error) {
			got = png
			_, hasDeadline = ctx.Deadline()
			return `{"name": "Parking", "date": "2024-06-01", "amount": 12}`, nil
		}

		s, err := scan(context.Background(), time.Second, ask, []byte("png"), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]byte("png")))
		Expect(hasDeadline).To(BeTrue())
		Expect(s.Name).To(Equal("Parking"))
	})

	It("returns the model error", func() {
		boom := errors.New("quota exceeded")
		ask := func(ctx context.Context, png []byte) (string, error) {
			return "", boom
		}

		_, err := scan(context.Background(), time.Second, ask, []byte("png"), "image/png")
		Expect(err).To(MatchError(boom))
	})

	It("does not call the model when the receipt cannot be converted", func() {
		called := false
		ask := func(ctx context.Context, png []byte) (string, error) {
			called = true
			return "", nil
		}

		_, err := scan(context.Background(), time.Second, ask, []byte("garbage"), "image/jpeg")
		Expect(err).To(HaveOccurred())
		Expect(called).To(BeFalse())
	})

	It("wraps unparseable replies", func() {
		ask := func(ctx context.Context, png []byte) (string, error) {
			return "désolé", nil
		}

		_, err := scan(context.Background(), time.Second, ask, []byte("png"), "image/png")
		Expect(err).To(MatchError(ContainSubstring("parsing receipt data")))
	})
})
