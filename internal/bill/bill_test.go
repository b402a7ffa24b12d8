package bill

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AcceptedReceipt", func() {
	DescribeTable("receipt file names",
		func(name string, accepted bool) {
			Expect(AcceptedReceipt(name)).To(Equal(accepted))
		},
		Entry("jpg", "facture.jpg", true),
		Entry("jpeg", "facture.jpeg", true),
		Entry("png", "facture.png", true),
		Entry("upper-case extension", "FACTURE.PNG", true),
		Entry("pdf", "facture.pdf", false),
		Entry("html", "evil.html", false),
		Entry("extension only in the middle", "facture.png.exe", false),
		Entry("no extension", "facture", false),
	)
})

var _ = Describe("Payload.Validate", func() {
	It("rejects a receipt that is not an image", func() {
		p := validPayload()
		p.FileName = "facture.pdf"
		Expect(p.Validate()).To(MatchError(ErrInvalidPayload))
	})

	It("accepts a valid payload", func() {
		Expect(validPayload().Validate()).To(Succeed())
	})
})
