package server

import (
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RateLimiter", func() {
	var rl *RateLimiter

	BeforeEach(func() {
		rl = NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2, EntryTTL: time.Minute})
	})

	AfterEach(func() {
		rl.Stop()
	})

	It("allows a burst per client", func() {
		Expect(rl.Allow("ip:1")).To(BeTrue())
		Expect(rl.Allow("ip:1")).To(BeTrue())
		Expect(rl.Allow("ip:1")).To(BeFalse())
		Expect(rl.Allow("ip:2")).To(BeTrue())
	})

	It("drops clients not seen within the TTL", func() {
		rl.Allow("ip:1")
		Expect(rl.Len()).To(Equal(1))

		rl.cleanup(time.Now())
		Expect(rl.Len()).To(Equal(1))

		rl.cleanup(time.Now().Add(2 * time.Minute))
		Expect(rl.Len()).To(BeZero())
	})

	It("can be stopped twice", func() {
		rl.Stop()
		Expect(rl.Stop).NotTo(Panic())
	})
})

var _ = Describe("clientKey", func() {
	var r *http.Request

	BeforeEach(func() {
		r = httptest.NewRequest("POST", "/bills/new", nil)
		r.RemoteAddr = "10.0.0.7:5151"
	})

	When("basic auth is enabled", func() {
		var s *Server

		BeforeEach(func() {
			s = &Server{basicAuth: BasicAuth{Username: "a@a", Password: "pw"}}
		})

		It("keys on the authenticated user", func() {
			r.SetBasicAuth("a@a", "pw")
			Expect(s.clientKey(r)).To(Equal("user:a@a"))
		})

		It("falls back to the remote IP for wrong credentials", func() {
			r.SetBasicAuth("someone-else", "guess")
			Expect(s.clientKey(r)).To(Equal("ip:10.0.0.7"))
		})
	})

	When("basic auth is disabled", func() {
		var s *Server

		BeforeEach(func() {
			s = &Server{}
		})

		It("uses the remote IP", func() {
			Expect(s.clientKey(r)).To(Equal("ip:10.0.0.7"))
		})

		It("ignores usernames the client makes up", func() {
			for _, user := range []string{"u1", "u2", "u3"} {
				r.SetBasicAuth(user, "x")
				Expect(s.clientKey(r)).To(Equal("ip:10.0.0.7"))
			}
		})
	})
})
