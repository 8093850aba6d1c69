package server

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Authenticator", func() {
	var (
		secret = []byte("test-secret")
		auth   *Authenticator
		req    *http.Request
	)

	BeforeEach(func() {
		auth = NewAuthenticator(secret)
		req = httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	})

	It("reads the owner from a bearer token", func() {
		token, err := SignToken(secret, "user-a", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)

		owner, err := auth.Owner(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(owner).To(Equal("user-a"))
	})

	It("prefers the auth cookie", func() {
		cookieToken, err := SignToken(secret, "user-a", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		headerToken, err := SignToken(secret, "user-b", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: cookieToken})
		req.Header.Set("Authorization", "Bearer "+headerToken)

		owner, err := auth.Owner(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(owner).To(Equal("user-a"))
	})

	It("rejects a missing token", func() {
		_, err := auth.Owner(req)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a token signed with another secret", func() {
		token, err := SignToken([]byte("other"), "user-a", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)

		_, err = auth.Owner(req)
		Expect(err).To(HaveOccurred())
	})

	It("rejects an expired token", func() {
		token, err := SignToken(secret, "user-a", -time.Minute)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)

		_, err = auth.Owner(req)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a token without a userId claim", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-a"}).SignedString(secret)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)

		_, err = auth.Owner(req)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a userId containing a slash", func() {
		token, err := SignToken(secret, "user-a/nested", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)

		_, err = auth.Owner(req)
		Expect(err).To(HaveOccurred())
	})

	It("rejects tokens using another algorithm", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{userIDClaim: "user-a"}).SignedString(secret)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)

		_, err = auth.Owner(req)
		Expect(err).To(HaveOccurred())
	})
})
