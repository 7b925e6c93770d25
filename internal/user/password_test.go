package user_test

import (
	"regexp"

	"github.com/frahmantamala/key-management/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Passwords", func() {
	It("should compare plaintext passwords exactly", func() {
		m := user.PlainPasswords{}
		Expect(m.Matches("user123", "user123")).To(BeTrue())
		Expect(m.Matches("user123", "User123")).To(BeFalse())
		stored, err := m.Hash("user123")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(Equal("user123"))
	})

	It("should hash with bcrypt and still accept legacy plaintext", func() {
		m := user.BcryptPasswords{Cost: 4}
		hash, err := m.Hash("secret")
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).NotTo(Equal("secret"))
		Expect(m.Matches(hash, "secret")).To(BeTrue())
		Expect(m.Matches(hash, "wrong")).To(BeFalse())
		Expect(m.Matches("admin", "admin")).To(BeTrue())
	})

	It("should generate 8 character lowercase alphanumeric passwords", func() {
		pattern := regexp.MustCompile(`^[a-z0-9]{8}$`)
		for i := 0; i < 20; i++ {
			p, err := user.GeneratePassword()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(MatchRegexp(pattern.String()))
		}
	})
})
