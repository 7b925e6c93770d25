package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/history"
	"github.com/frahmantamala/key-management/internal/ledger"
	"github.com/frahmantamala/key-management/internal/storage/filestore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var _ = Describe("seed", func() {
	var (
		ctx context.Context
		l   *ledger.Ledger
	)

	BeforeEach(func() {
		ctx = context.Background()
		store, err := filestore.New(afero.NewMemMapFs(), "/data")
		Expect(err).NotTo(HaveOccurred())
		l, err = ledger.Open(ctx, store, ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates the default users and keys", func() {
		Expect(seed(ctx, l)).To(Succeed())

		stats := l.Stats()
		Expect(stats.TotalUsers).To(Equal(3))
		Expect(stats.ActiveUsers).To(Equal(2))
		Expect(stats.TotalKeys).To(Equal(3))
		Expect(stats.AvailableKeys).To(Equal(2))
		Expect(stats.HeldKeys).To(Equal(1))

		warehouse, err := l.FindKey("987654321")
		Expect(err).NotTo(HaveOccurred())
		Expect(warehouse.Available).To(BeFalse())
		Expect(warehouse.TakenBy).To(Equal("Иван Петров"))

		admin, err := l.Authenticate("admin", "admin")
		Expect(err).NotTo(HaveOccurred())
		Expect(admin.IsAdmin()).To(BeTrue())

		_, err = l.Authenticate("asidorova", "pass456")
		Expect(err).To(MatchError(internal.ErrUserInactive))
	})

	It("skips what already exists", func() {
		Expect(seed(ctx, l)).To(Succeed())
		Expect(seed(ctx, l)).To(Succeed())

		Expect(l.ListUsers()).To(HaveLen(3))
		Expect(l.ListKeys()).To(HaveLen(3))
		Expect(l.Stats().HistorySize).To(Equal(1))
	})

	It("prints the history as a table", func() {
		Expect(seed(ctx, l)).To(Succeed())
		_, err := l.IssueKey(ctx, "123456789", ledger.ByCardCode("EMP001"))
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		c := &cobra.Command{}
		c.SetOut(&out)
		Expect(printHistory(c, l.QueryHistory(history.Filter{}))).To(Succeed())

		Expect(out.String()).To(ContainSubstring("ACTION"))
		Expect(out.String()).To(ContainSubstring("Офис 101"))
		Expect(out.String()).To(ContainSubstring("Иван Петров"))
	})
})
