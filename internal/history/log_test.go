package history_test

import (
	"context"
	"slices"
	"time"

	"github.com/frahmantamala/key-management/internal/history"
	"github.com/frahmantamala/key-management/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type memoryStore struct {
	data map[string][]byte
}

func (m *memoryStore) Load(_ context.Context, name string) ([]byte, error) {
	return m.data[name], nil
}

func (m *memoryStore) Save(_ context.Context, name string, data []byte) error {
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[name] = data
	return nil
}

func ids(seq []history.Record) []string {
	out := make([]string, 0, len(seq))
	for _, r := range seq {
		out = append(out, r.ID)
	}
	return out
}

var _ = Describe("Log", func() {
	var (
		log  *history.Log
		base time.Time
	)

	BeforeEach(func() {
		base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		log = history.NewLog(nil).
			Append(history.Record{ID: "r1", KeyName: "Офис 101", KeyBarcode: "123456789", Action: history.ActionTaken, UserName: "Иван Петров", Timestamp: base}).
			Append(history.Record{ID: "r2", KeyName: "Склад А", KeyBarcode: "987654321", Action: history.ActionTaken, UserName: "Администратор", Timestamp: base.Add(time.Minute)}).
			Append(history.Record{ID: "r3", KeyName: "Офис 101", KeyBarcode: "123456789", Action: history.ActionReturned, UserName: "Иван Петров", Timestamp: base.Add(2 * time.Minute)})
	})

	It("should yield newest first", func() {
		Expect(ids(slices.Collect(log.Query(history.Filter{})))).To(Equal([]string{"r3", "r2", "r1"}))
	})

	It("should sort at read time even when inserted out of order", func() {
		l := log.Append(history.Record{ID: "old", Timestamp: base.Add(-time.Hour)})
		got := ids(slices.Collect(l.Query(history.Filter{})))
		Expect(got[len(got)-1]).To(Equal("old"))
	})

	It("should order equal timestamps newest insertion first", func() {
		l := history.NewLog(nil).
			Append(history.Record{ID: "a", Timestamp: base}).
			Append(history.Record{ID: "b", Timestamp: base})
		Expect(ids(slices.Collect(l.Query(history.Filter{})))).To(Equal([]string{"b", "a"}))
	})

	It("should be restartable", func() {
		seq := log.Query(history.Filter{Text: "офис"})
		first := slices.Collect(seq)
		second := slices.Collect(seq)
		Expect(first).To(HaveLen(2))
		Expect(second).To(Equal(first))
	})

	It("should not see records appended to a later snapshot", func() {
		seq := log.Query(history.Filter{})
		_ = log.Append(history.Record{ID: "r4", Timestamp: base.Add(time.Hour)})
		Expect(slices.Collect(seq)).To(HaveLen(3))
	})

	It("should stop when the consumer breaks", func() {
		count := 0
		for range log.Query(history.Filter{}) {
			count++
			break
		}
		Expect(count).To(Equal(1))
	})

	DescribeTable("filtering",
		func(f history.Filter, expected []string) {
			Expect(ids(slices.Collect(log.Query(f)))).To(Equal(expected))
		},
		Entry("key name, any case", history.Filter{Text: "СКЛАД"}, []string{"r2"}),
		Entry("holder name, any case", history.Filter{Text: "иван"}, []string{"r3", "r1"}),
		Entry("barcode substring", history.Filter{Text: "5432"}, []string{"r2"}),
		Entry("exact holder", history.Filter{Holder: "Иван Петров"}, []string{"r3", "r1"}),
		Entry("exact barcode", history.Filter{Barcode: "123456789"}, []string{"r3", "r1"}),
		Entry("action", history.Filter{Action: history.ActionTaken}, []string{"r2", "r1"}),
		Entry("limit", history.Filter{Limit: 1}, []string{"r3"}),
		Entry("no match", history.Filter{Text: "nothing"}, []string{}),
		Entry("text is not trimmed", history.Filter{Text: " иван"}, []string{}),
		Entry("inner space matches", history.Filter{Text: " петров"}, []string{"r3", "r1"}),
	)

	It("should round-trip through the keyHistory collection", func() {
		store := &memoryStore{}
		Expect(log.Save(context.Background(), store)).To(Succeed())
		Expect(string(store.data[storage.CollectionHistory])).To(ContainSubstring(`"keyBarcode":"987654321"`))

		loaded, err := history.LoadLog(context.Background(), store)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Len()).To(Equal(3))
		Expect(ids(slices.Collect(loaded.Query(history.Filter{})))).To(Equal([]string{"r3", "r2", "r1"}))
	})
})
