package key_test

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/key"
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

var _ = Describe("Registry", func() {
	var (
		reg    *key.Registry
		office key.Key
	)

	BeforeEach(func() {
		var err error
		reg, office, err = key.NewRegistry(nil).Insert(key.NewKey(key.CreateKeyDTO{
			Name: "Офис 101", Barcode: "123456789", Location: "1 этаж",
		}))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Insert", func() {
		It("should assign an id and start available", func() {
			Expect(office.ID).NotTo(BeEmpty())
			Expect(office.Available).To(BeTrue())
			Expect(office.TakenBy).To(BeEmpty())
			Expect(office.TakenAt).To(BeNil())
		})

		It("should reject a duplicate barcode and leave the registry unchanged", func() {
			next, _, err := reg.Insert(key.Key{Name: "X", Barcode: "123456789", Location: "Y"})
			Expect(errors.Is(err, internal.ErrDuplicateBarcode)).To(BeTrue())
			Expect(next).To(BeNil())
			Expect(reg.Len()).To(Equal(1))
		})

		It("should ignore holder fields on the candidate", func() {
			now := time.Now()
			_, k, err := reg.Insert(key.Key{Name: "Склад А", Barcode: "987654321", TakenBy: "someone", TakenAt: &now})
			Expect(err).NotTo(HaveOccurred())
			Expect(k.Available).To(BeTrue())
			Expect(k.TakenAt).To(BeNil())
		})
	})

	Describe("transitions", func() {
		It("should mark taken then returned without touching the previous snapshot", func() {
			at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
			taken, k, err := reg.MarkTaken(office.ID, "Иван Петров", at)
			Expect(err).NotTo(HaveOccurred())
			Expect(k.Available).To(BeFalse())
			Expect(k.TakenBy).To(Equal("Иван Петров"))
			Expect(*k.TakenAt).To(Equal(at))

			before, _ := reg.FindByID(office.ID)
			Expect(before.Available).To(BeTrue())

			returned, k, err := taken.MarkReturned(office.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(k.Available).To(BeTrue())
			Expect(k.TakenBy).To(BeEmpty())
			Expect(k.TakenAt).To(BeNil())
			Expect(returned.CountAvailable()).To(Equal(1))
		})

		It("should refuse to take a held key", func() {
			taken, _, err := reg.MarkTaken(office.ID, "A", time.Now())
			Expect(err).NotTo(HaveOccurred())
			_, _, err = taken.MarkTaken(office.ID, "B", time.Now())
			Expect(errors.Is(err, internal.ErrKeyAlreadyIssued)).To(BeTrue())
			k, _ := taken.FindByBarcode("123456789")
			Expect(k.TakenBy).To(Equal("A"))
		})

		It("should refuse to return an available key", func() {
			_, _, err := reg.MarkReturned(office.ID)
			Expect(errors.Is(err, internal.ErrKeyAlreadyAvailable)).To(BeTrue())
		})

		It("should report unknown ids", func() {
			_, _, err := reg.MarkTaken("missing", "A", time.Now())
			Expect(errors.Is(err, internal.ErrKeyNotFound)).To(BeTrue())
		})
	})

	Describe("Remove", func() {
		It("should delete a held key without returning it", func() {
			taken, _, err := reg.MarkTaken(office.ID, "A", time.Now())
			Expect(err).NotTo(HaveOccurred())

			next, removed, ok := taken.Remove(office.ID)
			Expect(ok).To(BeTrue())
			Expect(removed.Available).To(BeFalse())
			Expect(next.Len()).To(BeZero())
		})

		It("should ignore unknown ids", func() {
			next, _, ok := reg.Remove("missing")
			Expect(ok).To(BeFalse())
			Expect(next.Len()).To(Equal(1))
		})
	})

	Describe("persistence", func() {
		It("should omit holder fields for available keys", func() {
			store := &memoryStore{}
			Expect(reg.Save(context.Background(), store)).To(Succeed())
			raw := string(store.data[storage.CollectionKeys])
			Expect(raw).To(ContainSubstring(`"barcode":"123456789"`))
			Expect(raw).NotTo(ContainSubstring("takenBy"))
		})

		It("should drop stray holder fields from available records on load", func() {
			store := &memoryStore{data: map[string][]byte{
				storage.CollectionKeys: []byte(`[{"id":"k1","name":"A","barcode":"1","location":"L","available":true,"takenBy":"ghost"}]`),
			}}
			loaded, err := key.LoadRegistry(context.Background(), store)
			Expect(err).NotTo(HaveOccurred())
			k, ok := loaded.FindByID("k1")
			Expect(ok).To(BeTrue())
			Expect(k.TakenBy).To(BeEmpty())
		})
	})
})

var _ = Describe("CreateKeyDTO", func() {
	It("should require name, barcode and location", func() {
		err := key.CreateKeyDTO{Name: "A", Barcode: "  "}.Validate()
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Details.(internal.ValidationErrors).Errors).To(HaveLen(2))
	})

	It("should trim the barcode on construction", func() {
		k := key.NewKey(key.CreateKeyDTO{Name: "A", Barcode: " 42 \n", Location: "L"})
		Expect(k.Barcode).To(Equal("42"))
	})
})
