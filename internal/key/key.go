package key

import (
	"strings"
	"time"

	keyDatamodel "github.com/frahmantamala/key-management/internal/core/datamodel/key"
)

// Key is a trackable physical key. TakenBy and TakenAt are set exactly
// when Available is false.
type Key struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Barcode   string     `json:"barcode"`
	Location  string     `json:"location"`
	Available bool       `json:"available"`
	TakenBy   string     `json:"taken_by,omitempty"`
	TakenAt   *time.Time `json:"taken_at,omitempty"`
}

func NewKey(dto CreateKeyDTO) Key {
	return Key{
		Name:      strings.TrimSpace(dto.Name),
		Barcode:   NormalizeBarcode(dto.Barcode),
		Location:  strings.TrimSpace(dto.Location),
		Available: true,
	}
}

// NormalizeBarcode strips the whitespace scanners and manual entry add
// around the decoded text.
func NormalizeBarcode(code string) string {
	return strings.TrimSpace(code)
}

func (k *Key) IsHeld() bool {
	return !k.Available
}

func ToDataModel(k *Key) *keyDatamodel.Key {
	return &keyDatamodel.Key{
		ID:        k.ID,
		Name:      k.Name,
		Barcode:   k.Barcode,
		Location:  k.Location,
		Available: k.Available,
		TakenBy:   k.TakenBy,
		TakenAt:   k.TakenAt,
	}
}

// FromDataModel repairs records whose holder fields disagree with the
// availability flag: an available key never keeps a holder.
func FromDataModel(k *keyDatamodel.Key) *Key {
	out := &Key{
		ID:        k.ID,
		Name:      k.Name,
		Barcode:   k.Barcode,
		Location:  k.Location,
		Available: k.Available,
	}
	if !k.Available {
		out.TakenBy = k.TakenBy
		out.TakenAt = k.TakenAt
	}
	return out
}
