package key

import "time"

// Key is the persisted shape of one entry of the keys collection.
// TakenBy and TakenAt are omitted while the key is available.
type Key struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Barcode   string     `json:"barcode"`
	Location  string     `json:"location"`
	Available bool       `json:"available"`
	TakenBy   string     `json:"takenBy,omitempty"`
	TakenAt   *time.Time `json:"takenAt,omitempty"`
}
