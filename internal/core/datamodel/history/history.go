package history

import "time"

// Record is the persisted shape of one entry of the keyHistory collection.
type Record struct {
	ID         string    `json:"id"`
	KeyName    string    `json:"keyName"`
	KeyBarcode string    `json:"keyBarcode"`
	Action     string    `json:"action"`
	UserName   string    `json:"userName"`
	Timestamp  time.Time `json:"timestamp"`
}
