package history

import (
	"time"

	historyDatamodel "github.com/frahmantamala/key-management/internal/core/datamodel/history"
	"github.com/google/uuid"
)

type Action string

const (
	ActionTaken    Action = "taken"
	ActionReturned Action = "returned"
)

func (a Action) Valid() bool {
	return a == ActionTaken || a == ActionReturned
}

// Record is one audit entry. It carries a snapshot of the key's name and
// barcode so it stays readable after the key is deleted.
type Record struct {
	ID         string    `json:"id"`
	KeyName    string    `json:"key_name"`
	KeyBarcode string    `json:"key_barcode"`
	Action     Action    `json:"action"`
	UserName   string    `json:"user_name"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecord(keyName, keyBarcode string, action Action, userName string, at time.Time) Record {
	return Record{
		ID:         uuid.NewString(),
		KeyName:    keyName,
		KeyBarcode: keyBarcode,
		Action:     action,
		UserName:   userName,
		Timestamp:  at,
	}
}

func ToDataModel(r *Record) *historyDatamodel.Record {
	return &historyDatamodel.Record{
		ID:         r.ID,
		KeyName:    r.KeyName,
		KeyBarcode: r.KeyBarcode,
		Action:     string(r.Action),
		UserName:   r.UserName,
		Timestamp:  r.Timestamp,
	}
}

func FromDataModel(r *historyDatamodel.Record) *Record {
	return &Record{
		ID:         r.ID,
		KeyName:    r.KeyName,
		KeyBarcode: r.KeyBarcode,
		Action:     Action(r.Action),
		UserName:   r.UserName,
		Timestamp:  r.Timestamp,
	}
}
