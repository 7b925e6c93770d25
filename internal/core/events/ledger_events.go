package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeKeyIssued   = "key.issued"
	EventTypeKeyReturned = "key.returned"
	EventTypeKeyAdded    = "key.added"
	EventTypeKeyDeleted  = "key.deleted"
)

// KeyMovedEvent is published after an issue or return has been committed.
type KeyMovedEvent struct {
	BaseEvent
	KeyID      string `json:"key_id"`
	KeyName    string `json:"key_name"`
	KeyBarcode string `json:"key_barcode"`
	Holder     string `json:"holder"`
	HistoryID  string `json:"history_id"`
}

func newKeyMovedEvent(eventType, keyID, keyName, barcode, holder, historyID string, at time.Time) *KeyMovedEvent {
	return &KeyMovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: at,
			Data: map[string]interface{}{
				"key_id":      keyID,
				"key_name":    keyName,
				"key_barcode": barcode,
				"holder":      holder,
				"history_id":  historyID,
			},
		},
		KeyID:      keyID,
		KeyName:    keyName,
		KeyBarcode: barcode,
		Holder:     holder,
		HistoryID:  historyID,
	}
}

func NewKeyIssuedEvent(keyID, keyName, barcode, holder, historyID string, at time.Time) *KeyMovedEvent {
	return newKeyMovedEvent(EventTypeKeyIssued, keyID, keyName, barcode, holder, historyID, at)
}

func NewKeyReturnedEvent(keyID, keyName, barcode, holder, historyID string, at time.Time) *KeyMovedEvent {
	return newKeyMovedEvent(EventTypeKeyReturned, keyID, keyName, barcode, holder, historyID, at)
}

// KeyRegistryEvent is published when a key is added or deleted. Holder is
// set when a held key was deleted.
type KeyRegistryEvent struct {
	BaseEvent
	KeyID      string `json:"key_id"`
	KeyBarcode string `json:"key_barcode"`
	Holder     string `json:"holder,omitempty"`
}

func newKeyRegistryEvent(eventType, keyID, barcode, holder string) *KeyRegistryEvent {
	data := map[string]interface{}{
		"key_id":      keyID,
		"key_barcode": barcode,
	}
	if holder != "" {
		data["holder"] = holder
	}
	return &KeyRegistryEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
		KeyID:      keyID,
		KeyBarcode: barcode,
		Holder:     holder,
	}
}

func NewKeyAddedEvent(keyID, barcode string) *KeyRegistryEvent {
	return newKeyRegistryEvent(EventTypeKeyAdded, keyID, barcode, "")
}

func NewKeyDeletedEvent(keyID, barcode, holder string) *KeyRegistryEvent {
	return newKeyRegistryEvent(EventTypeKeyDeleted, keyID, barcode, holder)
}
