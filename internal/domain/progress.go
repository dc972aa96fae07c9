package domain

// ProgressEvent is a backend-reported update for one transfer room
type ProgressEvent struct {
	TransferID string  `json:"transferId"`
	Percent    float64 `json:"percent"`
	Speed      float64 `json:"speed"`
	ETASeconds float64 `json:"etaSeconds"`
	IsBatch    bool    `json:"isBatch"`
}

// ProgressHandler receives progress events for a transfer
type ProgressHandler func(ProgressEvent)

// ProgressChannel is the persistent push subscription
type ProgressChannel interface {
	// Join announces interest in a transfer's room on the current connection
	Join(transferID string) error

	// Subscribe registers a handler for a transfer's events; call the returned func to deregister
	Subscribe(transferID string, handler ProgressHandler) (unsubscribe func())

	// OnConnect registers a hook run after every (re)connection
	OnConnect(hook func())
}
