package domain

import (
	"context"
	"io"
)

// Backend is the remote media-fetch service
type Backend interface {
	// FetchMetadata retrieves the descriptor of a single item or collection
	FetchMetadata(ctx context.Context, locator string) (*Resource, error)

	// RequestHandle pre-registers a transfer so its progress room can be joined before bytes flow
	RequestHandle(ctx context.Context, req TransferRequest) (*TransferHandle, error)

	// OpenTransfer starts the byte stream of a single item or member
	OpenTransfer(ctx context.Context, req TransferRequest) (*TransferStream, error)

	// OpenBatch starts the byte stream of an archive over several members
	OpenBatch(ctx context.Context, req BatchRequest) (*TransferStream, error)

	// FetchThumbnail retrieves a third-party thumbnail through the backend origin
	FetchThumbnail(ctx context.Context, thumbnail string) ([]byte, string, error)
}

// TransferRequest describes a single item or member transfer
type TransferRequest struct {
	Locator    string
	FormatID   string // empty lets the backend choose
	TransferID string
	Member     bool
}

// TransferHandle is the backend's pre-registration of a transfer
type TransferHandle struct {
	TransferID        string `json:"transferId"`
	SuggestedFilename string `json:"filename"`
}

// BatchRequest describes an archive transfer
type BatchRequest struct {
	Members    []MemberPayload
	TransferID string
}

// TransferStream is an open response body
type TransferStream struct {
	Body          io.ReadCloser
	ContentLength int64 // -1 when unknown
	FilenameHint  string
}

// Saver is the host save mechanism
type Saver interface {
	// Begin opens a destination for filename; nothing is visible until Commit
	Begin(filename string) (SaveSink, error)
}

// SaveSink receives the bytes of one transfer
type SaveSink interface {
	io.Writer
	// Commit persists the bytes and returns where they were saved
	Commit() (string, error)
	// Discard drops everything written so far
	Discard() error
}
