package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSelectionEmpty guards a batch start with nothing selected
	ErrSelectionEmpty = errors.New("no members selected")

	// ErrStaleFetch marks a metadata response superseded by a newer fetch
	ErrStaleFetch = errors.New("metadata response superseded by a newer fetch")

	ErrTransferInProgress = errors.New("transfer already in progress")
	ErrNoResource         = errors.New("no resource loaded")
	ErrNotCollection      = errors.New("resource is not a collection")
	ErrNotSingle          = errors.New("resource is not a single item")
	ErrUnknownMember      = errors.New("unknown collection member")
	ErrUnknownFormat      = errors.New("unknown format")
	ErrNoFormat           = errors.New("no format selected")
	ErrInvalidFilter      = errors.New("invalid format filter")

	// ErrFormatChoiceDisabled rejects a format choice on a restricted platform
	ErrFormatChoiceDisabled = errors.New("format choice is disabled for this platform")
)

// StatusError is a non-success response from the backend
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded with status %d", e.Code)
	}
	return fmt.Sprintf("backend responded with status %d: %s", e.Code, e.Body)
}

// FetchError is a failed or unparseable metadata request
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch metadata for %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TransferError is a failed single or member transfer
type TransferError struct {
	Key        string
	TransferID string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s (%s): %v", e.Key, e.TransferID, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// BatchError is a failed archive transfer
type BatchError struct {
	TransferID string
	Err        error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch transfer %s: %v", e.TransferID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// UserMessage converts an operation failure into the notice shown to the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		fetchErr    *FetchError
		transferErr *TransferError
		batchErr    *BatchError
	)
	switch {
	case errors.Is(err, ErrSelectionEmpty):
		return "Please select at least one video to download."
	case errors.Is(err, ErrTransferInProgress):
		return "A download is already in progress."
	case errors.As(err, &batchErr):
		return "Failed to download ZIP."
	case errors.As(err, &transferErr):
		return "Download failed."
	case errors.As(err, &fetchErr):
		return "Could not fetch video info. Check the link and try again."
	default:
		return err.Error()
	}
}
