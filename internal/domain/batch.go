package domain

// MemberPayload is one entry of an archive request
type MemberPayload struct {
	Locator  string `json:"locator"`
	FormatID string `json:"formatId"`
	Title    string `json:"title"`
}

// BatchTransfer aggregates a multi-member selection into one archive-producing transfer
type BatchTransfer struct {
	ID            string          `json:"id,omitempty"`
	MemberPayload []MemberPayload `json:"memberPayload"`
	Session       TransferSession `json:"session"`
}

// NewBatchTransfer creates an idle batch for a collection titled title
func NewBatchTransfer(locator, title string) *BatchTransfer {
	session := NewTransferSession("batch", locator, "", title)
	session.IsBatch = true
	return &BatchTransfer{Session: *session}
}

// BuildPayload lists, in collection order, every selected member that resolves to a format id.
// Members without a resolvable format are skipped.
func BuildPayload(selection *SelectionState, resource *Resource, filter string) []MemberPayload {
	if resource == nil || !resource.IsCollection() {
		return nil
	}

	payload := make([]MemberPayload, 0, selection.Count())
	for i := range resource.Members {
		member := &resource.Members[i]
		if !selection.IsSelected(member.ID) {
			continue
		}
		formatID, ok := selection.ResolveFormat(member, filter)
		if !ok {
			continue
		}
		payload = append(payload, MemberPayload{
			Locator:  member.Locator,
			FormatID: formatID,
			Title:    member.Title,
		})
	}
	return payload
}
