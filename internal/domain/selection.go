package domain

import "sort"

// SelectionState tracks which collection members are selected and which format each should use.
// It is only meaningful against the Resource it was built for.
type SelectionState struct {
	selected map[string]struct{}
	chosen   map[string]string
}

// SelectionSnapshot is an immutable, serializable view of a SelectionState
type SelectionSnapshot struct {
	SelectedMemberIDs    []string          `json:"selectedMemberIds"`
	ChosenFormatByMember map[string]string `json:"chosenFormatByMember"`
}

// NewSelectionState creates an empty selection
func NewSelectionState() *SelectionState {
	return &SelectionState{
		selected: make(map[string]struct{}),
		chosen:   make(map[string]string),
	}
}

// Toggle flips membership of id and reports whether it is now selected
func (s *SelectionState) Toggle(id string) bool {
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

// IsSelected checks if a member is selected
func (s *SelectionState) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SetFormat records an explicit format choice for a member
func (s *SelectionState) SetFormat(memberID, formatID string) {
	s.chosen[memberID] = formatID
}

// ChosenFormat returns the explicit format choice for a member, if any
func (s *SelectionState) ChosenFormat(memberID string) (string, bool) {
	formatID, ok := s.chosen[memberID]
	return formatID, ok
}

// Count returns the number of selected members
func (s *SelectionState) Count() int {
	return len(s.selected)
}

// Reset clears every selection and format choice
func (s *SelectionState) Reset() {
	s.selected = make(map[string]struct{})
	s.chosen = make(map[string]string)
}

// Clone returns an independent copy
func (s *SelectionState) Clone() *SelectionState {
	c := NewSelectionState()
	for id := range s.selected {
		c.selected[id] = struct{}{}
	}
	for id, f := range s.chosen {
		c.chosen[id] = f
	}
	return c
}

// Snapshot returns a serializable copy with ids in sorted order
func (s *SelectionState) Snapshot() SelectionSnapshot {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	chosen := make(map[string]string, len(s.chosen))
	for id, f := range s.chosen {
		chosen[id] = f
	}
	return SelectionSnapshot{SelectedMemberIDs: ids, ChosenFormatByMember: chosen}
}

// ResolveFormat returns the member's explicit choice, else the default for the current filter
func (s *SelectionState) ResolveFormat(member *CollectionMember, filter string) (string, bool) {
	if formatID, ok := s.chosen[member.ID]; ok && formatID != "" {
		return formatID, true
	}
	if f, ok := DefaultFormat(member.Formats, filter); ok {
		return f.FormatID, true
	}
	return "", false
}
