package domain

import (
	"fmt"
	"sort"
)

// Batch is a normalized import: every group becomes one debt whose sequence
// is supplied by the source.
type Batch struct {
	OwnerCode  string       `json:"owner_code"`
	Date       string       `json:"date"`
	SourceType SourceType   `json:"source_type"`
	OwnerID    string       `json:"owner_id,omitempty"`
	Groups     []BatchGroup `json:"groups"`
}

type BatchGroup struct {
	Sequence int         `json:"sequence"`
	Lines    []LineInput `json:"lines"`
}

// Normalize validates the batch header and group sequences and returns a
// copy with the owner code normalized and groups ordered by sequence.
func (b Batch) Normalize() (Batch, error) {
	code, err := NormalizeOwnerCode(b.OwnerCode)
	if err != nil {
		return Batch{}, err
	}
	if err := ValidateDate(b.Date); err != nil {
		return Batch{}, err
	}
	if err := b.SourceType.Validate(); err != nil {
		return Batch{}, err
	}
	if !b.SourceType.IsBatch() {
		return Batch{}, fmt.Errorf("%w: source type %q is reserved for manual entries", ErrInvalidArgument, string(b.SourceType))
	}
	if len(b.Groups) == 0 {
		return Batch{}, fmt.Errorf("%w: batch %s has no groups", ErrInvalidArgument, BatchKey(code, b.Date, b.SourceType))
	}

	seen := make(map[int]bool, len(b.Groups))
	groups := make([]BatchGroup, len(b.Groups))
	for i, g := range b.Groups {
		if !ValidSequence(g.Sequence) {
			return Batch{}, fmt.Errorf("%w: sequence %d outside %02d..%02d", ErrInvalidArgument, g.Sequence, MinSequence, MaxSequence)
		}
		if seen[g.Sequence] {
			return Batch{}, fmt.Errorf("%w: sequence %02d appears twice in batch", ErrInvalidArgument, g.Sequence)
		}
		seen[g.Sequence] = true
		groups[i] = g
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Sequence < groups[j].Sequence })

	out := b
	out.OwnerCode = code
	out.Groups = groups
	return out, nil
}

// Key returns the batch key of a normalized batch.
func (b Batch) Key() string {
	return BatchKey(b.OwnerCode, b.Date, b.SourceType)
}
