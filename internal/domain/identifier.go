package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceType is the one-letter origin of a debt inside its identifier.
type SourceType string

const (
	// SourceHand marks manual entries; they take the next free sequence.
	SourceHand SourceType = "H"
	// SourceSpreadsheet marks spreadsheet imports.
	SourceSpreadsheet SourceType = "E"
)

const (
	ownerCodeWidth = 3
	ownerCodePad   = "A"
	MinSequence    = 1
	MaxSequence    = 99
	// DebtIDLength is owner code + YYMMDD + source letter + two-digit sequence.
	DebtIDLength = ownerCodeWidth + 6 + 1 + 2
)

// IsBatch reports whether debts of this source arrive in batches carrying
// their own sequence numbers.
func (s SourceType) IsBatch() bool {
	return s != SourceHand
}

// Validate accepts a single upper-case ASCII letter.
func (s SourceType) Validate() error {
	if len(s) != 1 || s[0] < 'A' || s[0] > 'Z' {
		return fmt.Errorf("%w: source type %q must be one upper-case letter", ErrInvalidArgument, string(s))
	}
	return nil
}

// NormalizeOwnerCode upper-cases code and right-pads it with 'A' to three
// letters.
func NormalizeOwnerCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" || len(c) > ownerCodeWidth {
		return "", fmt.Errorf("%w: owner code %q must be 1 to %d letters", ErrInvalidArgument, code, ownerCodeWidth)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: owner code %q must contain letters only", ErrInvalidArgument, code)
		}
	}
	return c + strings.Repeat(ownerCodePad, ownerCodeWidth-len(c)), nil
}

// BatchKey joins the identifier prefix. Inputs are expected to be normalized.
func BatchKey(ownerCode, date string, source SourceType) string {
	return ownerCode + date + string(source)
}

// DebtID is the structured form of a debt identifier.
type DebtID struct {
	OwnerCode  string
	Date       string
	SourceType SourceType
	Sequence   int
}

func (id DebtID) BatchKey() string {
	return BatchKey(id.OwnerCode, id.Date, id.SourceType)
}

func (id DebtID) String() string {
	return fmt.Sprintf("%s%02d", id.BatchKey(), id.Sequence)
}

// ValidSequence reports whether seq fits the two-digit range 01..99.
func ValidSequence(seq int) bool {
	return seq >= MinSequence && seq <= MaxSequence
}

// ParseDebtID splits an identifier into its parts.
func ParseDebtID(v string) (DebtID, error) {
	if len(v) != DebtIDLength {
		return DebtID{}, fmt.Errorf("%w: debt id %q must be %d characters", ErrInvalidArgument, v, DebtIDLength)
	}
	code, err := NormalizeOwnerCode(v[:3])
	if err != nil || code != v[:3] {
		return DebtID{}, fmt.Errorf("%w: debt id %q has a malformed owner code", ErrInvalidArgument, v)
	}
	if err := ValidateDate(v[3:9]); err != nil {
		return DebtID{}, err
	}
	source := SourceType(v[9:10])
	if err := source.Validate(); err != nil {
		return DebtID{}, err
	}
	seq, err := strconv.Atoi(v[10:])
	if err != nil || !ValidSequence(seq) {
		return DebtID{}, fmt.Errorf("%w: debt id %q has a malformed sequence", ErrInvalidArgument, v)
	}
	return DebtID{OwnerCode: code, Date: v[3:9], SourceType: source, Sequence: seq}, nil
}
