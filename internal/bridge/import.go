package bridge

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"iou-ledger/internal/domain"
)

// ImportColumns is the header an import sheet carries. Only seq and amount
// are required.
var ImportColumns = []string{"seq", "client", "amount", "flight_segment", "ticket_number", "remark"}

// BatchHeader identifies the sheet being imported.
type BatchHeader struct {
	OwnerCode  string
	Date       string
	SourceType domain.SourceType
	OwnerID    string
}

// ReadBatch parses an import sheet into a batch. Consecutive rows sharing a
// sequence form one debt; a row with an empty seq continues the group above.
func ReadBatch(r io.Reader, header BatchHeader) (domain.Batch, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.Batch{}, fmt.Errorf("%w: import sheet is empty", domain.ErrInvalidArgument)
	}
	if err != nil {
		return domain.Batch{}, fmt.Errorf("%w: failed to read csv header: %v", domain.ErrInvalidArgument, err)
	}
	cols, err := columnIndex(head)
	if err != nil {
		return domain.Batch{}, err
	}

	batch := domain.Batch{
		OwnerCode:  header.OwnerCode,
		Date:       header.Date,
		SourceType: header.SourceType,
		OwnerID:    header.OwnerID,
	}
	groups := map[int]int{}
	current := -1

	for rowNum := 2; ; rowNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Batch{}, fmt.Errorf("%w: row %d: %v", domain.ErrInvalidArgument, rowNum, err)
		}
		if blank(record) {
			continue
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if raw := field("seq"); raw != "" {
			seq, err := strconv.Atoi(raw)
			if err != nil || !domain.ValidSequence(seq) {
				return domain.Batch{}, fmt.Errorf("%w: row %d: sequence %q outside %02d..%02d", domain.ErrInvalidArgument, rowNum, raw, domain.MinSequence, domain.MaxSequence)
			}
			idx, seen := groups[seq]
			if seen && idx != current {
				return domain.Batch{}, fmt.Errorf("%w: row %d: sequence %02d is split across the sheet", domain.ErrInvalidArgument, rowNum, seq)
			}
			if !seen {
				batch.Groups = append(batch.Groups, domain.BatchGroup{Sequence: seq})
				idx = len(batch.Groups) - 1
				groups[seq] = idx
			}
			current = idx
		}
		if current < 0 {
			return domain.Batch{}, fmt.Errorf("%w: row %d: first row has no sequence", domain.ErrInvalidArgument, rowNum)
		}

		g := &batch.Groups[current]
		g.Lines = append(g.Lines, domain.LineInput{
			Client:        field("client"),
			Amount:        field("amount"),
			FlightSegment: field("flight_segment"),
			TicketNumber:  field("ticket_number"),
			Remark:        field("remark"),
		})
	}

	if len(batch.Groups) == 0 {
		return domain.Batch{}, fmt.Errorf("%w: import sheet has no rows", domain.ErrInvalidArgument)
	}
	return batch, nil
}

func columnIndex(head []string) (map[string]int, error) {
	known := make(map[string]bool, len(ImportColumns))
	for _, c := range ImportColumns {
		known[c] = true
	}
	cols := make(map[string]int, len(head))
	for i, h := range head {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if !known[name] {
			return nil, fmt.Errorf("%w: unknown column %q", domain.ErrInvalidArgument, h)
		}
		cols[name] = i
	}
	for _, required := range []string{"seq", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrInvalidArgument, required)
		}
	}
	return cols, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
