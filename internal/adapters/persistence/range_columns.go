package persistence

import (
	"fmt"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

func rangeToColumns(r shared.DateRange) RangeColumns {
	cols := RangeColumns{
		Start:      r.Start.UTC(),
		StartBound: string(r.StartBound),
		EndBound:   string(r.EndBound),
	}
	if !r.Unbounded() {
		end := r.End.UTC()
		cols.End = &end
	}
	return cols
}

func (c RangeColumns) toDomain() shared.DateRange {
	r := shared.DateRange{
		Start:      c.Start.UTC(),
		StartBound: shared.Bound(c.StartBound),
		EndBound:   shared.Bound(c.EndBound),
	}
	if c.End != nil {
		r.End = c.End.UTC()
	} else {
		r.EndBound = shared.BoundUnbounded
	}
	return r
}

// rangeCondition builds a WHERE fragment selecting rows whose column lies in r
func rangeCondition(column string, r shared.DateRange) (string, []interface{}) {
	query := "1 = 1"
	var args []interface{}

	switch r.StartBound {
	case shared.BoundInclusive:
		query += fmt.Sprintf(" AND %s >= ?", column)
		args = append(args, r.Start.UTC())
	case shared.BoundExclusive:
		query += fmt.Sprintf(" AND %s > ?", column)
		args = append(args, r.Start.UTC())
	}
	switch r.EndBound {
	case shared.BoundInclusive:
		query += fmt.Sprintf(" AND %s <= ?", column)
		args = append(args, r.End.UTC())
	case shared.BoundExclusive:
		query += fmt.Sprintf(" AND %s < ?", column)
		args = append(args, r.End.UTC())
	}
	return query, args
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
