package notes

import (
	"context"
	"fmt"

	"github.com/kuitang/colornote/internal/errs"
	"github.com/kuitang/colornote/internal/notetable"
)

// AddTable appends a new 2x2 table to the note.
func (s *Service) AddTable(ctx context.Context, id string) (*Note, notetable.Table, error) {
	t := notetable.New()
	n, err := s.mutate(ctx, id, func(n *Note) error {
		if err := checkCanAddTable(n.Tables); err != nil {
			return err
		}
		n.Tables = append(n.Tables, t)
		return nil
	})
	if err != nil {
		return nil, notetable.Table{}, err
	}
	return n, t, nil
}

// UpdateTableCell sets one cell. Coordinates outside the table change nothing.
func (s *Service) UpdateTableCell(ctx context.Context, id, tableID string, row, col int, value string) (*Note, error) {
	if err := checkCell(value); err != nil {
		return nil, err
	}
	return s.updateTable(ctx, id, tableID, func(t notetable.Table) (notetable.Table, error) {
		return t.SetCell(row, col, value), nil
	})
}

// AddTableRow appends an empty row.
func (s *Service) AddTableRow(ctx context.Context, id, tableID string) (*Note, error) {
	return s.updateTable(ctx, id, tableID, func(t notetable.Table) (notetable.Table, error) {
		if err := checkCanAddRow(t); err != nil {
			return t, err
		}
		return t.AddRow(), nil
	})
}

// AddTableColumn appends an empty column unless the table is already at
// notetable.MaxColumns.
func (s *Service) AddTableColumn(ctx context.Context, id, tableID string) (*Note, error) {
	return s.updateTable(ctx, id, tableID, func(t notetable.Table) (notetable.Table, error) {
		return t.AddColumn(), nil
	})
}

// DeleteTable removes a table from the note.
func (s *Service) DeleteTable(ctx context.Context, id, tableID string) (*Note, error) {
	return s.mutate(ctx, id, func(n *Note) error {
		_, i, ok := n.Table(tableID)
		if !ok {
			return tableNotFound(tableID)
		}
		n.Tables = append(n.Tables[:i:i], n.Tables[i+1:]...)
		return nil
	})
}

func (s *Service) updateTable(ctx context.Context, id, tableID string, fn func(notetable.Table) (notetable.Table, error)) (*Note, error) {
	return s.mutate(ctx, id, func(n *Note) error {
		t, i, ok := n.Table(tableID)
		if !ok {
			return tableNotFound(tableID)
		}
		next, err := fn(t)
		if err != nil {
			return err
		}
		if next.Equal(t) {
			return errUnchanged
		}
		n.Tables[i] = next
		return nil
	})
}

func tableNotFound(tableID string) error {
	return errs.Wrap(errs.NotFound, fmt.Sprintf("table not found: %s", tableID), ErrTableNotFound)
}

