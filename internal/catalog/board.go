package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"jewelflow/internal/datatable"
	"jewelflow/internal/model"
)

const (
	ColumnID          = "id"
	ColumnName        = "name"
	ColumnDescription = "description"
	ColumnStatus      = "status"
)

// Board is the local state of the category screen. It is safe for concurrent
// use; mutations to the embedded table go through its methods.
type Board struct {
	mu    sync.Mutex
	api   *Categories
	table *datatable.Table[model.Category]
}

func NewBoard(api *Categories) *Board {
	return &Board{api: api, table: newCategoryTable()}
}

func newCategoryTable() *datatable.Table[model.Category] {
	return datatable.New(
		CategoryID,
		datatable.Column[model.Category]{
			Key:   ColumnID,
			Title: "ID",
			Value: CategoryID,
			Less:  func(a, b model.Category) bool { return a.ID < b.ID },
		},
		datatable.Column[model.Category]{
			Key:   ColumnName,
			Title: "Name",
			Value: func(c model.Category) string { return c.Name },
		},
		datatable.Column[model.Category]{
			Key:   ColumnDescription,
			Title: "Description",
			Value: func(c model.Category) string { return c.Description },
		},
		datatable.Column[model.Category]{
			Key:   ColumnStatus,
			Title: "Status",
			Value: Status,
		},
	)
}

func CategoryID(c model.Category) string {
	return strconv.FormatInt(c.ID, 10)
}

func Status(c model.Category) string {
	if c.IsActive {
		return "active"
	}
	return "inactive"
}

// Load replaces the local rows with the server's list.
func (b *Board) Load(ctx context.Context) error {
	rows, err := b.api.List(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.table.SetRows(rows)
	b.mu.Unlock()
	return nil
}

// View runs fn with exclusive access to the table.
func (b *Board) View(fn func(t *datatable.Table[model.Category])) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.table)
}

func (b *Board) Rows() []model.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Rows()
}

func (b *Board) Find(id int64) (model.Category, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Find(strconv.FormatInt(id, 10))
}

// Toggle flips is_active locally before the server answers and restores the
// previous value if the call fails.
func (b *Board) Toggle(ctx context.Context, id int64) (model.Category, error) {
	key := strconv.FormatInt(id, 10)

	b.mu.Lock()
	var previous bool
	ok := b.table.Update(key, func(c *model.Category) {
		previous = c.IsActive
		c.IsActive = !c.IsActive
	})
	b.mu.Unlock()
	if !ok {
		return model.Category{}, fmt.Errorf("toggle category %d: not loaded", id)
	}

	updated, err := b.api.SetActive(ctx, id, !previous)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.table.Update(key, func(c *model.Category) { c.IsActive = previous })
		current, _ := b.table.Find(key)
		return current, err
	}

	b.table.Upsert(*updated)
	return *updated, nil
}

// Edit puts the row with id into inline-edit mode, ending any other edit.
// It reports false when the row is not loaded.
func (b *Board) Edit(id int64) bool {
	key := strconv.FormatInt(id, 10)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.table.IsEditing(key) {
		return true
	}
	return b.table.ToggleEdit(key)
}

// ToggleEdit flips inline-edit mode for the row with id.
func (b *Board) ToggleEdit(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.ToggleEdit(strconv.FormatInt(id, 10))
}

// SaveEdit sends req for the row in edit mode. The row leaves edit mode only
// when the server accepts the change.
func (b *Board) SaveEdit(ctx context.Context, req model.CategoryRequest) (model.Category, error) {
	b.mu.Lock()
	key, ok := b.table.Editing()
	b.mu.Unlock()
	if !ok {
		return model.Category{}, errors.New("no category is being edited")
	}

	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return model.Category{}, fmt.Errorf("edited id %q: %w", key, err)
	}

	updated, err := b.api.Update(ctx, id, req)
	if err != nil {
		return model.Category{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.table.Upsert(*updated)
	if b.table.IsEditing(key) {
		b.table.CancelEdit()
	}
	return *updated, nil
}

// Upsert stores a category returned by a create or update call.
func (b *Board) Upsert(c model.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.table.Upsert(c)
}

func (b *Board) Remove(ctx context.Context, id int64) error {
	if err := b.api.Delete(ctx, id); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.table.Remove(strconv.FormatInt(id, 10))
	return nil
}

// RemoveSelected deletes every selected row with one bulk request.
func (b *Board) RemoveSelected(ctx context.Context) (int, error) {
	b.mu.Lock()
	selected := b.table.Selected()
	b.mu.Unlock()
	if len(selected) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(selected))
	for _, s := range selected {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("selected id %q: %w", s, err)
		}
		ids = append(ids, id)
	}

	if _, err := b.api.BulkDelete(ctx, ids); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Remove(selected...), nil
}

// Describe renders a one-line summary, used by the CLI's list output.
func Describe(c model.Category) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s [%s]", c.ID, c.Name, Status(c))
	if c.Description != "" {
		sb.WriteString(" - ")
		sb.WriteString(c.Description)
	}
	return sb.String()
}
