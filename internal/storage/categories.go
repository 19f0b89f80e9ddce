package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/model"
)

const categoryColumns = `id, name, icon, type, sortOrder, isDefault, isActive, createdAt, updatedAt`

// CategoryRepository stores categories.
type CategoryRepository struct {
	db Executor
}

// NewCategoryRepository creates a repository over db.
func NewCategoryRepository(db Executor) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func scanCategory(row rowScanner) (model.Category, error) {
	var cat model.Category
	err := row.Scan(&cat.ID, &cat.Name, &cat.Icon, &cat.Type, &cat.SortOrder,
		&cat.IsDefault, &cat.IsActive, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return cat, fmt.Errorf("failed to scan category: %w", err)
	}
	return cat, nil
}

// CreateTable implements Repository.
func (r *CategoryRepository) CreateTable(ctx context.Context) error {
	return execAll(ctx, r.db, createCategoriesTable)
}

// CreateIndexes implements Repository.
func (r *CategoryRepository) CreateIndexes(ctx context.Context) error {
	return execAll(ctx, r.db, categoryIndexes...)
}

// InsertSampleData inserts the default categories.
func (r *CategoryRepository) InsertSampleData(ctx context.Context) error {
	for _, cat := range sampleCategories() {
		if _, err := r.Create(ctx, cat); err != nil {
			return fmt.Errorf("failed to insert sample category %q: %w", cat.Name, err)
		}
	}
	return nil
}

// FindByID implements Repository.
func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	return queryOne(ctx, r.db, scanCategory,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
}

// FindAll returns every category in storage order.
func (r *CategoryRepository) FindAll(ctx context.Context) ([]model.Category, error) {
	return queryAll(ctx, r.db, scanCategory, `SELECT `+categoryColumns+` FROM categories`)
}

// FindAllOrdered returns every category ordered by sortOrder, then id.
func (r *CategoryRepository) FindAllOrdered(ctx context.Context) ([]model.Category, error) {
	return queryAll(ctx, r.db, scanCategory,
		`SELECT `+categoryColumns+` FROM categories ORDER BY sortOrder, id`)
}

// FindByType returns the active categories of type t.
func (r *CategoryRepository) FindByType(ctx context.Context, t model.CategoryType) ([]model.Category, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidCategory, t)
	}
	return queryAll(ctx, r.db, scanCategory,
		`SELECT `+categoryColumns+` FROM categories WHERE type = ? AND isActive = 1 ORDER BY sortOrder, id`, string(t))
}

// FindDefault returns the active default categories.
func (r *CategoryRepository) FindDefault(ctx context.Context) ([]model.Category, error) {
	return queryAll(ctx, r.db, scanCategory,
		`SELECT `+categoryColumns+` FROM categories WHERE isDefault = 1 AND isActive = 1 ORDER BY sortOrder, id`)
}

// Create implements Repository.
func (r *CategoryRepository) Create(ctx context.Context, in model.NewCategory) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateNewCategory(in); err != nil {
		return nil, err
	}

	res, err := r.db.Exec(ctx, `
		INSERT INTO categories (name, icon, type, sortOrder, isDefault, isActive)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, in.Icon, string(in.Type), in.SortOrder, in.IsDefault, in.Active())
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	if res.LastInsertID == 0 {
		return nil, fmt.Errorf("%w: category %q", ErrCreateFailed, in.Name)
	}

	created, err := r.FindByID(ctx, res.LastInsertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created category: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("%w: category %d", ErrCreateFailed, res.LastInsertID)
	}

	r.db.Notify(EventCategoryUpdated)
	slog.Debug("created category", "id", created.ID, "name", created.Name)
	return created, nil
}

// Update implements Repository.
func (r *CategoryRepository) Update(ctx context.Context, id int64, fields model.CategoryUpdate) (bool, error) {
	if err := validateCategoryUpdate(fields); err != nil {
		return false, err
	}

	b := newUpdate(tableCategories)
	setIf(b, "name", fields.Name)
	setIf(b, "icon", fields.Icon)
	if fields.Type != nil {
		b.set("type", string(*fields.Type))
	}
	setIf(b, "sortOrder", fields.SortOrder)
	setIf(b, "isDefault", fields.IsDefault)
	setIf(b, "isActive", fields.IsActive)

	changed, err := b.run(ctx, r.db, id)
	if err != nil {
		return false, fmt.Errorf("failed to update category %d: %w", id, err)
	}
	if changed {
		r.db.Notify(EventCategoryUpdated)
	}
	return changed, nil
}

// Delete implements Repository. Deleting a category still referenced by a
// budget or transaction fails with a foreign key violation.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := deleteByID(ctx, r.db, tableCategories, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	if removed {
		r.db.Notify(EventCategoryUpdated)
	}
	return removed, nil
}

// Count implements Repository.
func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, tableCategories)
}
