// Package store implements a generic gorm backed CRUD store with explicit
// field projection and pagination. Concrete stores (user directory,
// credentials) instantiate it with their own entity shape and add their
// domain specific methods on top.
package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the given predicate.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned when a create violates a uniqueness constraint.
	ErrConflict = errors.New("resource already exists")
	// ErrFieldNotAllowed is returned when a projection names an unknown or
	// non-projectable column.
	ErrFieldNotAllowed = errors.New("field is not allowed in projection")
	// ErrSortNotAllowed is returned when the sort key is not sortable.
	ErrSortNotAllowed = errors.New("sort field is not allowed")
	// ErrInvalidPagination is returned for out-of-range page or limit values.
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)

// Sort directions accepted by Query.Order.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// Pagination bounds.
const (
	MinLimit     = 10
	MaxLimit     = 1000
	DefaultLimit = 10
)

// Query carries the projection, sort and pagination parameters of a search.
type Query struct {
	Fields []string
	Sort   string
	Order  string
	Page   int
	Limit  int
}

// Store is a generic CRUD store over a single gorm model.
type Store[T any] struct {
	db     *gorm.DB
	fields map[string]bool
	sorts  map[string]bool
}

// New creates a store for entity T. fields lists the projectable columns,
// sorts the sortable ones. Columns outside fields (such as secret hashes)
// can never cross the store boundary through a projection.
func New[T any](db *gorm.DB, fields, sorts []string) *Store[T] {
	s := &Store[T]{
		db:     db,
		fields: make(map[string]bool, len(fields)),
		sorts:  make(map[string]bool, len(sorts)),
	}

	for _, f := range fields {
		s.fields[f] = true
	}

	for _, f := range sorts {
		s.sorts[f] = true
	}

	return s
}

// DB exposes the underlying handle for domain specific queries.
func (s *Store[T]) DB() *gorm.DB {
	return s.db
}

// projection validates the requested fields and falls back to all
// projectable columns when none are requested.
func (s *Store[T]) projection(fields []string) ([]string, error) {
	if len(fields) == 0 {
		out := make([]string, 0, len(s.fields))
		for f := range s.fields {
			out = append(out, f)
		}

		return out, nil
	}

	for _, f := range fields {
		if !s.fields[f] {
			return nil, ErrFieldNotAllowed
		}
	}

	return fields, nil
}

// Get loads a single row matching conds with the given projection.
func (s *Store[T]) Get(ctx context.Context, conds map[string]any, fields []string) (*T, error) {
	selected, err := s.projection(fields)
	if err != nil {
		return nil, err
	}

	var out T

	result := s.db.WithContext(ctx).Select(selected).Where(conds).First(&out)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, result.Error
	}

	return &out, nil
}

// Search loads rows matching conds, applying projection, sort and
// pagination. It returns the page of rows plus the total match count.
func (s *Store[T]) Search(ctx context.Context, conds map[string]any, q Query) ([]T, int64, error) {
	selected, err := s.projection(q.Fields)
	if err != nil {
		return nil, 0, err
	}

	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	if q.Page < 0 || q.Limit < MinLimit || q.Limit > MaxLimit {
		return nil, 0, ErrInvalidPagination
	}

	order, err := s.orderClause(q)
	if err != nil {
		return nil, 0, err
	}

	var model T

	var total int64
	if err := s.db.WithContext(ctx).Model(&model).Where(conds).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []T

	tx := s.db.WithContext(ctx).Select(selected).Where(conds).
		Offset(q.Page * q.Limit).Limit(q.Limit)
	if order != "" {
		tx = tx.Order(order)
	}

	if err := tx.Find(&out).Error; err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (s *Store[T]) orderClause(q Query) (string, error) {
	if q.Sort == "" {
		return "", nil
	}

	if !s.sorts[q.Sort] {
		return "", ErrSortNotAllowed
	}

	switch q.Order {
	case "", Ascending:
		return q.Sort + " asc", nil
	case Descending:
		return q.Sort + " desc", nil
	default:
		return "", ErrSortNotAllowed
	}
}

// Create inserts a row, mapping uniqueness violations to ErrConflict.
func (s *Store[T]) Create(ctx context.Context, record *T) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}

		return err
	}

	return nil
}

// Update applies updates to all rows matching conds; zero matched rows is
// reported as ErrNotFound so callers can not silently update nothing.
func (s *Store[T]) Update(ctx context.Context, conds map[string]any, updates map[string]any) error {
	var model T

	result := s.db.WithContext(ctx).Model(&model).Where(conds).Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes all rows matching conds and returns how many were removed.
func (s *Store[T]) Delete(ctx context.Context, conds map[string]any) (int64, error) {
	var model T

	result := s.db.WithContext(ctx).Where(conds).Delete(&model)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// isUniqueViolation covers the translated gorm error plus the raw sqlite and
// mysql/postgres constraint messages.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
