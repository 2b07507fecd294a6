package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lookupColumns lists the table columns that Exists/Taken may query.
// Anything else is rejected before reaching SQL.
var lookupColumns = map[string]map[string]bool{
	"users": {"id": true, "username": true, "email": true},
	"roles": {"id": true, "name": true},
}

type GormRecordChecker struct{ db *gorm.DB }

func NewRecordChecker(db *gorm.DB) *GormRecordChecker { return &GormRecordChecker{db: db} }

// Exists reports whether a row with column = value is present in table.
func (c *GormRecordChecker) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	n, err := c.count(ctx, table, column, value, 0)
	observe(ctx, table, "exists", err)
	return n > 0, err
}

// Taken reports whether another row already holds value; ignoreID excludes
// the row being edited.
func (c *GormRecordChecker) Taken(ctx context.Context, table, column string, value any, ignoreID uint) (bool, error) {
	n, err := c.count(ctx, table, column, value, ignoreID)
	observe(ctx, table, "taken", err)
	return n > 0, err
}

func (c *GormRecordChecker) count(ctx context.Context, table, column string, value any, ignoreID uint) (int64, error) {
	cols, ok := lookupColumns[table]
	if !ok || !cols[column] {
		return 0, fmt.Errorf("lookup on %s.%s is not allowed", table, column)
	}
	q := c.db.WithContext(ctx).Table(table).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	if ignoreID > 0 {
		q = q.Where("id <> ?", ignoreID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
