package remote

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpIn  Op = "in"
)

var ErrUnfilteredWrite = errors.New("update and delete require at least one filter")

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func Neq(column string, value any) Filter {
	return Filter{Column: column, Op: OpNeq, Value: value}
}

func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

type Order struct {
	Column string
	Desc   bool
}

// Query selects rows of one collection. Zero Limit means no limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
}

func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column, Desc: desc})
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// OnConflict names the conflict target of an upsert and the columns it overwrites.
// An empty Update list turns the upsert into insert-or-ignore.
type OnConflict struct {
	Columns []string
	Update  []string
}

// Collection is the record-collection contract of the remote store.
type Collection[T any] interface {
	Select(ctx context.Context, q Query) ([]T, error)
	SelectOne(ctx context.Context, q Query) (*T, error)
	Insert(ctx context.Context, rows ...*T) error
	Update(ctx context.Context, q Query, values map[string]any) (int64, error)
	Upsert(ctx context.Context, row *T, conflict OnConflict) error
	Delete(ctx context.Context, q Query) (int64, error)
}

type table[T any] struct {
	db *gorm.DB
}

func NewCollection[T any](db *gorm.DB) Collection[T] {
	return &table[T]{db: db}
}

func (t *table[T]) scoped(ctx context.Context, q Query) *gorm.DB {
	tx := t.db.WithContext(ctx).Model(new(T))
	for _, f := range q.Filters {
		col := clause.Column{Name: f.Column}
		switch f.Op {
		case OpNeq:
			tx = tx.Where(clause.Neq{Column: col, Value: f.Value})
		case OpIn:
			values, _ := f.Value.([]any)
			tx = tx.Where(clause.IN{Column: col, Values: values})
		default:
			tx = tx.Where(clause.Eq{Column: col, Value: f.Value})
		}
	}
	for _, o := range q.Order {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

func (t *table[T]) Select(ctx context.Context, q Query) ([]T, error) {
	rows := []T{}
	if err := t.scoped(ctx, q).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (t *table[T]) SelectOne(ctx context.Context, q Query) (*T, error) {
	var row T
	if err := t.scoped(ctx, q).Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (t *table[T]) Insert(ctx context.Context, rows ...*T) error {
	if len(rows) == 0 {
		return nil
	}
	tx := t.db.WithContext(ctx).Omit(clause.Associations)
	if len(rows) == 1 {
		return translate(tx.Create(rows[0]).Error)
	}
	return translate(tx.Create(&rows).Error)
}

func (t *table[T]) Update(ctx context.Context, q Query, values map[string]any) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, ErrUnfilteredWrite
	}
	res := t.scoped(ctx, Query{Filters: q.Filters}).Updates(values)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (t *table[T]) Upsert(ctx context.Context, row *T, conflict OnConflict) error {
	columns := make([]clause.Column, 0, len(conflict.Columns))
	for _, c := range conflict.Columns {
		columns = append(columns, clause.Column{Name: c})
	}
	onConflict := clause.OnConflict{Columns: columns}
	if len(conflict.Update) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(conflict.Update)
	}
	err := t.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(onConflict).
		Create(row).Error
	return translate(err)
}

func (t *table[T]) Delete(ctx context.Context, q Query) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, ErrUnfilteredWrite
	}
	res := t.scoped(ctx, Query{Filters: q.Filters}).Delete(new(T))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}
