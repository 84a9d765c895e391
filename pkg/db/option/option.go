package option

import (
	"fmt"
	"strings"
	"time"

	"ftc-platform/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before execution.
type QueryOption func(*gorm.DB) *gorm.DB

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	// Allow whitelists sortable columns; empty allows only "created_at".
	Allow map[string]bool
}

func Apply(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt(db)
		}
	}
	return db
}

// ApplyPagination fetches one row past the page so pagination.Trim can tell
// whether more rows exist.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(p.PageSize() + 1)
	}
}

// WithCursor continues after c in (created_at, id) ascending order. A nil
// cursor starts from the first row.
func WithCursor(c *pagination.Cursor) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order("created_at ASC").Order("id ASC")
		if c == nil {
			return db
		}
		at, err := time.Parse(time.RFC3339Nano, c.CreatedAt)
		if err != nil {
			_ = db.AddError(fmt.Errorf("invalid cursor: %w", err))
			return db
		}
		return db.Where("created_at > ? OR (created_at = ? AND id > ?)", at, at, c.ID)
	}
}

func ApplyOperator(conds ...Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range conds {
			if !validColumn(c.Field) {
				_ = db.AddError(fmt.Errorf("invalid column %q", c.Field))
				continue
			}
			switch c.Operator {
			case IN:
				db = db.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
			case EQ, NEQ, GT, GTE, LT, LTE:
				db = db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
			default:
				_ = db.AddError(fmt.Errorf("unsupported operator %q", c.Operator))
			}
		}
		return db
	}
}

func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := s.SortBy
		if column == "" {
			column = "created_at"
		}
		allowed := s.Allow[column] || (len(s.Allow) == 0 && column == "created_at")
		if !allowed {
			return db
		}
		desc := strings.EqualFold(s.OrderBy, "desc")
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
	}
}

func WithPreload(associations ...string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, a := range associations {
			db = db.Preload(a)
		}
		return db
	}
}

func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

func validColumn(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
