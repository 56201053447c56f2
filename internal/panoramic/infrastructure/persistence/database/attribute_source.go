// Package database 证券属性与证券全集的 GORM 实现
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/datacollector/internal/panoramic/domain"
	"github.com/wyfcoding/datacollector/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 单条 IN 查询最多携带的 gvkey 数
const gvkeyBatchSize = 500

type validDateRow struct {
	Gvkey    string    `gorm:"column:gvkey"`
	Datadate time.Time `gorm:"column:datadate"`
}

type attributeSource struct {
	db *db.DB
}

// NewAttributeSource 在属性表上求叶子过滤器。
// 属性表需包含 gvkey 与 datadate 列
func NewAttributeSource(conn *db.DB) domain.AttributeSource {
	return &attributeSource{db: conn}
}

func (s *attributeSource) ValidDates(ctx context.Context, f *domain.AttributeFilter, gvkeys []string) (map[string][]time.Time, error) {
	cond, err := condition(f)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]time.Time, len(gvkeys))
	for start := 0; start < len(gvkeys); start += gvkeyBatchSize {
		batch := gvkeys[start:min(start+gvkeyBatchSize, len(gvkeys))]
		keys := make([]any, len(batch))
		for i, g := range batch {
			keys[i] = g
		}

		var rows []validDateRow
		err := s.db.ReadSession(ctx, f.Table+".valid_dates", func(tx *gorm.DB) error {
			rows = rows[:0]
			return tx.Table(f.Table).
				Distinct("gvkey", "datadate").
				Where(clause.IN{Column: clause.Column{Name: "gvkey"}, Values: keys}).
				Where(cond).
				Order("gvkey").
				Order("datadate").
				Scan(&rows).Error
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", f, err)
		}
		for _, r := range rows {
			out[r.Gvkey] = append(out[r.Gvkey], r.Datadate)
		}
	}
	return out, nil
}

func condition(f *domain.AttributeFilter) (clause.Expression, error) {
	col := clause.Column{Name: f.Column}
	switch f.Op {
	case domain.OpNotNull:
		return clause.Expr{SQL: "? IS NOT NULL", Vars: []any{col}}, nil
	case domain.OpEq:
		return clause.Eq{Column: col, Value: f.Value}, nil
	case domain.OpLt:
		return clause.Lt{Column: col, Value: f.Value}, nil
	case domain.OpLeq:
		return clause.Lte{Column: col, Value: f.Value}, nil
	case domain.OpGt:
		return clause.Gt{Column: col, Value: f.Value}, nil
	case domain.OpGeq:
		return clause.Gte{Column: col, Value: f.Value}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", f.Op)
	}
}
