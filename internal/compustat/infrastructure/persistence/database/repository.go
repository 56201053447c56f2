// Package database Compustat 只读仓储的 GORM 实现
package database

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/datacollector/internal/compustat/domain"
	"github.com/wyfcoding/datacollector/internal/index"
	"github.com/wyfcoding/datacollector/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type indexRepository struct {
	db *db.DB
}

// NewIndexRepository 创建 Compustat 仓储，重试策略取自 db 实例
func NewIndexRepository(conn *db.DB) domain.IndexRepository {
	return &indexRepository{db: conn}
}

func (r *indexRepository) FindIndex(ctx context.Context, gvkeyx string) (*domain.IndexRecord, error) {
	var po IdxIndexPO
	err := r.db.ReadSession(ctx, "idx_index.first", func(tx *gorm.DB) error {
		return tx.Where("gvkeyx = ?", gvkeyx).Take(&po).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return po.ToDomain(), nil
}

func (r *indexRepository) FirstDaily(ctx context.Context, gvkeyx string) (*domain.DailyObservation, error) {
	var po IdxDailyPO
	err := r.db.ReadSession(ctx, "idx_daily.first", func(tx *gorm.DB) error {
		return tx.Where("gvkeyx = ?", gvkeyx).Order("datadate").Take(&po).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return po.ToDomain(), nil
}

func (r *indexRepository) CalendarDates(ctx context.Context, gvkeyx string) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.ReadSession(ctx, "idx_daily.dates", func(tx *gorm.DB) error {
		dates = dates[:0]
		return tx.Model(&IdxDailyPO{}).Where("gvkeyx = ?", gvkeyx).Pluck("datadate", &dates).Error
	})
	if err != nil {
		return nil, err
	}
	return dates, nil
}

func (r *indexRepository) DailyPrices(ctx context.Context, gvkeyx string) ([]domain.DailyObservation, error) {
	var pos []IdxDailyPO
	err := r.db.ReadSession(ctx, "idx_daily.all", func(tx *gorm.DB) error {
		pos = pos[:0]
		return tx.Where("gvkeyx = ?", gvkeyx).Order("datadate").Find(&pos).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.DailyObservation, 0, len(pos))
	for i := range pos {
		out = append(out, *pos[i].ToDomain())
	}
	return out, nil
}

func (r *indexRepository) Constituents(ctx context.Context, gvkeyx string) ([]index.Constituent, error) {
	var pos []IdxcstHisPO
	err := r.db.ReadSession(ctx, "idxcst_his.all", func(tx *gorm.DB) error {
		pos = pos[:0]
		return tx.Where("gvkeyx = ?", gvkeyx).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "gvkey"}}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "from"}}).
			Find(&pos).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]index.Constituent, 0, len(pos))
	for i := range pos {
		out = append(out, pos[i].ToDomain())
	}
	return out, nil
}
