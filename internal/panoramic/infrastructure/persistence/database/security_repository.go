package database

import (
	"context"

	"github.com/wyfcoding/datacollector/internal/panoramic/domain"
	"github.com/wyfcoding/datacollector/pkg/db"
	"gorm.io/gorm"
)

// SecurityPO security 表
type SecurityPO struct {
	Gvkey string `gorm:"column:gvkey;type:varchar(6);primaryKey"`
	Iid   string `gorm:"column:iid;type:varchar(3);primaryKey"`
	Tic   string `gorm:"column:tic"`
	Exchg string `gorm:"column:exchg"`
}

func (SecurityPO) TableName() string { return domain.SecurityTable }

func (po *SecurityPO) ToDomain() domain.Security {
	return domain.Security{Gvkey: po.Gvkey, Iid: po.Iid, Tic: po.Tic, Exchg: po.Exchg}
}

type securityRepository struct {
	db        *db.DB
	exchanges []string
}

// NewSecurityRepository 创建证券仓储；exchanges 非空时只返回这些交易所的证券
func NewSecurityRepository(conn *db.DB, exchanges ...string) domain.SecurityRepository {
	return &securityRepository{db: conn, exchanges: exchanges}
}

func (r *securityRepository) Universe(ctx context.Context) ([]domain.Security, error) {
	var pos []SecurityPO
	err := r.db.ReadSession(ctx, "security.universe", func(tx *gorm.DB) error {
		pos = pos[:0]
		q := tx.Model(&SecurityPO{})
		if len(r.exchanges) > 0 {
			q = q.Where("exchg IN ?", r.exchanges)
		}
		return q.Order("gvkey").Order("iid").Find(&pos).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Security, 0, len(pos))
	for i := range pos {
		out = append(out, pos[i].ToDomain())
	}
	return out, nil
}
