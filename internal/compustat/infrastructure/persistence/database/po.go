package database

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/datacollector/internal/compustat/domain"
	"github.com/wyfcoding/datacollector/internal/index"
)

// IdxIndexPO idx_index 表
type IdxIndexPO struct {
	Gvkeyx    string `gorm:"column:gvkeyx;type:varchar(6);primaryKey"`
	Conm      string `gorm:"column:conm"`
	Indexcat  string `gorm:"column:indexcat"`
	Indexid   string `gorm:"column:indexid"`
	Indextype string `gorm:"column:indextype"`
	Indexgeo  string `gorm:"column:indexgeo"`
	Idxstat   string `gorm:"column:idxstat"`
	Tic       string `gorm:"column:tic"`
}

func (IdxIndexPO) TableName() string { return domain.IndexTable }

func (po *IdxIndexPO) ToDomain() *domain.IndexRecord {
	return &domain.IndexRecord{
		Gvkeyx:    po.Gvkeyx,
		Conm:      po.Conm,
		Indexcat:  po.Indexcat,
		Indexid:   po.Indexid,
		Indextype: po.Indextype,
		Indexgeo:  po.Indexgeo,
		Idxstat:   po.Idxstat,
		Tic:       po.Tic,
	}
}

// IdxDailyPO idx_daily 表
type IdxDailyPO struct {
	Gvkeyx   string              `gorm:"column:gvkeyx;type:varchar(6);primaryKey"`
	Datadate time.Time           `gorm:"column:datadate;type:date;primaryKey"`
	Prccd    decimal.NullDecimal `gorm:"column:prccd;type:decimal(18,6)"`
	Prchd    decimal.NullDecimal `gorm:"column:prchd;type:decimal(18,6)"`
	Prcld    decimal.NullDecimal `gorm:"column:prcld;type:decimal(18,6)"`
}

func (IdxDailyPO) TableName() string { return domain.DailyTable }

func (po *IdxDailyPO) ToDomain() *domain.DailyObservation {
	return &domain.DailyObservation{
		Gvkeyx:   po.Gvkeyx,
		Datadate: po.Datadate,
		Prccd:    po.Prccd,
		Prchd:    po.Prchd,
		Prcld:    po.Prcld,
	}
}

// IdxcstHisPO idxcst_his 表，from/thru 为保留字，查询时由 gorm 负责引用
type IdxcstHisPO struct {
	Gvkey  string     `gorm:"column:gvkey;type:varchar(6);primaryKey"`
	Iid    string     `gorm:"column:iid;type:varchar(3);primaryKey"`
	Gvkeyx string     `gorm:"column:gvkeyx;type:varchar(6);primaryKey"`
	From   time.Time  `gorm:"column:from;type:date;primaryKey"`
	Thru   *time.Time `gorm:"column:thru;type:date"`
}

func (IdxcstHisPO) TableName() string { return domain.ConstituentTable }

func (po *IdxcstHisPO) ToDomain() index.Constituent {
	return index.Constituent{
		Gvkey:  po.Gvkey,
		Iid:    po.Iid,
		Gvkeyx: po.Gvkeyx,
		From:   po.From,
		Thru:   po.Thru,
	}
}
