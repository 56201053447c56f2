// Package domain Compustat 指数领域模型
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/datacollector/internal/index"
)

// 逻辑表名，同时用作缓存 key 的前缀
const (
	IndexTable       = "idx_index"
	DailyTable       = "idx_daily"
	ConstituentTable = "idxcst_his"
)

// IndexRecord 指数元数据，加载后不可变
type IndexRecord struct {
	Gvkeyx    string `json:"gvkeyx" msgpack:"gvkeyx"`
	Conm      string `json:"conm" msgpack:"conm"` // 指数名称
	Indexcat  string `json:"indexcat" msgpack:"indexcat"`
	Indexid   string `json:"indexid" msgpack:"indexid"`
	Indextype string `json:"indextype" msgpack:"indextype"`
	Indexgeo  string `json:"indexgeo" msgpack:"indexgeo"`
	Idxstat   string `json:"idxstat" msgpack:"idxstat"` // A: active, I: inactive
	Tic       string `json:"tic" msgpack:"tic"`
}

// Field 按列名读取原始字段
func (r *IndexRecord) Field(column string) (string, bool) {
	switch column {
	case "gvkeyx":
		return r.Gvkeyx, true
	case "conm":
		return r.Conm, true
	case "indexcat":
		return r.Indexcat, true
	case "indexid":
		return r.Indexid, true
	case "indextype":
		return r.Indextype, true
	case "indexgeo":
		return r.Indexgeo, true
	case "idxstat":
		return r.Idxstat, true
	case "tic":
		return r.Tic, true
	default:
		return "", false
	}
}

// DailyObservation 指数某一交易日的观测值
type DailyObservation struct {
	Gvkeyx   string              `json:"gvkeyx" msgpack:"gvkeyx"`
	Datadate time.Time           `json:"datadate" msgpack:"datadate"`
	Prccd    decimal.NullDecimal `json:"prccd" msgpack:"prccd"` // 收盘
	Prchd    decimal.NullDecimal `json:"prchd" msgpack:"prchd"` // 最高
	Prcld    decimal.NullDecimal `json:"prcld" msgpack:"prcld"` // 最低
}

// IndexRepository Compustat 只读仓储。
// 单条查询在记录不存在时返回 nil, nil；列表查询返回空切片
type IndexRepository interface {
	FindIndex(ctx context.Context, gvkeyx string) (*IndexRecord, error)
	// FirstDaily 按 datadate 升序的第一条日线
	FirstDaily(ctx context.Context, gvkeyx string) (*DailyObservation, error)
	// CalendarDates 所有日线的 datadate，保持存储返回的顺序
	CalendarDates(ctx context.Context, gvkeyx string) ([]time.Time, error)
	// DailyPrices 所有日线，按 datadate 升序
	DailyPrices(ctx context.Context, gvkeyx string) ([]DailyObservation, error)
	Constituents(ctx context.Context, gvkeyx string) ([]index.Constituent, error)
}
