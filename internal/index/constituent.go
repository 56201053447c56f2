package index

import (
	"sort"
	"time"
)

// ConstituentColumns 成分股记录的列，顺序固定
var ConstituentColumns = []string{"gvkey", "iid", "gvkeyx", "from", "thru"}

// Constituent 一条成分股变更记录：证券 (gvkey, iid) 在 [From, Thru] 期间属于指数 Gvkeyx。
// Thru 为空表示至今仍是成分股
type Constituent struct {
	Gvkey  string     `json:"gvkey" msgpack:"gvkey"`
	Iid    string     `json:"iid" msgpack:"iid"`
	Gvkeyx string     `json:"gvkeyx" msgpack:"gvkeyx"`
	From   time.Time  `json:"from" msgpack:"from"`
	Thru   *time.Time `json:"thru,omitempty" msgpack:"thru"`
}

// Symbol 证券代码：{gvkey}_{iid}
func (c Constituent) Symbol() string {
	return c.Gvkey + "_" + c.Iid
}

// SortConstituents 按 symbol、起始日排序
func SortConstituents(rows []Constituent) {
	sort.SliceStable(rows, func(i, j int) bool {
		si, sj := rows[i].Symbol(), rows[j].Symbol()
		if si != sj {
			return si < sj
		}
		return rows[i].From.Before(rows[j].From)
	})
}
