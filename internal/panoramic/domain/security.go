package domain

import "context"

// SecurityTable 证券主表
const SecurityTable = "security"

// Security 证券：gvkey 为公司，iid 为发行
type Security struct {
	Gvkey string `json:"gvkey" msgpack:"gvkey"`
	Iid   string `json:"iid" msgpack:"iid"`
	Tic   string `json:"tic" msgpack:"tic"`
	Exchg string `json:"exchg" msgpack:"exchg"`
}

// SecurityRepository 证券全集
type SecurityRepository interface {
	// Universe 全部证券，按 gvkey、iid 排序
	Universe(ctx context.Context) ([]Security, error)
}
