// Package domain 证券属性过滤器：table.column 比较条件与 AND/OR 组合
package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/datacollector/internal/index"
)

// Op 比较运算符
type Op string

const (
	// OpNotNull 未指定阈值时，仅要求字段非空
	OpNotNull Op = "is not null"
	OpEq      Op = "="
	OpLt      Op = "<"
	OpLeq     Op = "<="
	OpGt      Op = ">"
	OpGeq     Op = ">="
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition 单个比较条件
type Condition struct {
	Op    Op
	Value any
}

func Eq(v any) Condition  { return Condition{Op: OpEq, Value: v} }
func Lt(v any) Condition  { return Condition{Op: OpLt, Value: v} }
func Leq(v any) Condition { return Condition{Op: OpLeq, Value: v} }
func Gt(v any) Condition  { return Condition{Op: OpGt, Value: v} }
func Geq(v any) Condition { return Condition{Op: OpGeq, Value: v} }

// Filter 过滤器表达式：AttributeFilter、AndFilter 或 OrFilter
type Filter interface {
	fmt.Stringer
	sealed()
}

// AttributeFilter 叶子节点：table.column 上的一个比较条件
type AttributeFilter struct {
	Attribute string
	Table     string
	Column    string
	Op        Op
	Value     any
}

// NewAttributeFilter 创建叶子过滤器。att 必须为 table.column，最多一个条件
func NewAttributeFilter(att string, conds ...Condition) (*AttributeFilter, error) {
	table, column, ok := strings.Cut(att, ".")
	if !ok || strings.Contains(column, ".") {
		return nil, fmt.Errorf("%w: attribute %q must be in table.column form", index.ErrValidation, att)
	}
	if !identifierPattern.MatchString(table) || !identifierPattern.MatchString(column) {
		return nil, fmt.Errorf("%w: attribute %q is not a valid identifier pair", index.ErrValidation, att)
	}
	if len(conds) > 1 {
		return nil, fmt.Errorf("%w: attribute %q takes at most one condition, got %d", index.ErrValidation, att, len(conds))
	}

	f := &AttributeFilter{Attribute: att, Table: table, Column: column, Op: OpNotNull}
	if len(conds) == 1 {
		switch conds[0].Op {
		case OpEq, OpLt, OpLeq, OpGt, OpGeq:
		default:
			return nil, fmt.Errorf("%w: unsupported operator %q", index.ErrValidation, conds[0].Op)
		}
		if conds[0].Value == nil {
			return nil, fmt.Errorf("%w: attribute %q %s needs a value", index.ErrValidation, att, conds[0].Op)
		}
		f.Op = conds[0].Op
		f.Value = conds[0].Value
	}
	return f, nil
}

func (f *AttributeFilter) String() string {
	if f.Op == OpNotNull {
		return f.Attribute + " " + string(OpNotNull)
	}
	return fmt.Sprintf("%s %s %v", f.Attribute, f.Op, f.Value)
}

func (*AttributeFilter) sealed() {}

// AndFilter 两个过滤器的交集
type AndFilter struct {
	Left, Right Filter
}

// OrFilter 两个过滤器的并集
type OrFilter struct {
	Left, Right Filter
}

// And 组合为 AndFilter
func And(left, right Filter) *AndFilter { return &AndFilter{Left: left, Right: right} }

// Or 组合为 OrFilter
func Or(left, right Filter) *OrFilter { return &OrFilter{Left: left, Right: right} }

func (f *AndFilter) String() string { return fmt.Sprintf("AndFilter<%s, %s>", f.Left, f.Right) }
func (f *OrFilter) String() string  { return fmt.Sprintf("OrFilter<%s, %s>", f.Left, f.Right) }

func (*AndFilter) sealed() {}
func (*OrFilter) sealed()  {}

// 按长度从长到短匹配，避免 ">=" 被识别为 ">"
var exprOps = []Op{OpGeq, OpLeq, OpEq, OpGt, OpLt}

// ParseAttributeFilter 解析命令行表达式，如 "sec_dprc.prccd>=5"、"security.exchg=11"、"sec_dprc.prccd"。
// 数值阈值解析为 decimal，其余按字符串处理（含 "001690" 这类补零代码）
func ParseAttributeFilter(expr string) (*AttributeFilter, error) {
	expr = strings.TrimSpace(expr)
	for _, op := range exprOps {
		att, raw, ok := strings.Cut(expr, string(op))
		if !ok {
			continue
		}
		att, raw = strings.TrimSpace(att), strings.TrimSpace(raw)
		if raw == "" {
			return nil, fmt.Errorf("%w: expression %q has no value", index.ErrValidation, expr)
		}
		return NewAttributeFilter(att, Condition{Op: op, Value: parseValue(raw)})
	}
	return NewAttributeFilter(expr)
}

func parseValue(raw string) any {
	if len(raw) > 1 && raw[0] == '0' && raw[1] != '.' {
		return raw
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return d
	}
	return raw
}
