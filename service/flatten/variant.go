/*
 * @module service/flatten/variant
 * @description 半结构化值的带标签封装，对任意嵌套路径提供空值安全的访问器
 * @architecture 分层数仓 - 展平引擎基础设施
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 原始JSONB -> 路径访问 -> (值, 是否存在)
 * @rules 访问缺失路径返回空Variant而非panic；标量转换失败视为缺失
 * @dependencies github.com/spf13/cast
 * @refs service/flatten
 */

package flatten

import (
	"cricketdw-service/service/models"

	"github.com/spf13/cast"
)

// Variant 解码后JSON值的封装，零值表示缺失
type Variant struct {
	v interface{}
}

// V 包装任意解码后的JSON值
func V(v interface{}) Variant {
	return Variant{v: v}
}

// IsNull 值是否缺失
func (x Variant) IsNull() bool {
	return x.v == nil
}

// Field 访问对象字段，非对象或字段缺失时返回空Variant
func (x Variant) Field(name string) Variant {
	switch m := x.v.(type) {
	case map[string]interface{}:
		return Variant{v: m[name]}
	case models.JSONB:
		return Variant{v: m[name]}
	}
	return Variant{}
}

// Index 访问数组元素，越界或非数组时返回空Variant
func (x Variant) Index(i int) Variant {
	arr := x.rawSlice()
	if i < 0 || i >= len(arr) {
		return Variant{}
	}
	return Variant{v: arr[i]}
}

// Array 将值作为数组展开，非数组时返回空切片
func (x Variant) Array() []Variant {
	arr := x.rawSlice()
	out := make([]Variant, 0, len(arr))
	for _, item := range arr {
		out = append(out, Variant{v: item})
	}
	return out
}

// Map 将值作为对象返回，非对象时返回nil
func (x Variant) Map() map[string]interface{} {
	switch m := x.v.(type) {
	case map[string]interface{}:
		return m
	case models.JSONB:
		return m
	}
	return nil
}

// AsString 标量转字符串，缺失或不可转换时second返回false
func (x Variant) AsString() (string, bool) {
	if x.v == nil {
		return "", false
	}
	s, err := cast.ToStringE(x.v)
	if err != nil {
		return "", false
	}
	return s, true
}

// StringOr 标量转字符串，失败时返回默认值
func (x Variant) StringOr(def string) string {
	if s, ok := x.AsString(); ok {
		return s
	}
	return def
}

// StringPtr 标量转字符串指针，缺失时返回nil
func (x Variant) StringPtr() *string {
	if s, ok := x.AsString(); ok {
		return &s
	}
	return nil
}

// AsInt 标量转整数，缺失或不可转换时second返回false
func (x Variant) AsInt() (int, bool) {
	if x.v == nil {
		return 0, false
	}
	n, err := cast.ToIntE(x.v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IntOr 标量转整数，失败时返回默认值
func (x Variant) IntOr(def int) int {
	if n, ok := x.AsInt(); ok {
		return n
	}
	return def
}

func (x Variant) rawSlice() []interface{} {
	switch arr := x.v.(type) {
	case []interface{}:
		return arr
	case models.JSONBGenericArray:
		return arr
	}
	return nil
}
