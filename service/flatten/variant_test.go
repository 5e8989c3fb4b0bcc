/*
 * @module service/flatten/variant_test
 * @description 空值安全访问器与外部叉乘组合子的单元测试
 * @architecture 测试驱动开发
 * @stateFlow 测试准备 -> 访问路径构造 -> 取值验证
 * @rules 缺失路径上的任意访问必须返回空值而非崩溃
 * @dependencies testing, testify
 * @refs variant.go, cross_outer.go
 */

package flatten

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantNestedAccess(t *testing.T) {
	doc := map[string]interface{}{
		"outcome": map[string]interface{}{
			"winner": "South Africa",
			"by":     map[string]interface{}{"wickets": float64(5)},
		},
		"teams": []interface{}{"South Africa", "Canada"},
	}

	v := V(doc)
	assert.Equal(t, "South Africa", v.Field("outcome").Field("winner").StringOr(""))
	assert.Equal(t, 5, v.Field("outcome").Field("by").Field("wickets").IntOr(0))
	assert.Equal(t, "Canada", v.Field("teams").Index(1).StringOr(""))
}

func TestVariantMissingPath(t *testing.T) {
	v := V(map[string]interface{}{"a": 1})

	// 缺失路径上的链式访问不崩溃，返回默认值
	assert.True(t, v.Field("missing").IsNull())
	assert.Equal(t, "def", v.Field("missing").Field("deeper").Index(3).StringOr("def"))
	assert.Nil(t, v.Field("missing").StringPtr())

	_, ok := v.Field("missing").AsInt()
	assert.False(t, ok)
}

func TestVariantShapeMismatch(t *testing.T) {
	v := V(map[string]interface{}{
		"scalar": "text",
		"list":   []interface{}{"x"},
	})

	// 对标量取下标、对列表取字段均为空值
	assert.True(t, v.Field("scalar").Index(0).IsNull())
	assert.True(t, v.Field("list").Field("name").IsNull())
	assert.Empty(t, v.Field("scalar").Array())
	assert.Nil(t, v.Field("list").Map())
}

func TestCrossOuterEmptyChildren(t *testing.T) {
	rows := CrossOuter([]string{"a", "b"},
		func(string) []int { return nil },
		func(r string, c *int) string {
			if c == nil {
				return r + "-none"
			}
			return r
		})

	// 子层缺失时每行保留一条空值行
	assert.Equal(t, []string{"a-none", "b-none"}, rows)
}

func TestCrossOuterExpansion(t *testing.T) {
	rows := CrossOuter([]string{"a", "b"},
		func(string) []int { return []int{1, 2, 3} },
		func(r string, c *int) string {
			return r + string(rune('0'+*c))
		})

	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2", "b3"}, rows)
}
