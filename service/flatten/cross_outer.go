package flatten

// CrossOuter 保留式外部叉乘组合子
// 子集合为空时以nil子项保留原行（外连接语义），否则对每个子项展开一行
// 展平引擎在附加费、出局、接杀手三个可选层级上复用同一组合子
func CrossOuter[R any, C any](rows []R, childrenOf func(R) []C, combine func(R, *C) R) []R {
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		children := childrenOf(row)
		if len(children) == 0 {
			out = append(out, combine(row, nil))
			continue
		}
		for idx := range children {
			out = append(out, combine(row, &children[idx]))
		}
	}
	return out
}
