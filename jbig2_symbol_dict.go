// Copyright 2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbig2dec

// SymbolDict 符号字典段的导出结果
type SymbolDict struct {
	Images []*Image
	// 保留的算术概率表, 仅在段要求保留时非空
	gbContexts []ArithCtx
	grContexts []ArithCtx
}

// NumImages 获取字典中的符号数量
func (s *SymbolDict) NumImages() int {
	return len(s.Images)
}

// retainContexts 保存解码结束时的概率表
func (s *SymbolDict) retainContexts(dc *DecodingContext) {
	s.gbContexts = dc.snapshot(procGB)
	s.grContexts = dc.snapshot(procGR)
}

// hasRetainedContexts 是否保存了概率表
func (s *SymbolDict) hasRetainedContexts() bool {
	return s.gbContexts != nil
}

// restoreContexts 用保存的概率表初始化新的解码上下文
func (s *SymbolDict) restoreContexts(dc *DecodingContext) {
	dc.restore(procGB, s.gbContexts)
	dc.restore(procGR, s.grContexts)
}

// registry 以段号为键的只增表, 值存放在连续切片中
type registry[T any] struct {
	index map[uint32]int
	items []T
}

// put 登记段号对应的值, 同一段号以最后一次为准
func (r *registry[T]) put(number uint32, v T) {
	if r.index == nil {
		r.index = make(map[uint32]int)
	}
	if i, ok := r.index[number]; ok {
		r.items[i] = v
		return
	}
	r.index[number] = len(r.items)
	r.items = append(r.items, v)
}

// get 按段号查找
func (r *registry[T]) get(number uint32) (T, bool) {
	i, ok := r.index[number]
	if !ok {
		var zero T
		return zero, false
	}
	return r.items[i], true
}

// collect 按引用顺序收集已登记的值
func (r *registry[T]) collect(numbers []uint32) []T {
	var out []T
	for _, n := range numbers {
		if v, ok := r.get(n); ok {
			out = append(out, v)
		}
	}
	return out
}
