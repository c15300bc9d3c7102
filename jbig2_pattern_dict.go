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

// PatternDict 模式字典, 所有模式尺寸相同
type PatternDict struct {
	Width    int
	Height   int
	Patterns []*Image
}

// NumPatterns 获取模式数量
func (p *PatternDict) NumPatterns() int {
	return len(p.Patterns)
}

// mergePatternDicts 按引用顺序合并多个模式字典
func mergePatternDicts(dicts []*PatternDict) (*PatternDict, error) {
	if len(dicts) == 0 {
		return nil, FormatError("halftone region refers to no pattern dictionary")
	}
	if len(dicts) == 1 {
		return dicts[0], nil
	}
	merged := &PatternDict{Width: dicts[0].Width, Height: dicts[0].Height}
	for _, d := range dicts {
		if d.Width != merged.Width || d.Height != merged.Height {
			return nil, FormatError("referred pattern dictionaries differ in pattern size")
		}
		merged.Patterns = append(merged.Patterns, d.Patterns...)
	}
	return merged, nil
}
