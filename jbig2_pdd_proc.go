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

import "fmt"

// PDDProc 模式字典解码过程
type PDDProc struct {
	MMR           bool
	Template      uint8
	PatternWidth  int
	PatternHeight int
	MaxIndex      uint32
	MaxPixels     int
}

// Decode 解码集合位图并切分为等宽模式(6.7.5)
// 入参: dc 解码上下文
// 返回: *PatternDict 模式字典, error 错误信息
func (p *PDDProc) Decode(dc *DecodingContext) (*PatternDict, error) {
	if p.PatternWidth == 0 || p.PatternHeight == 0 {
		return nil, FormatError(fmt.Sprintf("pattern size %dx%d", p.PatternWidth, p.PatternHeight))
	}
	maxPixels := p.MaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	count := int64(p.MaxIndex) + 1
	width := count * int64(p.PatternWidth)
	if width*int64(p.PatternHeight) > int64(maxPixels) {
		return nil, FormatError(fmt.Sprintf("%d patterns of %dx%d exceed pixel limit", count, p.PatternWidth, p.PatternHeight))
	}
	g := &GRDProc{MMR: p.MMR, Width: int(width), Height: p.PatternHeight, Template: p.Template}
	if !p.MMR {
		g.AT = []Point{{X: -p.PatternWidth, Y: 0}}
		if p.Template == 0 {
			g.AT = append(g.AT, Point{-3, -1}, Point{2, -2}, Point{-2, -2})
		}
	}
	collective, err := g.Decode(dc)
	if err != nil {
		return nil, err
	}
	dict := &PatternDict{
		Width:    p.PatternWidth,
		Height:   p.PatternHeight,
		Patterns: make([]*Image, count),
	}
	for i := range dict.Patterns {
		dict.Patterns[i] = collective.SubImage(i*p.PatternWidth, 0, p.PatternWidth, p.PatternHeight)
	}
	return dict, nil
}
