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

// HTRDProc 半色调区域解码过程
type HTRDProc struct {
	Width        int
	Height       int
	MMR          bool
	Template     uint8
	EnableSkip   bool
	CombOp       ComposeOp
	DefaultPixel bool
	GridWidth    uint32
	GridHeight   uint32
	GridX        int32
	GridY        int32
	VectorX      uint16
	VectorY      uint16
	Patterns     *PatternDict
	MaxPixels    int
}

// Decode 解码灰度位平面并按网格放置模式(6.6.5)
// 入参: dc 解码上下文
// 返回: *Image 区域位图, error 错误信息
func (h *HTRDProc) Decode(dc *DecodingContext) (*Image, error) {
	if h.EnableSkip {
		return nil, UnsupportedError("halftone skip")
	}
	if h.CombOp != ComposeOr {
		return nil, UnsupportedError(fmt.Sprintf("halftone operator %v", h.CombOp))
	}
	if h.Patterns == nil || h.Patterns.NumPatterns() == 0 {
		return nil, FormatError("halftone region without patterns")
	}
	maxPixels := h.MaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	if uint64(h.GridWidth)*uint64(h.GridHeight) > uint64(maxPixels) {
		return nil, FormatError(fmt.Sprintf("halftone grid %dx%d exceeds pixel limit", h.GridWidth, h.GridHeight))
	}
	planes, err := h.decodePlanes(dc)
	if err != nil {
		return nil, err
	}
	region := NewImage(h.Width, h.Height)
	region.Fill(h.DefaultPixel)
	numPatterns := h.Patterns.NumPatterns()
	pw, ph := int64(h.Patterns.Width), int64(h.Patterns.Height)
	for mg := int64(0); mg < int64(h.GridHeight); mg++ {
		for ng := int64(0); ng < int64(h.GridWidth); ng++ {
			idx := grayIndex(planes, int(ng), int(mg))
			if idx >= numPatterns {
				return nil, FormatError(fmt.Sprintf("pattern index %d out of %d patterns", idx, numPatterns))
			}
			x := (int64(h.GridX) + mg*int64(h.VectorY) + ng*int64(h.VectorX)) >> 8
			y := (int64(h.GridY) + mg*int64(h.VectorX) - ng*int64(h.VectorY)) >> 8
			if x+pw <= 0 || x >= int64(h.Width) || y+ph <= 0 || y >= int64(h.Height) {
				continue
			}
			region.ComposeFrom(int(x), int(y), h.Patterns.Patterns[idx], ComposeOr)
		}
	}
	return region, nil
}

// decodePlanes 从高位到低位解码灰度位平面
func (h *HTRDProc) decodePlanes(dc *DecodingContext) ([]*Image, error) {
	bpp := log2Ceil(h.Patterns.NumPatterns())
	planes := make([]*Image, bpp)
	gw, gh := int(h.GridWidth), int(h.GridHeight)
	var at []Point
	if !h.MMR {
		x := 2
		if h.Template <= 1 {
			x = 3
		}
		at = []Point{{X: x, Y: -1}}
		if h.Template == 0 {
			at = append(at, Point{-3, -1}, Point{2, -2}, Point{-2, -2})
		}
	}
	for j := bpp - 1; j >= 0; j-- {
		var err error
		if h.MMR {
			planes[j], err = decodeMMR(dc.Stream(), gw, gh, true)
		} else {
			g := &GRDProc{Width: gw, Height: gh, Template: h.Template, AT: at}
			planes[j], err = g.Decode(dc)
		}
		if err != nil {
			return nil, err
		}
	}
	return planes, nil
}

// grayIndex 由格雷码位平面还原网格单元的模式索引
// 入参: planes 位平面(下标即位权), x 网格列, y 网格行
// 返回: int 模式索引
func grayIndex(planes []*Image, x, y int) int {
	idx, bit := 0, 0
	for j := len(planes) - 1; j >= 0; j-- {
		bit ^= planes[j].GetPixel(x, y)
		idx |= bit << uint(j)
	}
	return idx
}
