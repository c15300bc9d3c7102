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

import (
	"fmt"
	"sort"
)

// kCodingTemplates 通用区域模板0至3的固定像素, 不含AT像素
var kCodingTemplates = [4][]Point{
	{
		{-1, -2}, {0, -2}, {1, -2},
		{-2, -1}, {-1, -1}, {0, -1}, {1, -1}, {2, -1},
		{-4, 0}, {-3, 0}, {-2, 0}, {-1, 0},
	},
	{
		{-1, -2}, {0, -2}, {1, -2}, {2, -2},
		{-2, -1}, {-1, -1}, {0, -1}, {1, -1}, {2, -1},
		{-3, 0}, {-2, 0}, {-1, 0},
	},
	{
		{-1, -2}, {0, -2}, {1, -2},
		{-2, -1}, {-1, -1}, {0, -1}, {1, -1},
		{-2, 0}, {-1, 0},
	},
	{
		{-3, -1}, {-2, -1}, {-1, -1}, {0, -1}, {1, -1},
		{-4, 0}, {-3, 0}, {-2, 0}, {-1, 0},
	},
}

// kTypicalContexts TPGDON伪像素上下文
var kTypicalContexts = [4]int{0x9b25, 0x0795, 0x00e5, 0x0195}

// kNominalAT0 模板0的标称AT像素
var kNominalAT0 = [4]Point{{3, -1}, {-3, -1}, {2, -2}, {-2, -2}}

// GRDProc 通用区域解码过程
type GRDProc struct {
	MMR      bool
	Width    int
	Height   int
	Template uint8
	TPGDON   bool
	Skip     *Image
	AT       []Point
}

// Decode 解码通用区域位图
// 入参: dc 解码上下文
// 返回: *Image 位图, error 错误信息
func (g *GRDProc) Decode(dc *DecodingContext) (*Image, error) {
	if g.MMR {
		return decodeMMR(dc.Stream(), g.Width, g.Height, false)
	}
	if g.Template > 3 {
		return nil, FormatError(fmt.Sprintf("generic region template %d", g.Template))
	}
	if len(g.AT) != atCount(g.Template) {
		return nil, FormatError(fmt.Sprintf("template %d needs %d AT pixels, got %d", g.Template, atCount(g.Template), len(g.AT)))
	}
	for _, p := range g.AT {
		if p.Y > 0 || (p.Y == 0 && p.X >= 0) {
			return nil, FormatError(fmt.Sprintf("AT pixel (%d,%d) is not yet decoded", p.X, p.Y))
		}
	}
	if g.useTemplate0Fast() {
		return g.decodeTemplate0(dc), nil
	}
	return g.decodeGeneric(dc), nil
}

// useTemplate0Fast 是否可用模板0快速路径
func (g *GRDProc) useTemplate0Fast() bool {
	if g.Template != 0 || g.TPGDON || g.Skip != nil {
		return false
	}
	for i, p := range kNominalAT0 {
		if g.AT[i] != p {
			return false
		}
	}
	return true
}

// rowPixel 读取打包行中的像素, 行为nil或越界时为0
func rowPixel(row []byte, x, width int) int {
	if row == nil || x < 0 || x >= width {
		return 0
	}
	return int(row[x>>3]>>(7-uint(x&7))) & 1
}

// decodeTemplate0 模板0标称AT的展开解码
// 上下文位: 15..11 为 y-2 行的 x-2..x+2, 10..4 为 y-1 行的 x-3..x+3, 3..0 为当前行 x-4..x-1
func (g *GRDProc) decodeTemplate0(dc *DecodingContext) *Image {
	const oldPixelMask = 0x7bf7
	img := NewImage(g.Width, g.Height)
	decoder := dc.Decoder()
	cx := dc.contexts(procGB)
	w := g.Width
	for y := 0; y < g.Height; y++ {
		row := img.Row(y)
		var row1, row2 []byte
		if y >= 1 {
			row1 = img.Row(y - 1)
		}
		if y >= 2 {
			row2 = img.Row(y - 2)
		}
		label := rowPixel(row2, 0, w)<<13 | rowPixel(row2, 1, w)<<12 | rowPixel(row2, 2, w)<<11 |
			rowPixel(row1, 0, w)<<7 | rowPixel(row1, 1, w)<<6 | rowPixel(row1, 2, w)<<5 | rowPixel(row1, 3, w)<<4
		for x := 0; x < w; x++ {
			pixel := decoder.Decode(&cx[label])
			if pixel != 0 {
				row[x>>3] |= 0x80 >> uint(x&7)
			}
			label = (label&oldPixelMask)<<1 | rowPixel(row2, x+3, w)<<11 | rowPixel(row1, x+4, w)<<4 | pixel
		}
	}
	return img
}

// decodeGeneric 通用上下文构建路径
// 模板按(y,x)排序, 相邻像素的上下文只需左移并补入变化的模板位
func (g *GRDProc) decodeGeneric(dc *DecodingContext) *Image {
	template := make([]Point, 0, len(kCodingTemplates[g.Template])+len(g.AT))
	template = append(template, kCodingTemplates[g.Template]...)
	template = append(template, g.AT...)
	sort.SliceStable(template, func(a, b int) bool {
		if template[a].Y != template[b].Y {
			return template[a].Y < template[b].Y
		}
		return template[a].X < template[b].X
	})
	n := len(template)
	reuseMask := 0
	minX, maxX, minY := 0, 0, 0
	var changing []int
	for k, p := range template {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		if k < n-1 && p.Y == template[k+1].Y && p.X == template[k+1].X-1 {
			reuseMask |= 1 << uint(n-1-k)
		} else {
			changing = append(changing, k)
		}
	}
	// 安全框内所有模板像素都在位图内
	boxLeft, boxTop, boxRight := -minX, -minY, g.Width-maxX

	img := NewImage(g.Width, g.Height)
	decoder := dc.Decoder()
	cx := dc.contexts(procGB)
	pseudo := kTypicalContexts[g.Template]
	ltp := 0
	for y := 0; y < g.Height; y++ {
		if g.TPGDON {
			ltp ^= decoder.Decode(&cx[pseudo])
			if ltp != 0 {
				img.CopyLine(y, y-1)
				continue
			}
		}
		row := img.Row(y)
		label := 0
		labelValid := false
		for x := 0; x < g.Width; x++ {
			if g.Skip != nil && g.Skip.GetPixel(x, y) != 0 {
				labelValid = false
				continue
			}
			if labelValid && x >= boxLeft && x < boxRight && y >= boxTop {
				label = (label << 1) & reuseMask
				for _, k := range changing {
					if img.GetPixel(x+template[k].X, y+template[k].Y) != 0 {
						label |= 1 << uint(n-1-k)
					}
				}
			} else {
				label = 0
				for k, p := range template {
					if img.GetPixel(x+p.X, y+p.Y) != 0 {
						label |= 1 << uint(n-1-k)
					}
				}
			}
			labelValid = true
			if decoder.Decode(&cx[label]) != 0 {
				row[x>>3] |= 0x80 >> uint(x&7)
			}
		}
	}
	return img
}
