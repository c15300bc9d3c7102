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

// refinementTemplate 细化模板: 编码位图部分与参考位图部分
type refinementTemplate struct {
	coding    []Point
	reference []Point
}

// kRefinementTemplates 细化模板0与1, 不含AT像素
var kRefinementTemplates = [2]refinementTemplate{
	{
		coding:    []Point{{0, -1}, {1, -1}, {-1, 0}},
		reference: []Point{{0, -1}, {1, -1}, {-1, 0}, {0, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}},
	},
	{
		coding:    []Point{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}},
		reference: []Point{{0, -1}, {-1, 0}, {0, 0}, {1, 0}, {0, 1}, {1, 1}},
	},
}

// kRefinementTypicalContexts TPGRON伪像素上下文
var kRefinementTypicalContexts = [2]int{0x0020, 0x0008}

// GRRDProc 通用细化区域解码过程
type GRRDProc struct {
	Width     int
	Height    int
	Template  uint8
	Reference *Image
	DX        int
	DY        int
	TPGRON    bool
	AT        []Point
}

// Decode 以参考位图解码细化位图
// 入参: dc 解码上下文
// 返回: *Image 位图, error 错误信息
func (g *GRRDProc) Decode(dc *DecodingContext) (*Image, error) {
	if g.Template > 1 {
		return nil, FormatError(fmt.Sprintf("refinement template %d", g.Template))
	}
	if g.Reference == nil {
		return nil, FormatError("refinement without a reference bitmap")
	}
	tmpl := kRefinementTemplates[g.Template]
	coding, reference := tmpl.coding, tmpl.reference
	if g.Template == 0 {
		if len(g.AT) < 2 {
			return nil, FormatError("refinement template 0 needs 2 AT pixels")
		}
		coding = append(coding[:len(coding):len(coding)], g.AT[0])
		reference = append(reference[:len(reference):len(reference)], g.AT[1])
	}
	img := NewImage(g.Width, g.Height)
	decoder := dc.Decoder()
	cx := dc.contexts(procGR)
	pseudo := kRefinementTypicalContexts[g.Template]
	ltp := 0
	for y := 0; y < g.Height; y++ {
		if g.TPGRON {
			ltp ^= decoder.Decode(&cx[pseudo])
			if ltp != 0 {
				return nil, UnsupportedError("prediction is not supported")
			}
		}
		row := img.Row(y)
		for x := 0; x < g.Width; x++ {
			label := 0
			for _, p := range coding {
				label = label<<1 | img.GetPixel(x+p.X, y+p.Y)
			}
			for _, p := range reference {
				label = label<<1 | g.Reference.GetPixel(x+p.X-g.DX, y+p.Y-g.DY)
			}
			if decoder.Decode(&cx[label]) != 0 {
				row[x>>3] |= 0x80 >> uint(x&7)
			}
		}
	}
	return img, nil
}
