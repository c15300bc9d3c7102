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

// TRDProc 文本区域解码过程
type TRDProc struct {
	Huffman          bool
	Refinement       bool
	Width            int
	Height           int
	DefaultPixel     bool
	NumInstances     uint32
	LogStripSize     uint8
	Symbols          []*Image
	SymbolCodeLength int
	Transposed       bool
	DSOffset         int32
	Corner           Corner
	CombOp           ComposeOp
	RefTemplate      uint8
	RefAT            []Point
	Tables           *textRegionTables
	MaxPixels        int
}

// Decode 解码文本区域位图
// 入参: dc 解码上下文
// 返回: *Image 区域位图, error 错误信息
func (t *TRDProc) Decode(dc *DecodingContext) (*Image, error) {
	if t.Huffman && t.Refinement {
		return nil, UnsupportedError("refinement with Huffman coding")
	}
	if t.Huffman && t.Tables == nil {
		return nil, FormatError("Huffman text region without tables")
	}
	if t.NumInstances > 0 && t.CombOp != ComposeOr && t.CombOp != ComposeXor {
		return nil, UnsupportedError(fmt.Sprintf("text region operator %v", t.CombOp))
	}
	region := NewImage(t.Width, t.Height)
	region.Fill(t.DefaultPixel)
	strips := int64(1) << t.LogStripSize

	dt, err := t.requireNumber(dc, procIADT, t.deltaT())
	if err != nil {
		return nil, err
	}
	stripT := -int64(dt) * strips
	var firstS int64
	var placed uint32
	for placed < t.NumInstances {
		if dc.exhausted() {
			return nil, FormatError("text region data ended before all instances")
		}
		if dt, err = t.requireNumber(dc, procIADT, t.deltaT()); err != nil {
			return nil, err
		}
		stripT += int64(dt) * strips
		fs, err := t.requireNumber(dc, procIAFS, t.firstS())
		if err != nil {
			return nil, err
		}
		firstS += int64(fs)
		curS := firstS
		for {
			var curT int64
			if strips > 1 {
				if curT, err = t.decodeStripT(dc); err != nil {
					return nil, err
				}
			}
			sym, err := t.decodeSymbol(dc)
			if err != nil {
				return nil, err
			}
			curS = t.place(region, sym, curS, stripT+curT)
			placed++
			ds, ok, err := t.decodeNumber(dc, procIADS, t.deltaS())
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if dc.exhausted() {
				return nil, FormatError("text region strip has no end")
			}
			curS += int64(ds) + int64(t.DSOffset)
		}
	}
	return region, nil
}

func (t *TRDProc) deltaT() *HuffmanTable {
	if t.Tables == nil {
		return nil
	}
	return t.Tables.DeltaT
}

func (t *TRDProc) firstS() *HuffmanTable {
	if t.Tables == nil {
		return nil
	}
	return t.Tables.FirstS
}

func (t *TRDProc) deltaS() *HuffmanTable {
	if t.Tables == nil {
		return nil
	}
	return t.Tables.DeltaS
}

// decodeNumber 按编码方式解码整数, ok为false表示OOB
func (t *TRDProc) decodeNumber(dc *DecodingContext, p procedure, table *HuffmanTable) (int32, bool, error) {
	if t.Huffman {
		return table.Decode(dc.Stream())
	}
	v, ok := dc.decodeInt(p)
	return v, ok, nil
}

// requireNumber 解码不允许OOB的整数
func (t *TRDProc) requireNumber(dc *DecodingContext, p procedure, table *HuffmanTable) (int32, error) {
	v, ok, err := t.decodeNumber(dc, p, table)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, FormatError("unexpected OOB in text region")
	}
	return v, nil
}

// decodeStripT 解码条带内的T坐标
func (t *TRDProc) decodeStripT(dc *DecodingContext) (int64, error) {
	if t.Huffman {
		v, err := dc.Stream().ReadBits(int(t.LogStripSize))
		return int64(v), err
	}
	v, err := t.requireNumber(dc, procIAIT, nil)
	return int64(v), err
}

// decodeSymbol 解码符号ID, 需要时细化符号位图
func (t *TRDProc) decodeSymbol(dc *DecodingContext) (*Image, error) {
	var id uint32
	if t.Huffman {
		v, err := t.Tables.SymbolID.decodeValue(dc.Stream())
		if err != nil {
			return nil, err
		}
		id = uint32(v)
	} else {
		id = dc.decodeIAID(t.SymbolCodeLength)
	}
	if id >= uint32(len(t.Symbols)) {
		return nil, FormatError(fmt.Sprintf("symbol ID %d out of %d symbols", id, len(t.Symbols)))
	}
	sym := t.Symbols[id]
	if !t.Refinement {
		return sym, nil
	}
	ri, err := t.requireNumber(dc, procIARI, nil)
	if err != nil || ri == 0 {
		return sym, err
	}
	return t.refine(dc, sym)
}

// refine 以符号为参考解码细化后的实例位图(6.4.11)
func (t *TRDProc) refine(dc *DecodingContext, sym *Image) (*Image, error) {
	var d [4]int32
	for i, p := range [4]procedure{procIARDW, procIARDH, procIARDX, procIARDY} {
		v, err := t.requireNumber(dc, p, nil)
		if err != nil {
			return nil, err
		}
		d[i] = v
	}
	rdw, rdh, rdx, rdy := d[0], d[1], d[2], d[3]
	w := int64(sym.Width()) + int64(rdw)
	h := int64(sym.Height()) + int64(rdh)
	maxPixels := t.MaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	if w < 0 || h < 0 || w*h > int64(maxPixels) {
		return nil, FormatError(fmt.Sprintf("refined symbol size %dx%d", w, h))
	}
	g := &GRRDProc{
		Width:     int(w),
		Height:    int(h),
		Template:  t.RefTemplate,
		Reference: sym,
		DX:        int(rdw>>1) + int(rdx),
		DY:        int(rdh>>1) + int(rdy),
		AT:        t.RefAT,
	}
	return g.Decode(dc)
}

// place 按参考角放置符号实例, 返回更新后的当前S坐标(6.4.5)
func (t *TRDProc) place(region, sym *Image, curS, ti int64) int64 {
	w, h := int64(sym.Width()), int64(sym.Height())
	right, top := t.Corner.isRight(), t.Corner.isTop()
	if !t.Transposed && right {
		curS += w - 1
	} else if t.Transposed && !top {
		curS += h - 1
	}
	si := curS
	x, y := si, ti
	if t.Transposed {
		x, y = ti, si
	}
	if right {
		x -= w - 1
	}
	if !top {
		y -= h - 1
	}
	if x > -w && x < int64(region.Width()) && y > -h && y < int64(region.Height()) {
		region.ComposeFrom(int(x), int(y), sym, t.CombOp)
	}
	if !t.Transposed && !right {
		curS += w - 1
	} else if t.Transposed && top {
		curS += h - 1
	}
	return curS
}
