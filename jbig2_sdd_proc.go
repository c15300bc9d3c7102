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
	"log/slog"
)

// SDDProc 符号字典解码过程
type SDDProc struct {
	Huffman     bool
	Refinement  bool
	Inputs      []*Image
	NumNew      uint32
	NumExported uint32
	Template    uint8
	AT          []Point
	RefTemplate uint8
	RefAT       []Point
	Tables      *symbolDictTables
	MaxPixels   int
	Logger      *slog.Logger
}

// Decode 解码新符号并返回导出符号
// 入参: dc 解码上下文
// 返回: []*Image 按输入与新符号顺序排列的导出符号, error 错误信息
func (s *SDDProc) Decode(dc *DecodingContext) ([]*Image, error) {
	if s.Huffman && s.Refinement {
		return nil, UnsupportedError("symbol refinement with Huffman coding")
	}
	if s.Huffman && s.Tables == nil {
		return nil, FormatError("Huffman symbol dictionary without tables")
	}
	maxPixels := int64(s.maxPixels())
	total := int64(len(s.Inputs)) + int64(s.NumNew)
	if total > 1<<32 {
		return nil, FormatError(fmt.Sprintf("symbol dictionary holds %d symbols", total))
	}
	codeLen := log2Ceil(int(total))
	newSyms := make([]*Image, 0, min(int(s.NumNew), 1024))
	var height int64
	for uint32(len(newSyms)) < s.NumNew {
		if dc.exhausted() {
			return nil, FormatError("symbol dictionary data ended before all symbols")
		}
		dh, err := s.requireNumber(dc, procIADH, s.table(func(t *symbolDictTables) *HuffmanTable { return t.DeltaHeight }))
		if err != nil {
			return nil, err
		}
		height += int64(dh)
		if height < 0 || height > maxPixels {
			return nil, FormatError(fmt.Sprintf("symbol height class %d", height))
		}
		var width, totalWidth int64
		var widths []int
		for {
			dw, ok, err := s.decodeNumber(dc, procIADW, s.table(func(t *symbolDictTables) *HuffmanTable { return t.DeltaWidth }))
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if uint32(len(newSyms)+len(widths)) >= s.NumNew {
				return nil, FormatError(fmt.Sprintf("height class holds more than %d new symbols", s.NumNew))
			}
			if dc.exhausted() {
				return nil, FormatError("symbol dictionary height class has no end")
			}
			width += int64(dw)
			totalWidth += width
			if width < 0 || totalWidth*height > maxPixels {
				return nil, FormatError(fmt.Sprintf("symbol width %d in height class %d", width, height))
			}
			if s.Huffman {
				widths = append(widths, int(width))
				continue
			}
			var img *Image
			if s.Refinement {
				img, err = s.decodeRefined(dc, int(width), int(height), newSyms, codeLen)
			} else {
				g := &GRDProc{Width: int(width), Height: int(height), Template: s.Template, AT: s.AT}
				img, err = g.Decode(dc)
			}
			if err != nil {
				return nil, err
			}
			newSyms = append(newSyms, img)
		}
		if s.Huffman {
			class, err := s.decodeCollective(dc.Stream(), widths, int(totalWidth), int(height))
			if err != nil {
				return nil, err
			}
			newSyms = append(newSyms, class...)
		}
	}
	return s.exportSymbols(dc, newSyms)
}

func (s *SDDProc) maxPixels() int {
	if s.MaxPixels <= 0 {
		return defaultMaxPixels
	}
	return s.MaxPixels
}

// table 霍夫曼模式下取表, 算术模式返回nil
func (s *SDDProc) table(pick func(*symbolDictTables) *HuffmanTable) *HuffmanTable {
	if !s.Huffman {
		return nil
	}
	return pick(s.Tables)
}

// decodeNumber 按编码方式解码整数, ok为false表示OOB
func (s *SDDProc) decodeNumber(dc *DecodingContext, p procedure, table *HuffmanTable) (int32, bool, error) {
	if s.Huffman {
		return table.Decode(dc.Stream())
	}
	v, ok := dc.decodeInt(p)
	return v, ok, nil
}

func (s *SDDProc) requireNumber(dc *DecodingContext, p procedure, table *HuffmanTable) (int32, error) {
	v, ok, err := s.decodeNumber(dc, p, table)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, FormatError("unexpected OOB in symbol dictionary")
	}
	return v, nil
}

// decodeRefined 细化或聚合编码的符号位图(6.5.8.2)
func (s *SDDProc) decodeRefined(dc *DecodingContext, width, height int, newSyms []*Image, codeLen int) (*Image, error) {
	n, err := s.requireNumber(dc, procIAAI, nil)
	if err != nil {
		return nil, err
	}
	symbols := make([]*Image, 0, len(s.Inputs)+len(newSyms))
	symbols = append(symbols, s.Inputs...)
	symbols = append(symbols, newSyms...)
	if n > 1 {
		t := &TRDProc{
			Refinement:       true,
			Width:            width,
			Height:           height,
			NumInstances:     uint32(n),
			Symbols:          symbols,
			SymbolCodeLength: codeLen,
			Corner:           CornerTopLeft,
			CombOp:           ComposeOr,
			RefTemplate:      s.RefTemplate,
			RefAT:            s.RefAT,
			MaxPixels:        s.MaxPixels,
		}
		return t.Decode(dc)
	}
	id := dc.decodeIAID(codeLen)
	rdx, err := s.requireNumber(dc, procIARDX, nil)
	if err != nil {
		return nil, err
	}
	rdy, err := s.requireNumber(dc, procIARDY, nil)
	if err != nil {
		return nil, err
	}
	if id >= uint32(len(symbols)) {
		return nil, FormatError(fmt.Sprintf("refinement symbol ID %d out of %d symbols", id, len(symbols)))
	}
	g := &GRRDProc{
		Width:     width,
		Height:    height,
		Template:  s.RefTemplate,
		Reference: symbols[id],
		DX:        int(rdx),
		DY:        int(rdy),
		AT:        s.RefAT,
	}
	return g.Decode(dc)
}

// decodeCollective 解码高度类的集合位图并按宽度切分(6.5.9)
func (s *SDDProc) decodeCollective(bs *BitStream, widths []int, totalWidth, height int) ([]*Image, error) {
	size, err := s.Tables.BitmapSize.decodeValue(bs)
	if err != nil {
		return nil, err
	}
	bs.AlignByte()
	var collective *Image
	if size == 0 {
		if collective, err = readUncompressedBitmap(bs, totalWidth, height); err != nil {
			return nil, err
		}
	} else {
		if size < 0 || int(size) > bs.Remaining() {
			return nil, FormatError(fmt.Sprintf("collective bitmap size %d exceeds segment", size))
		}
		start := bs.Offset()
		sub := NewBitStream(bs.data, start, start+int(size))
		if collective, err = decodeMMR(sub, totalWidth, height, false); err != nil {
			return nil, err
		}
		bs.SetOffset(start + int(size))
	}
	out := make([]*Image, 0, len(widths))
	x := 0
	for _, w := range widths {
		out = append(out, collective.SubImage(x, 0, w, height))
		x += w
	}
	return out, nil
}

// readUncompressedBitmap 读取未压缩位图, 每行按字节对齐
func readUncompressedBitmap(bs *BitStream, width, height int) (*Image, error) {
	img := NewImage(width, height)
	if width == 0 {
		return img, nil
	}
	tailMask := byte(0xFF)
	if tail := width & 7; tail != 0 {
		tailMask = 0xFF << uint(8-tail)
	}
	for y := 0; y < height; y++ {
		row := img.Row(y)
		for i := range row {
			b, err := bs.ReadByte()
			if err != nil {
				return nil, err
			}
			row[i] = b
		}
		row[len(row)-1] &= tailMask
	}
	return img, nil
}

// exportSymbols 解码导出标志游程并收集导出符号(6.5.10)
func (s *SDDProc) exportSymbols(dc *DecodingContext, newSyms []*Image) ([]*Image, error) {
	var b1 *HuffmanTable
	if s.Huffman {
		var err error
		if b1, err = StandardTable(1); err != nil {
			return nil, err
		}
	}
	total := len(s.Inputs) + len(newSyms)
	exported := make([]*Image, 0, min(int(s.NumExported), total))
	export := false
	for i := 0; i < total; {
		if dc.exhausted() {
			return nil, FormatError("export flags ended early")
		}
		run, ok, err := s.decodeNumber(dc, procIAEX, b1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, FormatError("OOB in export flags")
		}
		if run < 0 || int64(i)+int64(run) > int64(total) {
			return nil, FormatError(fmt.Sprintf("export run %d overshoots %d symbols", run, total))
		}
		if export {
			for j := i; j < i+int(run); j++ {
				if j < len(s.Inputs) {
					exported = append(exported, s.Inputs[j])
				} else {
					exported = append(exported, newSyms[j-len(s.Inputs)])
				}
			}
		}
		i += int(run)
		export = !export
	}
	if uint32(len(exported)) != s.NumExported && s.Logger != nil {
		s.Logger.Warn("jbig2: exported symbol count differs from header",
			slog.Int("exported", len(exported)), slog.Uint64("declared", uint64(s.NumExported)))
	}
	return exported, nil
}
