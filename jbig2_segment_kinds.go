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

// segmentData 各类段解析后的字段记录
type segmentData interface {
	segmentKind() string
}

type symbolDictionarySegment struct {
	Huffman         bool
	Refinement      bool
	DHSelector      uint8
	DWSelector      uint8
	BMSizeSelector  uint8
	AggInstSelector uint8
	ContextUsed     bool
	ContextRetained bool
	Template        uint8
	RefTemplate     uint8
	AT              []Point
	RefAT           []Point
	NumExported     uint32
	NumNew          uint32
}

type textRegionSegment struct {
	Info         RegionInfo
	Huffman      bool
	Refinement   bool
	LogStripSize uint8
	Corner       Corner
	Transposed   bool
	CombOp       ComposeOp
	DefaultPixel bool
	DSOffset     int32
	RefTemplate  uint8
	FSSelector   uint8
	DSSelector   uint8
	DTSelector   uint8
	RDWSelector  uint8
	RDHSelector  uint8
	RDXSelector  uint8
	RDYSelector  uint8
	RSizeCustom  bool
	RefAT        []Point
	NumInstances uint32
}

type patternDictionarySegment struct {
	MMR           bool
	Template      uint8
	PatternWidth  uint8
	PatternHeight uint8
	MaxIndex      uint32
}

type halftoneRegionSegment struct {
	Info         RegionInfo
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
}

type genericRegionSegment struct {
	Info     RegionInfo
	MMR      bool
	Template uint8
	TPGDON   bool
	AT       []Point
}

type refinementRegionSegment struct {
	Info     RegionInfo
	Template uint8
	TPGRON   bool
	AT       []Point
}

type pageInformationSegment struct {
	Width          uint32
	Height         uint32
	ResolutionX    uint32
	ResolutionY    uint32
	Lossless       bool
	Refinement     bool
	DefaultPixel   bool
	CombOp         ComposeOp
	RequiresBuffer bool
	Override       bool
	Striped        bool
	MaxStripeSize  uint16
}

type endOfPageSegment struct{}

type endOfStripeSegment struct {
	EndRow uint32
}

type endOfFileSegment struct{}

type profilesSegment struct{}

type tablesSegment struct {
	Table *HuffmanTable
}

type extensionSegment struct {
	ExtensionType uint32
}

func (symbolDictionarySegment) segmentKind() string  { return "symbol dictionary" }
func (textRegionSegment) segmentKind() string        { return "text region" }
func (patternDictionarySegment) segmentKind() string { return "pattern dictionary" }
func (halftoneRegionSegment) segmentKind() string    { return "halftone region" }
func (genericRegionSegment) segmentKind() string     { return "generic region" }
func (refinementRegionSegment) segmentKind() string  { return "refinement region" }
func (pageInformationSegment) segmentKind() string   { return "page information" }
func (endOfPageSegment) segmentKind() string         { return "end of page" }
func (endOfStripeSegment) segmentKind() string       { return "end of stripe" }
func (endOfFileSegment) segmentKind() string         { return "end of file" }
func (profilesSegment) segmentKind() string          { return "profiles" }
func (tablesSegment) segmentKind() string            { return "tables" }
func (extensionSegment) segmentKind() string         { return "extension" }

// readATPixels 读取n对自适应模板像素偏移
func readATPixels(bs *BitStream, n int) ([]Point, error) {
	at := make([]Point, n)
	for i := range at {
		x, err := bs.ReadInt8()
		if err != nil {
			return nil, err
		}
		y, err := bs.ReadInt8()
		if err != nil {
			return nil, err
		}
		at[i] = Point{X: int(x), Y: int(y)}
	}
	return at, nil
}

// atCount 通用区域模板对应的AT像素数
func atCount(template uint8) int {
	if template == 0 {
		return 4
	}
	return 1
}

// parseSegmentData 解析段数据头部字段
// 入参: seg 段
// 返回: segmentData 字段记录, *BitStream 定位到字段之后的位流, error 错误信息
func parseSegmentData(seg *Segment) (segmentData, *BitStream, error) {
	bs := NewBitStream(seg.data, seg.start, seg.end)
	var (
		sd  segmentData
		err error
	)
	switch seg.Header.Type {
	case SegSymbolDictionary:
		sd, err = parseSymbolDictionary(bs)
	case SegIntermediateTextRegion, SegImmediateTextRegion, SegImmediateLosslessTextRegion:
		sd, err = parseTextRegion(bs)
	case SegPatternDictionary:
		sd, err = parsePatternDictionary(bs)
	case SegIntermediateHalftoneRegion, SegImmediateHalftoneRegion, SegImmediateLosslessHalftoneRegion:
		sd, err = parseHalftoneRegion(bs)
	case SegIntermediateGenericRegion, SegImmediateGenericRegion, SegImmediateLosslessGenericRegion:
		sd, err = parseGenericRegion(bs)
	case SegIntermediateRefinementRegion, SegImmediateRefinementRegion, SegImmediateLosslessRefinementRegion:
		sd, err = parseRefinementRegion(bs)
	case SegPageInformation:
		sd, err = parsePageInformation(bs)
	case SegEndOfPage:
		sd = endOfPageSegment{}
	case SegEndOfStripe:
		var row uint32
		row, err = bs.ReadUint32()
		sd = endOfStripeSegment{EndRow: row}
	case SegEndOfFile:
		sd = endOfFileSegment{}
	case SegProfiles:
		sd = profilesSegment{}
	case SegTables:
		var table *HuffmanTable
		table, err = DecodeTablesSegment(seg.data, seg.start, seg.end)
		sd = tablesSegment{Table: table}
	case SegExtension:
		var ext uint32
		ext, err = bs.ReadUint32()
		sd = extensionSegment{ExtensionType: ext}
	default:
		return nil, nil, FormatError(fmt.Sprintf("invalid segment type %d", seg.Header.Type))
	}
	if err != nil {
		return nil, nil, err
	}
	return sd, bs, nil
}

func parseSymbolDictionary(bs *BitStream) (*symbolDictionarySegment, error) {
	flags, err := bs.ReadUint16()
	if err != nil {
		return nil, err
	}
	sd := &symbolDictionarySegment{
		Huffman:         flags&1 != 0,
		Refinement:      flags&2 != 0,
		DHSelector:      uint8(flags>>2) & 3,
		DWSelector:      uint8(flags>>4) & 3,
		BMSizeSelector:  uint8(flags>>6) & 1,
		AggInstSelector: uint8(flags>>7) & 1,
		ContextUsed:     flags&0x100 != 0,
		ContextRetained: flags&0x200 != 0,
		Template:        uint8(flags>>10) & 3,
		RefTemplate:     uint8(flags>>12) & 1,
	}
	if !sd.Huffman {
		if sd.AT, err = readATPixels(bs, atCount(sd.Template)); err != nil {
			return nil, err
		}
	}
	if sd.Refinement && sd.RefTemplate == 0 {
		if sd.RefAT, err = readATPixels(bs, 2); err != nil {
			return nil, err
		}
	}
	if sd.NumExported, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	if sd.NumNew, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	return sd, nil
}

func parseTextRegion(bs *BitStream) (*textRegionSegment, error) {
	info, err := parseRegionInfo(bs)
	if err != nil {
		return nil, err
	}
	flags, err := bs.ReadUint16()
	if err != nil {
		return nil, err
	}
	tr := &textRegionSegment{
		Info:         info,
		Huffman:      flags&1 != 0,
		Refinement:   flags&2 != 0,
		LogStripSize: uint8(flags>>2) & 3,
		Corner:       Corner(flags>>4) & 3,
		Transposed:   flags&0x40 != 0,
		CombOp:       ComposeOp(flags>>7) & 3,
		DefaultPixel: flags&0x200 != 0,
		RefTemplate:  uint8(flags>>15) & 1,
	}
	// SBDSOFFSET 为5位有符号数
	tr.DSOffset = int32(flags>>10) & 0x1f
	if tr.DSOffset&0x10 != 0 {
		tr.DSOffset -= 0x20
	}
	if tr.Huffman {
		hf, err := bs.ReadUint16()
		if err != nil {
			return nil, err
		}
		tr.FSSelector = uint8(hf) & 3
		tr.DSSelector = uint8(hf>>2) & 3
		tr.DTSelector = uint8(hf>>4) & 3
		tr.RDWSelector = uint8(hf>>6) & 3
		tr.RDHSelector = uint8(hf>>8) & 3
		tr.RDXSelector = uint8(hf>>10) & 3
		tr.RDYSelector = uint8(hf>>12) & 3
		tr.RSizeCustom = hf&0x4000 != 0
	}
	if tr.Refinement && tr.RefTemplate == 0 {
		if tr.RefAT, err = readATPixels(bs, 2); err != nil {
			return nil, err
		}
	}
	if tr.NumInstances, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	return tr, nil
}

func parsePatternDictionary(bs *BitStream) (*patternDictionarySegment, error) {
	flags, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	pd := &patternDictionarySegment{MMR: flags&1 != 0, Template: (flags >> 1) & 3}
	if pd.PatternWidth, err = bs.ReadByte(); err != nil {
		return nil, err
	}
	if pd.PatternHeight, err = bs.ReadByte(); err != nil {
		return nil, err
	}
	if pd.MaxIndex, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	return pd, nil
}

func parseHalftoneRegion(bs *BitStream) (*halftoneRegionSegment, error) {
	info, err := parseRegionInfo(bs)
	if err != nil {
		return nil, err
	}
	flags, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	hr := &halftoneRegionSegment{
		Info:         info,
		MMR:          flags&1 != 0,
		Template:     (flags >> 1) & 3,
		EnableSkip:   flags&8 != 0,
		CombOp:       ComposeOp(flags>>4) & 7,
		DefaultPixel: flags&0x80 != 0,
	}
	if hr.GridWidth, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	if hr.GridHeight, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	if hr.GridX, err = bs.ReadInt32(); err != nil {
		return nil, err
	}
	if hr.GridY, err = bs.ReadInt32(); err != nil {
		return nil, err
	}
	if hr.VectorX, err = bs.ReadUint16(); err != nil {
		return nil, err
	}
	if hr.VectorY, err = bs.ReadUint16(); err != nil {
		return nil, err
	}
	return hr, nil
}

func parseGenericRegion(bs *BitStream) (*genericRegionSegment, error) {
	info, err := parseRegionInfo(bs)
	if err != nil {
		return nil, err
	}
	flags, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	gr := &genericRegionSegment{
		Info:     info,
		MMR:      flags&1 != 0,
		Template: (flags >> 1) & 3,
		TPGDON:   flags&8 != 0,
	}
	if !gr.MMR {
		if gr.AT, err = readATPixels(bs, atCount(gr.Template)); err != nil {
			return nil, err
		}
	}
	return gr, nil
}

func parseRefinementRegion(bs *BitStream) (*refinementRegionSegment, error) {
	info, err := parseRegionInfo(bs)
	if err != nil {
		return nil, err
	}
	flags, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	rr := &refinementRegionSegment{Info: info, Template: flags & 1, TPGRON: flags&2 != 0}
	if rr.Template == 0 {
		if rr.AT, err = readATPixels(bs, 2); err != nil {
			return nil, err
		}
	}
	return rr, nil
}

func parsePageInformation(bs *BitStream) (*pageInformationSegment, error) {
	pi := &pageInformationSegment{}
	var err error
	if pi.Width, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	if pi.Height, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	if pi.ResolutionX, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	if pi.ResolutionY, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	flags, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	pi.Lossless = flags&1 != 0
	pi.Refinement = flags&2 != 0
	pi.DefaultPixel = flags&4 != 0
	pi.CombOp = ComposeOp(flags>>3) & 3
	pi.RequiresBuffer = flags&0x20 != 0
	pi.Override = flags&0x40 != 0
	striping, err := bs.ReadUint16()
	if err != nil {
		return nil, err
	}
	pi.Striped = striping&0x8000 != 0
	pi.MaxStripeSize = striping & 0x7fff
	return pi, nil
}
