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
	"bytes"
	"fmt"
)

// SegmentType 段类型
type SegmentType uint8

const (
	SegSymbolDictionary                  SegmentType = 0
	SegIntermediateTextRegion            SegmentType = 4
	SegImmediateTextRegion               SegmentType = 6
	SegImmediateLosslessTextRegion       SegmentType = 7
	SegPatternDictionary                 SegmentType = 16
	SegIntermediateHalftoneRegion        SegmentType = 20
	SegImmediateHalftoneRegion           SegmentType = 22
	SegImmediateLosslessHalftoneRegion   SegmentType = 23
	SegIntermediateGenericRegion         SegmentType = 36
	SegImmediateGenericRegion            SegmentType = 38
	SegImmediateLosslessGenericRegion    SegmentType = 39
	SegIntermediateRefinementRegion      SegmentType = 40
	SegImmediateRefinementRegion         SegmentType = 42
	SegImmediateLosslessRefinementRegion SegmentType = 43
	SegPageInformation                   SegmentType = 48
	SegEndOfPage                         SegmentType = 49
	SegEndOfStripe                       SegmentType = 50
	SegEndOfFile                         SegmentType = 51
	SegProfiles                          SegmentType = 52
	SegTables                            SegmentType = 53
	SegExtension                         SegmentType = 62
)

// segmentTypeNames 合法段类型名称, 空串表示非法类型
var segmentTypeNames = [64]string{
	SegSymbolDictionary:                  "SymbolDictionary",
	SegIntermediateTextRegion:            "IntermediateTextRegion",
	SegImmediateTextRegion:               "ImmediateTextRegion",
	SegImmediateLosslessTextRegion:       "ImmediateLosslessTextRegion",
	SegPatternDictionary:                 "PatternDictionary",
	SegIntermediateHalftoneRegion:        "IntermediateHalftoneRegion",
	SegImmediateHalftoneRegion:           "ImmediateHalftoneRegion",
	SegImmediateLosslessHalftoneRegion:   "ImmediateLosslessHalftoneRegion",
	SegIntermediateGenericRegion:         "IntermediateGenericRegion",
	SegImmediateGenericRegion:            "ImmediateGenericRegion",
	SegImmediateLosslessGenericRegion:    "ImmediateLosslessGenericRegion",
	SegIntermediateRefinementRegion:      "IntermediateRefinementRegion",
	SegImmediateRefinementRegion:         "ImmediateRefinementRegion",
	SegImmediateLosslessRefinementRegion: "ImmediateLosslessRefinementRegion",
	SegPageInformation:                   "PageInformation",
	SegEndOfPage:                         "EndOfPage",
	SegEndOfStripe:                       "EndOfStripe",
	SegEndOfFile:                         "EndOfFile",
	SegProfiles:                          "Profiles",
	SegTables:                            "Tables",
	SegExtension:                         "Extension",
}

// String 返回段类型名称
func (t SegmentType) String() string {
	if int(t) < len(segmentTypeNames) && segmentTypeNames[t] != "" {
		return segmentTypeNames[t]
	}
	return fmt.Sprintf("SegmentType(%d)", uint8(t))
}

// Valid 判断段类型是否合法
func (t SegmentType) Valid() bool {
	return int(t) < len(segmentTypeNames) && segmentTypeNames[t] != ""
}

// SegmentHeader 段头, 解析后不再修改
type SegmentHeader struct {
	Number            uint32
	Type              SegmentType
	DeferredNonRetain bool
	RetainBits        []byte
	ReferredTo        []uint32
	PageAssociation   uint32
	Length            uint32
	headerEnd         int
}

// Segment 段头及其数据范围
type Segment struct {
	Header *SegmentHeader
	data   []byte
	start  int
	end    int
}

// Data 返回段数据
func (s *Segment) Data() []byte {
	return s.data[s.start:s.end]
}

// FileHeader 文件头
type FileHeader struct {
	RandomAccess   bool
	PageCountKnown bool
	PageCount      uint32
}

// ParseFileHeader 解析文件头
// 入参: data 文件数据
// 返回: FileHeader 文件头, int 段序列起始偏移, error 错误信息
func ParseFileHeader(data []byte) (FileHeader, int, error) {
	var fh FileHeader
	if len(data) < len(fileMagic)+1 || !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return fh, 0, ErrBadMagic
	}
	bs := NewBitStream(data, len(fileMagic), len(data))
	flags, err := bs.ReadByte()
	if err != nil {
		return fh, 0, err
	}
	fh.RandomAccess = flags&1 == 0
	if flags&2 == 0 {
		if fh.PageCount, err = bs.ReadUint32(); err != nil {
			return fh, 0, err
		}
		fh.PageCountKnown = true
	}
	return fh, bs.Offset(), nil
}

// ReadSegmentHeader 解析段头
// 入参: data 数据, start 段头起始, end 数据结束, scan 是否允许扫描确定未知长度
// 返回: *SegmentHeader 段头, error 错误信息
func ReadSegmentHeader(data []byte, start, end int, scan bool) (*SegmentHeader, error) {
	bs := NewBitStream(data, start, end)
	h := &SegmentHeader{}
	var err error
	if h.Number, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	flags, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	h.Type = SegmentType(flags & 0x3f)
	if !h.Type.Valid() {
		return nil, FormatError(fmt.Sprintf("invalid segment type %d in segment %d", flags&0x3f, h.Number))
	}
	h.DeferredNonRetain = flags&0x80 != 0
	referred, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	count := uint32(referred >> 5)
	switch count {
	case 5, 6:
		return nil, FormatError(fmt.Sprintf("invalid referred-to count %d", count))
	case 7:
		bs.SetOffset(bs.Offset() - 1)
		long, err := bs.ReadUint32()
		if err != nil {
			return nil, err
		}
		count = long & 0x1fffffff
		if int(count) > bs.Remaining() {
			return nil, FormatError(fmt.Sprintf("referred-to count %d exceeds segment data", count))
		}
		h.RetainBits = make([]byte, (count+8)>>3)
		for i := range h.RetainBits {
			if h.RetainBits[i], err = bs.ReadByte(); err != nil {
				return nil, err
			}
		}
	default:
		h.RetainBits = []byte{referred & 0x1f}
	}
	width := 4
	if h.Number <= 256 {
		width = 1
	} else if h.Number <= 65536 {
		width = 2
	}
	h.ReferredTo = make([]uint32, count)
	for i := range h.ReferredTo {
		var n uint32
		switch width {
		case 1:
			var b byte
			b, err = bs.ReadByte()
			n = uint32(b)
		case 2:
			var w uint16
			w, err = bs.ReadUint16()
			n = uint32(w)
		default:
			n, err = bs.ReadUint32()
		}
		if err != nil {
			return nil, err
		}
		h.ReferredTo[i] = n
	}
	if flags&0x40 != 0 {
		if h.PageAssociation, err = bs.ReadUint32(); err != nil {
			return nil, err
		}
	} else {
		b, err := bs.ReadByte()
		if err != nil {
			return nil, err
		}
		h.PageAssociation = uint32(b)
	}
	if h.Length, err = bs.ReadUint32(); err != nil {
		return nil, err
	}
	h.headerEnd = bs.Offset()
	if h.Length == unknownLength {
		if h.Type != SegImmediateGenericRegion || !scan {
			return nil, fmt.Errorf("segment %d (%s): %w", h.Number, h.Type, ErrUnknownLength)
		}
		n, err := scanGenericRegionEnd(data, h.headerEnd, end)
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", h.Number, h.Type, err)
		}
		h.Length = uint32(n)
	}
	return h, nil
}

// scanGenericRegionEnd 查找未知长度通用区域段的结束标记
// 标记为 FF AC (MMR时为 00 00) 后跟大端区域高度, 返回相对段数据起点的长度
func scanGenericRegionEnd(data []byte, start, end int) (int, error) {
	if end > len(data) {
		end = len(data)
	}
	if start+regionInfoLength+1 > end {
		return 0, ErrUnknownLength
	}
	info := NewBitStream(data, start, end)
	ri, err := parseRegionInfo(info)
	if err != nil {
		return 0, err
	}
	mmr := data[start+regionInfoLength]&1 != 0
	var marker [6]byte
	if !mmr {
		marker[0], marker[1] = 0xff, 0xac
	}
	marker[2] = byte(ri.Height >> 24)
	marker[3] = byte(ri.Height >> 16)
	marker[4] = byte(ri.Height >> 8)
	marker[5] = byte(ri.Height)
	idx := bytes.Index(data[start:end], marker[:])
	if idx < 0 {
		return 0, ErrUnknownLength
	}
	return idx + len(marker), nil
}

// ReadSegments 读取段序列, 遇到文件结束段停止
// 入参: data 数据, start 起始偏移, end 结束偏移, randomAccess 是否随机访问组织
// 返回: []*Segment 段列表, error 错误信息
func ReadSegments(data []byte, start, end int, randomAccess bool) ([]*Segment, error) {
	if end > len(data) {
		end = len(data)
	}
	var segments []*Segment
	pos := start
	for pos < end {
		h, err := ReadSegmentHeader(data, pos, end, !randomAccess)
		if err != nil {
			return nil, err
		}
		pos = h.headerEnd
		seg := &Segment{Header: h, data: data}
		if !randomAccess {
			if seg.start, seg.end, err = dataRange(h, pos, end); err != nil {
				return nil, err
			}
			pos = seg.end
		}
		segments = append(segments, seg)
		if h.Type == SegEndOfFile {
			break
		}
	}
	if randomAccess {
		for _, seg := range segments {
			var err error
			if seg.start, seg.end, err = dataRange(seg.Header, pos, end); err != nil {
				return nil, err
			}
			pos = seg.end
		}
	}
	return segments, nil
}

// dataRange 计算段数据范围
func dataRange(h *SegmentHeader, pos, end int) (int, int, error) {
	if uint64(pos)+uint64(h.Length) > uint64(end) {
		return 0, 0, FormatError(fmt.Sprintf("segment %d (%s) data of %d bytes is truncated", h.Number, h.Type, h.Length))
	}
	return pos, pos + int(h.Length), nil
}
