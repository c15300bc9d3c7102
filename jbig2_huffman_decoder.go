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

// TableLine 霍夫曼表行定义
type TableLine struct {
	RangeLow     int32
	PrefixLength int
	RangeLength  int
	PrefixCode   uint32
	IsLower      bool
	IsOOB        bool
}

// oobLine 越界值行
func oobLine(prefixLength int, code uint32) TableLine {
	return TableLine{PrefixLength: prefixLength, PrefixCode: code, IsOOB: true}
}

// nodeKind 树节点类型
type nodeKind uint8

const (
	nodeInternal nodeKind = iota
	nodeLeaf
)

// huffmanNode 树节点, 子节点以数组下标引用, 0表示不存在(根节点不会作为子节点)
type huffmanNode struct {
	kind  nodeKind
	child [2]int32
	line  TableLine
}

// HuffmanTable 霍夫曼解码树
type HuffmanTable struct {
	nodes []huffmanNode
}

// NewHuffmanTable 由表行构建霍夫曼树
// 入参: lines 表行, prefixCodesDone 前缀码是否已给定
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func NewHuffmanTable(lines []TableLine, prefixCodesDone bool) (*HuffmanTable, error) {
	if !prefixCodesDone {
		lines = assignPrefixCodes(lines)
	}
	t := &HuffmanTable{nodes: make([]huffmanNode, 1, 2*len(lines)+1)}
	for _, line := range lines {
		if line.PrefixLength <= 0 {
			continue
		}
		if line.PrefixLength > 32 {
			return nil, FormatError(fmt.Sprintf("Huffman prefix length %d", line.PrefixLength))
		}
		if err := t.insert(line); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// insert 沿前缀码插入叶节点
func (t *HuffmanTable) insert(line TableLine) error {
	cur := int32(0)
	for shift := line.PrefixLength - 1; shift >= 0; shift-- {
		if t.nodes[cur].kind == nodeLeaf {
			return FormatError(fmt.Sprintf("Huffman code %b is prefixed by another code", line.PrefixCode))
		}
		bit := (line.PrefixCode >> uint(shift)) & 1
		next := t.nodes[cur].child[bit]
		if shift == 0 {
			if next != 0 {
				return FormatError(fmt.Sprintf("duplicate Huffman code %b", line.PrefixCode))
			}
			t.nodes = append(t.nodes, huffmanNode{kind: nodeLeaf, line: line})
			t.nodes[cur].child[bit] = int32(len(t.nodes) - 1)
			return nil
		}
		if next == 0 {
			t.nodes = append(t.nodes, huffmanNode{kind: nodeInternal})
			next = int32(len(t.nodes) - 1)
			t.nodes[cur].child[bit] = next
		}
		cur = next
	}
	return nil
}

// Decode 逐位遍历解码一个值
// 入参: bs 位流
// 返回: int32 值, bool 为false表示OOB, error 错误信息
func (t *HuffmanTable) Decode(bs *BitStream) (int32, bool, error) {
	cur := int32(0)
	for t.nodes[cur].kind != nodeLeaf {
		bit, err := bs.ReadBit()
		if err != nil {
			return 0, false, err
		}
		next := t.nodes[cur].child[bit]
		if next == 0 {
			return 0, false, ErrHuffmanData
		}
		cur = next
	}
	line := &t.nodes[cur].line
	if line.IsOOB {
		return 0, false, nil
	}
	offset, err := bs.ReadBits(line.RangeLength)
	if err != nil {
		return 0, false, err
	}
	if line.IsLower {
		return line.RangeLow - int32(offset), true, nil
	}
	return line.RangeLow + int32(offset), true, nil
}

// decodeValue 解码一个不允许OOB的值
func (t *HuffmanTable) decodeValue(bs *BitStream) (int32, error) {
	v, ok, err := t.Decode(bs)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, FormatError("unexpected Huffman OOB")
	}
	return v, nil
}

// assignPrefixCodes 按前缀长度分配规范码(B.3), 返回新的表行
func assignPrefixCodes(lines []TableLine) []TableLine {
	out := make([]TableLine, len(lines))
	copy(out, lines)
	maxLen := 0
	for _, l := range out {
		if l.PrefixLength > maxLen {
			maxLen = l.PrefixLength
		}
	}
	hist := make([]uint32, maxLen+1)
	for _, l := range out {
		if l.PrefixLength >= 0 {
			hist[l.PrefixLength]++
		}
	}
	hist[0] = 0
	var firstCode uint32
	for curLen := 1; curLen <= maxLen; curLen++ {
		firstCode = (firstCode + hist[curLen-1]) << 1
		code := firstCode
		for i := range out {
			if out[i].PrefixLength == curLen {
				out[i].PrefixCode = code
				code++
			}
		}
	}
	return out
}

// DecodeTablesSegment 解码自定义霍夫曼表段(B.2)
// 入参: data 数据, start 段数据起始, end 段数据结束
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func DecodeTablesSegment(data []byte, start, end int) (*HuffmanTable, error) {
	bs := NewBitStream(data, start, end)
	flags, err := bs.ReadByte()
	if err != nil {
		return nil, err
	}
	low, err := bs.ReadInt32()
	if err != nil {
		return nil, err
	}
	high, err := bs.ReadInt32()
	if err != nil {
		return nil, err
	}
	if high < low {
		return nil, FormatError("Tables segment range is empty")
	}
	prefixBits := int((flags>>1)&7) + 1
	rangeBits := int((flags>>4)&7) + 1
	var lines []TableLine
	cur := int64(low)
	for {
		prefLen, err := bs.ReadBits(prefixBits)
		if err != nil {
			return nil, err
		}
		rangeLen, err := bs.ReadBits(rangeBits)
		if err != nil {
			return nil, err
		}
		lines = append(lines, TableLine{RangeLow: int32(cur), PrefixLength: int(prefLen), RangeLength: int(rangeLen)})
		cur += 1 << rangeLen
		if cur >= int64(high) {
			break
		}
	}
	prefLen, err := bs.ReadBits(prefixBits)
	if err != nil {
		return nil, err
	}
	lines = append(lines, TableLine{RangeLow: low - 1, PrefixLength: int(prefLen), RangeLength: 32, IsLower: true})
	if prefLen, err = bs.ReadBits(prefixBits); err != nil {
		return nil, err
	}
	lines = append(lines, TableLine{RangeLow: high, PrefixLength: int(prefLen), RangeLength: 32})
	if flags&1 != 0 {
		if prefLen, err = bs.ReadBits(prefixBits); err != nil {
			return nil, err
		}
		lines = append(lines, oobLine(int(prefLen), 0))
	}
	return NewHuffmanTable(lines, false)
}

// decodeSymbolIDTable 解码文本区域符号ID霍夫曼表(7.4.3.1.7)
// 入参: bs 位流, numSymbols 符号数, logger 日志
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func decodeSymbolIDTable(bs *BitStream, numSymbols int, logger *slog.Logger) (*HuffmanTable, error) {
	runCodes := make([]TableLine, 35)
	for i := range runCodes {
		l, err := bs.ReadBits(4)
		if err != nil {
			return nil, err
		}
		runCodes[i] = TableLine{RangeLow: int32(i), PrefixLength: int(l)}
	}
	runTable, err := NewHuffmanTable(runCodes, false)
	if err != nil {
		return nil, err
	}
	codes := make([]TableLine, 0, numSymbols)
	for len(codes) < numSymbols {
		code, err := runTable.decodeValue(bs)
		if err != nil {
			return nil, err
		}
		if code < 32 {
			codes = append(codes, TableLine{RangeLow: int32(len(codes)), PrefixLength: int(code)})
			continue
		}
		var repeat uint32
		length := 0
		switch code {
		case 32:
			if repeat, err = bs.ReadBits(2); err != nil {
				return nil, err
			}
			repeat += 3
			if len(codes) == 0 {
				logger.Warn("jbig2: symbol ID run code repeats a missing length, using 0")
			} else {
				length = codes[len(codes)-1].PrefixLength
			}
		case 33:
			if repeat, err = bs.ReadBits(3); err != nil {
				return nil, err
			}
			repeat += 3
		case 34:
			if repeat, err = bs.ReadBits(7); err != nil {
				return nil, err
			}
			repeat += 11
		default:
			return nil, FormatError(fmt.Sprintf("invalid symbol ID run code %d", code))
		}
		for j := uint32(0); j < repeat && len(codes) < numSymbols; j++ {
			codes = append(codes, TableLine{RangeLow: int32(len(codes)), PrefixLength: length})
		}
	}
	bs.AlignByte()
	return NewHuffmanTable(codes, false)
}
