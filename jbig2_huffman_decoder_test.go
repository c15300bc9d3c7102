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
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleValues 表行范围内的采样值
func sampleValues(l TableLine) []int32 {
	if l.IsLower {
		return []int32{l.RangeLow, l.RangeLow - 1, l.RangeLow - 12345}
	}
	if l.RangeLength >= 32 {
		return []int32{l.RangeLow, l.RangeLow + 1, l.RangeLow + 1<<20}
	}
	size := int32(1) << uint(l.RangeLength)
	if size <= 16 {
		out := make([]int32, 0, size)
		for v := int32(0); v < size; v++ {
			out = append(out, l.RangeLow+v)
		}
		return out
	}
	return []int32{l.RangeLow, l.RangeLow + 1, l.RangeLow + size/2, l.RangeLow + size - 1}
}

func TestStandardTablesRoundTrip(t *testing.T) {
	for n := 1; n <= 15; n++ {
		table, err := StandardTable(n)
		require.NoError(t, err, "B.%d", n)
		lines := kStandardTableLines[n]
		for _, l := range lines {
			if l.IsOOB {
				var w bitWriter
				w.writeHuffman(lines, 0, true)
				_, ok, err := table.Decode(NewBitStream(w.buf, 0, len(w.buf)))
				require.NoError(t, err)
				require.False(t, ok, "B.%d OOB", n)
				continue
			}
			for _, v := range sampleValues(l) {
				var w bitWriter
				w.writeHuffman(lines, v, false)
				got, ok, err := table.Decode(NewBitStream(w.buf, 0, len(w.buf)))
				require.NoError(t, err, "B.%d value %d", n, v)
				require.True(t, ok)
				require.Equal(t, v, got, "B.%d", n)
			}
		}
	}
}

func TestStandardTableCached(t *testing.T) {
	a, err := StandardTable(6)
	require.NoError(t, err)
	b, err := StandardTable(6)
	require.NoError(t, err)
	require.Same(t, a, b)

	_, err = StandardTable(0)
	require.Error(t, err)
	_, err = StandardTable(16)
	require.Error(t, err)
}

func TestAssignPrefixCodes(t *testing.T) {
	lines := []TableLine{
		{PrefixLength: 2}, {PrefixLength: 3}, {PrefixLength: 3}, {PrefixLength: 0}, {PrefixLength: 1},
	}
	out := assignPrefixCodes(lines)
	codes := make([]uint32, len(out))
	for i, l := range out {
		codes[i] = l.PrefixCode
	}
	require.Equal(t, []uint32{0x2, 0x6, 0x7, 0x0, 0x0}, codes)
	// 输入不被修改
	require.Zero(t, lines[1].PrefixCode)
}

func TestHuffmanTableRejectsBadCodes(t *testing.T) {
	_, err := NewHuffmanTable([]TableLine{line(0, 2, 0, 0x2), line(1, 2, 0, 0x2)}, true)
	require.Error(t, err)
	_, err = NewHuffmanTable([]TableLine{line(0, 1, 0, 0x0), line(1, 2, 0, 0x1)}, true)
	require.Error(t, err)
	_, err = NewHuffmanTable([]TableLine{line(0, 33, 0, 0x0)}, true)
	require.Error(t, err)
}

func TestHuffmanDecodeInvalidCode(t *testing.T) {
	table, err := NewHuffmanTable([]TableLine{line(5, 1, 0, 0x0)}, true)
	require.NoError(t, err)
	_, _, err = table.Decode(NewBitStream([]byte{0x80}, 0, 1))
	require.ErrorIs(t, err, ErrHuffmanData)

	v, err := table.decodeValue(NewBitStream([]byte{0x00}, 0, 1))
	require.NoError(t, err)
	require.EqualValues(t, 5, v)
}

func TestDecodeTablesSegment(t *testing.T) {
	// HTPS=2 HTRS=2, 范围 [0,8), 无OOB
	data := []byte{0x12, 0, 0, 0, 0, 0, 0, 0, 8, 0x6A, 0xF0}
	table, err := DecodeTablesSegment(data, 0, len(data))
	require.NoError(t, err)

	lines := []TableLine{
		line(0, 1, 2, 0x0),
		line(4, 2, 2, 0x2),
		lowerLine(-1, 3, 0x6),
		line(8, 3, 32, 0x7),
	}
	for _, v := range []int32{0, 2, 3, 4, 7, -1, -3, 8, 1000} {
		var w bitWriter
		w.writeHuffman(lines, v, false)
		got, ok, err := table.Decode(NewBitStream(w.buf, 0, len(w.buf)))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, v, got)
	}
}

func TestDecodeTablesSegmentErrors(t *testing.T) {
	_, err := DecodeTablesSegment([]byte{0x12, 0, 0, 0, 9, 0, 0, 0, 8, 0x6A, 0xF0}, 0, 11)
	require.Error(t, err)
	_, err = DecodeTablesSegment([]byte{0x12, 0, 0, 0, 0}, 0, 5)
	require.Error(t, err)
}

// writeRunLengths 写入35个游程码长度
func writeRunLengths(w *bitWriter, lengths map[int]uint32) {
	for i := 0; i < 35; i++ {
		w.writeBits(lengths[i], 4)
	}
}

func TestDecodeSymbolIDTable(t *testing.T) {
	var w bitWriter
	writeRunLengths(&w, map[int]uint32{0: 2, 1: 2, 2: 2, 3: 2})
	// 符号码长 1,2,3,3,0
	w.writeBits(0b01, 2)
	w.writeBits(0b10, 2)
	w.writeBits(0b11, 2)
	w.writeBits(0b11, 2)
	w.writeBits(0b00, 2)
	w.align()
	w.writeBits(0b110, 3)
	w.writeBits(0b0, 1)
	w.writeBits(0b111, 3)

	bs := NewBitStream(w.buf, 0, len(w.buf))
	table, err := decodeSymbolIDTable(bs, 5, testLogger(t))
	require.NoError(t, err)
	for _, want := range []int32{2, 0, 3} {
		v, err := table.decodeValue(bs)
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
}

func TestDecodeSymbolIDTableRepeat(t *testing.T) {
	var w bitWriter
	writeRunLengths(&w, map[int]uint32{2: 1, 32: 1})
	w.writeBits(0b0, 1)
	// 重复前一长度 3 次
	w.writeBits(0b1, 1)
	w.writeBits(0b00, 2)
	w.align()
	w.writeBits(0b11, 2)
	w.writeBits(0b01, 2)

	bs := NewBitStream(w.buf, 0, len(w.buf))
	table, err := decodeSymbolIDTable(bs, 4, testLogger(t))
	require.NoError(t, err)
	v, err := table.decodeValue(bs)
	require.NoError(t, err)
	require.EqualValues(t, 3, v)
	v, err = table.decodeValue(bs)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
}

func TestSelectTable(t *testing.T) {
	custom, err := NewHuffmanTable([]TableLine{line(0, 1, 0, 0)}, true)
	require.NoError(t, err)
	c := &customTables{tables: []*HuffmanTable{custom}}

	b4, err := StandardTable(4)
	require.NoError(t, err)
	got, err := selectTable("DH", 0, []int{4, 5, 0}, c)
	require.NoError(t, err)
	require.Same(t, b4, got)

	_, err = selectTable("DH", 2, []int{4, 5, 0}, c)
	require.Error(t, err)

	got, err = selectTable("DH", 3, []int{4, 5, 0}, c)
	require.NoError(t, err)
	require.Same(t, custom, got)
	// 自定义表已用完
	_, err = selectTable("DW", 3, []int{2, 3, 0}, c)
	require.Error(t, err)
}
