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
	"io"
)

// BitStream 位流, 只在 [start,end) 范围内读取
type BitStream struct {
	data    []byte
	start   int
	end     int
	byteIdx int
	bitIdx  uint
}

// NewBitStream 创建位流
// 入参: data 数据源, start 起始偏移, end 结束偏移
// 返回: *BitStream 位流对象
func NewBitStream(data []byte, start, end int) *BitStream {
	if end > len(data) {
		end = len(data)
	}
	if start > end {
		start = end
	}
	return &BitStream{data: data, start: start, end: end, byteIdx: start}
}

func (b *BitStream) errShort(n int) error {
	return fmt.Errorf("jbig2: need %d bytes at offset %d, segment ends at %d: %w", n, b.byteIdx, b.end, io.ErrUnexpectedEOF)
}

// ReadBit 读取1位
// 返回: uint32 结果, error 错误信息
func (b *BitStream) ReadBit() (uint32, error) {
	if b.byteIdx >= b.end {
		return 0, b.errShort(1)
	}
	bit := uint32(b.data[b.byteIdx]>>(7-b.bitIdx)) & 1
	if b.bitIdx == 7 {
		b.byteIdx++
		b.bitIdx = 0
	} else {
		b.bitIdx++
	}
	return bit, nil
}

// ReadBits 读取最多32位, 高位在前
// 入参: n 位数
// 返回: uint32 结果, error 错误信息
func (b *BitStream) ReadBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		bit, err := b.ReadBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | bit
	}
	return v, nil
}

// ReadByte 读取1字节, 先对齐到字节边界
// 返回: uint8 结果, error 错误信息
func (b *BitStream) ReadByte() (byte, error) {
	b.AlignByte()
	if b.byteIdx >= b.end {
		return 0, b.errShort(1)
	}
	v := b.data[b.byteIdx]
	b.byteIdx++
	return v, nil
}

// ReadInt8 读取有符号字节
func (b *BitStream) ReadInt8() (int8, error) {
	v, err := b.ReadByte()
	return int8(v), err
}

// ReadUint16 读取2字节大端整数
func (b *BitStream) ReadUint16() (uint16, error) {
	b.AlignByte()
	if b.byteIdx+2 > b.end {
		return 0, b.errShort(2)
	}
	v := uint16(b.data[b.byteIdx])<<8 | uint16(b.data[b.byteIdx+1])
	b.byteIdx += 2
	return v, nil
}

// ReadUint32 读取4字节大端整数
func (b *BitStream) ReadUint32() (uint32, error) {
	b.AlignByte()
	if b.byteIdx+4 > b.end {
		return 0, b.errShort(4)
	}
	d := b.data[b.byteIdx:]
	v := uint32(d[0])<<24 | uint32(d[1])<<16 | uint32(d[2])<<8 | uint32(d[3])
	b.byteIdx += 4
	return v, nil
}

// ReadInt32 读取4字节大端有符号整数
func (b *BitStream) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

// AlignByte 字节对齐
func (b *BitStream) AlignByte() {
	if b.bitIdx != 0 {
		b.byteIdx++
		b.bitIdx = 0
	}
}

// Offset 当前字节偏移(相对于整个数据)
func (b *BitStream) Offset() int {
	return b.byteIdx
}

// SetOffset 设置字节偏移
func (b *BitStream) SetOffset(offset int) {
	if offset > b.end {
		offset = b.end
	}
	if offset < b.start {
		offset = b.start
	}
	b.byteIdx = offset
	b.bitIdx = 0
}

// Remaining 剩余字节数
func (b *BitStream) Remaining() int {
	if b.byteIdx >= b.end {
		return 0
	}
	return b.end - b.byteIdx
}

// Bytes 返回当前位置到结束位置的数据
func (b *BitStream) Bytes() []byte {
	if b.byteIdx >= b.end {
		return nil
	}
	return b.data[b.byteIdx:b.end]
}

// arithByte 算术解码读取字节, 越界返回0xFF
func (b *BitStream) arithByte(i int) byte {
	if i >= b.start && i < b.end {
		return b.data[i]
	}
	return 0xFF
}

// oneByteReader 每次只交出一个字节, 读取的字节数即为消耗的字节数
type oneByteReader struct {
	bs *BitStream
	n  int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.bs.byteIdx >= r.bs.end {
		return 0, io.EOF
	}
	p[0] = r.bs.data[r.bs.byteIdx]
	r.bs.byteIdx++
	r.n++
	return 1, nil
}
