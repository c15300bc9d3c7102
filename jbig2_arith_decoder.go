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

const (
	// defaultAValue 默认A值
	defaultAValue = 0x8000
	// maxArithOverrun 遇到标记码或越过末尾后允许补入的次数, 超过即视为数据耗尽
	maxArithOverrun = 256
)

// ArithQe 算术编码状态
type ArithQe struct {
	Qe     uint16
	NMPS   uint8
	NLPS   uint8
	Switch bool
}

// kQeTable Qe表
var kQeTable = [47]ArithQe{
	{0x5601, 1, 1, true}, {0x3401, 2, 6, false}, {0x1801, 3, 9, false},
	{0x0AC1, 4, 12, false}, {0x0521, 5, 29, false}, {0x0221, 38, 33, false},
	{0x5601, 7, 6, true}, {0x5401, 8, 14, false}, {0x4801, 9, 14, false},
	{0x3801, 10, 14, false}, {0x3001, 11, 17, false}, {0x2401, 12, 18, false},
	{0x1C01, 13, 20, false}, {0x1601, 29, 21, false}, {0x5601, 15, 14, true},
	{0x5401, 16, 14, false}, {0x5101, 17, 15, false}, {0x4801, 18, 16, false},
	{0x3801, 19, 17, false}, {0x3401, 20, 18, false}, {0x3001, 21, 19, false},
	{0x2801, 22, 19, false}, {0x2401, 23, 20, false}, {0x2201, 24, 21, false},
	{0x1C01, 25, 22, false}, {0x1801, 26, 23, false}, {0x1601, 27, 24, false},
	{0x1401, 28, 25, false}, {0x1201, 29, 26, false}, {0x1101, 30, 27, false},
	{0x0AC1, 31, 28, false}, {0x09C1, 32, 29, false}, {0x08A1, 33, 30, false},
	{0x0521, 34, 31, false}, {0x0441, 35, 32, false}, {0x02A1, 36, 33, false},
	{0x0221, 37, 34, false}, {0x0141, 38, 35, false}, {0x0111, 39, 36, false},
	{0x0085, 40, 37, false}, {0x0049, 41, 38, false}, {0x0025, 42, 39, false},
	{0x0015, 43, 40, false}, {0x0009, 44, 41, false}, {0x0005, 45, 42, false},
	{0x0001, 45, 43, false}, {0x5601, 46, 46, false},
}

// arithIntRange 整数解码分段: 前缀位数对应的值位数与偏移
var arithIntRange = [6]struct {
	bits   int
	offset int32
}{
	{2, 0}, {4, 4}, {6, 20}, {8, 84}, {12, 340}, {32, 4436},
}

// ArithCtx 算术解码上下文
type ArithCtx struct {
	mps bool
	i   uint8
}

func (c *ArithCtx) mpsBit() int {
	if c.mps {
		return 1
	}
	return 0
}

// decodeNLPS 走LPS分支, 返回解出的位
func (c *ArithCtx) decodeNLPS(qe *ArithQe) int {
	d := 1 - c.mpsBit()
	if qe.Switch {
		c.mps = !c.mps
	}
	c.i = qe.NLPS
	return d
}

// decodeNMPS 走MPS分支, 返回解出的位
func (c *ArithCtx) decodeNMPS(qe *ArithQe) int {
	c.i = qe.NMPS
	return c.mpsBit()
}

// ArithDecoder MQ算术解码器
type ArithDecoder struct {
	stream *BitStream
	pos    int
	b      byte
	c      uint32
	a      uint32
	ct     int

	// overrun 读到数据末尾之后的次数
	overrun int
}

// NewArithDecoder 创建新的算术解码器
// 入参: stream 段数据位流, 从其当前偏移开始解码
// 返回: *ArithDecoder 解码器对象
func NewArithDecoder(stream *BitStream) *ArithDecoder {
	ad := &ArithDecoder{stream: stream, pos: stream.Offset(), a: defaultAValue}
	ad.b = stream.arithByte(ad.pos)
	ad.c = (uint32(ad.b) ^ 0xff) << 16
	ad.byteIn()
	ad.c <<= 7
	ad.ct -= 7
	return ad
}

// Decode 按给定上下文解码一位
// 入参: cx 上下文
// 返回: int 0或1
func (ad *ArithDecoder) Decode(cx *ArithCtx) int {
	qe := &kQeTable[cx.i]
	ad.a -= uint32(qe.Qe)
	if (ad.c >> 16) < ad.a {
		if ad.a&defaultAValue != 0 {
			return cx.mpsBit()
		}
		var d int
		if ad.a < uint32(qe.Qe) {
			d = cx.decodeNLPS(qe)
		} else {
			d = cx.decodeNMPS(qe)
		}
		ad.renormalize()
		return d
	}
	ad.c -= ad.a << 16
	var d int
	if ad.a < uint32(qe.Qe) {
		d = cx.decodeNMPS(qe)
	} else {
		d = cx.decodeNLPS(qe)
	}
	ad.a = uint32(qe.Qe)
	ad.renormalize()
	return d
}

// byteIn 读入字节, 遇到标记码时补1
func (ad *ArithDecoder) byteIn() {
	if ad.b == 0xff {
		b1 := ad.stream.arithByte(ad.pos + 1)
		if b1 > 0x8f {
			ad.overrun++
			ad.ct = 8
			return
		}
		if ad.pos+1 >= ad.stream.end {
			ad.overrun++
		}
		ad.pos++
		ad.b = b1
		ad.c += 0xfe00 - uint32(ad.b)<<9
		ad.ct = 7
		return
	}
	if ad.pos+1 >= ad.stream.end {
		ad.overrun++
	}
	ad.pos++
	ad.b = ad.stream.arithByte(ad.pos)
	ad.c += 0xff00 - uint32(ad.b)<<8
	ad.ct = 8
}

// Exhausted 是否已远超数据末尾
func (ad *ArithDecoder) Exhausted() bool {
	return ad.overrun > maxArithOverrun
}

// renormalize 重新归一化A与C
func (ad *ArithDecoder) renormalize() {
	for {
		if ad.ct == 0 {
			ad.byteIn()
		}
		ad.a <<= 1
		ad.c <<= 1
		ad.ct--
		if ad.a&defaultAValue != 0 {
			break
		}
	}
}

// DecodeInt 整数解码过程(IAx)
// 入参: cx 512项上下文表
// 返回: int32 结果, bool 为false时表示OOB
func (ad *ArithDecoder) DecodeInt(cx []ArithCtx) (int32, bool) {
	prev := 1
	readBits := func(n int) uint32 {
		var v uint32
		for i := 0; i < n; i++ {
			bit := ad.Decode(&cx[prev])
			if prev < 256 {
				prev = prev<<1 | bit
			} else {
				prev = (prev<<1|bit)&511 | 256
			}
			v = v<<1 | uint32(bit)
		}
		return v
	}
	sign := readBits(1)
	tier := 0
	for tier < len(arithIntRange)-1 && readBits(1) == 1 {
		tier++
	}
	r := arithIntRange[tier]
	value := int64(r.offset) + int64(readBits(r.bits))
	if sign == 0 {
		return int32(value), true
	}
	if value > 0 {
		return int32(-value), true
	}
	return 0, false
}

// DecodeIAID 符号ID解码过程
// 入参: cx 符号ID上下文, codeLen 编码长度, 不超过32
// 返回: uint32 符号ID
func (ad *ArithDecoder) DecodeIAID(cx *IAIDContexts, codeLen int) uint32 {
	prev := uint64(1)
	for i := 0; i < codeLen; i++ {
		bit := ad.Decode(cx.At(prev))
		prev = prev<<1 | uint64(bit)
	}
	return uint32(prev & (uint64(1)<<uint(codeLen) - 1))
}
