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

// procedure 概率表所属的解码过程
type procedure uint8

const (
	procIADH procedure = iota
	procIADW
	procIAEX
	procIAAI
	procIARDX
	procIARDY
	procIADT
	procIAFS
	procIADS
	procIAIT
	procIARI
	procIARDW
	procIARDH
	procIAID
	procGB
	procGR
	procCount
)

// contextTableSize 每个过程的概率表大小
const contextTableSize = 1 << 16

// DecodingContext 单个段的解码上下文
// 算术解码器与各过程概率表都在首次使用时创建
type DecodingContext struct {
	stream  *BitStream
	decoder *ArithDecoder
	tables  [procCount][]ArithCtx
	iaid    *IAIDContexts
}

// IAIDContexts 符号ID上下文
// 前缀小于 contextTableSize 时落在稠密表中, 更长的前缀按需创建
type IAIDContexts struct {
	dense  []ArithCtx
	sparse map[uint64]*ArithCtx
}

// At 返回前缀对应的上下文
// 入参: prev 已解码位前加1的前缀
// 返回: *ArithCtx 上下文
func (c *IAIDContexts) At(prev uint64) *ArithCtx {
	if prev < uint64(len(c.dense)) {
		return &c.dense[prev]
	}
	if c.sparse == nil {
		c.sparse = make(map[uint64]*ArithCtx)
	}
	cx, ok := c.sparse[prev]
	if !ok {
		cx = &ArithCtx{}
		c.sparse[prev] = cx
	}
	return cx
}

// NewDecodingContext 创建解码上下文
// 入参: data 数据, start 起始偏移, end 结束偏移
// 返回: *DecodingContext 解码上下文
func NewDecodingContext(data []byte, start, end int) *DecodingContext {
	return &DecodingContext{stream: NewBitStream(data, start, end)}
}

// Stream 段数据位流, 霍夫曼与MMR解码使用
func (dc *DecodingContext) Stream() *BitStream {
	return dc.stream
}

// Decoder 返回算术解码器
func (dc *DecodingContext) Decoder() *ArithDecoder {
	if dc.decoder == nil {
		dc.decoder = NewArithDecoder(dc.stream)
	}
	return dc.decoder
}

// contexts 返回过程对应的概率表
func (dc *DecodingContext) contexts(p procedure) []ArithCtx {
	if dc.tables[p] == nil {
		dc.tables[p] = make([]ArithCtx, contextTableSize)
	}
	return dc.tables[p]
}

// decodeInt 按过程解码整数, ok为false表示OOB
func (dc *DecodingContext) decodeInt(p procedure) (v int32, ok bool) {
	return dc.Decoder().DecodeInt(dc.contexts(p))
}

// decodeIAID 解码符号ID
func (dc *DecodingContext) decodeIAID(codeLen int) uint32 {
	if dc.iaid == nil {
		dc.iaid = &IAIDContexts{dense: dc.contexts(procIAID)}
	}
	return dc.Decoder().DecodeIAID(dc.iaid, codeLen)
}

// exhausted 算术解码是否已读空数据
func (dc *DecodingContext) exhausted() bool {
	return dc.decoder != nil && dc.decoder.Exhausted()
}

// snapshot 复制过程概率表, 供后续符号字典沿用
func (dc *DecodingContext) snapshot(p procedure) []ArithCtx {
	cx := make([]ArithCtx, contextTableSize)
	copy(cx, dc.tables[p])
	return cx
}

// restore 以保存的概率表初始化过程
func (dc *DecodingContext) restore(p procedure, cx []ArithCtx) {
	dc.tables[p] = make([]ArithCtx, contextTableSize)
	copy(dc.tables[p], cx)
}
