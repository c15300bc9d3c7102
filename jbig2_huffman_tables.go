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
	"sync"
)

// line 简写: 下界, 前缀长度, 范围长度, 前缀码
func line(low int32, prefLen, rangeLen int, code uint32) TableLine {
	return TableLine{RangeLow: low, PrefixLength: prefLen, RangeLength: rangeLen, PrefixCode: code}
}

// lowerLine 下界范围行
func lowerLine(low int32, prefLen int, code uint32) TableLine {
	return TableLine{RangeLow: low, PrefixLength: prefLen, RangeLength: 32, PrefixCode: code, IsLower: true}
}

// kStandardTableLines 标准霍夫曼表 B.1 至 B.15, 前缀码已给定
var kStandardTableLines = [16][]TableLine{
	1: {
		line(0, 1, 4, 0x0),
		line(16, 2, 8, 0x2),
		line(272, 3, 16, 0x6),
		line(65808, 3, 32, 0x7),
	},
	2: {
		line(0, 1, 0, 0x0),
		line(1, 2, 0, 0x2),
		line(2, 3, 0, 0x6),
		line(3, 4, 3, 0xe),
		line(11, 5, 6, 0x1e),
		line(75, 6, 32, 0x3e),
		oobLine(6, 0x3f),
	},
	3: {
		line(-256, 8, 8, 0xfe),
		line(0, 1, 0, 0x0),
		line(1, 2, 0, 0x2),
		line(2, 3, 0, 0x6),
		line(3, 4, 3, 0xe),
		line(11, 5, 6, 0x1e),
		lowerLine(-257, 8, 0xff),
		line(75, 7, 32, 0x7e),
		oobLine(6, 0x3e),
	},
	4: {
		line(1, 1, 0, 0x0),
		line(2, 2, 0, 0x2),
		line(3, 3, 0, 0x6),
		line(4, 4, 3, 0xe),
		line(12, 5, 6, 0x1e),
		line(76, 5, 32, 0x1f),
	},
	5: {
		line(-255, 7, 8, 0x7e),
		line(1, 1, 0, 0x0),
		line(2, 2, 0, 0x2),
		line(3, 3, 0, 0x6),
		line(4, 4, 3, 0xe),
		line(12, 5, 6, 0x1e),
		lowerLine(-256, 7, 0x7f),
		line(76, 6, 32, 0x3e),
	},
	6: {
		line(-2048, 5, 10, 0x1c),
		line(-1024, 4, 9, 0x8),
		line(-512, 4, 8, 0x9),
		line(-256, 4, 7, 0xa),
		line(-128, 5, 6, 0x1d),
		line(-64, 5, 5, 0x1e),
		line(-32, 4, 5, 0xb),
		line(0, 2, 7, 0x0),
		line(128, 3, 7, 0x2),
		line(256, 3, 8, 0x3),
		line(512, 4, 9, 0xc),
		line(1024, 4, 10, 0xd),
		lowerLine(-2049, 6, 0x3e),
		line(2048, 6, 32, 0x3f),
	},
	7: {
		line(-1024, 4, 9, 0x8),
		line(-512, 3, 8, 0x0),
		line(-256, 4, 7, 0x9),
		line(-128, 5, 6, 0x1a),
		line(-64, 5, 5, 0x1b),
		line(-32, 4, 5, 0xa),
		line(0, 4, 5, 0xb),
		line(32, 5, 5, 0x1c),
		line(64, 5, 6, 0x1d),
		line(128, 4, 7, 0xc),
		line(256, 3, 8, 0x1),
		line(512, 3, 9, 0x2),
		line(1024, 3, 10, 0x3),
		lowerLine(-1025, 5, 0x1e),
		line(2048, 5, 32, 0x1f),
	},
	8: {
		line(-15, 8, 3, 0xfc),
		line(-7, 9, 1, 0x1fc),
		line(-5, 8, 1, 0xfd),
		line(-3, 9, 0, 0x1fd),
		line(-2, 7, 0, 0x7c),
		line(-1, 4, 0, 0xa),
		line(0, 2, 1, 0x0),
		line(2, 5, 0, 0x1a),
		line(3, 6, 0, 0x3a),
		line(4, 3, 4, 0x4),
		line(20, 6, 1, 0x3b),
		line(22, 4, 4, 0xb),
		line(38, 4, 5, 0xc),
		line(70, 5, 6, 0x1b),
		line(134, 5, 7, 0x1c),
		line(262, 6, 7, 0x3c),
		line(390, 7, 8, 0x7d),
		line(646, 6, 10, 0x3d),
		lowerLine(-16, 9, 0x1fe),
		line(1670, 9, 32, 0x1ff),
		oobLine(2, 0x1),
	},
	9: {
		line(-31, 8, 4, 0xfc),
		line(-15, 9, 2, 0x1fc),
		line(-11, 8, 2, 0xfd),
		line(-7, 9, 1, 0x1fd),
		line(-5, 7, 1, 0x7c),
		line(-3, 4, 1, 0xa),
		line(-1, 3, 1, 0x2),
		line(1, 3, 1, 0x3),
		line(3, 5, 1, 0x1a),
		line(5, 6, 1, 0x3a),
		line(7, 3, 5, 0x4),
		line(39, 6, 2, 0x3b),
		line(43, 4, 5, 0xb),
		line(75, 4, 6, 0xc),
		line(139, 5, 7, 0x1b),
		line(267, 5, 8, 0x1c),
		line(523, 6, 8, 0x3c),
		line(779, 7, 9, 0x7d),
		line(1291, 6, 11, 0x3d),
		lowerLine(-32, 9, 0x1fe),
		line(3339, 9, 32, 0x1ff),
		oobLine(2, 0x0),
	},
	10: {
		line(-21, 7, 4, 0x7a),
		line(-5, 8, 0, 0xfc),
		line(-4, 7, 0, 0x7b),
		line(-3, 5, 0, 0x18),
		line(-2, 2, 2, 0x0),
		line(2, 5, 0, 0x19),
		line(3, 6, 0, 0x36),
		line(4, 7, 0, 0x7c),
		line(5, 8, 0, 0xfd),
		line(6, 2, 6, 0x1),
		line(70, 5, 5, 0x1a),
		line(102, 6, 5, 0x37),
		line(134, 6, 6, 0x38),
		line(198, 6, 7, 0x39),
		line(326, 6, 8, 0x3a),
		line(582, 6, 9, 0x3b),
		line(1094, 6, 10, 0x3c),
		line(2118, 7, 11, 0x7d),
		lowerLine(-22, 8, 0xfe),
		line(4166, 8, 32, 0xff),
		oobLine(2, 0x2),
	},
	11: {
		line(1, 1, 0, 0x0),
		line(2, 2, 1, 0x2),
		line(4, 4, 0, 0xc),
		line(5, 4, 1, 0xd),
		line(7, 5, 1, 0x1c),
		line(9, 5, 2, 0x1d),
		line(13, 6, 2, 0x3c),
		line(17, 7, 2, 0x7a),
		line(21, 7, 3, 0x7b),
		line(29, 7, 4, 0x7c),
		line(45, 7, 5, 0x7d),
		line(77, 7, 6, 0x7e),
		line(141, 7, 32, 0x7f),
	},
	12: {
		line(1, 1, 0, 0x0),
		line(2, 2, 0, 0x2),
		line(3, 3, 1, 0x6),
		line(5, 5, 0, 0x1c),
		line(6, 5, 1, 0x1d),
		line(8, 6, 1, 0x3c),
		line(10, 7, 0, 0x7a),
		line(11, 7, 1, 0x7b),
		line(13, 7, 2, 0x7c),
		line(17, 7, 3, 0x7d),
		line(25, 7, 4, 0x7e),
		line(41, 8, 5, 0xfe),
		line(73, 8, 32, 0xff),
	},
	13: {
		line(1, 1, 0, 0x0),
		line(2, 3, 0, 0x4),
		line(3, 4, 0, 0xc),
		line(4, 5, 0, 0x1c),
		line(5, 4, 1, 0xd),
		line(7, 3, 3, 0x5),
		line(15, 6, 1, 0x3a),
		line(17, 6, 2, 0x3b),
		line(21, 6, 3, 0x3c),
		line(29, 6, 4, 0x3d),
		line(45, 6, 5, 0x3e),
		line(77, 7, 6, 0x7e),
		line(141, 7, 32, 0x7f),
	},
	14: {
		line(-2, 3, 0, 0x4),
		line(-1, 3, 0, 0x5),
		line(0, 1, 0, 0x0),
		line(1, 3, 0, 0x6),
		line(2, 3, 0, 0x7),
	},
	15: {
		line(-24, 7, 4, 0x7c),
		line(-8, 6, 2, 0x3c),
		line(-4, 5, 1, 0x1c),
		line(-2, 4, 0, 0xc),
		line(-1, 3, 0, 0x4),
		line(0, 1, 0, 0x0),
		line(1, 3, 0, 0x5),
		line(2, 4, 0, 0xd),
		line(3, 5, 1, 0x1d),
		line(5, 6, 2, 0x3d),
		line(9, 7, 4, 0x7d),
		lowerLine(-25, 7, 0x7e),
		line(25, 7, 32, 0x7f),
	},
}

// standardTableCache 标准表只构建一次, 之后只读共享
var standardTableCache [16]struct {
	once  sync.Once
	table *HuffmanTable
	err   error
}

// StandardTable 获取标准霍夫曼表 B.n
// 入参: n 表编号 1..15
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func StandardTable(n int) (*HuffmanTable, error) {
	if n < 1 || n > 15 {
		return nil, FormatError(fmt.Sprintf("standard Huffman table B.%d does not exist", n))
	}
	c := &standardTableCache[n]
	c.once.Do(func() {
		c.table, c.err = NewHuffmanTable(kStandardTableLines[n], true)
	})
	return c.table, c.err
}

// customTables 按引用顺序依次取用的自定义表
type customTables struct {
	tables []*HuffmanTable
	next   int
}

// take 取下一个自定义表
func (c *customTables) take(what string) (*HuffmanTable, error) {
	if c.next >= len(c.tables) {
		return nil, FormatError(fmt.Sprintf("%s selects a custom table that was not referred to", what))
	}
	t := c.tables[c.next]
	c.next++
	return t, nil
}

// selectTable 按选择值取标准表或自定义表
// 入参: what 用途, selector 选择值, standard 各选择值对应的标准表编号(0为非法), custom 自定义表
func selectTable(what string, selector uint8, standard []int, custom *customTables) (*HuffmanTable, error) {
	if int(selector) == len(standard) {
		return custom.take(what)
	}
	if int(selector) > len(standard) || standard[selector] == 0 {
		return nil, FormatError(fmt.Sprintf("invalid %s table selector %d", what, selector))
	}
	return StandardTable(standard[selector])
}

// symbolDictTables 符号字典的霍夫曼表
type symbolDictTables struct {
	DeltaHeight *HuffmanTable
	DeltaWidth  *HuffmanTable
	BitmapSize  *HuffmanTable
	AggInst     *HuffmanTable
}

// selectSymbolDictTables 选择符号字典使用的霍夫曼表(7.4.2.1.6)
// 入参: sd 段字段, custom 引用段中的自定义表
// 返回: *symbolDictTables 表集合, error 错误信息
func selectSymbolDictTables(sd *symbolDictionarySegment, custom []*HuffmanTable) (*symbolDictTables, error) {
	c := &customTables{tables: custom}
	var (
		t   symbolDictTables
		err error
	)
	if t.DeltaHeight, err = selectTable("SDHUFFDH", sd.DHSelector, []int{4, 5, 0}, c); err != nil {
		return nil, err
	}
	if t.DeltaWidth, err = selectTable("SDHUFFDW", sd.DWSelector, []int{2, 3, 0}, c); err != nil {
		return nil, err
	}
	if t.BitmapSize, err = selectTable("SDHUFFBMSIZE", sd.BMSizeSelector, []int{1}, c); err != nil {
		return nil, err
	}
	if t.AggInst, err = selectTable("SDHUFFAGGINST", sd.AggInstSelector, []int{1}, c); err != nil {
		return nil, err
	}
	return &t, nil
}

// textRegionTables 文本区域的霍夫曼表
type textRegionTables struct {
	SymbolID *HuffmanTable
	FirstS   *HuffmanTable
	DeltaS   *HuffmanTable
	DeltaT   *HuffmanTable
}

// selectTextRegionTables 读取符号ID表并选择文本区域使用的霍夫曼表(7.4.3.1.6)
// 入参: tr 段字段, custom 引用段中的自定义表, bs 位流, numSymbols 符号数, logger 日志
// 返回: *textRegionTables 表集合, error 错误信息
func selectTextRegionTables(tr *textRegionSegment, custom []*HuffmanTable, bs *BitStream, numSymbols int, logger *slog.Logger) (*textRegionTables, error) {
	c := &customTables{tables: custom}
	var (
		t   textRegionTables
		err error
	)
	if t.FirstS, err = selectTable("SBHUFFFS", tr.FSSelector, []int{6, 7, 0}, c); err != nil {
		return nil, err
	}
	if t.DeltaS, err = selectTable("SBHUFFDS", tr.DSSelector, []int{8, 9, 10}, c); err != nil {
		return nil, err
	}
	if t.DeltaT, err = selectTable("SBHUFFDT", tr.DTSelector, []int{11, 12, 13}, c); err != nil {
		return nil, err
	}
	if t.SymbolID, err = decodeSymbolIDTable(bs, numSymbols, logger); err != nil {
		return nil, err
	}
	return &t, nil
}
