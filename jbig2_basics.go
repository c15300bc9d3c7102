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
	"math/bits"
)

const (
	// defaultMaxPixels 单个位图允许的最大像素数
	defaultMaxPixels = 1 << 30
	// regionInfoLength 区域段信息字段长度
	regionInfoLength = 17
	// unknownLength 未知段长度标记
	unknownLength = 0xffffffff
)

// fileMagic 文件头标识
var fileMagic = []byte{0x97, 0x4A, 0x42, 0x32, 0x0D, 0x0A, 0x1A, 0x0A}

// ComposeOp 组合操作类型
type ComposeOp uint8

const (
	// ComposeOr 或操作
	ComposeOr ComposeOp = 0
	// ComposeAnd 与操作
	ComposeAnd ComposeOp = 1
	// ComposeXor 异或操作
	ComposeXor ComposeOp = 2
	// ComposeXnor 同或操作
	ComposeXnor ComposeOp = 3
	// ComposeReplace 替换操作
	ComposeReplace ComposeOp = 4
)

// String 返回操作名称
func (op ComposeOp) String() string {
	switch op {
	case ComposeOr:
		return "OR"
	case ComposeAnd:
		return "AND"
	case ComposeXor:
		return "XOR"
	case ComposeXnor:
		return "XNOR"
	case ComposeReplace:
		return "REPLACE"
	}
	return fmt.Sprintf("ComposeOp(%d)", uint8(op))
}

// Corner 文本区域参考角
type Corner uint8

const (
	CornerBottomLeft  Corner = 0
	CornerTopLeft     Corner = 1
	CornerBottomRight Corner = 2
	CornerTopRight    Corner = 3
)

func (c Corner) isTop() bool   { return c&1 != 0 }
func (c Corner) isRight() bool { return c&2 != 0 }

// Point 模板像素偏移
type Point struct {
	X int
	Y int
}

// RegionInfo 区域段信息
type RegionInfo struct {
	Width  uint32
	Height uint32
	X      int32
	Y      int32
	CombOp ComposeOp
}

// parseRegionInfo 解析区域段信息字段
// 入参: bs 位流
// 返回: RegionInfo 区域信息, error 错误信息
func parseRegionInfo(bs *BitStream) (RegionInfo, error) {
	var ri RegionInfo
	var err error
	if ri.Width, err = bs.ReadUint32(); err != nil {
		return ri, err
	}
	if ri.Height, err = bs.ReadUint32(); err != nil {
		return ri, err
	}
	if ri.X, err = bs.ReadInt32(); err != nil {
		return ri, err
	}
	if ri.Y, err = bs.ReadInt32(); err != nil {
		return ri, err
	}
	flags, err := bs.ReadByte()
	if err != nil {
		return ri, err
	}
	ri.CombOp = ComposeOp(flags & 7)
	return ri, nil
}

// log2Ceil 返回不小于log2(n)的最小整数
func log2Ceil(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
