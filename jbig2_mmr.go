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
	"errors"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

const (
	// maxEOFBReads 查找EOFB时最多向后查看的字节数
	maxEOFBReads = 5
	// eofbCode EOFB为两个连续的EOL
	eofbCode = 0x001001
)

// decodeMMR 使用 CCITT Group 4 解码位图
// 行按字节对齐输出, 与 Image 的行跨度一致; 位流前进到已消耗字节之后
// 入参: bs 位流, width 宽度, height 高度, endOfBlock 是否需要消耗EOFB
// 返回: *Image 位图, error 错误信息
func decodeMMR(bs *BitStream, width, height int, endOfBlock bool) (*Image, error) {
	img := NewImage(width, height)
	if width == 0 || height == 0 {
		return img, nil
	}
	bs.AlignByte()
	src := &oneByteReader{bs: bs}
	dec := ccitt.NewReader(src, ccitt.MSB, ccitt.Group4, width, height, &ccitt.Options{Invert: true})
	data := img.Data()
	n, err := io.ReadFull(dec, data)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, FormatError(fmt.Sprintf("MMR data: %v", err))
		}
		// 数据提前结束时其余像素保持为0
		clear(data[n:])
		return img, nil
	}
	if endOfBlock {
		skipEOFB(bs)
	}
	return img, nil
}

// skipEOFB 跳过位图之后的EOFB, 并对齐到下一字节
// 解码器只读到最后一行所在的字节, EOFB从该字节或下一字节开始
func skipEOFB(bs *BitStream) {
	base := max(bs.Offset()-1, bs.start)
	end := min(bs.Offset()+maxEOFBReads, bs.end)
	var window uint64
	nbits := 0
	for i := base; i < end; i++ {
		window = window<<8 | uint64(bs.data[i])
		nbits += 8
	}
	for p := 0; p < 16 && p+24 <= nbits; p++ {
		if (window>>uint(nbits-24-p))&0xFFFFFF == eofbCode {
			bs.SetOffset(base + (p+24+7)/8)
			return
		}
	}
}
