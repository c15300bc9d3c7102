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

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	// extensionLatin1Comment 单字节注释扩展
	extensionLatin1Comment = 0x20000000
	// extensionUnicodeComment 双字节注释扩展
	extensionUnicodeComment = 0x20000002
	// extensionNecessary 解码器必须理解的扩展
	extensionNecessary = 0x80000000
)

// Comment 扩展段携带的名称/值注释, Page 为所属页面关联号, 0表示全局
type Comment struct {
	Name  string
	Value string
	Page  uint32
}

// decodeComments 解码注释扩展的名称/值对, 空名称结束
// 入参: ext 扩展类型, bs 定位到扩展类型之后的位流, page 页面关联号
// 返回: []Comment 注释, bool 是否为可识别的注释扩展, error 错误信息
func decodeComments(ext uint32, bs *BitStream, page uint32) ([]Comment, bool, error) {
	var (
		read   func() ([]byte, error)
		decode func([]byte) ([]byte, error)
	)
	switch ext {
	case extensionLatin1Comment:
		read = func() ([]byte, error) { return readTerminated(bs, 1) }
		decode = charmap.ISO8859_1.NewDecoder().Bytes
	case extensionUnicodeComment:
		read = func() ([]byte, error) { return readTerminated(bs, 2) }
		decode = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes
	default:
		if ext&extensionNecessary != 0 {
			return nil, false, UnsupportedError(fmt.Sprintf("necessary extension 0x%08x", ext))
		}
		return nil, false, nil
	}
	var comments []Comment
	for bs.Remaining() > 0 {
		rawName, err := read()
		if err != nil {
			return nil, true, err
		}
		if len(rawName) == 0 {
			break
		}
		rawValue, err := read()
		if err != nil {
			return nil, true, err
		}
		name, err := decode(rawName)
		if err != nil {
			return nil, true, FormatError(fmt.Sprintf("comment name: %v", err))
		}
		value, err := decode(rawValue)
		if err != nil {
			return nil, true, FormatError(fmt.Sprintf("comment value: %v", err))
		}
		comments = append(comments, Comment{Name: string(name), Value: string(value), Page: page})
	}
	return comments, true, nil
}

// readTerminated 读取以全零单元结束的字符串, 不含结束单元
func readTerminated(bs *BitStream, unit int) ([]byte, error) {
	var out []byte
	for {
		zero := true
		start := len(out)
		for i := 0; i < unit; i++ {
			b, err := bs.ReadByte()
			if err != nil {
				return nil, err
			}
			out = append(out, b)
			zero = zero && b == 0
		}
		if zero {
			return out[:start], nil
		}
	}
}
