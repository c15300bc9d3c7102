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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeLatin1Comments(t *testing.T) {
	data := []byte("Title\x00Caf\xe9\x00Author\x00X\x00\x00")
	comments, known, err := decodeComments(extensionLatin1Comment, NewBitStream(data, 0, len(data)), 3)
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, []Comment{
		{Name: "Title", Value: "Café", Page: 3},
		{Name: "Author", Value: "X", Page: 3},
	}, comments)
}

func TestDecodeUnicodeComments(t *testing.T) {
	data := []byte{
		0, 'K', 0, 'e', 0, 'y', 0, 0,
		0x4e, 0x2d, 0x65, 0x87, 0, 0,
	}
	comments, known, err := decodeComments(extensionUnicodeComment, NewBitStream(data, 0, len(data)), 0)
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, []Comment{{Name: "Key", Value: "中文"}}, comments)
}

func TestDecodeCommentsTruncated(t *testing.T) {
	data := []byte("Name\x00Val")
	_, known, err := decodeComments(extensionLatin1Comment, NewBitStream(data, 0, len(data)), 0)
	require.True(t, known)
	require.Error(t, err)
}

func TestDecodeUnknownExtension(t *testing.T) {
	comments, known, err := decodeComments(0x10000001, NewBitStream(nil, 0, 0), 0)
	require.NoError(t, err)
	require.False(t, known)
	require.Nil(t, comments)

	_, known, err = decodeComments(extensionNecessary|1, NewBitStream(nil, 0, 0), 0)
	require.False(t, known)
	var unsupported UnsupportedError
	require.True(t, errors.As(err, &unsupported))
}
