package binary

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcevc/source/plumbing/hash"
)

func TestRead(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, binary.Write(buf, binary.BigEndian, int64(42)))
	require.NoError(t, binary.Write(buf, binary.BigEndian, int32(42)))

	var i64 int64
	var i32 int32
	require.NoError(t, Read(buf, &i64, &i32))
	assert.Equal(t, int64(42), i64)
	assert.Equal(t, int32(42), i32)
}

func TestReadUntil(t *testing.T) {
	buf := bytes.NewBuffer([]byte("foo bar"))

	b, err := ReadUntil(buf, ' ')
	require.NoError(t, err)
	assert.Equal(t, "foo", string(b))
}

func TestReadUntilFromBufioReader(t *testing.T) {
	buf := bufio.NewReader(bytes.NewBuffer([]byte("foo bar")))

	b, err := ReadUntilFromBufioReader(buf, ' ')
	require.NoError(t, err)
	assert.Equal(t, "foo", string(b))
}

func TestReadVariableWidthInt(t *testing.T) {
	buf := bytes.NewBuffer([]byte{129, 110})

	i, err := ReadVariableWidthInt(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(366), i)
}

func TestReadVariableWidthIntShort(t *testing.T) {
	buf := bytes.NewBuffer([]byte{19})

	i, err := ReadVariableWidthInt(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(19), i)
}

func TestReadUint32(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(42)))

	v, err := ReadUint32(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
}

func TestReadUint16(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint16(42)))

	v, err := ReadUint16(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), v)
}

func TestReadHash(t *testing.T) {
	raw := make([]byte, hash.Size)
	for i := range raw {
		raw[i] = byte(i)
	}
	buf := bytes.NewBuffer(raw)

	h, err := ReadHash(buf)
	require.NoError(t, err)
	assert.Equal(t, raw, h.Bytes())
}

func TestReadHashShort(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, hash.Size-1))

	_, err := ReadHash(buf)
	assert.Error(t, err)
}
