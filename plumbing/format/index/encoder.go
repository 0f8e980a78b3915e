package index

import (
	"bytes"
	"io"

	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/utils/binary"
)

// Encoder writes the binary index format to an underlying writer.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes idx in full, including the trailing checksum.
func (e *Encoder) Encode(idx *Index) error {
	var body bytes.Buffer

	if err := binary.Write(&body, indexSignature); err != nil {
		return err
	}
	if err := binary.WriteUint32(&body, Version); err != nil {
		return err
	}
	if err := binary.WriteUint32(&body, uint32(len(idx.Entries))); err != nil {
		return err
	}

	for _, ent := range idx.Entries {
		if err := writeEntry(&body, ent); err != nil {
			return err
		}
	}

	sum := hash.New(body.Bytes())

	if _, err := e.w.Write(body.Bytes()); err != nil {
		return err
	}
	_, err := e.w.Write(sum.Bytes())
	return err
}

func writeEntry(w *bytes.Buffer, e *Entry) error {
	start := w.Len()

	fields := []uint32{
		uint32(e.CreatedAt.Unix()), uint32(e.CreatedAt.Nanosecond()),
		uint32(e.ModifiedAt.Unix()), uint32(e.ModifiedAt.Nanosecond()),
		e.Dev, e.Inode, uint32(e.Mode), e.UID, e.GID, e.Size,
	}
	for _, f := range fields {
		if err := binary.WriteUint32(w, f); err != nil {
			return err
		}
	}

	if _, err := w.Write(e.Hash.Bytes()); err != nil {
		return err
	}

	if err := binary.WriteUint16(w, uint16(len(e.Name))); err != nil {
		return err
	}
	if _, err := w.WriteString(e.Name); err != nil {
		return err
	}

	consumed := w.Len() - start
	pad := entryPaddingBoundary - (consumed % entryPaddingBoundary)
	if pad == 0 {
		pad = entryPaddingBoundary
	}
	_, err := w.Write(make([]byte, pad))
	return err
}
