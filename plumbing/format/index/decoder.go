package index

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/utils/binary"
)

var indexSignature = [4]byte{'D', 'I', 'R', 'C'}

const entryPaddingBoundary = 8

// Decoder reads the binary index format from an underlying reader.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads a complete index from the underlying reader into idx.
func (d *Decoder) Decode(idx *Index) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, d.r); err != nil {
		return err
	}
	content := buf.Bytes()

	if len(content) < 12+hash.Size {
		return fmt.Errorf("index: truncated file")
	}

	body := content[:len(content)-hash.Size]
	wantSum := content[len(content)-hash.Size:]

	got := hash.New(body)
	var want hash.Hash
	copy(want[:], wantSum)
	if got != want {
		return ErrInvalidChecksum
	}

	r := bytes.NewReader(body)

	var sig [4]byte
	if err := binary.Read(r, &sig); err != nil {
		return err
	}
	if sig != indexSignature {
		return fmt.Errorf("index: invalid signature %q", sig)
	}

	version, err := binary.ReadUint32(r)
	if err != nil {
		return err
	}
	if version != Version {
		return ErrUnsupportedVersion
	}
	idx.Version = version

	count, err := binary.ReadUint32(r)
	if err != nil {
		return err
	}

	idx.Entries = make([]*Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, err := readEntry(r)
		if err != nil {
			return err
		}
		idx.Entries = append(idx.Entries, e)
	}

	return nil
}

func readEntry(r *bytes.Reader) (*Entry, error) {
	start := r.Len()

	ctimeSec, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	ctimeNano, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	mtimeSec, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	mtimeNano, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	dev, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	inode, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	mode, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	uid, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	gid, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	size, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	h, err := binary.ReadHash(r)
	if err != nil {
		return nil, err
	}

	nameLen, err := binary.ReadUint16(r)
	if err != nil {
		return nil, err
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, err
	}

	consumed := start - r.Len()
	pad := entryPaddingBoundary - (consumed % entryPaddingBoundary)
	if pad == 0 {
		pad = entryPaddingBoundary
	}
	if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
		return nil, err
	}

	return &Entry{
		Name:       string(name),
		Hash:       h,
		Mode:       filemode.FileMode(mode),
		Size:       size,
		CreatedAt:  time.Unix(int64(ctimeSec), int64(ctimeNano)),
		ModifiedAt: time.Unix(int64(mtimeSec), int64(mtimeNano)),
		Dev:        dev,
		Inode:      inode,
		UID:        uid,
		GID:        gid,
	}, nil
}
