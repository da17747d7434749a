package backend

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const sessionRecordVersion = 1

// sessionRecord is the value stored under <p>:sess:<sid>. The layout is
//
//	version(1) | len(1) user id | len(1) email | refresh hash(32) | created(8) | expires(8)
//
// with integers big-endian unix seconds. The rotation script depends on the
// offset of the refresh hash, so any layout change needs a new version.
type sessionRecord struct {
	UserID      string
	Email       string
	RefreshHash [32]byte
	CreatedAt   int64
	ExpiresAt   int64
}

func encodeSession(r *sessionRecord) ([]byte, error) {
	if len(r.UserID) > 255 {
		return nil, errors.New("user id too long")
	}
	if len(r.Email) > 255 {
		return nil, errors.New("email too long")
	}

	var buf bytes.Buffer
	buf.Grow(3 + len(r.UserID) + len(r.Email) + 32 + 16)

	buf.WriteByte(sessionRecordVersion)
	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)
	buf.WriteByte(byte(len(r.Email)))
	buf.WriteString(r.Email)
	buf.Write(r.RefreshHash[:])

	var ts [16]byte
	binary.BigEndian.PutUint64(ts[:8], uint64(r.CreatedAt))
	binary.BigEndian.PutUint64(ts[8:], uint64(r.ExpiresAt))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

func decodeSession(data []byte) (*sessionRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionRecordVersion {
		return nil, errors.New("invalid session record version")
	}

	r := &sessionRecord{}
	if r.UserID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if r.Email, err = readShortString(reader); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, r.RefreshHash[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in session record")
	}
	return r, nil
}

const objectRecordVersion = 1

// object layout: version(1) | len(1) content type | created(8) | data
func encodeObject(contentType string, created time.Time, data []byte) ([]byte, error) {
	if len(contentType) > 255 {
		return nil, errors.New("content type too long")
	}
	out := make([]byte, 0, 10+len(contentType)+len(data))
	out = append(out, objectRecordVersion, byte(len(contentType)))
	out = append(out, contentType...)
	out = binary.BigEndian.AppendUint64(out, uint64(created.Unix()))
	return append(out, data...), nil
}

func decodeObject(raw []byte) (*Object, error) {
	if len(raw) < 2 || raw[0] != objectRecordVersion {
		return nil, errors.New("invalid object record")
	}
	ctLen := int(raw[1])
	if len(raw) < 2+ctLen+8 {
		return nil, errors.New("truncated object record")
	}
	ct := string(raw[2 : 2+ctLen])
	created := int64(binary.BigEndian.Uint64(raw[2+ctLen:]))
	return &Object{
		ContentType: ct,
		CreatedAt:   time.Unix(created, 0).UTC(),
		Data:        raw[2+ctLen+8:],
	}, nil
}

func readShortString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
