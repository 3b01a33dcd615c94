package vault

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Wire layout constants.
const (
	nonceLen = 12
	tagLen   = 16
	dkLenLen = 2 // big-endian length prefix of the encrypted data key
)

// record is the decoded form of a local-scheme ciphertext:
// nonce(12) ‖ tag(16) ‖ ciphertext.
type record struct {
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// envelopeRecord prepends the KMS-encrypted data key:
// dkLen(2,BE) ‖ encryptedDataKey ‖ nonce(12) ‖ tag(16) ‖ ciphertext.
type envelopeRecord struct {
	EncryptedDataKey []byte
	record
}

func (r record) encode() string {
	buf := make([]byte, 0, nonceLen+tagLen+len(r.Ciphertext))
	buf = append(buf, r.Nonce...)
	buf = append(buf, r.Tag...)
	buf = append(buf, r.Ciphertext...)
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeRecord(s string) (record, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return record{}, fmt.Errorf("vault: decode ciphertext: %w", err)
	}
	if len(buf) < nonceLen+tagLen {
		return record{}, fmt.Errorf("vault: ciphertext too short (%d bytes)", len(buf))
	}
	return record{
		Nonce:      buf[:nonceLen],
		Tag:        buf[nonceLen : nonceLen+tagLen],
		Ciphertext: buf[nonceLen+tagLen:],
	}, nil
}

func (r envelopeRecord) encode() string {
	buf := make([]byte, 0, dkLenLen+len(r.EncryptedDataKey)+nonceLen+tagLen+len(r.Ciphertext))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(r.EncryptedDataKey)))
	buf = append(buf, r.EncryptedDataKey...)
	buf = append(buf, r.Nonce...)
	buf = append(buf, r.Tag...)
	buf = append(buf, r.Ciphertext...)
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeEnvelopeRecord(s string) (envelopeRecord, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return envelopeRecord{}, fmt.Errorf("vault: decode ciphertext: %w", err)
	}
	if len(buf) < dkLenLen {
		return envelopeRecord{}, fmt.Errorf("vault: ciphertext too short (%d bytes)", len(buf))
	}
	dkLen := int(binary.BigEndian.Uint16(buf[:dkLenLen]))
	rest := buf[dkLenLen:]
	if len(rest) < dkLen+nonceLen+tagLen {
		return envelopeRecord{}, fmt.Errorf("vault: ciphertext truncated (%d bytes)", len(buf))
	}
	return envelopeRecord{
		EncryptedDataKey: rest[:dkLen],
		record: record{
			Nonce:      rest[dkLen : dkLen+nonceLen],
			Tag:        rest[dkLen+nonceLen : dkLen+nonceLen+tagLen],
			Ciphertext: rest[dkLen+nonceLen+tagLen:],
		},
	}, nil
}
