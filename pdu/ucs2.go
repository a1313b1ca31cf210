package pdu

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// ErrOddUCS2Length indicates a UCS-2 octet string with an odd number of
// bytes, which cannot be a valid sequence of UTF-16BE code units.
var ErrOddUCS2Length = errors.New("pdu: odd number of UCS-2 octets")

var ucs2 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// EncodeUCS2 encodes text as big-endian UCS-2 (UTF-16BE) octets, the
// representation used by DCS alphabet 0x08.
func EncodeUCS2(text string) ([]byte, error) {
	octets, err := ucs2.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, errors.WithMessage(err, "pdu: encode ucs2")
	}
	return octets, nil
}

// DecodeUCS2 decodes big-endian UCS-2 (UTF-16BE) octets into text.
func DecodeUCS2(octets []byte) (string, error) {
	if len(octets)%2 != 0 {
		return "", ErrOddUCS2Length
	}
	text, err := ucs2.NewDecoder().Bytes(octets)
	if err != nil {
		return "", errors.WithMessage(err, "pdu: decode ucs2")
	}
	return string(text), nil
}
