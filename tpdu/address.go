package tpdu

import (
	"strings"

	"github.com/go-gsm/gsmta/pdu"
)

// Type-of-number values, as carried in bits 6-4 of an address's
// type-of-address octet (GSM 03.40 §9.1.2.5).
const (
	TONUnknown         byte = 0x00
	TONInternational   byte = 0x01
	TONNational        byte = 0x02
	TONNetworkSpecific byte = 0x03
	TONSubscriber      byte = 0x04
	TONAlphanumeric    byte = 0x05
	TONAbbreviated     byte = 0x06
)

// Numbering-plan-identification values, carried in bits 3-0.
const (
	NPIUnknown byte = 0x00
	NPIE164    byte = 0x01
)

// Address is a TP address: a phone number (or, for alphanumeric
// originators, free text) plus the raw type-of-address octet that
// classifies it. TOA always has bit 7 set, per the wire format.
type Address struct {
	Number string
	TOA    byte
}

// NewAddress builds an Address from a plain number, inferring
// international format from a leading '+' and unknown format otherwise,
// per the convention described in the data model: a leading '+' maps to
// type 145 (international, E.164), everything else to type 129 (unknown,
// E.164).
func NewAddress(number string) Address {
	toa := byte(0x80) | NPIE164
	if strings.HasPrefix(number, "+") {
		toa |= TONInternational << 4
	} else {
		toa |= TONUnknown << 4
	}
	return Address{Number: number, TOA: toa}
}

// TON returns the type-of-number carried by the address.
func (a Address) TON() byte {
	return (a.TOA >> 4) & 0x07
}

// IsAlphanumeric reports whether the address is an alphanumeric
// originator (GSM-7 packed text) rather than a BCD phone number.
func (a Address) IsAlphanumeric() bool {
	return a.TON() == TONAlphanumeric
}

func blocks(n, block int) int {
	if n%block == 0 {
		return n / block
	}
	return n/block + 1
}

func digitsOf(number string) string {
	number = strings.TrimPrefix(number, "+")
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EncodeTPAddress encodes an address in the TP-OA/TP-DA/TP-RA form: a
// length-in-nibbles byte, a type byte, and the address body.
func (a Address) EncodeTPAddress() []byte {
	var body []byte
	var nibbleLen int
	if a.IsAlphanumeric() {
		septets := pdu.Encode7Bit(a.Number)
		body = pdu.Pack7Bit(septets, 0)
		nibbleLen = (len(septets)*7 + 3) / 4
	} else {
		digits := digitsOf(a.Number)
		body = pdu.EncodeSemiDigits(digits)
		nibbleLen = len(digits)
	}
	out := make([]byte, 0, 2+len(body))
	out = append(out, byte(nibbleLen), a.TOA)
	return append(out, body...)
}

// DecodeTPAddress decodes a TP-OA/TP-DA/TP-RA address starting at data[0]
// and returns the address plus the number of bytes consumed.
func DecodeTPAddress(data []byte) (Address, int, error) {
	if len(data) < 2 {
		return Address{}, 0, PduError{Reason: "address: truncated"}
	}
	nibbleLen := int(data[0])
	toa := data[1]
	bodyLen := blocks(nibbleLen, 2)
	if len(data) < 2+bodyLen {
		return Address{}, 0, PduError{Reason: "address: length field disagrees with payload"}
	}
	body := data[2 : 2+bodyLen]
	a := Address{TOA: toa}
	if a.IsAlphanumeric() {
		septetCount := nibbleLen * 4 / 7
		septets := pdu.Unpack7Bit(body, septetCount, 0)
		a.Number = pdu.Decode7BitSeptets(septets)
	} else {
		digits := pdu.DecodeSemiDigits(body)
		if a.TON() == TONInternational {
			a.Number = "+" + digits
		} else {
			a.Number = digits
		}
	}
	return a, 2 + bodyLen, nil
}

// EncodeSCA encodes a service-centre address in its octet-length-prefixed
// form. A nil address (or one with an empty number) encodes as a single
// zero-length byte, matching an absent SCA.
func EncodeSCA(a *Address) []byte {
	if a == nil || a.Number == "" {
		return []byte{0x00}
	}
	digits := digitsOf(a.Number)
	body := pdu.EncodeSemiDigits(digits)
	octetLen := 1 + len(body)
	out := make([]byte, 0, 1+octetLen)
	out = append(out, byte(octetLen), a.TOA)
	return append(out, body...)
}

// DecodeSCA decodes a service-centre address from its octet-length-prefixed
// form, returning (nil, 1, nil) when the length octet is zero.
func DecodeSCA(data []byte) (*Address, int, error) {
	if len(data) < 1 {
		return nil, 0, PduError{Reason: "sca: truncated"}
	}
	octetLen := int(data[0])
	if octetLen == 0 {
		return nil, 1, nil
	}
	if len(data) < 1+octetLen {
		return nil, 0, PduError{Reason: "sca: length field disagrees with payload"}
	}
	toa := data[1]
	body := data[2 : 1+octetLen]
	digits := pdu.DecodeSemiDigits(body)
	a := Address{TOA: toa}
	if a.TON() == TONInternational {
		a.Number = "+" + digits
	} else {
		a.Number = digits
	}
	return &a, 1 + octetLen, nil
}
