package tpdu

import (
	"time"

	"github.com/go-gsm/gsmta/pdu"
)

// Timestamp is a GSM 03.40 semi-octet timestamp: year, month, day, hour,
// minute, second, and a quarter-hour timezone offset from UTC.
type Timestamp time.Time

// Encode writes the timestamp as its 7-byte semi-octet wire form.
func (t Timestamp) Encode() []byte {
	date := time.Time(t)
	year, month, day := date.Date()
	hour, minute, second := date.Clock()
	_, offsetSeconds := date.Zone()

	negative := offsetSeconds < 0
	if negative {
		offsetSeconds = -offsetSeconds
	}
	quarters := offsetSeconds / (15 * 60)

	octets := []byte{
		pdu.SwapNibbles(pdu.EncodeSemiDigit(year % 100)),
		pdu.SwapNibbles(pdu.EncodeSemiDigit(int(month))),
		pdu.SwapNibbles(pdu.EncodeSemiDigit(day)),
		pdu.SwapNibbles(pdu.EncodeSemiDigit(hour)),
		pdu.SwapNibbles(pdu.EncodeSemiDigit(minute)),
		pdu.SwapNibbles(pdu.EncodeSemiDigit(second)),
		pdu.SwapNibbles(pdu.EncodeSemiDigit(quarters)),
	}
	if negative {
		octets[6] |= 0x08
	}
	return octets
}

// DecodeTimestamp decodes a 7-byte semi-octet timestamp.
func DecodeTimestamp(data []byte) (Timestamp, int, error) {
	if len(data) < 7 {
		return Timestamp{}, 0, PduError{Reason: "timestamp: truncated"}
	}
	year := 2000 + pdu.DecodeSemiDigit(pdu.SwapNibbles(data[0]))
	month := pdu.DecodeSemiDigit(pdu.SwapNibbles(data[1]))
	day := pdu.DecodeSemiDigit(pdu.SwapNibbles(data[2]))
	hour := pdu.DecodeSemiDigit(pdu.SwapNibbles(data[3]))
	minute := pdu.DecodeSemiDigit(pdu.SwapNibbles(data[4]))
	second := pdu.DecodeSemiDigit(pdu.SwapNibbles(data[5]))

	negative := data[6]&0x08 != 0
	quarters := pdu.DecodeSemiDigit(pdu.SwapNibbles(data[6] &^ 0x08))
	offset := time.Duration(quarters) * 15 * time.Minute
	if negative {
		offset = -offset
	}

	utc := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	local := utc.Add(-offset).In(time.FixedZone("", int(offset.Seconds())))
	return Timestamp(local), 7, nil
}
