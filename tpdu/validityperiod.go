package tpdu

// VPFormat is the TP-VPF field of an SMS-SUBMIT, selecting how (or
// whether) a validity period is present.
type VPFormat byte

const (
	VPFieldNotPresent VPFormat = 0x00
	VPEnhanced        VPFormat = 0x01
	VPRelative        VPFormat = 0x02
	VPAbsolute        VPFormat = 0x03
)

// ValidityPeriod is the lifetime of a submitted message: absent, a
// relative code (0-255, per GSM 03.40 §9.2.3.12.1), or an absolute
// timestamp.
type ValidityPeriod struct {
	Format   VPFormat
	Relative byte
	Absolute Timestamp
}

// Encode writes the validity period's wire form: zero bytes when absent,
// one relative byte, or a 7-byte timestamp when absolute.
func (v ValidityPeriod) Encode() []byte {
	switch v.Format {
	case VPRelative:
		return []byte{v.Relative}
	case VPAbsolute:
		return v.Absolute.Encode()
	default:
		return nil
	}
}

// DecodeValidityPeriod decodes a validity period of the given format from
// the front of data, returning the number of bytes consumed.
func DecodeValidityPeriod(format VPFormat, data []byte) (ValidityPeriod, int, error) {
	switch format {
	case VPFieldNotPresent:
		return ValidityPeriod{Format: format}, 0, nil
	case VPRelative:
		if len(data) < 1 {
			return ValidityPeriod{}, 0, PduError{Reason: "validity period: truncated"}
		}
		return ValidityPeriod{Format: format, Relative: data[0]}, 1, nil
	case VPAbsolute:
		ts, n, err := DecodeTimestamp(data)
		if err != nil {
			return ValidityPeriod{}, 0, err
		}
		return ValidityPeriod{Format: format, Absolute: ts}, n, nil
	case VPEnhanced:
		return ValidityPeriod{}, 0, ErrUnsupportedValidityPeriod
	default:
		return ValidityPeriod{}, 0, PduError{Reason: "validity period: unknown format"}
	}
}

// relativeOctetTable reproduces the non-linear relative-validity-period
// encoding of GSM 03.40 §9.2.3.12.1: the octet does not mean a uniform
// number of 5-minute units across its whole range.
//
// 0-143   : (octet + 1) * 5 minutes        (up to 12 hours)
// 144-167 : 12 hours + (octet - 143) * 30 minutes
// 168-196 : (octet - 166) * 1 day
// 197-255 : (octet - 192) * 1 week

// DurationToRelativeOctet converts a duration to the closest relative
// validity period octet that does not undershoot it.
func DurationToRelativeOctet(minutes int) byte {
	switch {
	case minutes <= 0:
		return 0
	case minutes <= 12*60:
		v := (minutes+4)/5 - 1
		if v < 0 {
			v = 0
		}
		return byte(v)
	case minutes <= 24*60:
		v := 143 + (minutes-12*60+29)/30
		return byte(v)
	case minutes <= 30*24*60:
		v := 166 + (minutes+24*60-1)/(24*60)
		return byte(v)
	default:
		weeks := (minutes + 7*24*60 - 1) / (7 * 24 * 60)
		v := 192 + weeks
		if v > 255 {
			v = 255
		}
		return byte(v)
	}
}

// RelativeOctetToDuration converts a relative validity period octet back
// to minutes.
func RelativeOctetToDuration(octet byte) int {
	v := int(octet)
	switch {
	case v <= 143:
		return (v + 1) * 5
	case v <= 167:
		return 12*60 + (v-143)*30
	case v <= 196:
		return (v - 166) * 24 * 60
	default:
		return (v - 192) * 7 * 24 * 60
	}
}
