package pdu

// defaultAlphabet is the GSM 03.38 default alphabet, indexed by septet
// value 0x00-0x7F.
var defaultAlphabet = [128]rune{
	'@', '£', '$', '¥', 'è', 'é', 'ù', 'ì', 'ò', 'Ç', '\n', 'Ø', 'ø', '\r', 'Å', 'å',
	'Δ', '_', 'Φ', 'Γ', 'Λ', 'Ω', 'Π', 'Ψ', 'Σ', 'Θ', 'Ξ', esc, 'Æ', 'æ', 'ß', 'É',
	' ', '!', '"', '#', '¤', '%', '&', '\'', '(', ')', '*', '+', ',', '-', '.', '/',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', ':', ';', '<', '=', '>', '?',
	'¡', 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z', 'Ä', 'Ö', 'Ñ', 'Ü', '§',
	'¿', 'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o',
	'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z', 'ä', 'ö', 'ñ', 'ü', 'à',
}

// esc is the escape-to-extension-table septet, 0x1B.
const esc = rune(0x1B)

// extensionTable maps the septet following an esc to its extended
// character. Septets with no entry decode to a space, per GSM 03.38.
var extensionTable = map[byte]rune{
	0x0A: '\f',
	0x14: '^',
	0x28: '{',
	0x29: '}',
	0x2F: '\\',
	0x3C: '[',
	0x3D: '~',
	0x3E: ']',
	0x40: '|',
	0x65: '€',
}

var (
	defaultEncode   map[rune]byte
	extensionEncode map[rune]byte
)

func init() {
	defaultEncode = make(map[rune]byte, len(defaultAlphabet))
	for i, r := range defaultAlphabet {
		if r == esc {
			continue
		}
		defaultEncode[r] = byte(i)
	}
	extensionEncode = make(map[rune]byte, len(extensionTable))
	for b, r := range extensionTable {
		extensionEncode[r] = b
	}
}

// Encode7Bit converts text into GSM 03.38 default-alphabet septets (one
// septet per byte of the returned slice, not yet packed into octets).
// Characters with no representation, direct or extended, are replaced with
// a space.
func Encode7Bit(text string) []byte {
	septets := make([]byte, 0, len(text))
	for _, r := range text {
		if b, ok := defaultEncode[r]; ok {
			septets = append(septets, b)
			continue
		}
		if b, ok := extensionEncode[r]; ok {
			septets = append(septets, byte(esc), b)
			continue
		}
		septets = append(septets, defaultEncode[' '])
	}
	return septets
}

// Decode7BitSeptets maps unpacked septets back to text via the default
// alphabet and its extension table.
func Decode7BitSeptets(septets []byte) string {
	runes := make([]rune, 0, len(septets))
	for i := 0; i < len(septets); i++ {
		s := septets[i] & 0x7F
		if rune(s) == esc {
			if i+1 < len(septets) {
				i++
				if r, ok := extensionTable[septets[i]&0x7F]; ok {
					runes = append(runes, r)
					continue
				}
				runes = append(runes, ' ')
				continue
			}
			break
		}
		runes = append(runes, defaultAlphabet[s])
	}
	return string(runes)
}

// Pack7Bit packs a slice of 7-bit septets into the GSM 03.40 octet-aligned
// wire representation. padSeptets inserts that many zero-valued fill
// septets before the real data, which is how a UDH's non-septet-aligned
// octet length is reconciled with the following text's septet boundary
// (GSM 03.40 §9.2.3.24).
func Pack7Bit(septets []byte, padSeptets int) []byte {
	if padSeptets > 0 {
		padded := make([]byte, padSeptets+len(septets))
		copy(padded[padSeptets:], septets)
		septets = padded
	}
	n := len(septets)
	packedLen := (n*7 + 7) / 8
	packed := make([]byte, packedLen)
	for i, s := range septets {
		bitOffset := uint((i * 7) % 8)
		byteOffset := (i * 7) / 8
		packed[byteOffset] |= s << bitOffset
		if bitOffset > 1 && byteOffset+1 < packedLen {
			packed[byteOffset+1] |= s >> (8 - bitOffset)
		}
	}
	return packed
}

// Unpack7Bit unpacks septetCount septets from the octet-aligned wire
// representation, discarding the leading padSeptets septets (the
// positions Pack7Bit reserved for a UDH and its fill bits).
func Unpack7Bit(octets []byte, septetCount int, padSeptets int) []byte {
	total := septetCount + padSeptets
	septets := make([]byte, total)
	for i := 0; i < total; i++ {
		byteOffset := (i * 7) / 8
		bitOffset := uint((i * 7) % 8)
		var b byte
		if byteOffset < len(octets) {
			b = octets[byteOffset] >> bitOffset
		}
		if bitOffset > 1 && byteOffset+1 < len(octets) {
			b |= octets[byteOffset+1] << (8 - bitOffset)
		}
		septets[i] = b & 0x7F
	}
	return septets[padSeptets:]
}

// SeptetsForUDHLength returns the number of septet positions occupied by a
// UDH of udhOctets octets (including its length byte) plus the fill bits
// that follow it, i.e. the septet index at which the text starts, per
// GSM 03.40 §9.2.3.24. A 6-octet UDH occupies 7 septets.
func SeptetsForUDHLength(udhOctets int) int {
	bits := udhOctets * 8
	septets := (bits + 6) / 7
	return septets
}
