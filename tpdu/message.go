// Package tpdu implements the GSM 03.40 transfer-layer PDU formats
// carried as the payload of +CMGS, +CMGR and the unsolicited +CMT/+CDS
// indications: SMS-SUBMIT, SMS-DELIVER, SMS-STATUS-REPORT and
// SMS-SUBMIT-REPORT. It builds on package pdu for the octet-level
// encodings and owns the field layout GSM 03.40 itself defines.
package tpdu

import (
	"encoding/hex"
	"strings"

	"github.com/go-gsm/gsmta/pdu"
)

// Type identifies which of the four TPDU variants a Message represents.
type Type int

const (
	TypeDeliver Type = iota
	TypeSubmit
	TypeStatusReport
	TypeSubmitReport
)

// Status-report delivery status codes (GSM 03.40 §9.2.3.15), the values
// most commonly seen in +CDS indications.
const (
	StatusDelivered        byte = 0x00
	StatusForwarded        byte = 0x01
	StatusReplaced         byte = 0x02
	StatusStillTrying      byte = 0x20 // temporary error, SC still trying
	StatusPermanentFailure byte = 0x40
	StatusTemporaryFailure byte = 0x60 // temporary error, SC gave up
)

// Message is a decoded or about-to-be-encoded TPDU. It is a flat,
// tagged-union style record: the Type field selects which of the
// variant-specific fields below are meaningful, following the same
// field set as GSM 03.40 §9.2.2.
type Message struct {
	Type Type

	SCA *Address
	MR  byte
	PID byte
	DCS DCS

	UDH  []byte // raw header bytes including its own length byte; nil if absent
	Text string

	// SMS-SUBMIT
	Destination         Address
	ValidityPeriod      ValidityPeriod
	RequestStatusReport bool
	RejectDuplicates    bool
	ReplyPath           bool

	// SMS-DELIVER
	Originating            Address
	Timestamp              Timestamp
	MoreMessagesToSend     bool
	StatusReportIndication bool

	// SMS-STATUS-REPORT
	RecipientAddress Address
	ServiceCentreTimestamp Timestamp
	DischargeTime          Timestamp
	Status                 byte
	StatusReportQualifier  bool

	// SMS-SUBMIT-REPORT
	HasFailureCause bool
	FailureCause    byte
	ParamIndicator  byte
}

func (m Message) hasUDH() bool { return len(m.UDH) > 0 }

func (m Message) encodeUserData() (ud []byte, udl byte) {
	pad := 0
	if m.hasUDH() && m.DCS.Alphabet() == AlphabetGSM7 {
		pad = pdu.SeptetsForUDHLength(len(m.UDH))
	}
	switch m.DCS.Alphabet() {
	case AlphabetGSM7:
		septets := pdu.Encode7Bit(m.Text)
		packed := pdu.Pack7Bit(septets, pad)
		ud = append(append([]byte{}, m.UDH...), packed[len(m.UDH):]...)
		udl = byte(pad + len(septets))
	case AlphabetUCS2:
		data, _ := pdu.EncodeUCS2(m.Text)
		ud = append(append([]byte{}, m.UDH...), data...)
		udl = byte(len(ud))
	default: // binary
		ud = append(append([]byte{}, m.UDH...), []byte(m.Text)...)
		udl = byte(len(ud))
	}
	return ud, udl
}

func decodeUserData(dcs DCS, udhi bool, data []byte, udl byte) (text string, udh []byte, err error) {
	rest := data
	pad := 0
	if udhi {
		if len(rest) < 1 {
			return "", nil, PduError{Reason: "user data: missing udh"}
		}
		udhl := int(rest[0])
		if len(rest) < 1+udhl {
			return "", nil, PduError{Reason: "user data: udh length disagrees with payload"}
		}
		udh = append([]byte{}, rest[:1+udhl]...)
		rest = rest[1+udhl:]
		if dcs.Alphabet() == AlphabetGSM7 {
			pad = pdu.SeptetsForUDHLength(len(udh))
		}
	}
	switch dcs.Alphabet() {
	case AlphabetGSM7:
		septetCount := int(udl) - pad
		if septetCount < 0 {
			return "", nil, PduError{Reason: "user data: udl shorter than udh"}
		}
		septets := pdu.Unpack7Bit(data, septetCount, pad)
		text = pdu.Decode7BitSeptets(septets)
	case AlphabetUCS2:
		text, err = pdu.DecodeUCS2(rest)
	default:
		text = string(rest)
	}
	return text, udh, err
}

// EncodeHex encodes the message to its uppercase hexadecimal wire form,
// the representation AT+CMGS and AT+CMGW exchange with the TA.
func (m Message) EncodeHex() (string, error) {
	b, err := m.Encode()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// Encode dispatches to the variant-specific encoder selected by m.Type.
func (m Message) Encode() ([]byte, error) {
	switch m.Type {
	case TypeSubmit:
		return m.encodeSubmit(), nil
	case TypeDeliver:
		return m.encodeDeliver(), nil
	case TypeStatusReport:
		return m.encodeStatusReport(), nil
	case TypeSubmitReport:
		return m.encodeSubmitReport(), nil
	default:
		return nil, PduError{Reason: "message: unknown type"}
	}
}

// Direction selects which half of GSM 03.40's MTI table Decode applies:
// a PDU travelling toward the MS (DirectionMT: DELIVER, SUBMIT-REPORT,
// STATUS-REPORT) or one travelling toward the SC (DirectionMO: SUBMIT).
// A device's SMS store holds both: received messages decode as
// DirectionMT, stored-to-send messages decode as DirectionMO.
type Direction int

const (
	DirectionMT Direction = iota
	DirectionMO
)

// DecodeHex decodes a PDU from its hexadecimal wire form, as read back
// from AT+CMGR or AT+CMGL.
func DecodeHex(s string, dir Direction) (Message, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Message{}, PduError{Reason: "message: invalid hex"}
	}
	return Decode(b, dir)
}

// Decode dispatches to the variant-specific decoder selected by the MTI
// bits of the first octet following the SCA, interpreted according to
// dir.
func Decode(data []byte, dir Direction) (Message, error) {
	sca, n, err := DecodeSCA(data)
	if err != nil {
		return Message{}, err
	}
	data = data[n:]
	if len(data) < 1 {
		return Message{}, PduError{Reason: "message: truncated after sca"}
	}
	mti := data[0] & 0x03
	switch {
	case dir == DirectionMT && mti == 0x00:
		return decodeDeliver(sca, data)
	case dir == DirectionMT && mti == 0x01:
		return decodeSubmitReport(sca, data)
	case dir == DirectionMT && mti == 0x02:
		return decodeStatusReport(sca, data)
	case dir == DirectionMO && mti == 0x01:
		return decodeSubmit(sca, data)
	default:
		return Message{}, PduError{Reason: "message: unsupported or reserved mti"}
	}
}
