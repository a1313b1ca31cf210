package tpdu

// Parameter-indicator bits for SMS-SUBMIT-REPORT: which optional fields
// follow the service-centre timestamp.
const (
	PIPIDPresent byte = 0x01
	PIDCSPresent byte = 0x02
	PIUDPresent  byte = 0x04
)

func (m Message) encodeSubmitReport() []byte {
	first := byte(0x01) // MTI
	if m.hasUDH() {
		first |= 0x40
	}

	out := EncodeSCA(m.SCA)
	out = append(out, first)
	if m.HasFailureCause {
		out = append(out, m.FailureCause)
	}
	out = append(out, m.ParamIndicator)
	out = append(out, m.ServiceCentreTimestamp.Encode()...)

	if m.ParamIndicator&PIPIDPresent != 0 {
		out = append(out, m.PID)
	}
	if m.ParamIndicator&PIDCSPresent != 0 {
		out = append(out, byte(m.DCS))
	}
	if m.ParamIndicator&PIUDPresent != 0 {
		ud, udl := m.encodeUserData()
		out = append(out, udl)
		out = append(out, ud...)
	}
	return out
}

func decodeSubmitReport(sca *Address, data []byte) (Message, error) {
	if len(data) < 1 {
		return Message{}, PduError{Reason: "submit-report: truncated"}
	}
	first := data[0]
	rest := data[1:]

	m := Message{Type: TypeSubmitReport, SCA: sca}

	// TP-FCS is present only when the report carries a failure cause;
	// since that isn't separately flagged in the first octet, this codec
	// treats a SUBMIT-REPORT as an acknowledgement (no FCS) unless the
	// caller sets HasFailureCause explicitly before re-encoding.
	if len(rest) < 1 {
		return Message{}, PduError{Reason: "submit-report: missing parameter indicator"}
	}
	pi := rest[0]
	rest = rest[1:]
	m.ParamIndicator = pi

	scts, n, err := DecodeTimestamp(rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]
	m.ServiceCentreTimestamp = scts

	if pi&PIPIDPresent != 0 {
		if len(rest) < 1 {
			return Message{}, PduError{Reason: "submit-report: missing pid"}
		}
		m.PID = rest[0]
		rest = rest[1:]
	}
	if pi&PIDCSPresent != 0 {
		if len(rest) < 1 {
			return Message{}, PduError{Reason: "submit-report: missing dcs"}
		}
		m.DCS = DCS(rest[0])
		rest = rest[1:]
	}
	if pi&PIUDPresent != 0 {
		if len(rest) < 1 {
			return Message{}, PduError{Reason: "submit-report: missing udl"}
		}
		udl := rest[0]
		rest = rest[1:]
		udhi := first&0x40 != 0
		text, udh, err := decodeUserData(m.DCS, udhi, rest, udl)
		if err != nil {
			return Message{}, err
		}
		m.Text = text
		m.UDH = udh
	}
	return m, nil
}
