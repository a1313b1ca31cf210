package tpdu

func (m Message) encodeSubmit() []byte {
	first := byte(0x01) // MTI
	if m.RejectDuplicates {
		first |= 0x04
	}
	first |= byte(m.ValidityPeriod.Format) << 3
	if m.RequestStatusReport {
		first |= 0x20
	}
	if m.hasUDH() {
		first |= 0x40
	}
	if m.ReplyPath {
		first |= 0x80
	}

	out := EncodeSCA(m.SCA)
	out = append(out, first, m.MR)
	out = append(out, m.Destination.EncodeTPAddress()...)
	out = append(out, m.PID, byte(m.DCS))
	out = append(out, m.ValidityPeriod.Encode()...)

	ud, udl := m.encodeUserData()
	out = append(out, udl)
	out = append(out, ud...)
	return out
}

func decodeSubmit(sca *Address, data []byte) (Message, error) {
	if len(data) < 2 {
		return Message{}, PduError{Reason: "submit: truncated"}
	}
	first := data[0]
	mr := data[1]
	rest := data[2:]

	dest, n, err := DecodeTPAddress(rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]
	if len(rest) < 2 {
		return Message{}, PduError{Reason: "submit: truncated after address"}
	}
	pid := rest[0]
	dcs := DCS(rest[1])
	rest = rest[2:]

	vpFormat := VPFormat((first >> 3) & 0x03)
	vp, n, err := DecodeValidityPeriod(vpFormat, rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]

	if len(rest) < 1 {
		return Message{}, PduError{Reason: "submit: missing udl"}
	}
	udl := rest[0]
	rest = rest[1:]

	udhi := first&0x40 != 0
	text, udh, err := decodeUserData(dcs, udhi, rest, udl)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:                TypeSubmit,
		SCA:                 sca,
		MR:                  mr,
		PID:                 pid,
		DCS:                 dcs,
		UDH:                 udh,
		Text:                text,
		Destination:         dest,
		ValidityPeriod:      vp,
		RequestStatusReport: first&0x20 != 0,
		RejectDuplicates:    first&0x04 != 0,
		ReplyPath:           first&0x80 != 0,
	}, nil
}
