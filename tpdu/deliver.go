package tpdu

func (m Message) encodeDeliver() []byte {
	first := byte(0x00) // MTI
	if !m.MoreMessagesToSend {
		first |= 0x04
	}
	if m.hasUDH() {
		first |= 0x40
	}
	if m.StatusReportIndication {
		first |= 0x20
	}
	if m.ReplyPath {
		first |= 0x80
	}

	out := EncodeSCA(m.SCA)
	out = append(out, first)
	out = append(out, m.Originating.EncodeTPAddress()...)
	out = append(out, m.PID, byte(m.DCS))
	out = append(out, m.Timestamp.Encode()...)

	ud, udl := m.encodeUserData()
	out = append(out, udl)
	out = append(out, ud...)
	return out
}

func decodeDeliver(sca *Address, data []byte) (Message, error) {
	if len(data) < 1 {
		return Message{}, PduError{Reason: "deliver: truncated"}
	}
	first := data[0]
	rest := data[1:]

	orig, n, err := DecodeTPAddress(rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]
	if len(rest) < 2 {
		return Message{}, PduError{Reason: "deliver: truncated after address"}
	}
	pid := rest[0]
	dcs := DCS(rest[1])
	rest = rest[2:]

	ts, n, err := DecodeTimestamp(rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]

	if len(rest) < 1 {
		return Message{}, PduError{Reason: "deliver: missing udl"}
	}
	udl := rest[0]
	rest = rest[1:]

	udhi := first&0x40 != 0
	text, udh, err := decodeUserData(dcs, udhi, rest, udl)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:                   TypeDeliver,
		SCA:                    sca,
		PID:                    pid,
		DCS:                    dcs,
		UDH:                    udh,
		Text:                   text,
		Originating:            orig,
		Timestamp:              ts,
		MoreMessagesToSend:     first&0x04 == 0,
		StatusReportIndication: first&0x20 != 0,
		ReplyPath:              first&0x80 != 0,
	}, nil
}
