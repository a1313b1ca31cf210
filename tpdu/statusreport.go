package tpdu

func (m Message) encodeStatusReport() []byte {
	first := byte(0x02) // MTI
	if !m.MoreMessagesToSend {
		first |= 0x04
	}
	if m.StatusReportQualifier {
		first |= 0x20
	}
	if m.hasUDH() {
		first |= 0x40
	}

	out := EncodeSCA(m.SCA)
	out = append(out, first, m.MR)
	out = append(out, m.RecipientAddress.EncodeTPAddress()...)
	out = append(out, m.ServiceCentreTimestamp.Encode()...)
	out = append(out, m.DischargeTime.Encode()...)
	out = append(out, m.Status)
	return out
}

func decodeStatusReport(sca *Address, data []byte) (Message, error) {
	if len(data) < 2 {
		return Message{}, PduError{Reason: "status-report: truncated"}
	}
	first := data[0]
	mr := data[1]
	rest := data[2:]

	recipient, n, err := DecodeTPAddress(rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]

	scts, n, err := DecodeTimestamp(rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]

	dt, n, err := DecodeTimestamp(rest)
	if err != nil {
		return Message{}, err
	}
	rest = rest[n:]

	if len(rest) < 1 {
		return Message{}, PduError{Reason: "status-report: missing status"}
	}
	status := rest[0]

	return Message{
		Type:                   TypeStatusReport,
		SCA:                    sca,
		MR:                     mr,
		RecipientAddress:       recipient,
		ServiceCentreTimestamp: scts,
		DischargeTime:          dt,
		Status:                 status,
		MoreMessagesToSend:     first&0x04 == 0,
		StatusReportQualifier:  first&0x20 != 0,
	}, nil
}

// StatusIsFinal reports whether a status code represents a final outcome
// (delivered, forwarded, replaced, or a permanent failure) as opposed to
// the SC still attempting delivery.
func StatusIsFinal(status byte) bool {
	if status <= StatusReplaced {
		return true
	}
	return status >= StatusPermanentFailure
}
