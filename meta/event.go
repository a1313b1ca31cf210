package meta

import (
	"github.com/go-gsm/gsmta/info"
	"github.com/go-gsm/gsmta/parser"
	"github.com/go-gsm/gsmta/tpdu"
)

// EventSink receives decoded unsolicited events: an inline SMS or
// status report, a cell-broadcast page, a store-index indication, or a
// call-control notification. Per the concurrency model, a sink must not
// issue further AT commands from within a callback; queue follow-up
// work to run after the call returns.
type EventSink interface {
	// OnSMS is called for an inline SMS-DELIVER (+CMT) or an inline
	// SMS-STATUS-REPORT (+CDS); msgType distinguishes the two.
	OnSMS(msg tpdu.Message, msgType tpdu.Type)

	// OnCellBroadcast is called for an inline +CBM page. Cell-broadcast
	// pages use the GSM 03.41 format rather than a 03.40 TPDU, so the
	// raw hex is passed through undecoded.
	OnCellBroadcast(pduHex string)

	// OnSMSIndication is called for a +CMTI/+CDSI store-index
	// indication: the message itself must be fetched from storeName at
	// index (0-based) by the caller.
	OnSMSIndication(storeName string, index int, msgType tpdu.Type)

	// OnCall is called for RING (ring == true) and NO CARRIER
	// (ring == false).
	OnCall(ring bool)
}

// NoopEventSink discards every event. It is the default sink installed
// by Open, replaced by SetEventHandler.
type NoopEventSink struct{}

func (NoopEventSink) OnSMS(tpdu.Message, tpdu.Type)          {}
func (NoopEventSink) OnCellBroadcast(string)                 {}
func (NoopEventSink) OnSMSIndication(string, int, tpdu.Type) {}
func (NoopEventSink) OnCall(bool)                            {}

// SetEventHandler installs sink as the URC event handler, replacing
// whatever was previously installed (the default NoopEventSink, or an
// earlier caller-supplied sink).
func (m *MeTa) SetEventHandler(sink EventSink) {
	if sink == nil {
		sink = NoopEventSink{}
	}
	m.sink = sink
}

// startIndications subscribes to every URC prefix the device may emit
// for SMS and call control, each on its own dispatch goroutine that
// lives for the AT engine's lifetime.
func (m *MeTa) startIndications() error {
	subs := []struct {
		prefix   string
		trailing int
		handle   func([]string)
	}{
		{"+CMT:", 1, m.dispatchCMT},
		{"+CMTI:", 0, m.dispatchCMTI},
		{"+CBM:", 1, m.dispatchCBM},
		{"+CBMI:", 0, m.dispatchCBMI},
		{"+CDS:", 1, m.dispatchCDS},
		{"+CDSI:", 0, m.dispatchCDSI},
		{"RING", 0, m.dispatchRing},
		{"NO CARRIER", 0, m.dispatchNoCarrier},
	}
	for _, sub := range subs {
		ch, err := m.at.AddIndication(sub.prefix, sub.trailing)
		if err != nil {
			return err
		}
		go watchIndication(ch, sub.handle)
	}
	return nil
}

func watchIndication(ch <-chan []string, handle func([]string)) {
	for lines := range ch {
		handle(lines)
	}
}

func (m *MeTa) dispatchCMT(lines []string) {
	if len(lines) < 2 {
		return
	}
	msg, err := m.decodeInlinePDU(lines[1])
	if err != nil {
		return
	}
	m.sink.OnSMS(msg, tpdu.TypeDeliver)
}

func (m *MeTa) dispatchCDS(lines []string) {
	if len(lines) < 2 {
		return
	}
	msg, err := m.decodeInlinePDU(lines[1])
	if err != nil {
		return
	}
	m.sink.OnSMS(msg, tpdu.TypeStatusReport)
}

func (m *MeTa) decodeInlinePDU(pduHex string) (tpdu.Message, error) {
	if !m.caps.HasSMSSCAPrefix {
		pduHex = "00" + pduHex
	}
	return tpdu.DecodeHex(pduHex, tpdu.DirectionMT)
}

func (m *MeTa) dispatchCBM(lines []string) {
	if len(lines) < 2 {
		return
	}
	m.sink.OnCellBroadcast(lines[1])
}

func (m *MeTa) dispatchCMTI(lines []string) {
	name, index, err := parseStoreIndication(lines[0], "+CMTI")
	if err != nil {
		return
	}
	m.sink.OnSMSIndication(name, index, tpdu.TypeDeliver)
}

func (m *MeTa) dispatchCBMI(lines []string) {
	name, index, err := parseStoreIndication(lines[0], "+CBMI")
	if err != nil {
		return
	}
	// Cell-broadcast indications carry no 03.40 message type; reported
	// as TypeDeliver since the sink only inspects msgType to tell
	// SMS-DELIVER from SMS-STATUS-REPORT indications.
	m.sink.OnSMSIndication(name, index, tpdu.TypeDeliver)
}

func (m *MeTa) dispatchCDSI(lines []string) {
	name, index, err := parseStoreIndication(lines[0], "+CDSI")
	if err != nil {
		return
	}
	m.sink.OnSMSIndication(name, index, tpdu.TypeStatusReport)
}

func (m *MeTa) dispatchRing([]string) {
	m.sink.OnCall(true)
}

func (m *MeTa) dispatchNoCarrier([]string) {
	m.sink.OnCall(false)
}

// parseStoreIndication parses a `+CMTI: "SM",3`-style indication line
// into its store name and 0-based index.
func parseStoreIndication(line, cmd string) (string, int, error) {
	p := parser.New(info.TrimPrefix(line, cmd))
	name, err := p.ParseString()
	if err != nil {
		return "", 0, err
	}
	if _, err := p.ParseComma(); err != nil {
		return "", 0, err
	}
	idx, err := p.ParseInt()
	if err != nil {
		return "", 0, err
	}
	return name, idx - 1, nil
}
