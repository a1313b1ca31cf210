package meta_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-gsm/gsmta/capability"
	"github.com/go-gsm/gsmta/meta"
	"github.com/go-gsm/gsmta/tpdu"
)

// mockModem is a minimal io.ReadWriter double, the same pattern the at
// package's own test suite uses: a table of exact wire-command strings
// mapped to the canned response lines a real device would send back.
type mockModem struct {
	cmdSet map[string][]string
	echo   bool
	closed bool
	writes []string
	r      chan []byte
}

func (m *mockModem) Read(p []byte) (n int, err error) {
	data, ok := <-m.r
	if data == nil {
		return 0, fmt.Errorf("closed")
	}
	copy(p, data)
	if !ok {
		return len(data), fmt.Errorf("closed with data")
	}
	return len(data), nil
}

func (m *mockModem) Write(p []byte) (n int, err error) {
	if m.closed {
		return 0, fmt.Errorf("closed")
	}
	m.writes = append(m.writes, string(p))
	if m.echo {
		m.r <- p
	}
	v := m.cmdSet[string(p)]
	if len(v) == 0 {
		m.r <- []byte("\r\nERROR\r\n")
	} else {
		for _, l := range v {
			if len(l) == 0 {
				continue
			}
			m.r <- []byte(l)
		}
	}
	return len(p), nil
}

func (m *mockModem) Close() error {
	if !m.closed {
		m.closed = true
		close(m.r)
	}
	return nil
}

// baseCmdSet returns the wire exchange Open requires to succeed: the
// escape/reset/URC-disable handshake at.Init performs, then +CMEE,
// +CMGF and the four identification queries.
func baseCmdSet() map[string][]string {
	return map[string][]string{
		string(27) + "\r\n\r\n": {"\r\n"},
		"ATZ\r\n":                {"OK\r\n"},
		"AT^CURC=0\r\n":          {"OK\r\n"},
		"AT+CMEE=1\r\n":          {"OK\r\n"},
		"AT+CMGF=0\r\n":          {"OK\r\n"},
		"AT+CGMI\r\n":            {"Acme\r\n", "\r\n", "OK\r\n"},
		"AT+CGMM\r\n":            {"Wavecom\r\n", "\r\n", "OK\r\n"},
		"AT+CGMR\r\n":            {"1.0\r\n", "\r\n", "OK\r\n"},
		"AT+CGSN\r\n":            {"123456789012345\r\n", "\r\n", "OK\r\n"},
	}
}

func openTestMeTa(t *testing.T, extra map[string][]string) (*meta.MeTa, *mockModem) {
	t.Helper()
	cmdSet := baseCmdSet()
	for k, v := range extra {
		cmdSet[k] = v
	}
	mm := &mockModem{cmdSet: cmdSet, echo: false, r: make(chan []byte, 10)}
	m, err := meta.Open(context.Background(), mm, meta.Config{})
	require.NoError(t, err)
	require.NotNil(t, m)
	return m, mm
}

func TestOpenPopulatesMEInfo(t *testing.T) {
	m, mm := openTestMeTa(t, nil)
	defer mm.Close()

	info := m.MEInfo()
	assert.Equal(t, "Acme", info.Manufacturer)
	assert.Equal(t, "Wavecom", info.Model)
	assert.Equal(t, "1.0", info.Revision)
	assert.Equal(t, "123456789012345", info.SerialNumber)
}

func TestOpenFailsWithoutPDUMode(t *testing.T) {
	cmdSet := baseCmdSet()
	cmdSet["AT+CMGF=0\r\n"] = nil // device rejects PDU mode
	mm := &mockModem{cmdSet: cmdSet, echo: false, r: make(chan []byte, 10)}
	_, err := meta.Open(context.Background(), mm, meta.Config{})
	assert.Error(t, err)
}

func TestSelectSMSStoreDiscoversArityAndCaches(t *testing.T) {
	extra := map[string][]string{
		"AT+CPMS=?\r\n": {
			`+CPMS: ("SM","ME"),("SM","ME"),("SM","ME")` + "\r\n",
			"\r\n", "OK\r\n",
		},
		`AT+CPMS="SM","SM","SM"` + "\r\n": {
			"+CPMS: 2,10,2,10,2,10\r\n", "\r\n", "OK\r\n",
		},
	}
	m, mm := openTestMeTa(t, extra)
	defer mm.Close()

	resp, err := m.SelectSMSStore(context.Background(), "SM", false)
	require.NoError(t, err)
	assert.Equal(t, "2,10,2,10,2,10", resp)

	before := len(mm.writes)
	resp2, err := m.SelectSMSStore(context.Background(), "SM", false)
	require.NoError(t, err)
	assert.Equal(t, resp, resp2)
	assert.Equal(t, before, len(mm.writes), "cached selection should not re-issue +CPMS")
}

func TestSelectSMSStoreNeedResultCodeAlwaysRoundTrips(t *testing.T) {
	extra := map[string][]string{
		"AT+CPMS=?\r\n": {`+CPMS: ("SM"),("SM"),("SM")` + "\r\n", "\r\n", "OK\r\n"},
		`AT+CPMS="SM","SM","SM"` + "\r\n": {
			"+CPMS: 1,10,1,10,1,10\r\n", "\r\n", "OK\r\n",
		},
	}
	m, mm := openTestMeTa(t, extra)
	defer mm.Close()

	_, err := m.SelectSMSStore(context.Background(), "SM", false)
	require.NoError(t, err)

	before := len(mm.writes)
	_, err = m.SelectSMSStore(context.Background(), "SM", true)
	require.NoError(t, err)
	assert.Greater(t, len(mm.writes), before, "needResultCode should force a fresh +CPMS")
}

func TestSetSMSRoutingToTA(t *testing.T) {
	extra := map[string][]string{
		"AT+CNMI=?\r\n": {
			"+CNMI: (0,1,2),(0,1,2,3),(0),(0)\r\n", "\r\n", "OK\r\n",
		},
		"AT+CNMI=2,2,0,0\r\n": {"OK\r\n"},
	}
	m, mm := openTestMeTa(t, extra)
	defer mm.Close()

	err := m.SetSMSRoutingToTA(context.Background(), capability.RoutingRequest{SMS: true})
	require.NoError(t, err)
}

func TestSendSMSNoAck(t *testing.T) {
	msg := tpdu.Message{
		Type:        tpdu.TypeSubmit,
		Destination: tpdu.NewAddress("+447785016005"),
		DCS:         tpdu.NewDCS(tpdu.AlphabetGSM7),
		Text:        "hello",
	}
	b, err := msg.Encode()
	require.NoError(t, err)
	tpduLen := len(b) - 1 // no SCA

	extra := map[string][]string{
		fmt.Sprintf("AT+CMGS=%d\r", tpduLen): {"\n>"},
	}
	hexStr, err := msg.EncodeHex()
	require.NoError(t, err)
	extra[hexStr+string(26)] = []string{"\r\n", "+CMGS: 17\r\n", "\r\n", "OK\r\n"}

	m, mm := openTestMeTa(t, extra)
	defer mm.Close()

	mr, ack, err := m.SendSMS(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, byte(17), mr)
	assert.Nil(t, ack)
}

func TestEventDispatchOnSMS(t *testing.T) {
	m, mm := openTestMeTa(t, nil)
	defer mm.Close()

	deliver := tpdu.Message{
		Type:        tpdu.TypeDeliver,
		Originating: tpdu.NewAddress("+15551234567"),
		DCS:         tpdu.NewDCS(tpdu.AlphabetGSM7),
		Timestamp:   tpdu.Timestamp(time.Now().UTC()),
		Text:        "incoming",
	}
	pduHex, err := deliver.EncodeHex()
	require.NoError(t, err)

	sink := &capturingSink{NoopEventSink: meta.NoopEventSink{}, got: make(chan tpdu.Message, 1)}
	m.SetEventHandler(sink)

	mm.r <- []byte("+CMT: ,24\r\n" + pduHex + "\r\n")

	select {
	case got := <-sink.got:
		assert.Equal(t, "incoming", got.Text)
	case <-time.After(time.Second):
		t.Fatal("no OnSMS dispatch received")
	}
}

type capturingSink struct {
	meta.NoopEventSink
	got chan tpdu.Message
}

func (s *capturingSink) OnSMS(msg tpdu.Message, msgType tpdu.Type) {
	s.got <- msg
}
