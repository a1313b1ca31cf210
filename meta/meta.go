// Package meta provides MeTa, the terminal-adapter façade: one port, one
// AT engine, one capabilities record, and caches of open SMS stores,
// bundled behind open/init/send/receive operations so callers never deal
// with AT commands directly.
package meta

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/go-gsm/gsmta/at"
	"github.com/go-gsm/gsmta/capability"
	"github.com/go-gsm/gsmta/info"
	"github.com/go-gsm/gsmta/parser"
	"github.com/go-gsm/gsmta/store"
	"github.com/go-gsm/gsmta/tpdu"
)

// Config carries caller overrides for Open. The zero value is a
// conservative default: no quirk override, no extra init string.
type Config struct {
	// ForceNoSCAPrefix overrides capability-based quirk detection.
	ForceNoSCAPrefix bool

	// DefaultInitString, if non-empty, is issued (without the leading
	// "AT") immediately after the mandatory init sequence, e.g. to
	// select a SIM phonebook or enable a vendor's URC set.
	DefaultInitString string

	// DefaultTimeout bounds Open's init handshake when ctx carries no
	// deadline of its own. It has no effect on any other MeTa method:
	// every later call takes its own caller-supplied ctx, per the
	// one-command-in-flight model callers are expected to serialise.
	DefaultTimeout time.Duration
}

// MeTa bundles one port, one AT engine, one capabilities record, and the
// state needed to talk to the device's SMS store and routing commands.
// A MeTa is not safe for concurrent use from multiple goroutines: per
// the scheduling model, exactly one command is ever in flight on a
// device and callers are expected to serialise their own calls.
type MeTa struct {
	at   *at.AT
	caps *capability.Capabilities
	info capability.MEInfo

	currentStore string
	lastCPMS     string

	sink EventSink
}

// Open brings up a MeTa on modem: escapes any stuck command and resets
// to factory defaults, enables extended errors (allowed to fail),
// selects PDU mode (required), queries manufacturer/model/revision/serial
// to populate MEInfo, applies known-broken-device quirks, and installs a
// no-op event handler that callers replace with SetEventHandler.
func Open(ctx context.Context, modem io.ReadWriter, cfg Config) (*MeTa, error) {
	if cfg.DefaultTimeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.DefaultTimeout)
			defer cancel()
		}
	}

	a := at.New(modem)
	if err := a.Init(ctx); err != nil {
		return nil, errors.WithMessage(err, "meta: modem init failed")
	}

	m := &MeTa{at: a, caps: capability.New(), sink: NoopEventSink{}}

	a.Command(ctx, "+CMEE=1") // extended errors; not all devices support this

	if _, err := a.Command(ctx, "+CMGF=0"); err != nil {
		return nil, errors.WithMessage(err, "meta: modem does not support PDU mode")
	}

	mi, err := queryMEInfo(ctx, a)
	if err != nil {
		return nil, err
	}
	m.info = mi
	m.caps.ApplyQuirks(mi, capability.Config{ForceNoSCAPrefix: cfg.ForceNoSCAPrefix})

	if cfg.DefaultInitString != "" {
		if _, err := a.Command(ctx, cfg.DefaultInitString); err != nil {
			return nil, errors.WithMessage(err, "meta: default init string rejected")
		}
	}

	if err := m.startIndications(); err != nil {
		return nil, err
	}
	return m, nil
}

// MEInfo returns the identification strings discovered at Open.
func (m *MeTa) MEInfo() capability.MEInfo { return m.info }

// Capabilities returns the capability record discovered and maintained
// for this device.
func (m *MeTa) Capabilities() capability.Capabilities { return *m.caps }

// Closed reports the underlying AT engine's closed channel.
func (m *MeTa) Closed() <-chan struct{} { return m.at.Closed() }

func queryMEInfo(ctx context.Context, a *at.AT) (capability.MEInfo, error) {
	var mi capability.MEInfo
	mi.Manufacturer, _ = queryOne(ctx, a, "+CGMI")
	mi.Model, _ = queryOne(ctx, a, "+CGMM")
	mi.Revision, _ = queryOne(ctx, a, "+CGMR")
	mi.SerialNumber, _ = queryOne(ctx, a, "+CGSN")
	return mi, nil
}

// queryOne issues cmd expecting a single bare identification line, which
// some devices prefix with the command name and others return plain.
func queryOne(ctx context.Context, a *at.AT, cmd string) (string, error) {
	lines, err := a.Command(ctx, cmd)
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		if info.HasPrefix(l, cmd) {
			return strings.TrimSpace(info.TrimPrefix(l, cmd)), nil
		}
	}
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0]), nil
	}
	return "", fmt.Errorf("meta: %s returned no info", cmd)
}

// Chat issues a plain AT command and returns its raw info lines,
// satisfying store.Backend.
func (m *MeTa) Chat(ctx context.Context, cmd string) ([]string, error) {
	return m.at.Command(ctx, cmd)
}

// SendPDU issues an SMS command carrying a PDU payload, satisfying
// store.Backend.
func (m *MeTa) SendPDU(ctx context.Context, cmd, pduHex string) ([]string, error) {
	return m.at.SMSCommand(ctx, cmd, pduHex)
}

// HasSMSSCAPrefix satisfies store.Backend.
func (m *MeTa) HasSMSSCAPrefix() bool { return m.caps.HasSMSSCAPrefix }

// SelectSMSStore selects name as the active SMS store, satisfying
// store.Backend. It is lazy: if name is already selected and a fresh
// result isn't required, the cached +CPMS payload is returned without a
// round trip.
func (m *MeTa) SelectSMSStore(ctx context.Context, name string, needResultCode bool) (string, error) {
	if !needResultCode && m.currentStore == name && m.lastCPMS != "" {
		return m.lastCPMS, nil
	}
	arity, err := m.cpmsArity(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, arity)
	for i := range names {
		names[i] = strconv.Quote(name)
	}
	cmd := "+CPMS=" + strings.Join(names, ",")
	lines, err := m.at.Command(ctx, cmd)
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		if info.HasPrefix(l, "+CPMS") {
			resp := strings.TrimSpace(info.TrimPrefix(l, "+CPMS"))
			m.currentStore = name
			m.lastCPMS = resp
			return resp, nil
		}
	}
	return "", fmt.Errorf("meta: +CPMS returned no result")
}

// cpmsArity discovers, once per MeTa, how many times a store name must
// be repeated in +CPMS=<name>[,<name>...] by counting the comma-separated
// groups in the device's +CPMS=? parameter list.
func (m *MeTa) cpmsArity(ctx context.Context) (int, error) {
	if m.caps.CPMSParamCount > 0 {
		return m.caps.CPMSParamCount, nil
	}
	lines, err := m.at.Command(ctx, "+CPMS=?")
	if err != nil {
		return 0, err
	}
	var body string
	for _, l := range lines {
		if info.HasPrefix(l, "+CPMS") {
			body = info.TrimPrefix(l, "+CPMS")
		}
	}
	if body == "" {
		return 0, fmt.Errorf("meta: +CPMS=? returned no parameter list")
	}
	n, err := countParameterGroups(body)
	if err != nil {
		return 0, err
	}
	m.caps.CPMSParamCount = n
	return n, nil
}

// countParameterGroups counts the comma-separated parenthesised string
// lists in s, e.g. `("SM","ME","MT"),("SM","ME"),("SM","ME")` -> 3.
func countParameterGroups(s string) (int, error) {
	p := parser.New(s)
	count := 0
	for {
		if _, err := p.ParseStringList(false, false); err != nil {
			return 0, err
		}
		count++
		more, err := p.ParseComma(true)
		if err != nil {
			return 0, err
		}
		if !more {
			break
		}
	}
	return count, nil
}

// SetMessageService selects the SMS AT command set version with +CSMS.
// Devices disagree on which levels they support; failure is reported but
// not fatal to the caller's init sequence.
func (m *MeTa) SetMessageService(ctx context.Context, level int) error {
	_, err := m.at.Command(ctx, fmt.Sprintf("+CSMS=%d", level))
	return err
}

// SetSMSRoutingToTA negotiates and applies a +CNMI routing configuration:
// it reads the device's supported parameter bitmaps from +CNMI=?, picks
// the best combination for req per capability.NegotiateRouting, and
// issues the resulting +CNMI command.
func (m *MeTa) SetSMSRoutingToTA(ctx context.Context, req capability.RoutingRequest) error {
	lines, err := m.at.Command(ctx, "+CNMI=?")
	if err != nil {
		return err
	}
	bitmaps, err := parseCNMIBitmaps(lines)
	if err != nil {
		return err
	}
	args, err := capability.NegotiateRouting(bitmaps, req)
	if err != nil {
		return err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.Itoa(a)
	}
	_, err = m.at.Command(ctx, "+CNMI="+strings.Join(parts, ","))
	return err
}

func parseCNMIBitmaps(lines []string) (capability.RoutingBitmaps, error) {
	var body string
	for _, l := range lines {
		if info.HasPrefix(l, "+CNMI") {
			body = info.TrimPrefix(l, "+CNMI")
		}
	}
	if body == "" {
		return capability.RoutingBitmaps{}, fmt.Errorf("meta: +CNMI=? returned no parameter list")
	}
	p := parser.New(body)

	mode, err := p.ParseIntList(false, false)
	if err != nil {
		return capability.RoutingBitmaps{}, err
	}
	if _, err := p.ParseComma(); err != nil {
		return capability.RoutingBitmaps{}, err
	}
	mt, err := p.ParseIntList(false, false)
	if err != nil {
		return capability.RoutingBitmaps{}, err
	}
	if _, err := p.ParseComma(); err != nil {
		return capability.RoutingBitmaps{}, err
	}
	bm, err := p.ParseIntList(false, false)
	if err != nil {
		return capability.RoutingBitmaps{}, err
	}
	if _, err := p.ParseComma(); err != nil {
		return capability.RoutingBitmaps{}, err
	}
	ds, err := p.ParseIntList(false, false)
	if err != nil {
		return capability.RoutingBitmaps{}, err
	}

	hasBFR, err := p.ParseComma(true)
	if err != nil {
		return capability.RoutingBitmaps{}, err
	}
	var bfr []bool
	if hasBFR {
		bfr, err = p.ParseIntList(false, false)
		if err != nil {
			return capability.RoutingBitmaps{}, err
		}
	}
	return capability.RoutingBitmaps{Mode: mode, MT: mt, BM: bm, DS: ds, BFR: bfr, HasBFR: hasBFR}, nil
}

// SendSMS encodes msg as an SMS-SUBMIT TPDU and transmits it via +CMGS,
// returning the TP-Message-Reference and, if the device emits one, the
// decoded SMS-SUBMIT-REPORT acknowledgement.
func (m *MeTa) SendSMS(ctx context.Context, msg tpdu.Message) (byte, *tpdu.Message, error) {
	b, err := msg.Encode()
	if err != nil {
		return 0, nil, err
	}
	hexStr, err := msg.EncodeHex()
	if err != nil {
		return 0, nil, err
	}
	tpduLen := len(b) - scaOctetLen(b)

	lines, err := m.at.SMSCommand(ctx, fmt.Sprintf("+CMGS=%d", tpduLen), hexStr)
	if err != nil {
		return 0, nil, err
	}
	if len(lines) == 0 {
		return 0, nil, fmt.Errorf("meta: +CMGS returned no message reference")
	}
	p := parser.New(info.TrimPrefix(lines[0], "+CMGS"))
	mr, err := p.ParseInt()
	if err != nil {
		return 0, nil, err
	}
	hasAck, err := p.ParseComma(true)
	if err != nil {
		return 0, nil, err
	}
	if !hasAck {
		return byte(mr), nil, nil
	}
	pduHex := p.ParseEol()
	if !m.caps.HasSMSSCAPrefix {
		pduHex = "00" + pduHex
	}
	ack, err := tpdu.DecodeHex(pduHex, tpdu.DirectionMT)
	if err != nil {
		return 0, nil, err
	}
	return byte(mr), &ack, nil
}

// GetSMSStore opens (or reopens, forcing a capacity re-read) name as a
// random-access SMS store.
func (m *MeTa) GetSMSStore(ctx context.Context, name string) (*store.Store, error) {
	return store.Open(ctx, name, m)
}

func scaOctetLen(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	return 1 + int(b[0])
}

var _ store.Backend = (*MeTa)(nil)
