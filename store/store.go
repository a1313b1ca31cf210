// Package store presents a GSM terminal adapter's SMS memory (+CPMS,
// +CMGR, +CMGW, +CMGD, +CMSS) as a fixed-capacity, random-access array of
// message slots, translating between the device's 1-based slot numbering
// and Go's 0-based indexing.
package store

import (
	"context"
	"fmt"

	"github.com/go-gsm/gsmta/info"
	"github.com/go-gsm/gsmta/parser"
	"github.com/go-gsm/gsmta/tpdu"
)

// MemoryStatus is a slot's status in ME memory, the first field of a
// +CMGR/+CMGL response line.
type MemoryStatus int

const (
	StatusReceivedUnread MemoryStatus = iota
	StatusReceivedRead
	StatusStoredUnsent
	StatusStoredSent
	StatusUnknown MemoryStatus = 99
)

// direction reports which half of the MTI table a slot's PDU decodes
// against: messages the device received (DELIVER, STATUS-REPORT) went
// through the air toward the MS; messages staged to send (SUBMIT) are
// encoded the other way.
func (s MemoryStatus) direction() tpdu.Direction {
	switch s {
	case StatusStoredUnsent, StatusStoredSent:
		return tpdu.DirectionMO
	default:
		return tpdu.DirectionMT
	}
}

// Backend is the subset of the MeTa façade a Store needs: issuing plain
// chats, streaming an SMS PDU, and (re)selecting this store's name so
// +CMGR/+CMGW/etc. address the right memory bank. Implemented by
// *meta.MeTa; kept as an interface here so store has no import on meta.
//
// Chat and SendPDU return raw info lines exactly as the device sent
// them, prefix and all (e.g. "+CMGR: 1,,27"); SelectSMSStore is the one
// exception and returns its +CPMS payload with the "+CPMS:" prefix
// already stripped.
type Backend interface {
	Chat(ctx context.Context, cmd string) ([]string, error)
	SendPDU(ctx context.Context, cmd, pduHex string) ([]string, error)
	SelectSMSStore(ctx context.Context, name string, needResultCode bool) (string, error)
	HasSMSSCAPrefix() bool
}

// Entry is one slot's contents: either a decoded message and its status,
// or an empty slot (Message.Type's zero value with Status ==
// StatusUnknown and Empty true).
type Entry struct {
	Message tpdu.Message
	Status  MemoryStatus
	Empty   bool
}

// Store is a random-access view of one named SMS memory bank (e.g. "SM",
// "ME", "MT").
type Store struct {
	name     string
	capacity int
	backend  Backend
}

// Open selects name as the active SMS store and discovers its capacity
// from the +CPMS response (<used>,<capacity>,...).
func Open(ctx context.Context, name string, backend Backend) (*Store, error) {
	resp, err := backend.SelectSMSStore(ctx, name, true)
	if err != nil {
		return nil, err
	}
	p := parser.New(resp)
	if _, err := p.ParseInt(); err != nil {
		return nil, err
	}
	if _, err := p.ParseComma(); err != nil {
		return nil, err
	}
	capacity, err := p.ParseInt()
	if err != nil {
		return nil, err
	}
	return &Store{name: name, capacity: capacity, backend: backend}, nil
}

// Name returns the store's two-character device name.
func (s *Store) Name() string { return s.name }

// Capacity is fixed for the store's lifetime.
func (s *Store) Capacity() int { return s.capacity }

// Size forces a fresh +CPMS round-trip and returns the number of
// occupied slots.
func (s *Store) Size(ctx context.Context) (int, error) {
	resp, err := s.backend.SelectSMSStore(ctx, s.name, true)
	if err != nil {
		return 0, err
	}
	p := parser.New(resp)
	return p.ParseInt()
}

// Get reads slot index (0-based). An empty slot returns Entry{Empty:
// true} with no error.
func (s *Store) Get(ctx context.Context, index int) (Entry, error) {
	if _, err := s.backend.SelectSMSStore(ctx, s.name, false); err != nil {
		return Entry{}, err
	}
	lines, err := s.backend.Chat(ctx, fmt.Sprintf("+CMGR=%d", index+1))
	if err != nil {
		return Entry{}, err
	}
	if len(lines) == 0 {
		return Entry{Empty: true, Status: StatusUnknown}, nil
	}
	p := parser.New(info.TrimPrefix(lines[0], "+CMGR"))
	statusInt, err := p.ParseInt()
	if err != nil {
		return Entry{}, err
	}
	status := MemoryStatus(statusInt)

	if len(lines) < 2 {
		return Entry{}, fmt.Errorf("store: +CMGR missing pdu line")
	}
	pduHex := lines[1]
	if !s.backend.HasSMSSCAPrefix() {
		pduHex = "00" + pduHex
	}
	msg, err := tpdu.DecodeHex(pduHex, status.direction())
	if err != nil {
		return Entry{}, err
	}
	return Entry{Message: msg, Status: status}, nil
}

// Insert writes msg to the first slot the device chooses and returns its
// (0-based) index. If the store is full, whatever error the device
// returns is passed back to the caller.
func (s *Store) Insert(ctx context.Context, msg tpdu.Message) (int, error) {
	if _, err := s.backend.SelectSMSStore(ctx, s.name, false); err != nil {
		return 0, err
	}
	b, err := msg.Encode()
	if err != nil {
		return 0, err
	}
	hexStr, err := msg.EncodeHex()
	if err != nil {
		return 0, err
	}
	tpduLen := len(b) - scaOctetLen(b)

	statusArg := ""
	if msg.Type != tpdu.TypeSubmit {
		statusArg = ",1" // mark received message types as ReceivedRead
	}
	cmd := fmt.Sprintf("+CMGW=%d%s", tpduLen, statusArg)
	lines, err := s.backend.SendPDU(ctx, cmd, hexStr)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("store: +CMGW returned no index")
	}
	p := parser.New(info.TrimPrefix(lines[0], "+CMGW"))
	index, err := p.ParseInt()
	if err != nil {
		return 0, err
	}
	return index - 1, nil
}

// Erase clears slot index. On success the slot becomes empty.
func (s *Store) Erase(ctx context.Context, index int) error {
	if _, err := s.backend.SelectSMSStore(ctx, s.name, false); err != nil {
		return err
	}
	_, err := s.backend.Chat(ctx, fmt.Sprintf("+CMGD=%d", index+1))
	return err
}

// Send issues +CMSS for slot index, returning the TP-Message-Reference
// and, if the device emits one, the decoded acknowledgement PDU
// (SMS-SUBMIT-REPORT).
func (s *Store) Send(ctx context.Context, index int) (byte, *tpdu.Message, error) {
	if _, err := s.backend.SelectSMSStore(ctx, s.name, false); err != nil {
		return 0, nil, err
	}
	lines, err := s.backend.Chat(ctx, fmt.Sprintf("+CMSS=%d", index+1))
	if err != nil {
		return 0, nil, err
	}
	if len(lines) == 0 {
		return 0, nil, fmt.Errorf("store: +CMSS returned no message reference")
	}
	p := parser.New(info.TrimPrefix(lines[0], "+CMSS"))
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
	if !s.backend.HasSMSSCAPrefix() {
		pduHex = "00" + pduHex
	}
	ack, err := tpdu.DecodeHex(pduHex, tpdu.DirectionMT)
	if err != nil {
		return 0, nil, err
	}
	return byte(mr), &ack, nil
}

// scaOctetLen returns how many leading octets of an encoded TPDU are the
// service-centre-address field (the length byte plus its payload).
func scaOctetLen(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	return 1 + int(b[0])
}
