// Package slp encodes and decodes Simple Ledger Protocol token type 1
// messages carried in an OP_RETURN output at index 0, and classifies
// wallet outputs by the token value they carry.
package slp

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

var (
	// ErrNotOverlay indicates the script is not an SLP marker.
	ErrNotOverlay = errors.New("slp: not an slp message")

	// ErrUnsupportedTokenType indicates a marker for a token type other than 1.
	ErrUnsupportedTokenType = errors.New("slp: unsupported token type")

	// ErrMalformedMessage indicates a structurally invalid marker.
	ErrMalformedMessage = errors.New("slp: malformed message")

	// ErrSerialization indicates a message that cannot be encoded.
	ErrSerialization = errors.New("slp: serialization failed")
)

// Protocol constants.
const (
	TokenTypeFungible = 1
	MaxMarkerSize     = 223
	MaxSendOutputs    = 19
	MaxDecimals       = 9
)

var lokad = []byte("SLP\x00")

// Op is the transaction type of a message.
type Op uint8

const (
	OpGenesis Op = iota + 1
	OpMint
	OpSend
)

func (o Op) String() string {
	switch o {
	case OpGenesis:
		return "GENESIS"
	case OpMint:
		return "MINT"
	case OpSend:
		return "SEND"
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

func parseOp(b []byte) (Op, bool) {
	switch string(b) {
	case "GENESIS":
		return OpGenesis, true
	case "MINT":
		return OpMint, true
	case "SEND":
		return OpSend, true
	}
	return 0, false
}

// Message is a decoded marker. TokenID is unused for GENESIS. A zero
// MintBatonVout means no baton. GENESIS and MINT carry exactly one
// quantity; SEND carries one per token output starting at vout 1.
type Message struct {
	TokenType     uint16
	Op            Op
	TokenID       [32]byte
	Ticker        string
	Name          string
	DocumentURL   string
	DocumentHash  []byte
	Decimals      uint8
	MintBatonVout uint8
	Quantities    []uint64
}

// TokenIDHex returns the token id in display order. The id of a token is
// the txid of its GENESIS transaction.
func (m *Message) TokenIDHex() string {
	return hex.EncodeToString(m.TokenID[:])
}

// ParseTokenID decodes a 64 character display-order token id.
func ParseTokenID(s string) ([32]byte, error) {
	var id [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return id, fmt.Errorf("slp: invalid token id %q", s)
	}
	copy(id[:], b)
	return id, nil
}

// Validate checks the message against the output count of the transaction
// it will be placed in. nonMarkerOutputs excludes the marker itself; a
// negative value skips the positional checks.
func (m *Message) Validate(nonMarkerOutputs int) error {
	if m.TokenType != TokenTypeFungible {
		return fmt.Errorf("%w: %d", ErrUnsupportedTokenType, m.TokenType)
	}
	if len(m.DocumentHash) != 0 && len(m.DocumentHash) != 32 {
		return fmt.Errorf("%w: document hash must be 0 or 32 bytes, got %d", ErrSerialization, len(m.DocumentHash))
	}
	if m.Decimals > MaxDecimals {
		return fmt.Errorf("%w: decimals %d exceeds %d", ErrSerialization, m.Decimals, MaxDecimals)
	}
	if m.MintBatonVout == 1 {
		return fmt.Errorf("%w: mint baton vout must be 0 or >= 2", ErrSerialization)
	}

	switch m.Op {
	case OpGenesis, OpMint:
		if len(m.Quantities) != 1 {
			return fmt.Errorf("%w: %s carries exactly one quantity, got %d", ErrSerialization, m.Op, len(m.Quantities))
		}
		if nonMarkerOutputs < 0 {
			break
		}
		if nonMarkerOutputs < 1 {
			return fmt.Errorf("%w: %s requires a token output at vout 1", ErrSerialization, m.Op)
		}
		if m.MintBatonVout != 0 && int(m.MintBatonVout) > nonMarkerOutputs {
			return fmt.Errorf("%w: mint baton vout %d beyond %d outputs", ErrSerialization, m.MintBatonVout, nonMarkerOutputs)
		}
	case OpSend:
		if len(m.Quantities) == 0 || len(m.Quantities) > MaxSendOutputs {
			return fmt.Errorf("%w: SEND carries 1..%d quantities, got %d", ErrSerialization, MaxSendOutputs, len(m.Quantities))
		}
		if nonMarkerOutputs >= 0 && len(m.Quantities) != nonMarkerOutputs {
			return fmt.Errorf("%w: SEND has %d quantities for %d outputs", ErrSerialization, len(m.Quantities), nonMarkerOutputs)
		}
	default:
		return fmt.Errorf("%w: unknown op %d", ErrSerialization, m.Op)
	}
	return nil
}

// Encode serializes the message into a locking script.
func Encode(m *Message) ([]byte, error) {
	if err := m.Validate(-1); err != nil {
		return nil, err
	}

	s := []byte{script.OpRETURN}
	s = appendPush(s, lokad)
	s = appendPush(s, tokenTypeBytes(m.TokenType))
	s = appendPush(s, []byte(m.Op.String()))

	switch m.Op {
	case OpGenesis:
		s = appendPush(s, []byte(m.Ticker))
		s = appendPush(s, []byte(m.Name))
		s = appendPush(s, []byte(m.DocumentURL))
		s = appendPush(s, m.DocumentHash)
		s = appendPush(s, []byte{m.Decimals})
		s = appendPush(s, batonBytes(m.MintBatonVout))
		s = appendPush(s, quantityBytes(m.Quantities[0]))
	case OpMint:
		s = appendPush(s, m.TokenID[:])
		s = appendPush(s, batonBytes(m.MintBatonVout))
		s = appendPush(s, quantityBytes(m.Quantities[0]))
	case OpSend:
		s = appendPush(s, m.TokenID[:])
		for _, q := range m.Quantities {
			s = appendPush(s, quantityBytes(q))
		}
	}

	if len(s) > MaxMarkerSize {
		return nil, fmt.Errorf("%w: marker is %d bytes, limit %d", ErrSerialization, len(s), MaxMarkerSize)
	}
	return s, nil
}

func tokenTypeBytes(t uint16) []byte {
	if t <= 0xff {
		return []byte{byte(t)}
	}
	return []byte{byte(t >> 8), byte(t)}
}

func batonBytes(vout uint8) []byte {
	if vout == 0 {
		return nil
	}
	return []byte{vout}
}

func quantityBytes(q uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], q)
	return b[:]
}

// appendPush writes data with the smallest push opcode. Empty data is
// written as OP_PUSHDATA1 0, since OP_0 is not a data push here.
func appendPush(s, data []byte) []byte {
	n := len(data)
	switch {
	case n == 0:
		return append(s, script.OpPUSHDATA1, 0)
	case n <= 75:
		s = append(s, byte(n))
	case n <= 0xff:
		s = append(s, script.OpPUSHDATA1, byte(n))
	default:
		s = append(s, script.OpPUSHDATA2, byte(n), byte(n>>8))
	}
	return append(s, data...)
}

// Decode parses a locking script. It never panics and does not retain s.
func Decode(s []byte) (*Message, error) {
	if len(s) == 0 || s[0] != script.OpRETURN {
		return nil, ErrNotOverlay
	}

	pushes, err := splitPushes(s[1:])
	// Anything not led by the lokad push is someone else's OP_RETURN,
	// however it is structured.
	if len(pushes) == 0 || !bytes.Equal(pushes[0], lokad) {
		return nil, ErrNotOverlay
	}
	if err != nil {
		return nil, err
	}
	if len(pushes) < 2 {
		return nil, malformed("missing token type")
	}

	tt := pushes[1]
	if len(tt) < 1 || len(tt) > 2 {
		return nil, malformed("token type must be 1 or 2 bytes, got %d", len(tt))
	}
	tokenType := uint16(tt[0])
	if len(tt) == 2 {
		tokenType = tokenType<<8 | uint16(tt[1])
	}
	if tokenType != TokenTypeFungible {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTokenType, tokenType)
	}

	if len(pushes) < 3 {
		return nil, malformed("missing transaction type")
	}
	op, ok := parseOp(pushes[2])
	if !ok {
		return nil, malformed("unknown transaction type %q", pushes[2])
	}

	m := &Message{TokenType: tokenType, Op: op}
	fields := pushes[3:]
	switch op {
	case OpGenesis:
		err = m.decodeGenesis(fields)
	case OpMint:
		err = m.decodeMint(fields)
	case OpSend:
		err = m.decodeSend(fields)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) decodeGenesis(f [][]byte) error {
	if len(f) != 7 {
		return malformed("GENESIS has %d fields, want 7", len(f))
	}
	m.Ticker = string(f[0])
	m.Name = string(f[1])
	m.DocumentURL = string(f[2])

	if n := len(f[3]); n != 0 && n != 32 {
		return malformed("document hash must be 0 or 32 bytes, got %d", n)
	}
	if len(f[3]) == 32 {
		m.DocumentHash = append([]byte(nil), f[3]...)
	}

	if len(f[4]) != 1 {
		return malformed("decimals must be 1 byte, got %d", len(f[4]))
	}
	if f[4][0] > MaxDecimals {
		return malformed("decimals %d exceeds %d", f[4][0], MaxDecimals)
	}
	m.Decimals = f[4][0]

	baton, err := decodeBaton(f[5])
	if err != nil {
		return err
	}
	m.MintBatonVout = baton

	q, err := decodeQuantity(f[6])
	if err != nil {
		return err
	}
	m.Quantities = []uint64{q}
	return nil
}

func (m *Message) decodeMint(f [][]byte) error {
	if len(f) != 3 {
		return malformed("MINT has %d fields, want 3", len(f))
	}
	if err := m.decodeTokenID(f[0]); err != nil {
		return err
	}
	baton, err := decodeBaton(f[1])
	if err != nil {
		return err
	}
	m.MintBatonVout = baton

	q, err := decodeQuantity(f[2])
	if err != nil {
		return err
	}
	m.Quantities = []uint64{q}
	return nil
}

func (m *Message) decodeSend(f [][]byte) error {
	if len(f) < 2 {
		return malformed("SEND has no quantities")
	}
	if len(f)-1 > MaxSendOutputs {
		return malformed("SEND has %d quantities, limit %d", len(f)-1, MaxSendOutputs)
	}
	if err := m.decodeTokenID(f[0]); err != nil {
		return err
	}
	m.Quantities = make([]uint64, 0, len(f)-1)
	for _, b := range f[1:] {
		q, err := decodeQuantity(b)
		if err != nil {
			return err
		}
		m.Quantities = append(m.Quantities, q)
	}
	return nil
}

func (m *Message) decodeTokenID(b []byte) error {
	if len(b) != 32 {
		return malformed("token id must be 32 bytes, got %d", len(b))
	}
	copy(m.TokenID[:], b)
	return nil
}

func decodeBaton(b []byte) (uint8, error) {
	switch len(b) {
	case 0:
		return 0, nil
	case 1:
		if b[0] < 2 {
			return 0, malformed("mint baton vout %d must be >= 2", b[0])
		}
		return b[0], nil
	}
	return 0, malformed("mint baton vout must be 0 or 1 bytes, got %d", len(b))
}

func decodeQuantity(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, malformed("quantity must be 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
}

// splitPushes reads data pushes until the end of b. It returns the pushes
// read so far together with any error.
func splitPushes(b []byte) ([][]byte, error) {
	var pushes [][]byte
	for pos := 0; pos < len(b); {
		op := b[pos]
		pos++

		var n int
		switch {
		case op >= 0x01 && op <= 0x4b:
			n = int(op)
		case op == script.OpPUSHDATA1:
			if pos+1 > len(b) {
				return pushes, malformed("truncated PUSHDATA1 length")
			}
			n = int(b[pos])
			pos++
			if n != 0 && n <= 0x4b {
				return pushes, malformed("non-canonical PUSHDATA1 of %d bytes", n)
			}
		case op == script.OpPUSHDATA2:
			if pos+2 > len(b) {
				return pushes, malformed("truncated PUSHDATA2 length")
			}
			n = int(binary.LittleEndian.Uint16(b[pos:]))
			pos += 2
			if n <= 0xff {
				return pushes, malformed("non-canonical PUSHDATA2 of %d bytes", n)
			}
		case op == script.OpPUSHDATA4:
			if pos+4 > len(b) {
				return pushes, malformed("truncated PUSHDATA4 length")
			}
			n64 := binary.LittleEndian.Uint32(b[pos:])
			pos += 4
			if n64 <= 0xffff {
				return pushes, malformed("non-canonical PUSHDATA4 of %d bytes", n64)
			}
			if uint64(n64) > uint64(len(b)) {
				return pushes, malformed("truncated push of %d bytes", n64)
			}
			n = int(n64)
		default:
			return pushes, malformed("opcode 0x%02x used as data", op)
		}

		if pos+n > len(b) {
			return pushes, malformed("truncated push of %d bytes", n)
		}
		pushes = append(pushes, append([]byte(nil), b[pos:pos+n]...))
		pos += n
	}
	return pushes, nil
}

// DecodeOutputs decodes the marker at scripts[0] and checks that SEND
// quantities bind to the remaining outputs one to one.
func DecodeOutputs(scripts [][]byte) (*Message, error) {
	if len(scripts) == 0 {
		return nil, ErrNotOverlay
	}
	m, err := Decode(scripts[0])
	if err != nil {
		return nil, err
	}
	if m.Op == OpSend && len(m.Quantities) != len(scripts)-1 {
		return nil, malformed("SEND has %d quantities for %d outputs", len(m.Quantities), len(scripts)-1)
	}
	return m, nil
}
