package tx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// Built-in lock templates.
const (
	TemplateP2PKH    = "p2pkh"
	TemplateP2SH     = "p2sh"
	TemplateOpReturn = "opreturn"
)

// LockParams are the inputs to a lock template. Each template reads only
// the fields it needs.
type LockParams struct {
	Hash []byte   // pubkey hash or script hash
	Data [][]byte // OP_RETURN pushes
}

// LockCompiler compiles a named template into a locking script.
type LockCompiler interface {
	CompileLock(template string, params LockParams) ([]byte, error)
}

// TemplateFunc compiles one template.
type TemplateFunc func(params LockParams) ([]byte, error)

// Templates is a LockCompiler backed by a registry of template functions.
type Templates map[string]TemplateFunc

// DefaultTemplates returns a registry with p2pkh, p2sh and opreturn.
func DefaultTemplates() Templates {
	return Templates{
		TemplateP2PKH:    compileP2PKH,
		TemplateP2SH:     compileP2SH,
		TemplateOpReturn: compileOpReturn,
	}
}

// CompileLock implements LockCompiler.
func (t Templates) CompileLock(template string, params LockParams) ([]byte, error) {
	fn, ok := t[template]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}
	return fn(params)
}

func compileP2PKH(params LockParams) ([]byte, error) {
	if len(params.Hash) != 20 {
		return nil, fmt.Errorf("%w: p2pkh needs a 20-byte hash, got %d", ErrScriptBuild, len(params.Hash))
	}
	addr, err := script.NewAddressFromPublicKeyHash(params.Hash, true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from hash: %w", ErrScriptBuild, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock: %w", ErrScriptBuild, err)
	}
	return []byte(*lock), nil
}

func compileP2SH(params LockParams) ([]byte, error) {
	if len(params.Hash) != 20 {
		return nil, fmt.Errorf("%w: p2sh needs a 20-byte hash, got %d", ErrScriptBuild, len(params.Hash))
	}
	s := &script.Script{}
	if err := s.AppendOpcodes(script.OpHASH160); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	if err := s.AppendPushData(params.Hash); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	if err := s.AppendOpcodes(script.OpEQUAL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	return []byte(*s), nil
}

func compileOpReturn(params LockParams) ([]byte, error) {
	s := &script.Script{}
	if err := s.AppendOpcodes(script.OpRETURN); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	for _, push := range params.Data {
		if err := s.AppendPushData(push); err != nil {
			return nil, fmt.Errorf("%w: OP_RETURN push data: %w", ErrScriptBuild, err)
		}
	}
	return []byte(*s), nil
}
