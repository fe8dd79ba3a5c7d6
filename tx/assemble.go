package tx

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"

	"github.com/bitfsorg/libcash-go/utxo"
)

// Relay limits enforced before a transaction is returned.
const (
	MaxScriptSize = 10_000
	MaxMarkerSize = 223
	MaxTxSize     = 100_000

	// TxVersion is the version of assembled transactions.
	TxVersion = 2
)

// Result is a signed, serialized transaction.
type Result struct {
	TxID string
	Raw  []byte
	Hex  string
	Fee  uint64
	Plan *FundingPlan
}

// Assembler turns a FundingPlan into a signed transaction.
type Assembler struct {
	Signer    Signer
	DustLimit uint64
}

// NewAssembler returns an assembler using signer, or KeySigner when nil.
func NewAssembler(signer Signer) *Assembler {
	if signer == nil {
		signer = KeySigner{}
	}
	return &Assembler{Signer: signer, DustLimit: DustLimit}
}

// Assemble signs every input of plan with key. Inputs that carry no locking
// script are assumed to pay sourceScript.
func (a *Assembler) Assemble(plan *FundingPlan, key *ec.PrivateKey, sourceScript []byte) (*Result, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan", ErrNilParam)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	if len(plan.Inputs) == 0 {
		return nil, ErrNoUtxosAvailable
	}
	if len(plan.Outputs) == 0 {
		return nil, fmt.Errorf("%w: transaction has no outputs", ErrSerialization)
	}
	dust := a.DustLimit
	if dust == 0 {
		dust = DustLimit
	}
	if err := checkOutputs(plan.Outputs, dust); err != nil {
		return nil, err
	}
	if plan.InputValue() != plan.OutputValue()+plan.Fee {
		return nil, fmt.Errorf("%w: inputs %d != outputs %d + fee %d",
			ErrSerialization, plan.InputValue(), plan.OutputValue(), plan.Fee)
	}

	sdkTx := transaction.NewTransaction()
	sdkTx.Version = TxVersion
	sdkTx.LockTime = 0

	for i, in := range plan.Inputs {
		hash, err := txidHash(in.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: input %d: %w", ErrSerialization, i, err)
		}
		lock := in.Script
		if len(lock) == 0 {
			lock = sourceScript
		}
		if len(lock) == 0 {
			return nil, fmt.Errorf("%w: input %d has no locking script", ErrSigningFailed, i)
		}
		sdkTx.AddInput(&transaction.TransactionInput{
			SourceTXID:       hash,
			SourceTxOutIndex: in.Vout,
			SequenceNumber:   transaction.DefaultSequenceNumber,
		})
		sdkTx.Inputs[i].SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      in.Value,
			LockingScript: script.NewFromBytes(lock),
		})
	}
	for _, out := range plan.Outputs {
		sdkTx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      out.Value,
			LockingScript: script.NewFromBytes(out.Script),
		})
	}

	pubKey := key.PubKey().Compressed()
	for i := range plan.Inputs {
		digest, err := sdkTx.CalcInputSignatureHash(uint32(i), sighash.AllForkID)
		if err != nil {
			return nil, fmt.Errorf("%w: sighash for input %d: %w", ErrSigningFailed, i, err)
		}
		sig, err := a.Signer.Sign(digest, key)
		if err != nil {
			return nil, fmt.Errorf("%w: input %d: %w", ErrSigningFailed, i, err)
		}
		unlock, err := p2pkhUnlock(sig, pubKey)
		if err != nil {
			return nil, err
		}
		sdkTx.Inputs[i].UnlockingScript = unlock
	}

	raw := sdkTx.Bytes()
	if len(raw) > MaxTxSize {
		return nil, fmt.Errorf("%w: transaction is %d bytes, limit %d", ErrSerialization, len(raw), MaxTxSize)
	}
	return &Result{
		TxID: sdkTx.TxID().String(),
		Raw:  raw,
		Hex:  hex.EncodeToString(raw),
		Fee:  plan.Fee,
		Plan: plan,
	}, nil
}

func p2pkhUnlock(derSig, pubKey []byte) (*script.Script, error) {
	// The signer owns derSig; appending in place could write into its buffer.
	sig := make([]byte, 0, len(derSig)+1)
	sig = append(append(sig, derSig...), byte(sighash.AllForkID))

	s := &script.Script{}
	if err := s.AppendPushData(sig); err != nil {
		return nil, fmt.Errorf("%w: push signature: %w", ErrScriptBuild, err)
	}
	if err := s.AppendPushData(pubKey); err != nil {
		return nil, fmt.Errorf("%w: push pubkey: %w", ErrScriptBuild, err)
	}
	return s, nil
}

// txidHash converts a display-order txid into the internal byte order hash.
func txidHash(txid string) (*chainhash.Hash, error) {
	b, err := hex.DecodeString(txid)
	if err != nil || len(b) != chainhash.HashSize {
		return nil, fmt.Errorf("invalid txid %q", txid)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return chainhash.NewHash(b)
}

// Outpoints lists the outpoints a result spends.
func (r *Result) Outpoints() []utxo.Outpoint {
	ops := make([]utxo.Outpoint, len(r.Plan.Inputs))
	for i, in := range r.Plan.Inputs {
		ops[i] = in.Outpoint
	}
	return ops
}
