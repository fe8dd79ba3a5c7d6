package tx

const (
	// DefaultFeeRate is the default fee rate in sat/KB.
	DefaultFeeRate = uint64(1000)

	// DustLimit is the minimum value of a non-marker output in satoshis.
	DustLimit = uint64(546)

	// P2PKHUnlockSize is the worst-case <sig> <pubkey> unlocking script size.
	P2PKHUnlockSize = 107

	// P2PKHInputSize is the serialized size of a P2PKH input.
	P2PKHInputSize = 32 + 4 + 1 + P2PKHUnlockSize + 4

	// P2PKHScriptSize is the length of a P2PKH locking script.
	P2PKHScriptSize = 25
)

// EstimateFee returns ceil(txSizeBytes * feeRate / 1000). A zero rate
// uses DefaultFeeRate.
func EstimateFee(txSizeBytes int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	fee := uint64(txSizeBytes) * feeRate
	return (fee + 999) / 1000
}

// VarIntSize is the length of the compact-size encoding of n.
func VarIntSize(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	}
	return 9
}

// InputSize is the serialized size of an input with an unlocking script of
// unlockLen bytes.
func InputSize(unlockLen int) int {
	return 32 + 4 + VarIntSize(uint64(unlockLen)) + unlockLen + 4
}

// OutputSize is the serialized size of an output with a locking script of
// scriptLen bytes.
func OutputSize(scriptLen int) int {
	return 8 + VarIntSize(uint64(scriptLen)) + scriptLen
}

// EstimateTxSize returns the size of a transaction spending numInputs P2PKH
// inputs into outputs with the given locking script lengths.
func EstimateTxSize(numInputs int, outputScriptLens []int) int {
	size := 4 + 4 + VarIntSize(uint64(numInputs)) + VarIntSize(uint64(len(outputScriptLens)))
	size += numInputs * P2PKHInputSize
	for _, l := range outputScriptLens {
		size += OutputSize(l)
	}
	return size
}
