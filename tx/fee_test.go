package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateFee(t *testing.T) {
	tests := []struct {
		name string
		size int
		rate uint64
		want uint64
	}{
		{"default rate", 226, 0, 226},
		{"one sat per byte", 226, 1000, 226},
		{"rounds up", 226, 500, 113},
		{"rounds up fraction", 225, 500, 113},
		{"half sat per byte small", 1, 500, 1},
		{"zero size", 0, 1000, 0},
		{"high rate", 250, 5000, 1250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateFee(tt.size, tt.rate))
		})
	}
}

func TestEstimateTxSize(t *testing.T) {
	p2pkh := []int{P2PKHScriptSize, P2PKHScriptSize}
	assert.Equal(t, 226, EstimateTxSize(1, p2pkh))
	assert.Equal(t, 226+P2PKHInputSize, EstimateTxSize(2, p2pkh))
	assert.Equal(t, 10, EstimateTxSize(0, nil))
	assert.Equal(t, 148, P2PKHInputSize)
	assert.Equal(t, 34, OutputSize(P2PKHScriptSize))
	assert.Equal(t, 148, InputSize(P2PKHUnlockSize))

	// 253 inputs push the count into a 3-byte varint.
	assert.Equal(t, EstimateTxSize(252, p2pkh)+P2PKHInputSize+2, EstimateTxSize(253, p2pkh))
}

func TestVarIntSize(t *testing.T) {
	assert.Equal(t, 1, VarIntSize(0))
	assert.Equal(t, 1, VarIntSize(0xfc))
	assert.Equal(t, 3, VarIntSize(0xfd))
	assert.Equal(t, 3, VarIntSize(0xffff))
	assert.Equal(t, 5, VarIntSize(0x10000))
	assert.Equal(t, 9, VarIntSize(0x100000000))
}

func TestFeeMonotonicInInputs(t *testing.T) {
	lens := []int{P2PKHScriptSize, P2PKHScriptSize}
	prev := uint64(0)
	for n := 0; n < 300; n++ {
		fee := EstimateFee(EstimateTxSize(n, lens), 1000)
		assert.GreaterOrEqual(t, fee, prev)
		prev = fee
	}
}
