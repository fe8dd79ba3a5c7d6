package tx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/rs/zerolog"

	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/utxo"
)

// DefaultMaxFeeRounds caps selection/fee re-estimation.
const DefaultMaxFeeRounds = 5

// Output is a transaction output.
type Output struct {
	Script []byte
	Value  uint64
}

// IsMarker reports whether the output is an OP_RETURN data carrier.
func (o Output) IsMarker() bool {
	return len(o.Script) > 0 && o.Script[0] == script.OpRETURN
}

// MarkerFunc builds the marker placed at output 0 for a transaction with
// nonMarkerOutputs outputs after it. It is called once per candidate
// layout, so it must be deterministic.
type MarkerFunc func(nonMarkerOutputs int) ([]byte, error)

// PlanRequest describes what to fund.
type PlanRequest struct {
	// Candidates are spendable outputs the selector may draw from.
	Candidates []utxo.UTXO
	// Required inputs are always spent, ahead of selected ones.
	Required []utxo.UTXO
	// Outputs are the requested non-marker outputs in final order.
	Outputs []Output
	// Marker, when set, becomes output 0.
	Marker MarkerFunc
	// ChangeScript locks the change output.
	ChangeScript []byte
	Policy       Policy
	Logger       *zerolog.Logger
}

// FundingPlan is a converged selection. Outputs are in final order,
// marker first and change last; ChangeIndex is -1 without change.
type FundingPlan struct {
	Inputs      []utxo.UTXO
	Outputs     []Output
	Change      uint64
	ChangeIndex int
	Fee         uint64
	Rounds      int
}

// InputValue sums the inputs.
func (p *FundingPlan) InputValue() uint64 { return utxo.SumValue(p.Inputs) }

// OutputValue sums all outputs, change included.
func (p *FundingPlan) OutputValue() uint64 {
	var total uint64
	for _, o := range p.Outputs {
		total += o.Value
	}
	return total
}

type layout struct {
	marker []byte
	lens   []int
}

func (r *PlanRequest) layout(withChange bool) (layout, error) {
	n := len(r.Outputs)
	if withChange {
		n++
	}
	var l layout
	if r.Marker != nil {
		m, err := r.Marker(n)
		if err != nil {
			return l, fmt.Errorf("%w: marker: %w", ErrSerialization, err)
		}
		if len(m) > MaxMarkerSize {
			return l, fmt.Errorf("%w: marker is %d bytes, limit %d", ErrSerialization, len(m), MaxMarkerSize)
		}
		l.marker = m
		l.lens = append(l.lens, len(m))
	}
	for _, o := range r.Outputs {
		l.lens = append(l.lens, len(o.Script))
	}
	if withChange {
		l.lens = append(l.lens, len(r.ChangeScript))
	}
	return l, nil
}

// Plan selects inputs and computes fee and change. Selection and fee depend
// on each other through the input count: each round checks the current set
// against target plus the fee for that many inputs and, when short, extends
// it largest first, re-pricing the fee as every input is added. The second
// round therefore converges unless funds run out.
func Plan(req PlanRequest) (*FundingPlan, error) {
	p := req.Policy.withDefaults()
	logger := log.Tx
	if req.Logger != nil {
		logger = *req.Logger
	}

	if len(req.Candidates)+len(req.Required) == 0 {
		return nil, ErrNoUtxosAvailable
	}
	if len(req.Outputs) == 0 && req.Marker == nil {
		return nil, fmt.Errorf("%w: transaction has no outputs", ErrSerialization)
	}
	if err := checkOutputs(req.Outputs, p.DustLimit); err != nil {
		return nil, err
	}
	if len(req.ChangeScript) == 0 {
		return nil, fmt.Errorf("%w: change script", ErrNilParam)
	}

	var target uint64
	for _, o := range req.Outputs {
		target += o.Value
	}
	available := utxo.SumValue(req.Required) + utxo.SumValue(req.Candidates)

	noChange, err := req.layout(false)
	if err != nil {
		return nil, err
	}
	withChange, err := req.layout(true)
	if err != nil {
		return nil, err
	}
	need := func(inputs int) uint64 {
		return target + EstimateFee(EstimateTxSize(inputs, noChange.lens), p.FeeRate)
	}

	rest := append([]utxo.UTXO(nil), req.Candidates...)
	sortLargestFirst(rest, baseValue)
	spent := append([]utxo.UTXO(nil), req.Required...)
	sum := utxo.SumValue(spent)

	for round := 1; round <= p.MaxFeeRounds; round++ {
		if sum >= need(len(spent)) {
			plan := finish(spent, &req, noChange, withChange, target, p)
			plan.Rounds = round
			if plan.InputValue() != plan.OutputValue()+plan.Fee {
				return nil, fmt.Errorf("%w: inputs %d != outputs %d + fee %d",
					ErrSerialization, plan.InputValue(), plan.OutputValue(), plan.Fee)
			}
			return plan, nil
		}

		// Previous picks stay; only the shortfall is selected.
		for len(rest) > 0 && sum < need(len(spent)) {
			spent = append(spent, rest[0])
			sum += rest[0].Value
			rest = rest[1:]
		}
		if sum < need(len(spent)) {
			return nil, &FundsError{Required: need(len(spent)), Available: available}
		}
	}

	logger.Warn().
		Int("rounds", p.MaxFeeRounds).
		Int("inputs", len(spent)).
		Uint64("target", target).
		Msg("fee estimation did not converge")
	return nil, fmt.Errorf("%w after %d rounds", ErrFeeEstimationDivergence, p.MaxFeeRounds)
}

func finish(spent []utxo.UTXO, req *PlanRequest, noChange, withChange layout, target uint64, p Policy) *FundingPlan {
	total := utxo.SumValue(spent)
	feeWithChange := EstimateFee(EstimateTxSize(len(spent), withChange.lens), p.FeeRate)

	plan := &FundingPlan{Inputs: spent, ChangeIndex: -1}
	l := noChange
	if total >= target+feeWithChange && total-target-feeWithChange >= p.DustLimit {
		plan.Change = total - target - feeWithChange
		l = withChange
	}
	plan.Fee = total - target - plan.Change

	if l.marker != nil {
		plan.Outputs = append(plan.Outputs, Output{Script: l.marker})
	}
	for _, o := range req.Outputs {
		plan.Outputs = append(plan.Outputs, Output{Script: append([]byte(nil), o.Script...), Value: o.Value})
	}
	if plan.Change > 0 {
		plan.ChangeIndex = len(plan.Outputs)
		plan.Outputs = append(plan.Outputs, Output{Script: append([]byte(nil), req.ChangeScript...), Value: plan.Change})
	}
	return plan
}

func checkOutputs(outputs []Output, dust uint64) error {
	for i, o := range outputs {
		if len(o.Script) > MaxScriptSize {
			return fmt.Errorf("%w: output %d script is %d bytes", ErrSerialization, i, len(o.Script))
		}
		if o.IsMarker() {
			if len(o.Script) > MaxMarkerSize {
				return fmt.Errorf("%w: marker is %d bytes", ErrSerialization, len(o.Script))
			}
			continue
		}
		if o.Value < dust {
			return fmt.Errorf("%w: output %d value %d below dust %d", ErrSerialization, i, o.Value, dust)
		}
	}
	return nil
}
