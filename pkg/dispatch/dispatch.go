// Package dispatch implements the mnemonic dispatcher (C3): selecting the
// first catalog signature whose operand classes match a call's arguments,
// recording which alternative substitutions were taken along the way.
package dispatch

import (
	"github.com/narpfel/yay-go/pkg/asmerr"
	"github.com/narpfel/yay-go/pkg/cpuspec"
	"github.com/narpfel/yay-go/pkg/operand"
)

// Match is the result of a successful dispatch: a chosen Signature together
// with its operand bindings, keyed by the matched class (post-substitution)
// so the emitter can look values up directly, plus the declared-name ->
// matched-class map for slots where an alternative was taken.
type Match struct {
	Mnemonic          string
	Signature         cpuspec.Signature
	Bound             map[string]operand.Operand
	AlternativesTaken map[string]string
}

// Dispatch implements spec.md §4.3. Positional args and keyword args are
// mutually exclusive; kwargs must name exactly the operand slots of the
// chosen signature (set equality, any order).
func Dispatch(cpu *cpuspec.CpuSpec, mnemonic string, args []operand.Operand, kwargs map[string]operand.Operand) (*Match, error) {
	if len(args) > 0 && len(kwargs) > 0 {
		return nil, asmerr.SignatureError{
			Mnemonic: mnemonic,
			Args:     toAnySlice(args),
			Kwargs:   toAnyMap(kwargs),
		}
	}

	signatures, ok := cpu.Mnemonics[mnemonic]
	if !ok {
		return nil, asmerr.SignatureError{Mnemonic: mnemonic, Args: toAnySlice(args), Kwargs: toAnyMap(kwargs)}
	}

	for _, signature := range signatures {
		values, ok := operandsFor(signature, args, kwargs)
		if !ok {
			continue
		}

		bound := make(map[string]operand.Operand, len(signature.Operands))
		alternatives := map[string]string{}
		matched := true
		for i, class := range signature.Operands {
			matchedClass, ok := cpu.Matches(class, values[i])
			if !ok {
				matched = false
				break
			}
			if matchedClass != class {
				alternatives[class] = matchedClass
			}
			bound[matchedClass] = values[i]
		}
		if !matched {
			continue
		}

		return &Match{
			Mnemonic:          mnemonic,
			Signature:         signature,
			Bound:             bound,
			AlternativesTaken: alternatives,
		}, nil
	}

	return nil, asmerr.SignatureError{Mnemonic: mnemonic, Args: toAnySlice(args), Kwargs: toAnyMap(kwargs)}
}

// operandsFor resolves the positional-or-keyword call against one
// signature's declared operand-name order, without yet classifying
// anything.
func operandsFor(signature cpuspec.Signature, args []operand.Operand, kwargs map[string]operand.Operand) ([]operand.Operand, bool) {
	if len(kwargs) > 0 {
		if len(signature.Operands) == 0 || len(kwargs) != len(signature.Operands) {
			return nil, false
		}
		values := make([]operand.Operand, len(signature.Operands))
		for i, name := range signature.Operands {
			v, ok := kwargs[name]
			if !ok {
				return nil, false
			}
			values[i] = v
		}
		return values, true
	}

	if len(args) != len(signature.Operands) {
		return nil, false
	}
	return args, true
}

func toAnySlice(args []operand.Operand) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func toAnyMap(kwargs map[string]operand.Operand) map[string]any {
	if len(kwargs) == 0 {
		return nil
	}
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		out[k] = v
	}
	return out
}
