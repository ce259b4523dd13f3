package linker

import (
	"strconv"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/layout"
)

// Flattening limits of the Component Model canonical ABI.
const (
	maxFlatParams  = 16
	maxFlatResults = 1
)

// WasmSignature lowers desc to core wasm value types for a wasm32 guest.
// Addresses become i32, structs and sequences flatten member by member, and
// flattened lists beyond the canonical ABI limits travel through memory: too
// many params become one i32 pointer, too many results an i32 return pointer
// appended to the params.
func (l *Linker) WasmSignature(desc *FunctionDescriptor) (params, results []api.ValueType, err error) {
	for i, arg := range desc.args {
		params, err = flattenWasm(params, arg, "arg"+strconv.Itoa(i))
		if err != nil {
			return nil, nil, err
		}
	}
	if len(params) > maxFlatParams {
		params = []api.ValueType{api.ValueTypeI32}
	}

	if desc.ret == nil {
		return params, nil, nil
	}
	results, err = flattenWasm(nil, desc.ret, "return")
	if err != nil {
		return nil, nil, err
	}
	if len(results) > maxFlatResults {
		return append(params, api.ValueTypeI32), nil, nil
	}
	return params, results, nil
}

func flattenWasm(dst []api.ValueType, l layout.Layout, path string) ([]api.ValueType, error) {
	switch x := l.(type) {
	case *layout.ValueLayout:
		return append(dst, wasmValueType(x.Carrier())), nil
	case *layout.PaddingLayout:
		return dst, nil
	case *layout.SequenceLayout:
		elem, err := flattenWasm(nil, x.ElementLayout(), path)
		if err != nil {
			return nil, err
		}
		if len(elem) == 0 {
			return dst, nil
		}
		for range x.ElementCount() {
			dst = append(dst, elem...)
			if len(dst) > maxFlatParams {
				// Already past every limit; the caller passes it through memory.
				return dst, nil
			}
		}
		return dst, nil
	case *layout.GroupLayout:
		if x.IsUnion() {
			return nil, errors.New(errors.PhaseLowering, errors.KindUnsupported).
				Path(path).
				Layout(x).
				Detail("unions have no flat wasm lowering").
				Build()
		}
		var err error
		for _, m := range x.Members() {
			if dst, err = flattenWasm(dst, m, path); err != nil {
				return nil, err
			}
		}
		return dst, nil
	}
	return nil, errors.Unsupported(errors.PhaseLowering, "layout "+l.String())
}

func wasmValueType(c layout.Carrier) api.ValueType {
	switch c {
	case layout.CarrierInt64:
		return api.ValueTypeI64
	case layout.CarrierFloat32:
		return api.ValueTypeF32
	case layout.CarrierFloat64:
		return api.ValueTypeF64
	default:
		// Narrow integers widen to i32, and wasm32 addresses are i32.
		return api.ValueTypeI32
	}
}
