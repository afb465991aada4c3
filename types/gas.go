package types

import "github.com/alphabill-org/alphabill-nft/util"

// Gas is the unit of the compute budget attached to a call.
type Gas uint64

const tera = 1_000_000_000_000

// TGas returns n * 10^12 gas.
func TGas(n uint64) Gas {
	return Gas(n * tera)
}

func (g Gas) Add(o Gas) (Gas, bool) {
	r, ok := util.SafeAdd(uint64(g), uint64(o))
	return Gas(r), ok
}

func (g Gas) Sub(o Gas) (Gas, bool) {
	r, ok := util.SafeSub(uint64(g), uint64(o))
	return Gas(r), ok
}
