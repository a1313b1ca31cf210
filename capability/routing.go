package capability

import "fmt"

// RoutingError reports that a device cannot route a requested class of
// unsolicited message to the TA in the way the caller asked for.
type RoutingError struct {
	Class string
}

func (e RoutingError) Error() string {
	return fmt.Sprintf("capability: device cannot route %s to the TA as requested", e.Class)
}

// RoutingBitmaps is the device's reported +CNMI=? capability set: one
// membership bitmap per parameter, indexed by the value itself (so
// Mode[2] is true iff mode 2 is supported).
type RoutingBitmaps struct {
	Mode   []bool
	MT     []bool
	BM     []bool
	DS     []bool
	BFR    []bool
	HasBFR bool // +CNMI=? reported a fifth parameter at all
}

// RoutingRequest is the caller's desired +CNMI routing policy.
type RoutingRequest struct {
	SMS             bool
	CellBroadcast   bool
	StatusReport    bool
	OnlyIndication bool // indication-only routing (mt=1, bm=1/2, ds=2) vs direct (mt=2/3, bm=2/3, ds=1/2)
}

func isSet(bitmap []bool, v int) bool {
	return v >= 0 && v < len(bitmap) && bitmap[v]
}

// NegotiateRouting picks the best supported +CNMI parameter combination
// for req against the device's reported bitmaps, returning the five
// (or four, if bfr wasn't reported) integer arguments to issue as
// +CNMI=<mode>,<mt>,<bm>,<ds>[,<bfr>].
func NegotiateRouting(bitmaps RoutingBitmaps, req RoutingRequest) ([]int, error) {
	var mode int
	switch {
	case isSet(bitmaps.Mode, 2):
		mode = 2
	case isSet(bitmaps.Mode, 1):
		mode = 1
	case isSet(bitmaps.Mode, 0):
		mode = 0
	case isSet(bitmaps.Mode, 3):
		mode = 3
	default:
		return nil, RoutingError{Class: "mode"}
	}

	var mt int
	if req.SMS {
		switch {
		case req.OnlyIndication && isSet(bitmaps.MT, 1):
			mt = 1
		case !req.OnlyIndication && isSet(bitmaps.MT, 2):
			mt = 2
		case !req.OnlyIndication && isSet(bitmaps.MT, 3):
			mt = 3
		default:
			return nil, RoutingError{Class: "sms"}
		}
	}

	var bm int
	if req.CellBroadcast {
		switch {
		case req.OnlyIndication && isSet(bitmaps.BM, 1):
			bm = 1
		case req.OnlyIndication && isSet(bitmaps.BM, 2):
			bm = 2
		case !req.OnlyIndication && isSet(bitmaps.BM, 2):
			bm = 2
		case !req.OnlyIndication && isSet(bitmaps.BM, 3):
			bm = 3
		default:
			return nil, RoutingError{Class: "cell broadcast"}
		}
	}

	var ds int
	if req.StatusReport {
		switch {
		case req.OnlyIndication && isSet(bitmaps.DS, 2):
			ds = 2
		case !req.OnlyIndication && isSet(bitmaps.DS, 1):
			ds = 1
		case !req.OnlyIndication && isSet(bitmaps.DS, 2):
			ds = 2
		default:
			return nil, RoutingError{Class: "status report"}
		}
	}

	args := []int{mode, mt, bm, ds}
	if bitmaps.HasBFR {
		bfr := 0
		if isSet(bitmaps.BFR, 1) {
			bfr = 1
		}
		args = append(args, bfr)
	}
	return args, nil
}
