package torchir

// WalkResult is returned by the visitor of Module.Walk and Function.Walk to control the walk.
type WalkResult int

const (
	// WalkAdvance continues the walk, including the regions of the visited operation.
	WalkAdvance WalkResult = iota

	// WalkSkip continues the walk, but skips the regions of the visited operation.
	WalkSkip

	// WalkInterrupt stops the walk. The walk itself then returns WalkInterrupt.
	WalkInterrupt
)

func walkRegion(region *Region, visit func(op *Operation) WalkResult) WalkResult {
	for _, block := range region.Blocks() {
		for _, op := range block.Operations() {
			switch visit(op) {
			case WalkInterrupt:
				return WalkInterrupt
			case WalkSkip:
				continue
			default:
			}
			for _, nested := range op.regions {
				if walkRegion(nested, visit) == WalkInterrupt {
					return WalkInterrupt
				}
			}
		}
	}
	return WalkAdvance
}

// Walk visits the operation itself and then every operation nested in its regions, in pre-order.
func (op *Operation) Walk(visit func(op *Operation) WalkResult) WalkResult {
	switch visit(op) {
	case WalkInterrupt:
		return WalkInterrupt
	case WalkSkip:
		return WalkAdvance
	default:
	}
	for _, nested := range op.regions {
		if walkRegion(nested, visit) == WalkInterrupt {
			return WalkInterrupt
		}
	}
	return WalkAdvance
}
