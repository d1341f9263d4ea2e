package shapes

import (
	"fmt"
	"io"
	"strings"
)

// ToTorch returns the parameters of a Torch tensor type for the shape, e.g. "[2,?],f32".
// It returns an empty string if the shape is completely unknown: the tensor type is then
// printed without parameters (`!torch.vtensor`).
func (s Shape) ToTorch() string {
	var sb strings.Builder
	_ = s.WriteTorch(&sb)
	return sb.String()
}

// WriteTorch writes the Torch tensor type parameters of the shape to the given writer.
func (s Shape) WriteTorch(writer io.Writer) error {
	if s.IsUnknown() {
		return nil
	}
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}

	if !s.Ranked {
		w("*")
	} else {
		w("[")
		for i, dim := range s.Dimensions {
			if i > 0 {
				w(",")
			}
			// Torch uses '?' for dimensions not known statically.
			if dim < 0 {
				w("?")
			} else {
				w("%d", dim)
			}
		}
		w("]")
	}
	w(",%s", s.DType.ToTorch())
	return err
}
