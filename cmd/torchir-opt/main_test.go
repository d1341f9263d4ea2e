package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/go-torchir/pkg/passes"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = `func.func @forward(%arg0: !torch.vtensor<[2,3],f32>) -> !torch.vtensor<[2,3],f32> {
  %0 = "torch.aten.tanh"(%arg0) : (!torch.vtensor<[2,3],f32>) -> !torch.vtensor<[2,3],f32>
  "func.return"(%0) : (!torch.vtensor<[2,3],f32>) -> ()
}
`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.torchir")
	output := filepath.Join(dir, "output.torchir")
	require.NoError(t, os.WriteFile(input, []byte(program), 0o644))

	*flagInput, *flagOutput, *flagLibrary = input, output, ""
	*flagPasses = passes.ReifyDtypeCalculationsName + "," + passes.ReifyShapeCalculationsName
	*flagVerify = true
	require.NoError(t, run())

	module := must.M1(torchir.Parse(string(must.M1(os.ReadFile(output)))))
	counts := CountOperations(module)
	assert.Equal(t, 1, counts.DtypeCalculations)
	assert.Equal(t, 1, counts.ShapeCalculations)
	assert.NotNil(t, module.LookupFunction("__torch_mlir_dtype_fn.aten.tanh"))

	*flagLibrary = filepath.Join(dir, "missing.torchir")
	require.Error(t, run())
	require.Error(t, ValidateReadable(*flagLibrary))
	require.Error(t, ValidateReadable(dir))
	require.NoError(t, ValidateReadable(input))
}

func TestSummary(t *testing.T) {
	module := must.M1(torchir.Parse(program))
	counts := CountOperations(module)
	assert.Equal(t, OperationCounts{Functions: 1, Operations: 2}, counts)

	var buf bytes.Buffer
	Summary{Passes: []string{passes.ReifyDtypeCalculationsName}, Before: counts, After: counts, Bytes: 2048}.Print(&buf)
	assert.Contains(t, buf.String(), passes.ReifyDtypeCalculationsName)
	assert.Contains(t, buf.String(), "2.0 kB")
}
