// torchir-opt runs passes over a Torch program in textual form.
//
// Example:
//
//	torchir-opt -input=model.torchir -passes=torch-reify-dtype-calculations -output=reified.torchir
//
// The library of dtype and shape functions is read from -library, or from the file named by
// $TORCHIR_LIBRARY, and otherwise the built-in library is used.
// If -input is not given and it is running on a terminal, it asks for the missing values.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/x/term"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-torchir/pkg/library"
	"github.com/gomlx/go-torchir/pkg/passes"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LibraryEnv is the environment variable with the default path of the library.
const LibraryEnv = "TORCHIR_LIBRARY"

// passOrder is the order in which passes are offered in interactive mode.
var passOrder = []string{
	passes.ReifyDtypeCalculationsName,
	passes.ReifyShapeCalculationsName,
	passes.DropAbstractInterpCalculationsName,
}

var (
	flagInput   = flag.String("input", "", `Path of the Torch program to transform, "-" reads it from the standard input.`)
	flagLibrary = flag.String("library", "",
		"Path of the library of dtype and shape functions. "+
			"If empty, $"+LibraryEnv+" is used, and if that is not set either, the built-in library.")
	flagPasses = flag.String("passes", passes.ReifyDtypeCalculationsName,
		"Comma separated list of passes to run, in order. Valid passes: "+strings.Join(passes.Names(), ", "))
	flagOutput = flag.String("output", "-", `Path where to write the transformed program, "-" writes it to the standard output.`)
	flagVerify = flag.Bool("verify", true, "Verify the program after parsing it and after each pass.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagLibrary == "" {
		*flagLibrary = os.Getenv(LibraryEnv)
	}

	if *flagInput == "" {
		if !term.IsTerminal(os.Stdin.Fd()) {
			*flagInput = "-"
		} else if err := Interact(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return
			}
			klog.Fatalf("Failed on error: %+v", err)
		}
	}

	var err error
	if exception := exceptions.Try(func() { err = run() }); exception != nil {
		klog.Fatalf("Failed with an unexpected exception: %+v", exception)
	}
	if err != nil {
		klog.Fatalf("Failed on error: %+v", err)
	}
}

func run() error {
	source, err := readInput(*flagInput)
	if err != nil {
		return err
	}
	module, err := torchir.Parse(source)
	if err != nil {
		return errors.WithMessagef(err, "parsing %s", *flagInput)
	}
	if *flagVerify {
		if err := module.Verify(); err != nil {
			return errors.WithMessagef(err, "verifying %s", *flagInput)
		}
	}

	lib, err := loadLibrary(*flagLibrary)
	if err != nil {
		return err
	}
	pipeline, err := passes.ParsePipeline(*flagPasses, passes.Config{Library: lib})
	if err != nil {
		return err
	}
	pipeline.Verify = *flagVerify

	before := CountOperations(module)
	start := time.Now()
	if err := pipeline.Run(module); err != nil {
		return err
	}
	elapsed := time.Since(start)

	output := module.String()
	if err := writeOutput(*flagOutput, output); err != nil {
		return err
	}
	Summary{
		Passes:  pipeline.Names(),
		Before:  before,
		After:   CountOperations(module),
		Bytes:   len(output),
		Elapsed: elapsed,
	}.Print(os.Stderr)
	return nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		contents, err := io.ReadAll(os.Stdin)
		return string(contents), errors.Wrap(err, "reading standard input")
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %q", path)
	}
	return string(contents), nil
}

func writeOutput(path, contents string) error {
	if path == "-" {
		_, err := io.WriteString(os.Stdout, contents)
		return errors.Wrap(err, "writing to standard output")
	}
	return errors.Wrapf(os.WriteFile(path, []byte(contents), 0o644), "writing %q", path)
}

func loadLibrary(path string) (*library.Library, error) {
	if path == "" {
		klog.V(1).Infof("using the built-in library")
		return library.Default(), nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading library %q", path)
	}
	lib, err := library.Parse(string(contents))
	if err != nil {
		return nil, errors.WithMessagef(err, "library %q", path)
	}
	klog.V(1).Infof("loaded %d library functions from %q", lib.Len(), path)
	return lib, nil
}
