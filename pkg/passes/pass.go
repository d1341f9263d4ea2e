package passes

import (
	"slices"
	"strings"

	"github.com/gomlx/go-torchir/pkg/library"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pass transforms a module in place.
type Pass interface {
	// Name used to select the pass in a pipeline, e.g.: "torch-reify-dtype-calculations".
	Name() string

	// Run the pass on module.
	Run(module *torchir.Module) error
}

// Names of the registered passes.
const (
	ReifyDtypeCalculationsName         = "torch-reify-dtype-calculations"
	ReifyShapeCalculationsName         = "torch-reify-shape-calculations"
	DropAbstractInterpCalculationsName = "torch-drop-abstract-interp-calculations"
)

// Config holds what passes may need when they are created from their names.
type Config struct {
	// Library of dtype and shape functions. If nil, library.Default() is used.
	Library *library.Library
}

func (c Config) library() *library.Library {
	if c.Library == nil {
		return library.Default()
	}
	return c.Library
}

type funcPass struct {
	name string
	run  func(module *torchir.Module) error
}

func (p *funcPass) Name() string                     { return p.name }
func (p *funcPass) Run(module *torchir.Module) error { return p.run(module) }

var registry = map[string]func(cfg Config) Pass{
	ReifyDtypeCalculationsName: func(cfg Config) Pass {
		lib := cfg.library()
		return &funcPass{name: ReifyDtypeCalculationsName, run: func(module *torchir.Module) error {
			return ReifyDtypeCalculations(module, lib)
		}}
	},
	ReifyShapeCalculationsName: func(cfg Config) Pass {
		lib := cfg.library()
		return &funcPass{name: ReifyShapeCalculationsName, run: func(module *torchir.Module) error {
			return ReifyShapeCalculations(module, lib)
		}}
	},
	DropAbstractInterpCalculationsName: func(Config) Pass {
		return &funcPass{name: DropAbstractInterpCalculationsName, run: DropAbstractInterpCalculations}
	},
}

// Names returns the names of the registered passes, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates the pass registered with the given name.
func New(name string, cfg Config) (Pass, error) {
	factory, found := registry[name]
	if !found {
		return nil, errors.Errorf("unknown pass %q, valid passes are %q", name, Names())
	}
	return factory(cfg), nil
}

// Pipeline is a sequence of passes run in order.
type Pipeline struct {
	Passes []Pass

	// Verify the module after each pass.
	Verify bool
}

// ParsePipeline creates the pipeline described by a comma separated list of pass names.
func ParsePipeline(description string, cfg Config) (*Pipeline, error) {
	p := &Pipeline{}
	for _, name := range strings.Split(description, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pass, err := New(name, cfg)
		if err != nil {
			return nil, err
		}
		p.Passes = append(p.Passes, pass)
	}
	if len(p.Passes) == 0 {
		return nil, errors.Errorf("empty pipeline %q", description)
	}
	return p, nil
}

// Names returns the names of the passes in the pipeline.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.Passes))
	for i, pass := range p.Passes {
		names[i] = pass.Name()
	}
	return names
}

// Run the passes in order on module, stopping at the first failure.
func (p *Pipeline) Run(module *torchir.Module) error {
	for _, pass := range p.Passes {
		klog.V(1).Infof("running pass %s", pass.Name())
		if err := pass.Run(module); err != nil {
			return errors.WithMessagef(err, "pass %s", pass.Name())
		}
		if p.Verify {
			if err := module.Verify(); err != nil {
				return errors.WithMessagef(err, "verifying module after pass %s", pass.Name())
			}
		}
	}
	return nil
}
