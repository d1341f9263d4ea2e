package main

import (
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
)

// Interact asks for the values of the flags -input, -library, -passes and -output.
// It returns huh.ErrUserAborted if the user gives up.
func Interact() error {
	selected := strings.Split(*flagPasses, ",")
	options := make([]huh.Option[string], len(passOrder))
	for i, name := range passOrder {
		options[i] = huh.NewOption(name, name).Selected(slices.Contains(selected, name))
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Torch program to transform").
				Value(flagInput).
				Validate(ValidateReadable),
			huh.NewInput().
				Title("Library of dtype and shape functions").
				Description("Leave it empty to use the built-in library.").
				Value(flagLibrary).
				Validate(func(path string) error {
					if path == "" {
						return nil
					}
					return ValidateReadable(path)
				}),
			huh.NewMultiSelect[string]().
				Title("Passes to run").
				Options(options...).
				Value(&selected).
				Validate(func(names []string) error {
					if len(names) == 0 {
						return errors.New("select at least one pass")
					}
					return nil
				}),
			huh.NewInput().
				Title("Where to write the transformed program").
				Description(`"-" writes it to the standard output.`).
				Value(flagOutput),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	*flagPasses = strings.Join(selected, ",")
	return nil
}

// ValidateReadable checks that path is a readable regular file.
func ValidateReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.Errorf("%q is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
