package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// choice is one selectable option; Value is what ends up in the job request.
type choice struct {
	Label string
	Value string
}

// chooser asks the operator to resolve values the flags left open.
type chooser interface {
	Select(title string, options []choice) (string, error)
	MultiSelect(title string, options []choice, preselected []string) ([]string, error)
}

// newChooser returns a huh-backed chooser on a terminal and a chooser that
// refuses to guess otherwise.
func newChooser() chooser {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return formChooser{}
	}
	return flagsOnly{}
}

type formChooser struct{}

func (formChooser) Select(title string, options []choice) (string, error) {
	var value string
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title(title).Options(opts...).Value(&value),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return value, nil
}

func (formChooser) MultiSelect(title string, options []choice, preselected []string) ([]string, error) {
	selected := make(map[string]bool, len(preselected))
	for _, v := range preselected {
		selected[v] = true
	}
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value).Selected(selected[o.Value]))
	}
	var values []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title(title).
			Options(opts...).
			Validate(func(v []string) error {
				if len(v) == 0 {
					return fmt.Errorf("select at least one title")
				}
				return nil
			}).
			Value(&values),
	))
	if err := form.Run(); err != nil {
		return nil, err
	}
	return values, nil
}

type flagsOnly struct{}

func (flagsOnly) Select(title string, options []choice) (string, error) {
	return "", fmt.Errorf("%s: %d options available and no terminal to choose from; pass the value as a flag", title, len(options))
}

func (flagsOnly) MultiSelect(_ string, _ []choice, preselected []string) ([]string, error) {
	if len(preselected) == 0 {
		return nil, fmt.Errorf("no titles matched; pass --titles")
	}
	return preselected, nil
}
