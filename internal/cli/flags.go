package cli

import (
	"io"

	"github.com/spf13/pflag"

	"github.com/mamaar/rbrefactor/internal/config"
)

// Flags holds all command line flags
type Flags struct {
	Version         *bool
	Config          *string
	JSON            *bool
	Write           *bool
	Backup          *bool
	Verbose         *bool
	Enable          *bool
	Occurrences     *string
	SingleLineStyle *string
	Name            *string
	Update          *bool
	Concurrency     *int

	set *pflag.FlagSet
}

// Flag names that overlay the configuration.
const (
	FlagExtractToVariable = "extract-to-variable"
	FlagOccurrences       = "occurrences"
	FlagSingleLineStyle   = "single-line-style"
	FlagName              = "name"
)

// NewFlags defines every command line flag on a fresh flag set. Flags may
// appear before or after the command.
func NewFlags(name string) *Flags {
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	set.SetOutput(io.Discard)
	set.SetInterspersed(true)

	return &Flags{
		Version:         set.BoolP("version", "v", false, "Show version information"),
		Config:          set.String("config", "", "Config file (default: "+config.ProjectFileName+" in the working directory, then the user config)"),
		JSON:            set.Bool("json", false, "Output results in JSON format"),
		Write:           set.BoolP("write", "w", false, "Write the result back to the file"),
		Backup:          set.Bool("backup", false, "Keep a .backup copy of files before writing them"),
		Verbose:         set.Bool("verbose", false, "Enable debug logging on stderr"),
		Enable:          set.Bool(FlagExtractToVariable, false, "Enable the extract to variable action"),
		Occurrences:     set.String(FlagOccurrences, "", "Occurrences to replace: single or all"),
		SingleLineStyle: set.String(FlagSingleLineStyle, "", "Declaration layout for single-line bodies: expand or inline"),
		Name:            set.StringP(FlagName, "n", "", "Name hint for the new variable"),
		Update:          set.Bool("update", false, "Rewrite fixture expectation files with the current output"),
		Concurrency:     set.Int("concurrency", 0, "Fixtures checked in parallel (0 means one per CPU)"),
		set:             set,
	}
}

// Parse parses args, which must not include the program name.
func (f *Flags) Parse(args []string) error {
	return f.set.Parse(args)
}

// Args returns the positional arguments: the command and its arguments.
func (f *Flags) Args() []string {
	return f.set.Args()
}

// Changed reports whether the flag was set on the command line.
func (f *Flags) Changed(name string) bool {
	return f.set.Changed(name)
}

// Defaults renders the flag help text.
func (f *Flags) Defaults() string {
	return f.set.FlagUsages()
}

// Settings returns the configuration given on the command line. Flags that
// were not set leave the configuration untouched.
func (f *Flags) Settings() config.Settings {
	var s config.Settings
	if f.Changed(FlagExtractToVariable) {
		enabled := *f.Enable
		s.ExtractToVariable = &enabled
	}
	if f.Changed(FlagOccurrences) {
		s.Occurrences = *f.Occurrences
	}
	if f.Changed(FlagSingleLineStyle) {
		s.SingleLineStyle = *f.SingleLineStyle
	}
	if f.Changed(FlagName) {
		s.VariableName = *f.Name
	}
	return s
}
