package cli

import (
	"fmt"
	"io"
)

// Usage prints the usage information for the rbrefactor command
func Usage(w io.Writer, runner *Runner, flags *Flags) {
	fmt.Fprintf(w, `rbrefactor - Extract Variable refactoring for Ruby

Usage: rbrefactor [options] <command> [arguments]

Commands:
`)
	for _, cmd := range runner.GetCommands() {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintf(w, "\nOptions:\n%s", flags.Defaults())
	fmt.Fprintf(w, `
Positions are 1-based line:column pairs; columns count UTF-16 code units.
The end position is just past the last character of the expression.

Examples:
  # Preview extracting "w * h" on line 2, columns 8-12
  rbrefactor extract area.rb 2:8 2:13

  # Extract every occurrence under a chosen name and write the file
  rbrefactor --occurrences all --name area --write extract area.rb 2:8 2:13

  # Check annotated fixtures, rewriting expectations that changed
  rbrefactor fixtures --update testdata/extract_variable

  # Show the syntax tree of a file
  rbrefactor tree area.rb
`)
}
