package commands

import "github.com/mamaar/rbrefactor/internal/cli"

// Register adds every rbrefactor command to runner.
func Register(runner *cli.Runner) {
	runner.RegisterCommand("config", "Print the effective configuration", ConfigCommand)
	runner.RegisterCommand("extract", "Extract the expression between two positions into a variable", ExtractCommand)
	runner.RegisterCommand("fixtures", "Check annotated fixture files against their .rbedited expectations", FixturesCommand)
	runner.RegisterCommand("tree", "Print the syntax tree of a file", TreeCommand)
	runner.RegisterCommand("version", "Show version information", VersionCommand)
}
