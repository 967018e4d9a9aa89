// Package cli holds helpers shared by the brain and braind binaries.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// FlagSchema describes one command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Inherited   bool   `json:"inherited,omitempty"`
}

// CommandSchema describes a command and everything below it, for scripts and agents driving the CLI.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	ValidArgs   []string        `json:"valid_args,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
		Aliases:     cmd.Aliases,
		ValidArgs:   cmd.ValidArgs,
		Flags:       collectFlags(cmd),
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

func collectFlags(cmd *cobra.Command) []FlagSchema {
	var flags []FlagSchema

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == helpJSONFlag || f.Name == "help" {
			return
		}
		flags = append(flags, flagSchema(f, false))
	})
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == helpJSONFlag {
			return
		}
		flags = append(flags, flagSchema(f, true))
	})

	sort.SliceStable(flags, func(i, j int) bool {
		if flags[i].Inherited != flags[j].Inherited {
			return !flags[i].Inherited
		}
		return flags[i].Name < flags[j].Name
	})
	return flags
}

func flagSchema(f *pflag.Flag, inherited bool) FlagSchema {
	_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
	return FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
		Required:    required,
		Inherited:   inherited,
	}
}

// WriteSchema writes the schema of cmd as indented JSON.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	output, err := json.MarshalIndent(GenerateSchema(cmd), "", "  ")
	if err != nil {
		return fmt.Errorf("generating schema: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// AddHelpJSONFlag adds --help-json to root and all its subcommands.
func AddHelpJSONFlag(root *cobra.Command) {
	root.PersistentFlags().Bool(helpJSONFlag, false, "Print the command schema as JSON")
}

// HelpJSONTarget reports whether args ask for --help-json and, if so, which command they name.
func HelpJSONTarget(root *cobra.Command, args []string) (*cobra.Command, bool) {
	for i, arg := range args {
		if arg == "--"+helpJSONFlag {
			return findCommand(root, args[:i]), true
		}
	}
	return nil, false
}

// CheckHelpJSON prints the schema and exits when os.Args carries --help-json.
// It runs before Execute so positional-argument validation cannot reject the call.
func CheckHelpJSON(root *cobra.Command) {
	target, ok := HelpJSONTarget(root, os.Args[1:])
	if !ok {
		return
	}
	if err := WriteSchema(os.Stdout, target); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func findCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findCommand(sub, args[1:])
		}
	}
	return findCommand(cmd, args[1:])
}
