// Package cli provides shared CLI utilities for shiftlog and shiftlogd.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// OutputAnnotation names the JSON document a command prints when asked for
// machine-readable output.
const OutputAnnotation = "shiftlog.io/output"

// FlagSchema represents the JSON schema for a command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandSchema represents the JSON schema for a command.
type CommandSchema struct {
	Name           string          `json:"name"`
	Path           string          `json:"path"`
	Args           []string        `json:"args,omitempty"`
	Description    string          `json:"description,omitempty"`
	Long           string          `json:"long,omitempty"`
	Output         []string        `json:"output,omitempty"`
	Flags          []FlagSchema    `json:"flags,omitempty"`
	InheritedFlags []FlagSchema    `json:"inherited_flags,omitempty"`
	Subcommands    []CommandSchema `json:"subcommands,omitempty"`
}

// WithOutput records the JSON documents cmd can print. Commands with more
// than one shape, such as a single upload versus a batch, list each.
func WithOutput(cmd *cobra.Command, shapes ...string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[OutputAnnotation] = strings.Join(shapes, ",")
	return cmd
}

// GenerateSchema generates a JSON schema for a cobra command.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:           cmd.Name(),
		Path:           cmd.CommandPath(),
		Args:           positionalArgs(cmd.Use),
		Description:    cmd.Short,
		Long:           cmd.Long,
		Output:         outputShapes(cmd),
		Flags:          collectFlags(cmd.LocalNonPersistentFlags(), cmd.PersistentFlags()),
		InheritedFlags: collectFlags(cmd.InheritedFlags()),
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

// positionalArgs returns the placeholders after the command name in use,
// e.g. "upload <path>..." yields ["<path>..."].
func positionalArgs(use string) []string {
	fields := strings.Fields(use)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

func outputShapes(cmd *cobra.Command) []string {
	raw := cmd.Annotations[OutputAnnotation]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func collectFlags(sets ...*pflag.FlagSet) []FlagSchema {
	seen := map[string]bool{}
	var flags []FlagSchema
	for _, set := range sets {
		set.VisitAll(func(f *pflag.Flag) {
			if f.Name == "help-json" || f.Name == "help" || f.Hidden || seen[f.Name] {
				return
			}
			seen[f.Name] = true
			flags = append(flags, flagToSchema(f))
		})
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	return flags
}

func flagToSchema(f *pflag.Flag) FlagSchema {
	_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
	return FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
		Required:    required,
	}
}

// WriteSchema writes the command schema as indented JSON.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	output, err := json.MarshalIndent(GenerateSchema(cmd), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// CheckHelpJSON checks os.Args for --help-json and outputs schema if found.
// Call this before cmd.Execute() to handle the flag before arg validation.
func CheckHelpJSON(rootCmd *cobra.Command) {
	target, ok := HelpJSONTarget(rootCmd, os.Args[1:])
	if !ok {
		return
	}
	if err := WriteSchema(os.Stdout, target); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// HelpJSONTarget resolves the command named by the arguments before
// --help-json. ok is false when the flag is absent.
func HelpJSONTarget(rootCmd *cobra.Command, args []string) (*cobra.Command, bool) {
	for i, arg := range args {
		if arg == "--help-json" {
			return findTargetCommand(rootCmd, args[:i]), true
		}
	}
	return nil, false
}

func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findTargetCommand(sub, args[1:])
		}
	}

	return findTargetCommand(cmd, args[1:])
}
