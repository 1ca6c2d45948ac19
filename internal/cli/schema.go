// Package cli holds the wiring shared by gistify and gistifyd.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag and command annotations read by GenerateSchema.
const (
	annotationEnv  = "gistify_env"
	annotationEnum = "gistify_enum"
	modePrefix     = "gistify_mode:"
)

// FlagSchema describes one flag of a gistify command for --help-json.
type FlagSchema struct {
	Name        string   `json:"name"`
	Shorthand   string   `json:"shorthand,omitempty"`
	Type        string   `json:"type"`
	Default     string   `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
	Env         string   `json:"env,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Persistent  bool     `json:"persistent,omitempty"`
	Required    bool     `json:"required"`
}

// ModeSchema names a backend the CLI can run a command against.
type ModeSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CommandSchema describes a command, its flags and its subcommands.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Modes       []ModeSchema    `json:"modes,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// BindEnv records the environment variable a flag falls back to when unset.
func BindEnv(flags *pflag.FlagSet, name, env string) {
	_ = flags.SetAnnotation(name, annotationEnv, []string{env})
}

// SetEnum records the accepted values of a string flag and registers them for
// shell completion.
func SetEnum(cmd *cobra.Command, name string, values ...string) {
	_ = cmd.Flags().SetAnnotation(name, annotationEnum, values)
	_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
}

// AddMode documents a backend mode on cmd. Modes are inherited by subcommands.
func AddMode(cmd *cobra.Command, name, description string) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[modePrefix+name] = description
}

// GenerateSchema builds the --help-json document for cmd and its visible subcommands.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
		Modes:       modes(cmd),
		Flags:       extractFlags(cmd),
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

func modes(cmd *cobra.Command) []ModeSchema {
	var out []ModeSchema
	for c := cmd; c != nil; c = c.Parent() {
		for key, desc := range c.Annotations {
			name, ok := strings.CutPrefix(key, modePrefix)
			if !ok || slices.ContainsFunc(out, func(m ModeSchema) bool { return m.Name == name }) {
				continue
			}
			out = append(out, ModeSchema{Name: name, Description: desc})
		}
	}
	slices.SortFunc(out, func(a, b ModeSchema) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func extractFlags(cmd *cobra.Command) []FlagSchema {
	var flags []FlagSchema
	persistent := cmd.PersistentFlags()

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help-json" || f.Name == "help" {
			return
		}
		schema := flagToSchema(f)
		schema.Persistent = persistent.Lookup(f.Name) != nil
		flags = append(flags, schema)
	})

	return flags
}

func flagToSchema(f *pflag.Flag) FlagSchema {
	schema := FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
	}

	if env := f.Annotations[annotationEnv]; len(env) > 0 {
		schema.Env = env[0]
	}
	schema.Enum = f.Annotations[annotationEnum]
	if req := f.Annotations[cobra.BashCompOneRequiredFlag]; len(req) > 0 && req[0] == "true" {
		schema.Required = true
	}

	return schema
}

// PrintSchema outputs the command schema as JSON and exits.
func PrintSchema(cmd *cobra.Command) {
	schema := GenerateSchema(cmd)
	output, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
	os.Exit(0)
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// CheckHelpJSON prints the schema of the command named in os.Args when
// --help-json is present. It runs before Execute so positional-argument
// validation does not reject the request.
func CheckHelpJSON(rootCmd *cobra.Command) {
	for i, arg := range os.Args {
		if arg == "--help-json" {
			PrintSchema(findTargetCommand(rootCmd, os.Args[1:i]))
		}
	}
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

	return cmd
}
