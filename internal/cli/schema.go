package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sverrirab/generic-rest/internal/config"
	"github.com/sverrirab/generic-rest/internal/schema"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Fields []schema.FieldSpec `json:"fields"`
	CUE    string             `json:"cue"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var asCUE bool

	cmd := &cobra.Command{
		Use:   "schema [field ...]",
		Short: "Print the record schema for a field list",
		Long: `Parse field tokens the way serve does and print the resulting schema.

With --cue the schema is printed as a CUE definition, the same one the
validate command checks data files against.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args, asCUE, cmd)
		},
	}

	cmd.Flags().BoolVar(&asCUE, "cue", false, "print the schema as a CUE definition")
	return cmd
}

func runSchema(opts *RootOptions, args []string, asCUE bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sch, err := loadSchema(opts, args)
	if err != nil {
		return reportSchemaError(formatter, err)
	}

	text := sch.String()
	if asCUE {
		text = sch.CUE()
	}
	return formatter.Success(SchemaResult{Fields: sch.Fields(), CUE: sch.CUE()}, text)
}

// loadSchema parses args, falling back to the config file's fields and then
// to the default field list.
func loadSchema(opts *RootOptions, args []string) (*schema.Schema, error) {
	if len(args) > 0 {
		return schema.Parse(args)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return schema.Parse(cfg.Fields)
}

// reportSchemaError prints field-list problems and returns a command error.
func reportSchemaError(formatter *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		formatter.Error(ErrCodeGeneric, exitErr.Error(), nil)
		return exitErr
	}

	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			formatter.Error(e.Code, e.Message, e.Field)
		}
	} else {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
	}
	return WrapExitError(ExitCommandError, "invalid field list", err)
}
