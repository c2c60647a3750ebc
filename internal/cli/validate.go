package cli

import (
	"errors"
	"fmt"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/sverrirab/generic-rest/internal/schema"
	"github.com/sverrirab/generic-rest/internal/store"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                     `json:"valid"`
	Records int                      `json:"records"`
	Errors  []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <data-file> [field ...]",
		Short: "Check a data file against the schema",
		Long: `Check every record of a persisted data file against the schema built from
the field list. Records must hold exactly the schema's fields with values of
the declared types.

SQLite files (.db, .sqlite, .sqlite3) are read through the store and checked
the same way as JSON files.

Exit codes: 0 valid, 1 schema violations, 2 unreadable file or bad fields.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dataFile string, fields []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sch, err := loadSchema(opts, fields)
	if err != nil {
		return reportSchemaError(formatter, err)
	}
	formatter.VerboseLog("Schema: %d field(s)", sch.Len())

	data, err := readDataFile(dataFile)
	if err != nil {
		formatter.Error(schema.ErrDataFile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read data file", err)
	}

	violations, err := sch.ValidateData(dataFile, data)
	if err != nil {
		formatter.Error(schema.ErrDataFile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to validate data file", err)
	}
	for _, v := range violations {
		if v.Code == schema.ErrDataFile {
			formatter.Error(v.Code, v.Message, v.Field)
			return WrapExitError(ExitCommandError, "failed to parse data file", v)
		}
	}

	records := countRecords(data)
	if len(violations) > 0 {
		result := ValidationResult{Valid: false, Records: records, Errors: violations}
		text := ""
		for _, v := range violations {
			text += v.Error() + "\n"
		}
		if err := formatter.Success(result, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d violation(s) in %s", len(violations), dataFile))
	}

	return formatter.Success(
		ValidationResult{Valid: true, Records: records},
		fmt.Sprintf("%s: %d record(s) valid\n", dataFile, records),
	)
}

// countRecords returns the number of top-level members, or 0 when the data
// is not a JSON object.
func countRecords(data []byte) int {
	var raw map[string]gojson.RawMessage
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return 0
	}
	return len(raw)
}

// readDataFile returns the JSON form of a data file. SQLite files are
// loaded and re-encoded.
func readDataFile(path string) ([]byte, error) {
	if !store.IsSQLitePath(path) {
		return os.ReadFile(path)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s does not exist", path)
	}
	p, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	records, err := p.Load()
	if err != nil {
		return nil, err
	}
	return store.EncodeJSON(records)
}
