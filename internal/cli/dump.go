package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sverrirab/generic-rest/internal/record"
	"github.com/sverrirab/generic-rest/internal/store"
)

// DumpResult is the JSON payload of the dump command.
type DumpResult struct {
	Source  string                   `json:"source"`
	Records map[string]record.Record `json:"records"`
	Digest  string                   `json:"digest"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var withDigest bool

	cmd := &cobra.Command{
		Use:   "dump <data-file>",
		Short: "Print the records stored in a data file",
		Long: `Print the records of a JSON or SQLite data file in the persisted JSON
layout. Useful for inspecting SQLite stores or converting between formats:

  generic-rest dump items.db > items.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, args[0], withDigest, cmd)
		},
	}

	cmd.Flags().BoolVar(&withDigest, "digest", false, "also print the collection digest")
	return cmd
}

func runDump(opts *RootOptions, dataFile string, withDigest bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(dataFile); errors.Is(err, os.ErrNotExist) {
		formatter.Error(ErrCodeGeneric, fmt.Sprintf("%s does not exist", dataFile), nil)
		return NewExitError(ExitCommandError, "data file not found")
	}

	p, err := store.NewPersister(dataFile)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open data file", err)
	}
	defer p.Close()

	records, err := p.Load()
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load data file", err)
	}
	formatter.VerboseLog("Loaded %d record(s) from %s", len(records), p)

	digest, err := record.CollectionDigest(records)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest records", err)
	}

	encoded, err := store.EncodeJSON(records)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode records", err)
	}
	text := string(encoded) + "\n"
	if withDigest {
		text += "digest: " + digest + "\n"
	}

	return formatter.Success(DumpResult{Source: p.String(), Records: records, Digest: digest}, text)
}
