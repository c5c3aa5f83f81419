package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/go-docrepo/pkg/query"
	"github.com/adfharrison1/go-docrepo/pkg/repository"
	"github.com/adfharrison1/go-docrepo/pkg/server"
)

// Query operations accepted by --op
const (
	OpFind  = "find"
	OpFirst = "first"
	OpCount = "count"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Class    string
	DataFile string
	Op       string
	Master   bool
	Token    string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <descriptor-file>",
		Short: "Run a query descriptor against a snapshot",
		Long: `Run a query descriptor against a snapshot file and print the results.

The descriptor is read from a JSON or YAML file (by extension), or as JSON
from stdin when the file is "-".

Example:
  docrepo query --class Book ./recent.yaml
  docrepo query --class Book --op count --master - < filter.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Class, "class", "", "class to query (required)")
	cmd.Flags().StringVar(&opts.DataFile, "data-file", "", "snapshot file (overrides config)")
	cmd.Flags().StringVar(&opts.Op, "op", OpFind, "operation (find|first|count)")
	cmd.Flags().BoolVar(&opts.Master, "master", false, "run with elevated access")
	cmd.Flags().StringVar(&opts.Token, "token", "", "session token to run as")
	_ = cmd.MarkFlagRequired("class")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, path string) error {
	switch opts.Op {
	case OpFind, OpFirst, OpCount:
	default:
		return fmt.Errorf("invalid op %q: must be one of find, first, count", opts.Op)
	}

	d, err := readDescriptor(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.DataFile != "" {
		cfg.DataFile = opts.DataFile
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	if err := srv.InitDB(cfg.DataFile); err != nil {
		return err
	}
	repo, ok := srv.Repository(opts.Class)
	if !ok {
		return fmt.Errorf("unknown class %q", opts.Class)
	}

	var callOpts []repository.CallOption
	if opts.Master {
		callOpts = append(callOpts, repository.Elevated())
	}
	if opts.Token != "" {
		callOpts = append(callOpts, repository.WithToken(opts.Token))
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	switch opts.Op {
	case OpCount:
		n, err := repo.Count(ctx, d, callOpts...)
		if err != nil {
			return err
		}
		if opts.Format == "json" {
			return writeJSONOut(out, map[string]interface{}{"class": opts.Class, "count": n})
		}
		fmt.Fprintln(out, n)
	case OpFirst:
		row, err := repo.FindOne(ctx, d, callOpts...)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("no %s matches the descriptor", opts.Class)
		}
		if opts.Format == "json" {
			return writeJSONOut(out, row)
		}
		return writeLine(out, row)
	default:
		page, err := repo.Retrieve(ctx, d, callOpts...)
		if err != nil {
			return err
		}
		if opts.Format == "json" {
			return writeJSONOut(out, page)
		}
		fmt.Fprintf(out, "%d result(s), total %d, page %d\n", len(page.Results), page.Total, page.Page)
		for _, row := range page.Results {
			if err := writeLine(out, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// readDescriptor decodes the descriptor in path; "-" reads JSON from stdin
func readDescriptor(path string, stdin io.Reader) (*query.Descriptor, error) {
	if path == "-" {
		return query.Decode(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return query.DecodeYAML(f)
	default:
		return query.Decode(f)
	}
}

func writeJSONOut(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLine(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
