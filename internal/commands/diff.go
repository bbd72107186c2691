package commands

import (
	"github.com/spf13/cobra"

	"github.com/spiral-modules/dbal/internal/declare"
)

// DiffOptions holds the flags of the diff command.
type DiffOptions struct {
	Apply bool
}

// NewDiffCommand renders, and optionally applies, the DDL turning the database into the
// declared schema.
func NewDiffCommand(global *GlobalOptions) *cobra.Command {
	opts := &DiffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <schema.yaml>",
		Short: "Print the DDL needed to match a declarative schema file",
		Long: `Compares every table declared in the schema file with the database and prints the
statements that would bring the database in line. Columns, indexes and foreign keys
not present in the declaration are dropped. Undeclared tables are left untouched.`,
		Example: `  # Preview changes
  dbal diff schema.yaml

  # Apply them
  dbal diff schema.yaml --apply`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Execute the statements instead of only printing them")
	return cmd
}

func runDiff(cmd *cobra.Command, global *GlobalOptions, opts *DiffOptions, path string) error {
	decl, err := declare.Load(path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := global.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	for _, name := range decl.Order() {
		t, err := s.db.Table(ctx, name)
		if err != nil {
			return err
		}
		if err := decl.Tables[name].Apply(t); err != nil {
			return err
		}

		stmts, err := t.Statements()
		if err != nil {
			return err
		}
		if len(stmts) == 0 {
			printf(cmd, "-- %s: up to date\n", name)
			continue
		}

		printf(cmd, "-- %s\n", name)
		for _, stmt := range stmts {
			printf(cmd, "%s;\n", stmt)
		}
		if opts.Apply {
			if err := t.Save(ctx); err != nil {
				return err
			}
			printf(cmd, "-- %s: applied\n", name)
		}
	}
	return nil
}
