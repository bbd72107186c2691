package commands

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewTablesCommand lists the tables of a database.
func NewTablesCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables with their column, index and foreign key counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := global.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			tables, err := s.db.Tables(ctx)
			if err != nil {
				return err
			}

			out := newTable(cmd, "Table", "Columns", "Indexes", "Foreign keys", "Primary key")
			for _, t := range tables {
				out.Append([]string{
					t.Name(),
					strconv.Itoa(len(t.Columns())),
					strconv.Itoa(len(t.Indexes())),
					strconv.Itoa(len(t.References())),
					joinNames(t.PrimaryKeys()),
				})
			}
			out.Render()
			return nil
		},
	}
}
