package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spiral-modules/dbal/database/schema"
)

// NewDescribeCommand prints the reflected structure of one table.
func NewDescribeCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "describe <table>",
		Short:   "Show the columns, indexes and foreign keys of a table",
		Example: "  dbal describe users --database primary",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := global.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			t, err := s.db.Table(ctx, args[0])
			if err != nil {
				return err
			}
			if !t.Exists() {
				return fmt.Errorf("table %q does not exist", args[0])
			}
			describe(cmd, t)
			return nil
		},
	}
}

func describe(cmd *cobra.Command, t *schema.Table) {
	columns := newTable(cmd, "Column", "Type", "Abstract", "Nullable", "Default", "Extra")
	for _, c := range t.Columns() {
		columns.Append([]string{
			c.Name(),
			nativeType(c),
			string(c.AbstractType()),
			yesNo(c.IsNullable()),
			c.DefaultValue().String(),
			columnExtra(c),
		})
	}
	columns.Render()

	if keys := t.PrimaryKeys(); len(keys) > 0 {
		printf(cmd, "\nPrimary key: %s\n", joinNames(keys))
	}

	if indexes := t.Indexes(); len(indexes) > 0 {
		printf(cmd, "\nIndexes\n")
		out := newTable(cmd, "Name", "Columns", "Unique")
		for _, idx := range indexes {
			out.Append([]string{idx.Name(), joinNames(idx.Columns()), yesNo(idx.IsUnique())})
		}
		out.Render()
	}

	if refs := t.References(); len(refs) > 0 {
		printf(cmd, "\nForeign keys\n")
		out := newTable(cmd, "Name", "Column", "References", "On delete", "On update")
		for _, r := range refs {
			out.Append([]string{
				r.Name(),
				r.Column(),
				r.ForeignTable() + "." + r.ForeignKey(),
				string(r.DeleteRule()),
				string(r.UpdateRule()),
			})
		}
		out.Render()
	}
}

func nativeType(c *schema.Column) string {
	switch {
	case c.Precision() > 0:
		return fmt.Sprintf("%s(%d,%d)", c.Type(), c.Precision(), c.Scale())
	case c.Size() > 0:
		return c.Type() + "(" + strconv.Itoa(c.Size()) + ")"
	default:
		return c.Type()
	}
}

func columnExtra(c *schema.Column) string {
	var extra []string
	if c.IsAutoIncrement() {
		extra = append(extra, "auto increment")
	}
	if values := c.EnumValues(); len(values) > 0 {
		extra = append(extra, "values: "+strings.Join(values, ", "))
	}
	return strings.Join(extra, "; ")
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
