package schema

import (
	"context"
	"time"

	"github.com/spiral-modules/dbal/database/types"
	"github.com/spiral-modules/dbal/logger"
)

// Commander applies operations one statement at a time. The first failure stops the run;
// statements already executed are not rolled back, as most engines commit DDL implicitly.
type Commander struct {
	handler Handler
	exec    Executor
	log     logger.Logger
}

// NewCommander creates a commander executing through exec. A nil log disables logging.
func NewCommander(h Handler, exec Executor, log logger.Logger) *Commander {
	if log == nil {
		log = logger.Nop()
	}
	return &Commander{handler: h, exec: exec, log: log}
}

// Statements renders ops without executing them.
func (c *Commander) Statements(ops []Operation) ([]string, error) {
	var out []string
	for _, op := range ops {
		stmts, err := c.handler.Render(op)
		if err != nil {
			return out, c.schemaError(op, "", err)
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// Execute renders and runs every operation in order.
func (c *Commander) Execute(ctx context.Context, ops []Operation) error {
	for _, op := range ops {
		stmts, err := c.handler.Render(op)
		if err != nil {
			return c.schemaError(op, "", err)
		}

		start := time.Now()
		for _, stmt := range stmts {
			if _, err := c.exec.Execute(ctx, stmt); err != nil {
				c.log.Error().
					Err(err).
					Str("table", op.Table).
					Str("operation", op.String()).
					Msg("Schema operation failed")
				return c.schemaError(op, stmt, err)
			}
		}

		c.log.Debug().
			Str("table", op.Table).
			Str("operation", op.String()).
			Int("statements", len(stmts)).
			Dur("duration", time.Since(start)).
			Msg("Schema operation applied")
	}
	return nil
}

func (c *Commander) schemaError(op Operation, stmt string, err error) error {
	return &types.SchemaError{
		Dialect:   c.handler.Dialect(),
		Table:     op.Table,
		Operation: op.String(),
		Statement: stmt,
		Err:       err,
	}
}
