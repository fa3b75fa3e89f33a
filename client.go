package sqlupsert

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eapache/go-resiliency/retrier"

	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
	"github.com/syssam/sqlupsert/dialect/sql/schema"
	"github.com/syssam/sqlupsert/dialect/sql/sqlstate"
)

// DefaultRetryDelay is the pause before redefining a routine whose
// definition raced with another session.
const DefaultRetryDelay = 50 * time.Millisecond

// Client synthesizes and invokes upsert routines through a driver. It
// keeps no per-routine state and is safe for concurrent use.
type Client struct {
	drv        dialect.Driver
	inspector  schema.Inspector
	log        *slog.Logger
	prefix     string
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithInspector sets the schema inspector. The default reads the
// information_schema views through the client driver.
func WithInspector(i schema.Inspector) Option {
	return func(c *Client) {
		c.inspector = i
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithPrefix overrides NamePrefix for the routines of this client. A prefix
// that is empty or not a plain identifier is ignored in favor of NamePrefix.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithDefinitionRetryDelay sets the pause before the definition race retry.
func WithDefinitionRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// New returns a Client using drv.
func New(drv dialect.Driver, opts ...Option) *Client {
	c := &Client{
		drv:        drv,
		prefix:     NamePrefix,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.inspector == nil {
		c.inspector = schema.NewInformationSchema(drv)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if !identRe.MatchString(c.prefix) {
		c.log.Warn("invalid routine prefix, using default", "prefix", c.prefix, "default", NamePrefix)
		c.prefix = NamePrefix
	}
	return c
}

// Result is the row returned by a routine invocation. Postgres functions
// return a single void column, MySQL procedures return no row.
type Result struct {
	Procedure string
	Columns   []string
	Row       []any
}

// Upsert is a shorthand for New(drv).Upsert(ctx, table, selector, setter).
func Upsert(ctx context.Context, drv dialect.Driver, table *sql.TableRef, selector, setter Fields) (*Result, error) {
	return New(drv).Upsert(ctx, table, selector, setter)
}

// Upsert updates the rows of table matching selector with setter, or
// inserts a row holding both when none matches.
//
// The routine retries the update once when its insert loses a uniqueness
// race to a concurrent caller. If that insert conflicts again, the call
// still succeeds without telling which caller's write the row reflects.
// This bounded loss is accepted in exchange for never looping under
// sustained contention.
func (c *Client) Upsert(ctx context.Context, table *sql.TableRef, selector, setter Fields) (*Result, error) {
	s, err := c.Spec(ctx, table, selector, setter)
	if err != nil {
		return nil, err
	}
	if err := c.Define(ctx, s); err != nil {
		return nil, err
	}
	args, err := s.Args(ctx, c.eval)
	if err != nil {
		return nil, err
	}
	res, err := c.Execute(ctx, s, args)
	if err != nil && sqlstate.IsUndefinedRoutine(err) {
		// Dropped by a concurrent ClearAll after it was defined.
		if err := c.Define(ctx, s); err != nil {
			return nil, err
		}
		return c.Execute(ctx, s, args)
	}
	return res, err
}

// Spec inspects table and builds the Spec of an upsert. Invalid input is
// reported before the store is queried.
func (c *Client) Spec(ctx context.Context, table *sql.TableRef, selector, setter Fields) (*Spec, error) {
	if err := checkInput(table, selector, setter); err != nil {
		return nil, err
	}
	t, err := c.inspector.InspectTable(ctx, table.SchemaName(), table.Name())
	if err != nil {
		var notFound *schema.TableNotFoundError
		if errors.As(err, &notFound) {
			return nil, NewLookupError(table.String(), "")
		}
		return nil, NewStoreError("inspect", "", err)
	}
	fields := make([]string, 0, len(selector)+len(setter))
	for _, fs := range []Fields{selector, setter} {
		for name := range fs {
			fields = append(fields, name)
		}
	}
	res := schema.Validate(t, fields)
	if missing := res.Missing(); len(missing) > 0 {
		// Report the same field whatever the map order.
		first := missing[0]
		for _, m := range missing[1:] {
			first = min(first, m)
		}
		return nil, NewLookupError(table.String(), first)
	}
	for _, w := range res.Warnings {
		c.log.Debug("insert path may fail", "table", w.Table, "column", w.Column, "reason", w.Message)
	}
	return NewSpec(c.drv.Dialect(), c.prefix, table, t, selector, setter)
}

// Define creates or replaces the routine of s. A definition race is
// retried once and reported as a DefinitionError if it recurs. MySQL keeps
// an existing routine of the same name as is; see ClearAll.
func (c *Client) Define(ctx context.Context, s *Spec) error {
	def, err := s.Definition()
	if err != nil {
		return err
	}
	r := retrier.New(retrier.ConstantBackoff(1, c.retryDelay), definitionRace{})
	err = r.RunFn(ctx, func(ctx context.Context, retries int) error {
		if retries > 0 {
			c.log.Warn("routine definition raced, retrying", "procedure", s.Name())
		}
		err := c.drv.Exec(ctx, def, []any{}, nil)
		// MySQL has no CREATE OR REPLACE PROCEDURE. A routine with this
		// name already has this body.
		if err != nil && s.Dialect() == dialect.MySQL && sqlstate.IsRoutineExists(err) {
			return nil
		}
		return err
	})
	switch {
	case err == nil:
		c.log.Debug("routine defined", "procedure", s.Name())
		return nil
	case sqlstate.IsDefinitionRace(err):
		return NewDefinitionError(s.Name(), err)
	default:
		return NewStoreError("define", s.Name(), err)
	}
}

// Execute invokes the routine of s with args, as returned by Spec.Args.
func (c *Client) Execute(ctx context.Context, s *Spec, args []any) (*Result, error) {
	query, qargs := s.Invocation(args)
	c.log.Debug("invoking routine", "procedure", s.Name(), "args", len(qargs))
	res := &Result{Procedure: s.Name()}
	if s.Dialect() == dialect.MySQL {
		if err := c.drv.Exec(ctx, query, qargs, nil); err != nil {
			return nil, NewStoreError("call", s.Name(), err)
		}
		return res, nil
	}
	rows := &sql.Rows{}
	if err := c.drv.Query(ctx, query, qargs, rows); err != nil {
		return nil, NewStoreError("call", s.Name(), err)
	}
	defer rows.Close()
	columns, row, err := sql.ScanRow(rows)
	if err != nil {
		return nil, NewStoreError("call", s.Name(), err)
	}
	res.Columns, res.Row = columns, row
	return res, nil
}

// eval evaluates a default expression.
func (c *Client) eval(ctx context.Context, expr string) (any, error) {
	rows := &sql.Rows{}
	if err := c.drv.Query(ctx, "SELECT "+expr, []any{}, rows); err != nil {
		return nil, NewStoreError("default", "", err)
	}
	defer rows.Close()
	var v any
	if err := sql.ScanValue(rows, &v); err != nil {
		return nil, NewStoreError("default", "", err)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return v, nil
}

// definitionRace retries definition races only.
type definitionRace struct{}

func (definitionRace) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case sqlstate.IsDefinitionRace(err):
		return retrier.Retry
	default:
		return retrier.Fail
	}
}
