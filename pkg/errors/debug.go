package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics is the log-only view of an error: its chain plus any postgres fields found along it.
// None of this reaches API clients.
type Diagnostics struct {
	Message string
	Code    Code
	Chain   []string

	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	PGMessage  string
}

func Diagnose(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}

	d := Diagnostics{Message: err.Error(), Code: CodeOf(err)}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
	return d
}

// Transient reports whether postgres rejected the statement for a reason a retry can clear:
// serialization failure, deadlock or a lost connection.
func (d Diagnostics) Transient() bool {
	switch d.SQLState {
	case "40001", "40P01":
		return true
	}
	return len(d.SQLState) == 5 && d.SQLState[:2] == "08"
}

// Fields flattens the diagnostics into logger fields, leaving out anything empty.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_code":  string(d.Code),
		"error_chain": d.Chain,
	}
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set("pg_code", d.SQLState)
	set("pg_constraint", d.Constraint)
	set("pg_table", d.Table)
	set("pg_column", d.Column)
	set("pg_detail", d.Detail)
	set("pg_message", d.PGMessage)
	if d.Transient() {
		fields["pg_transient"] = true
	}
	return fields
}
