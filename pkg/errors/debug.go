package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Trace is a log-friendly breakdown of an error chain.
type Trace struct {
	Message string
	Code    Code
	Chain   []string
	PG      *PGDetail
}

// PGDetail holds the Postgres diagnostics of a driver error from either pgx
// or lib/pq.
type PGDetail struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Dump walks err's chain. A nil err yields a zero Trace.
func Dump(err error) Trace {
	if err == nil {
		return Trace{}
	}
	t := Trace{Message: err.Error()}
	if typed := As(err); typed != nil {
		t.Code = typed.code
	}
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		t.Chain = append(t.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	t.PG = postgresDetail(err)
	return t
}

// Fields flattens the trace into log fields.
func (t Trace) Fields() map[string]any {
	fields := map[string]any{
		"error":       t.Message,
		"error_code":  t.Code,
		"error_chain": t.Chain,
	}
	if t.PG != nil {
		fields["pg_code"] = t.PG.Code
		fields["pg_constraint"] = t.PG.Constraint
		fields["pg_table"] = t.PG.Table
		fields["pg_column"] = t.PG.Column
		fields["pg_detail"] = t.PG.Detail
		fields["pg_message"] = t.PG.Message
	}
	return fields
}

func postgresDetail(err error) *PGDetail {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return &PGDetail{
			Code:       pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return &PGDetail{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
