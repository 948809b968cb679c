package errors

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// ErrorDump is the log-friendly breakdown of an error chain, including the
// driver-level details of whichever document store backend raised it.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	Backend      string   `json:"backend,omitempty"`
	DBCode       string   `json:"db_code,omitempty"`
	DBConstraint string   `json:"db_constraint,omitempty"`
	DBTable      string   `json:"db_table,omitempty"`
	DBColumn     string   `json:"db_column,omitempty"`
	DBDetail     string   `json:"db_detail,omitempty"`
	DBMessage    string   `json:"db_message,omitempty"`
	DBLabels     []string `json:"db_labels,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.Backend = BackendPostgres
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBColumn = pgxErr.ColumnName
		d.DBDetail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.Backend = BackendPostgres
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBColumn = pqErr.Column
		d.DBDetail = pqErr.Detail
		d.DBMessage = pqErr.Message
		return d
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		d.Backend = BackendMongo
		d.DBCode = strconv.Itoa(int(cmdErr.Code))
		d.DBDetail = cmdErr.Name
		d.DBMessage = cmdErr.Message
		d.DBLabels = cmdErr.Labels
		return d
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		d.Backend = BackendMongo
		d.DBLabels = writeErr.Labels
		if len(writeErr.WriteErrors) > 0 {
			first := writeErr.WriteErrors[0]
			d.DBCode = strconv.Itoa(first.Code)
			d.DBMessage = first.Message
		} else if wc := writeErr.WriteConcernError; wc != nil {
			d.DBCode = strconv.Itoa(wc.Code)
			d.DBDetail = wc.Name
			d.DBMessage = wc.Message
		}
		return d
	}

	return d
}

// Fields flattens the dump into structured log fields. Backend fields are
// only present when a driver error was found.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Backend == "" {
		return fields
	}
	fields["db_backend"] = d.Backend
	fields["db_code"] = d.DBCode
	fields["db_message"] = d.DBMessage
	if d.DBDetail != "" {
		fields["db_detail"] = d.DBDetail
	}
	if d.DBTable != "" {
		fields["db_table"] = d.DBTable
		fields["db_column"] = d.DBColumn
		fields["db_constraint"] = d.DBConstraint
	}
	if len(d.DBLabels) > 0 {
		fields["db_labels"] = d.DBLabels
	}
	return fields
}
