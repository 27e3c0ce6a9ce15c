package query

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/golang-sql/sqlexp"
	mssql "github.com/microsoft/go-mssqldb"
)

const columnSeparator = "\t|\t"

// noUpdateCount is reported when a statement produced neither rows nor a
// count, such as a lone DECLARE.
const noUpdateCount = -1

// rowKeywords start statements that produce a result set.
var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"DESCRIBE": true,
	"TABLE":    true,
}

// messageQueue yields the driver messages of a query run in message mode.
type messageQueue interface {
	Message(ctx context.Context) sqlexp.RawMessage
}

// Execute runs statement on db and writes its outcome to out as it goes. The
// first result decides the output: a row set is printed as a table followed
// by the row count, an update count as the number of rows affected.
//
// On SQL Server the decision comes from the server's own messages. Other
// drivers give no such signal, so the statement's leading keyword decides.
func Execute(ctx context.Context, db *sql.DB, statement string, out io.Writer) error {
	if _, ok := db.Driver().(*mssql.Driver); ok {
		return executeWithMessages(ctx, db, statement, out)
	}
	return executeByKeyword(ctx, db, statement, out)
}

func executeWithMessages(ctx context.Context, db *sql.DB, statement string, out io.Writer) error {
	messages := &sqlexp.ReturnMessage{}
	rows, err := db.QueryContext(ctx, statement, messages)
	if err != nil {
		return err
	}
	defer rows.Close()

	return render(ctx, rows, messages, out)
}

// render follows the message stream of rows until its last result set.
func render(ctx context.Context, rows *sql.Rows, messages messageQueue, out io.Writer) error {
	reported := false
	for {
		switch m := messages.Message(ctx).(type) {
		case sqlexp.MsgNext:
			if reported {
				continue
			}
			reported = true
			if err := printTable(rows, out); err != nil {
				return err
			}
		case sqlexp.MsgRowsAffected:
			if !reported {
				reported = true
				printAffected(out, m.Count)
			}
		case sqlexp.MsgError:
			return m.Error
		case sqlexp.MsgNextResultSet:
			if rows.NextResultSet() {
				continue
			}
			if !reported {
				printAffected(out, noUpdateCount)
			}
			return rows.Err()
		}
	}
}

func executeByKeyword(ctx context.Context, db *sql.DB, statement string, out io.Writer) error {
	if ReturnsRows(statement) {
		rows, err := db.QueryContext(ctx, statement)
		if err != nil {
			return err
		}
		defer rows.Close()
		return printTable(rows, out)
	}

	result, err := db.ExecContext(ctx, statement)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	printAffected(out, affected)
	return nil
}

// ReturnsRows reports whether statement produces a result set, judged by its
// first keyword after any comments, semicolons and opening parentheses.
func ReturnsRows(statement string) bool {
	return rowKeywords[leadingKeyword(statement)]
}

func leadingKeyword(statement string) string {
	s := statement
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return unicode.IsSpace(r) || r == ';' || r == '('
		})
		switch {
		case strings.HasPrefix(s, "--"):
			end := strings.IndexByte(s, '\n')
			if end < 0 {
				return ""
			}
			s = s[end+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s[2:], "*/")
			if end < 0 {
				return ""
			}
			s = s[2+end+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !unicode.IsLetter(r)
			})
			if end >= 0 {
				s = s[:end]
			}
			return strings.ToUpper(s)
		}
	}
}

func printAffected(out io.Writer, affected int64) {
	fmt.Fprintf(out, "Query executed successfully. Rows affected: %d\n", affected)
}

func printTable(rows *sql.Rows, out io.Writer) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.Join(columns, columnSeparator))
	fmt.Fprintln(out, strings.Repeat("-", 80))

	values := make([]sql.NullString, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	count := 0
	cells := make([]string, len(columns))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		for i, v := range values {
			if v.Valid {
				cells[i] = v.String
			} else {
				cells[i] = "null"
			}
		}
		fmt.Fprintln(out, strings.Join(cells, columnSeparator))
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal rows: %d\n", count)
	return nil
}
