// Package sqlutil holds the SQL shared by the scan repositories of every driver.
package sqlutil

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gtu-cse396/sdbelt/internal/domain/scans"
)

// Dialect captures the differences between drivers.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// EncodeTime converts a timestamp into a driver value.
	EncodeTime func(scans.LocalDateTime) any
}

func QuestionMark(int) string { return "?" }

func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// TimeValue stores the wall clock as a UTC time.Time (DATETIME / TIMESTAMP columns).
func TimeValue(ts scans.LocalDateTime) any { return ts.Time() }

// textLayout is fixed width so lexical order equals chronological order.
// It carries the same microsecond precision as DATETIME(6) and TIMESTAMP(6).
const textLayout = "2006-01-02T15:04:05.000000"

// TextValue stores the wall clock as fixed-width text (SQLite TEXT columns).
func TextValue(ts scans.LocalDateTime) any { return ts.Time().Format(textLayout) }

// ScanColumns is the select list understood by ScanResult.
const ScanColumns = "id, product_id, health_ratio, is_success, error_message, scanned_at"

// Where builds the WHERE clause for f, starting at bind parameter 1.
func (d Dialect) Where(f scans.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ProductID != "" {
		args = append(args, f.ProductID)
		conds = append(conds, "product_id = "+d.Placeholder(len(args)))
	}
	if f.Start != nil {
		args = append(args, d.EncodeTime(*f.Start))
		conds = append(conds, "scanned_at >= "+d.Placeholder(len(args)))
	}
	if f.End != nil {
		args = append(args, d.EncodeTime(*f.End))
		conds = append(conds, "scanned_at <= "+d.Placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// OrderNewest sorts newest first with undated rows last on every driver.
const OrderNewest = " ORDER BY scanned_at IS NULL, scanned_at DESC, id DESC"

// InsertArgs returns the column values for a Result in ScanColumns order, minus id.
func (d Dialect) InsertArgs(r scans.Result) []any {
	var (
		ratio   sql.NullFloat64
		success sql.NullBool
		msg     sql.NullString
		ts      any
	)
	if v, ok := r.HealthRatio(); ok {
		ratio = sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := r.IsSuccess(); ok {
		success = sql.NullBool{Bool: v, Valid: true}
	}
	if v, ok := r.ErrorMessage(); ok {
		msg = sql.NullString{String: v, Valid: true}
	}
	if v, ok := r.Timestamp(); ok {
		ts = d.EncodeTime(v)
	}
	return []any{r.ProductID(), ratio, success, msg, ts}
}

// Row is satisfied by *sql.Row and *sql.Rows.
type Row interface {
	Scan(dest ...any) error
}

// ScanResult reads one row selected with ScanColumns.
func ScanResult(row Row) (scans.ID, scans.Result, error) {
	var (
		id      int64
		product string
		ratio   sql.NullFloat64
		success sql.NullBool
		msg     sql.NullString
		ts      NullLocalDateTime
	)
	if err := row.Scan(&id, &product, &ratio, &success, &msg, &ts); err != nil {
		return 0, scans.Result{}, err
	}
	p := scans.Params{ProductID: product}
	if ratio.Valid {
		p.HealthRatio = scans.Float(ratio.Float64)
	}
	if success.Valid {
		p.IsSuccess = scans.Bool(success.Bool)
	}
	if msg.Valid {
		p.ErrorMessage = scans.String(msg.String)
	}
	if ts.Valid {
		p.Timestamp = scans.Time(ts.Value)
	}
	return scans.ID(id), scans.New(p), nil
}

// NullLocalDateTime scans DATETIME, TIMESTAMP and TEXT columns alike.
type NullLocalDateTime struct {
	Value scans.LocalDateTime
	Valid bool
}

func (n *NullLocalDateTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = NullLocalDateTime{}
		return nil
	case time.Time:
		*n = NullLocalDateTime{Value: scans.NewLocalDateTime(v), Valid: true}
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	}
	return fmt.Errorf("cannot scan %T into local date-time", src)
}

func (n *NullLocalDateTime) parse(s string) error {
	s = strings.Replace(strings.TrimSpace(s), " ", "T", 1)
	ts, err := scans.ParseLocalDateTime(s)
	if err != nil {
		return err
	}
	*n = NullLocalDateTime{Value: ts, Valid: true}
	return nil
}
