package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// QueryParams encapsulates the optional parts of a table query.
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword, such as
	// "Tick > ? AND WireName = ?".
	Where string

	// Args holds the arguments for the placeholders in Where.
	Args []any

	// Limit is the maximum number of records to return. 0 means no limit.
	Limit int

	// Offset is the number of records to skip.
	Offset int

	// OrderBy specifies sorting, without the "ORDER BY" keywords.
	OrderBy string
}

// A DataReader reads recorded data back from storage.
type DataReader interface {
	// MapTable establishes the mapping between a table and the Go struct
	// its rows scan into. Mapping is required before querying.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the names of all mapped tables.
	ListTables() []string

	// Query runs a query against one table. Results are pointers to
	// structs of the mapped type.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader.
	Close() error
}

// SQLiteReader reads data from a SQLite database written by SQLiteWriter.
type SQLiteReader struct {
	*sql.DB

	path    string
	typeMap map[string]reflect.Type
}

var _ DataReader = (*SQLiteReader)(nil)

// NewSQLiteReader creates a reader for the database at path + ".sqlite3".
// Call Init before querying.
func NewSQLiteReader(path string) *SQLiteReader {
	return &SQLiteReader{
		path:    path,
		typeMap: make(map[string]reflect.Type),
	}
}

// NewSQLiteReaderWithDB creates a reader on an already opened database.
func NewSQLiteReaderWithDB(db *sql.DB) *SQLiteReader {
	return &SQLiteReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

// Init establishes the database connection.
func (r *SQLiteReader) Init() {
	if r.DB != nil {
		return
	}

	db, err := sql.Open("sqlite3", r.path+".sqlite3")
	if err != nil {
		panic(err)
	}

	r.DB = db
}

// MapTable establishes the mapping between a table and the Go struct its
// rows scan into.
func (r *SQLiteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

// ListTables returns the names of all mapped tables.
func (r *SQLiteReader) ListTables() []string {
	tables := make([]string, 0, len(r.typeMap))
	for name := range r.typeMap {
		tables = append(tables, name)
	}

	return tables
}

// Query runs a query against one table and scans the rows into structs of
// the mapped type.
func (r *SQLiteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	entryType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table %s", tableName)
	}

	totalCount, err := r.queryTotalCount(ctx, tableName, params)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM " + tableName
	if params.Where != "" {
		query += " WHERE " + params.Where
	}
	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	rows, err := r.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, entryType)
	if err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

func (r *SQLiteReader) queryTotalCount(
	ctx context.Context,
	tableName string,
	params QueryParams,
) (int, error) {
	query := "SELECT COUNT(*) FROM " + tableName
	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	var totalCount int
	err := r.QueryRowContext(ctx, query, params.Args...).Scan(&totalCount)
	if err != nil {
		return 0, err
	}

	return totalCount, nil
}

func scanRows(rows *sql.Rows, entryType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldIndex := make(map[string]int)
	for i := 0; i < entryType.NumField(); i++ {
		fieldIndex[entryType.Field(i).Name] = i
	}

	var results []any
	for rows.Next() {
		entryPtr := reflect.New(entryType)
		entry := entryPtr.Elem()

		targets := make([]any, len(columns))
		for i, column := range columns {
			if fieldIdx, ok := fieldIndex[column]; ok {
				targets[i] = entry.Field(fieldIdx).Addr().Interface()
			} else {
				var discard any
				targets[i] = &discard
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entryPtr.Interface())
	}

	return results, rows.Err()
}
