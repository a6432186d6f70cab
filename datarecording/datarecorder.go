package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// A DataRecorder is a backend that can record and store tabular data.
type DataRecorder interface {
	// CreateTable creates a new table whose columns follow the fields of
	// the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry of the table's type for writing.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all created tables.
	ListTables() []string

	// Flush writes all buffered entries out.
	Flush()
}

const defaultBatchSize = 4096

// SQLiteWriter records data into a SQLite database. Entries buffer in
// memory and flush in batches, plus once more at process exit.
type SQLiteWriter struct {
	*sql.DB

	path      string
	tables    map[string]*recordTable
	batchSize int
	pending   int
}

var _ DataRecorder = (*SQLiteWriter)(nil)

type recordTable struct {
	entryType reflect.Type
	entries   []any
}

// NewSQLiteWriter creates a writer that will store data at path +
// ".sqlite3". Call Init before recording.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		path:      path,
		tables:    make(map[string]*recordTable),
		batchSize: defaultBatchSize,
	}
}

// NewSQLiteWriterWithDB creates a writer on an already opened database.
func NewSQLiteWriterWithDB(db *sql.DB) *SQLiteWriter {
	return &SQLiteWriter{
		DB:        db,
		tables:    make(map[string]*recordTable),
		batchSize: defaultBatchSize,
	}
}

// Init establishes the database connection. It refuses to overwrite an
// existing file, and registers a final flush at process exit.
func (w *SQLiteWriter) Init() {
	if w.DB == nil {
		if w.path == "" {
			w.path = "relay_recording_" + xid.New().String()
		}

		filename := w.path + ".sqlite3"
		if _, err := os.Stat(filename); err == nil {
			panic(fmt.Errorf("file %s already exists", filename))
		}

		fmt.Fprintf(os.Stderr, "Recording database created: %s\n", filename)

		db, err := sql.Open("sqlite3", filename)
		if err != nil {
			panic(err)
		}
		w.DB = db
	}

	atexit.Register(func() { w.Flush() })
}

// CreateTable creates a table whose columns are the fields of sampleEntry,
// which must be a flat struct of scalar fields.
func (w *SQLiteWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkEntryFields(sampleEntry); err != nil {
		panic(err)
	}

	fields := structs.Names(sampleEntry)
	ddl := "CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(fields, ",\n\t") + "\n);"
	w.mustExecute(ddl)

	w.tables[tableName] = &recordTable{
		entryType: reflect.TypeOf(sampleEntry),
	}
}

// InsertData buffers one entry. The entry must have the same type as the
// sample the table was created with.
func (w *SQLiteWriter) InsertData(tableName string, entry any) {
	table, ok := w.tables[tableName]
	if !ok {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.entryType {
		panic(fmt.Sprintf("entry type %T does not match table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)

	w.pending++
	if w.pending >= w.batchSize {
		w.Flush()
	}
}

// ListTables returns the names of all created tables.
func (w *SQLiteWriter) ListTables() []string {
	tables := make([]string, 0, len(w.tables))
	for name := range w.tables {
		tables = append(tables, name)
	}

	return tables
}

// Flush writes all buffered entries out in one transaction.
func (w *SQLiteWriter) Flush() {
	if w.pending == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		stmt := w.prepareInsert(tableName, table)
		for _, entry := range table.entries {
			values := entryValues(entry)
			if _, err := stmt.Exec(values...); err != nil {
				panic(err)
			}
		}
		stmt.Close()

		table.entries = nil
	}

	w.pending = 0
}

func (w *SQLiteWriter) prepareInsert(tableName string, table *recordTable) *sql.Stmt {
	placeholders := make([]string, table.entryType.NumField())
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := w.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}

func (w *SQLiteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", query, err))
	}

	return res
}

func entryValues(entry any) []any {
	value := reflect.ValueOf(entry)

	values := make([]any, 0, value.NumField())
	for i := 0; i < value.NumField(); i++ {
		values = append(values, value.Field(i).Interface())
	}

	return values
}

func checkEntryFields(entry any) error {
	entryType := reflect.TypeOf(entry)

	for i := 0; i < entryType.NumField(); i++ {
		field := entryType.Field(i)
		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("field %s has unsupported kind %s",
				field.Name, field.Type.Kind())
		}
	}

	return nil
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}
