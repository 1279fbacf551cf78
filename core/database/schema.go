package database

import (
	"errors"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL server error numbers for structural failures.
const (
	mysqlErrBadField    = 1054
	mysqlErrNoSuchTable = 1146
)

// CheckSchema compares the columns declared by each gorm model with the
// columns present on disk and returns the missing ones as "table.column".
// Tables that do not exist yet are not reported; migration creates them.
func CheckSchema(db *gorm.DB, models ...any) ([]string, error) {
	var missing []string

	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !db.Migrator().HasTable(table) {
			continue
		}

		columns, err := GetTableColumns(db, table)
		if err != nil {
			return nil, err
		}
		present := make(map[string]struct{}, len(columns))
		for _, col := range columns {
			present[col.Field] = struct{}{}
		}

		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" {
				continue
			}
			if _, ok := present[strings.ToLower(field.DBName)]; !ok {
				missing = append(missing, table+"."+field.DBName)
			}
		}
	}

	return missing, nil
}

// IsSchemaError reports whether err comes from a query that failed because
// the on-disk schema does not match the models (missing table or column).
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrBadField || myErr.Number == mysqlErrNoSuchTable
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "has no column named")
}
