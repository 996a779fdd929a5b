/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

/*
sqliteDriverName is the database/sql driver name of the embedded SQLite
*/
const sqliteDriverName = "sqlite"

/*
SQLConnector data structure
*/
type SQLConnector struct {
	path string  // Path of the database file
	db   *sql.DB // Database handle
}

/*
NewSQLConnector opens or creates a SQLite database file and makes sure all
tables exist.
*/
func NewSQLConnector(path string) (*SQLConnector, error) {
	name := "SQLConnector:" + path

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, NewConnectorError(ErrOpen, errors.Wrap(err, "open").Error(), name)
	}

	// The engine runs single threaded - one connection avoids lock contention

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewConnectorError(ErrOpen, errors.Wrap(err, "ping").Error(), name)
	}

	sc := &SQLConnector{path, db}

	if err := createTables(sc); err != nil {
		db.Close()
		return nil, err
	}

	LogDebug("Opened sql connector: ", path)

	return sc, nil
}

/*
Name returns the name of the connector instance.
*/
func (sc *SQLConnector) Name() string {
	return "SQLConnector:" + sc.path
}

/*
CreateTable creates a table if it does not exist.
*/
func (sc *SQLConnector) CreateTable(table Table) error {
	name, err := sc.tableName(table)
	if err != nil {
		return err
	}

	_, err = sc.db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (key BLOB PRIMARY KEY, value BLOB) WITHOUT ROWID", name))

	return sc.wrapError(ErrWrite, err, "create table %v", table)
}

/*
DropTable removes a table and all its entries.
*/
func (sc *SQLConnector) DropTable(table Table) error {
	name, err := sc.tableName(table)
	if err != nil {
		return err
	}

	_, err = sc.db.Exec(fmt.Sprintf("DROP TABLE %s", name))

	return sc.wrapError(ErrWrite, err, "drop table %v", table)
}

/*
Get returns the value of a key. Returns nil if the key does not exist.
*/
func (sc *SQLConnector) Get(table Table, key []byte) ([]byte, error) {
	name, err := sc.tableName(table)
	if err != nil {
		return nil, err
	}

	var value []byte

	err = sc.db.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE key = ?", name), key).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, sc.wrapError(ErrRead, err, "get %x from %v", key, table)
	}

	return value, nil
}

/*
Put stores a value under a given key.
*/
func (sc *SQLConnector) Put(table Table, key []byte, value []byte) error {
	return sc.PutBatch(table, [][]byte{key}, [][]byte{value})
}

/*
PutBatch stores a list of key / value pairs in one transaction.
*/
func (sc *SQLConnector) PutBatch(table Table, keys [][]byte, values [][]byte) (err error) {
	if err = checkBatch(sc.Name(), keys, values); err != nil {
		return err
	}

	name, err := sc.tableName(table)
	if err != nil {
		return err
	}

	tx, err := sc.db.Begin()
	if err != nil {
		return sc.wrapError(ErrWrite, err, "begin transaction")
	}

	defer func() {
		if err == nil {
			err = sc.wrapError(ErrWrite, tx.Commit(), "commit")
		} else {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)", name))
	if err != nil {
		return sc.wrapError(ErrWrite, err, "prepare insert into %v", table)
	}
	defer stmt.Close()

	for i, key := range keys {
		if _, err = stmt.Exec(key, values[i]); err != nil {
			return sc.wrapError(ErrWrite, err, "put %x into %v", key, table)
		}
	}

	return nil
}

/*
Delete removes a key.
*/
func (sc *SQLConnector) Delete(table Table, key []byte) error {
	name, err := sc.tableName(table)
	if err != nil {
		return err
	}

	_, err = sc.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", name), key)

	return sc.wrapError(ErrWrite, err, "delete %x from %v", key, table)
}

/*
Scan iterates over all entries with start <= key < end in ascending key order.
*/
func (sc *SQLConnector) Scan(table Table, start []byte, end []byte,
	fn func(key []byte, value []byte) bool) error {

	name, err := sc.tableName(table)
	if err != nil {
		return err
	}

	var conds []string
	var args []interface{}

	if start != nil {
		conds = append(conds, "key >= ?")
		args = append(args, start)
	}
	if end != nil {
		conds = append(conds, "key < ?")
		args = append(args, end)
	}

	query := fmt.Sprintf("SELECT key, value FROM %s", name)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY key ASC"

	rows, err := sc.db.Query(query, args...)
	if err != nil {
		return sc.wrapError(ErrRead, err, "scan %v", table)
	}

	// Read all rows before calling back since there is only one connection

	var keys, values [][]byte

	for rows.Next() {
		var k, v []byte
		if err = rows.Scan(&k, &v); err != nil {
			break
		}
		keys = append(keys, k)
		values = append(values, v)
	}

	if err == nil {
		err = rows.Err()
	}
	rows.Close()

	if err != nil {
		return sc.wrapError(ErrRead, err, "scan %v", table)
	}

	for i, k := range keys {
		if !fn(k, values[i]) {
			break
		}
	}

	return nil
}

/*
Close closes the database.
*/
func (sc *SQLConnector) Close() error {
	return sc.wrapError(ErrClose, sc.db.Close(), "close")
}

/*
tableName returns the SQL table name of a known table.
*/
func (sc *SQLConnector) tableName(table Table) (string, error) {
	for _, t := range Tables {
		if t == table {
			return "pg_" + string(table), nil
		}
	}
	return "", NewConnectorError(ErrUnknownTable, string(table), sc.Name())
}

/*
wrapError wraps a database error into a ConnectorError.
*/
func (sc *SQLConnector) wrapError(ceType error, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if ce, ok := err.(*ConnectorError); ok {
		return ce
	}

	return NewConnectorError(ceType, errors.Wrapf(err, format, args...).Error(), sc.Name())
}
