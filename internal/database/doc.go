// Package database provides connection pool management for PostgreSQL.
//
// The pool backs the price series and guess log (see store/postgres).
package database
