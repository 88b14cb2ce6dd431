// Package stores provides the student record persistence layer for roster.
// It includes an in-memory store for scratch sessions and a SQL-backed store
// (SQLite or PostgreSQL) with a single students table, plus CSV and JSON
// import/export shared by both.
package stores
