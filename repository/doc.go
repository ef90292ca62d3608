// Package repository provides a generic repository abstraction built on Bun.
// Each operation runs on a caller-supplied bun.IDB, usually the transaction
// of a database.Session; commit and rollback belong to the caller.
package repository
