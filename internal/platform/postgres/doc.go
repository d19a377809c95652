// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores work against store.DBTX so they run equally inside
// or outside a caller-managed transaction; WithTx binds a store to a *sql.Tx.
package postgres
