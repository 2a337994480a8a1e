// Package store provides SQLite-backed durable storage for vendors,
// purchase orders, and vendor performance history.
//
// # Accessor design
//
// Every accessor takes a Querier, satisfied by both *sql.DB and *sql.Tx.
// The metrics engine runs its count queries and the vendor-aggregate write
// on the same *sql.Tx that carries the triggering purchase-order mutation,
// so the whole read-modify-write sequence commits or aborts as one unit.
//
// # Count queries
//
// The engine's incremental rules never scan order rows; they issue four
// COUNT queries per vendor (rated orders, orders by status, completed
// on-time orders, acknowledged orders). Counts always reflect committed
// rows only - in-flight transitions are accounted for by explicit +1
// adjustments inside the engine's formulas.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//   - _txlock=immediate: write transactions serialize at BEGIN
//
// All timestamps are normalized to UTC before binding so that SQLite's
// text comparison of stored timestamps orders correctly.
package store
