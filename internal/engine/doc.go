// Package engine implements the incremental vendor-metrics engine.
//
// The engine keeps a vendor's four aggregate metrics (on-time delivery rate,
// quality rating average, average response time, fulfillment rate) consistent
// as purchase orders are created, mutated, and deleted - without ever
// recomputing from a full scan of the vendor's historical orders.
//
// ARCHITECTURE:
//
// Three trigger points:
//  1. OnBeforeSave - fires before a purchase-order mutation commits, with the
//     prior persisted snapshot and the incoming snapshot. Compares old vs new
//     field values to decide which rules apply.
//  2. OnAfterDelete - fires after a purchase-order row is removed, with the
//     deleted order's final state.
//  3. Acknowledge - an explicit action stamping acknowledgment_date and
//     folding the response time into the vendor's average.
//
// Every rule evaluation runs on the caller's transaction. The engine reads
// the vendor aggregate, computes the new value with the metrics package, and
// writes the aggregate back on the same *sql.Tx that carries the triggering
// order mutation. A failure anywhere aborts the whole transaction; partial
// application (order updated, metrics stale) cannot be observed.
//
// COUNT DISCIPLINE:
//
// Count queries always see committed rows only. The in-flight transition is
// accounted for by explicit +1 adjustments in the formulas, never by counting
// uncommitted state. This mirrors the two-phase write contract: the caller
// passes both snapshots, and the row write happens after rule evaluation.
//
// ROUNDING:
//
// On-time delivery is stored at 3 decimal places; the other three metrics at
// 2. The asymmetry is deliberate and load-bearing - stored values are the
// observable contract.
package engine
