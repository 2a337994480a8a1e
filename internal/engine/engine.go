package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vendorpulse/vendorpulse/internal/metrics"
	"github.com/vendorpulse/vendorpulse/internal/model"
	"github.com/vendorpulse/vendorpulse/internal/store"
	"github.com/vendorpulse/vendorpulse/internal/telemetry"
)

// Engine evaluates the incremental recalculation rules for vendor metrics.
//
// The engine itself is stateless; all state lives in the store. Callers pass
// the transaction carrying the triggering purchase-order mutation, and the
// engine reads counts and writes the vendor aggregate on that transaction.
type Engine struct {
	store *store.Store
	clock Clock
	tel   *telemetry.Registry
}

// New creates an engine. A nil clock defaults to the system clock; a nil
// telemetry registry disables instrumentation.
func New(st *store.Store, clock Clock, tel *telemetry.Registry) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{store: st, clock: clock, tel: tel}
}

// Clock returns the engine's clock. The service layer uses it to stamp
// order_date on creation so tests see one consistent time source.
func (e *Engine) Clock() Clock {
	return e.clock
}

// AcknowledgeResult reports the outcome of an acknowledge action.
type AcknowledgeResult struct {
	OrderID             string    `json:"order_id"`
	AcknowledgmentDate  time.Time `json:"acknowledgment_date"`
	TimeTakenHours      float64   `json:"time_taken_hours"`
	AverageResponseTime float64   `json:"average_response_time"`
}

// OnBeforeSave fires before a purchase-order mutation commits.
//
// prev is the previously persisted snapshot, or nil on first-ever save; with
// no prior state to compare, no rule fires. next is the about-to-be-written
// snapshot. Rules that fire persist the vendor aggregate on tx before the
// caller writes the order row, so both commit together.
func (e *Engine) OnBeforeSave(ctx context.Context, tx *sql.Tx, prev *model.Snapshot, next model.Snapshot) error {
	if prev == nil {
		return nil
	}

	vendor, err := store.GetVendor(ctx, tx, next.VendorID)
	if err != nil {
		return fmt.Errorf("load vendor aggregate: %w", err)
	}

	if err := e.applyQualityRatingRule(ctx, tx, vendor, prev, next); err != nil {
		return err
	}
	if err := e.applyOnTimeDeliveryRule(ctx, tx, vendor, prev, next); err != nil {
		return err
	}
	if err := e.applyFulfillmentRule(ctx, tx, vendor, prev, next); err != nil {
		return err
	}
	return nil
}

// applyQualityRatingRule fires when the order's quality rating changed.
//
// The rated-order count is evaluated against committed rows. For a newly
// provided rating the count is the number of previously rated orders; for a
// replacement the count already includes this order, so the average is
// adjusted in place.
func (e *Engine) applyQualityRatingRule(ctx context.Context, tx *sql.Tx, vendor *model.Vendor, prev *model.Snapshot, next model.Snapshot) error {
	if model.RatingEqual(prev.QualityRating, next.QualityRating) {
		return nil
	}
	if next.QualityRating == nil {
		// value -> null is not a defined lifecycle transition.
		return NewInvalidState(next.ID, "quality rating cannot be cleared")
	}

	totalRatings, err := store.CountRatedOrders(ctx, tx, next.VendorID)
	if err != nil {
		return fmt.Errorf("count rated orders: %w", err)
	}

	if prev.QualityRating == nil {
		vendor.Metrics.QualityRatingAvg = metrics.NewAverage(
			vendor.Metrics.QualityRatingAvg, totalRatings, *next.QualityRating)
	} else {
		avg, err := metrics.ReplaceInAverage(
			vendor.Metrics.QualityRatingAvg, totalRatings, *next.QualityRating, prev.QualityRating)
		if errors.Is(err, metrics.ErrNoPriorValue) {
			return NewInvalidState(next.ID, "rating replace without prior value")
		}
		if err != nil {
			return fmt.Errorf("replace rating in average: %w", err)
		}
		vendor.Metrics.QualityRatingAvg = avg
	}

	if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
		return err
	}
	e.tel.CountRecalc(telemetry.MetricQualityRating)
	return nil
}

// applyOnTimeDeliveryRule fires when the order transitions into completed.
//
// The completed counts reflect committed rows only; the +1 terms account for
// the in-flight completion that is not yet visible to the count queries.
func (e *Engine) applyOnTimeDeliveryRule(ctx context.Context, tx *sql.Tx, vendor *model.Vendor, prev *model.Snapshot, next model.Snapshot) error {
	if prev.Status == next.Status || next.Status != model.StatusCompleted {
		return nil
	}

	now := e.clock.Now()
	isOnTime := 0
	if !now.After(next.DeliveryDate) {
		isOnTime = 1
	}

	onTime, err := store.CountCompletedOnTime(ctx, tx, next.VendorID, now)
	if err != nil {
		return fmt.Errorf("count on-time deliveries: %w", err)
	}
	delivered, err := store.CountOrdersByStatus(ctx, tx, next.VendorID, model.StatusCompleted)
	if err != nil {
		return fmt.Errorf("count completed orders: %w", err)
	}

	totalOnTime := onTime + isOnTime
	totalDelivered := delivered + 1

	vendor.Metrics.OnTimeDeliveryRate = metrics.Round3(float64(totalOnTime) / float64(totalDelivered))

	if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
		return err
	}
	e.tel.CountRecalc(telemetry.MetricOnTimeDelivery)
	return nil
}

// applyFulfillmentRule fires when the order transitions into completed or
// canceled. The count matching the incoming status gets a +1 for the
// in-flight transition.
func (e *Engine) applyFulfillmentRule(ctx context.Context, tx *sql.Tx, vendor *model.Vendor, prev *model.Snapshot, next model.Snapshot) error {
	if prev.Status == next.Status {
		return nil
	}
	if next.Status != model.StatusCompleted && next.Status != model.StatusCanceled {
		return nil
	}

	completed, err := store.CountOrdersByStatus(ctx, tx, next.VendorID, model.StatusCompleted)
	if err != nil {
		return fmt.Errorf("count completed orders: %w", err)
	}
	canceled, err := store.CountOrdersByStatus(ctx, tx, next.VendorID, model.StatusCanceled)
	if err != nil {
		return fmt.Errorf("count canceled orders: %w", err)
	}

	switch next.Status {
	case model.StatusCompleted:
		completed++
	case model.StatusCanceled:
		canceled++
	}

	vendor.Metrics.FulfillmentRate = fulfillmentRate(completed, canceled)

	if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
		return err
	}
	e.tel.CountRecalc(telemetry.MetricFulfillmentRate)
	return nil
}

// OnAfterDelete fires after a purchase-order row has been removed, given the
// deleted order's final state. Every metric the order contributed to is
// adjusted: rated orders back out of the quality average, non-pending orders
// reset the fulfillment and on-time rates from the remaining rows, and
// acknowledged orders back out of the response-time average.
func (e *Engine) OnAfterDelete(ctx context.Context, tx *sql.Tx, deleted model.Snapshot) error {
	vendor, err := store.GetVendor(ctx, tx, deleted.VendorID)
	if err != nil {
		return fmt.Errorf("load vendor aggregate: %w", err)
	}

	if deleted.QualityRating != nil {
		if err := e.backOutQualityRating(ctx, tx, vendor, deleted); err != nil {
			return err
		}
	}

	if deleted.Status != model.StatusPending {
		if err := e.recomputeFulfillmentAfterDelete(ctx, tx, vendor, deleted); err != nil {
			return err
		}
	}

	if deleted.Status == model.StatusCompleted {
		if err := e.recomputeOnTimeAfterDelete(ctx, tx, vendor, deleted); err != nil {
			return err
		}
	}

	if deleted.AcknowledgmentDate != nil {
		if err := e.backOutResponseTime(ctx, tx, vendor, deleted); err != nil {
			return err
		}
	}

	return nil
}

// backOutQualityRating removes the deleted order's rating from the average.
// The stored average and the remaining count are enough to reconstruct the
// prior sum, so no rescan of rated orders is needed.
func (e *Engine) backOutQualityRating(ctx context.Context, tx *sql.Tx, vendor *model.Vendor, deleted model.Snapshot) error {
	ratingCount, err := store.CountRatedOrders(ctx, tx, deleted.VendorID)
	if err != nil {
		return fmt.Errorf("count rated orders: %w", err)
	}

	if ratingCount == 0 {
		vendor.Metrics.QualityRatingAvg = 0.0
	} else {
		prevCount := ratingCount + 1
		sum := vendor.Metrics.QualityRatingAvg * float64(prevCount)
		vendor.Metrics.QualityRatingAvg = metrics.Round2(
			(sum - *deleted.QualityRating) / float64(ratingCount))
	}

	if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
		return err
	}
	e.tel.CountRecalc(telemetry.MetricQualityRating)
	return nil
}

// recomputeFulfillmentAfterDelete recounts completed and canceled orders.
// Deletion removes one contributing row, so a fresh count is cheap and
// unambiguous compared to an incremental adjustment.
func (e *Engine) recomputeFulfillmentAfterDelete(ctx context.Context, tx *sql.Tx, vendor *model.Vendor, deleted model.Snapshot) error {
	completed, err := store.CountOrdersByStatus(ctx, tx, deleted.VendorID, model.StatusCompleted)
	if err != nil {
		return fmt.Errorf("count completed orders: %w", err)
	}
	canceled, err := store.CountOrdersByStatus(ctx, tx, deleted.VendorID, model.StatusCanceled)
	if err != nil {
		return fmt.Errorf("count canceled orders: %w", err)
	}

	vendor.Metrics.FulfillmentRate = fulfillmentRate(completed, canceled)

	if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
		return err
	}
	e.tel.CountRecalc(telemetry.MetricFulfillmentRate)
	return nil
}

// recomputeOnTimeAfterDelete recounts the on-time rate over the remaining
// completed orders, with the on-time predicate evaluated at deletion time.
// Resets to 0.0 when no completed orders remain.
func (e *Engine) recomputeOnTimeAfterDelete(ctx context.Context, tx *sql.Tx, vendor *model.Vendor, deleted model.Snapshot) error {
	delivered, err := store.CountOrdersByStatus(ctx, tx, deleted.VendorID, model.StatusCompleted)
	if err != nil {
		return fmt.Errorf("count completed orders: %w", err)
	}

	if delivered == 0 {
		vendor.Metrics.OnTimeDeliveryRate = 0.0
	} else {
		onTime, err := store.CountCompletedOnTime(ctx, tx, deleted.VendorID, e.clock.Now())
		if err != nil {
			return fmt.Errorf("count on-time deliveries: %w", err)
		}
		vendor.Metrics.OnTimeDeliveryRate = metrics.Round3(float64(onTime) / float64(delivered))
	}

	if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
		return err
	}
	e.tel.CountRecalc(telemetry.MetricOnTimeDelivery)
	return nil
}

// backOutResponseTime removes the deleted order's response time from the
// average, resetting to 0.0 when no acknowledged orders remain.
func (e *Engine) backOutResponseTime(ctx context.Context, tx *sql.Tx, vendor *model.Vendor, deleted model.Snapshot) error {
	timeTaken := metrics.ElapsedHours(*deleted.AcknowledgmentDate, deleted.IssueDate)

	orderCount, err := store.CountAcknowledgedOrders(ctx, tx, deleted.VendorID)
	if err != nil {
		return fmt.Errorf("count acknowledged orders: %w", err)
	}

	if orderCount == 0 {
		vendor.Metrics.AverageResponseTime = 0.0
	} else {
		prevCount := orderCount + 1
		total := vendor.Metrics.AverageResponseTime * float64(prevCount)
		vendor.Metrics.AverageResponseTime = metrics.Round2(
			(total - timeTaken) / float64(orderCount))
	}

	if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
		return err
	}
	e.tel.CountRecalc(telemetry.MetricResponseTime)
	return nil
}

// Acknowledge stamps acknowledgment_date on an order and folds the elapsed
// response time into the vendor's average, all in one transaction.
//
// Returns NOT_FOUND if the order does not exist and ALREADY_ACKNOWLEDGED if
// the order has an acknowledgment timestamp. The original system left a
// second acknowledge unguarded, silently double-counting the order; here it
// is rejected so average_response_time stays a pure function of the order set.
func (e *Engine) Acknowledge(ctx context.Context, orderID string) (*AcknowledgeResult, error) {
	start := time.Now()
	var result *AcknowledgeResult

	err := e.store.InTx(ctx, func(tx *sql.Tx) error {
		po, err := store.GetPurchaseOrder(ctx, tx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFound(orderID)
		}
		if err != nil {
			return err
		}
		if po.AcknowledgmentDate != nil {
			return NewAlreadyAcknowledged(orderID)
		}

		ackAt := e.clock.Now()
		if err := store.SetAcknowledged(ctx, tx, orderID, ackAt); err != nil {
			return err
		}

		timeTaken := metrics.ElapsedHours(ackAt, po.IssueDate)

		// The count includes this order: its timestamp was just written on
		// this transaction, so total-1 is the count before acknowledgment.
		total, err := store.CountAcknowledgedOrders(ctx, tx, po.VendorID)
		if err != nil {
			return fmt.Errorf("count acknowledged orders: %w", err)
		}

		vendor, err := store.GetVendor(ctx, tx, po.VendorID)
		if err != nil {
			return fmt.Errorf("load vendor aggregate: %w", err)
		}

		vendor.Metrics.AverageResponseTime = metrics.NewAverage(
			vendor.Metrics.AverageResponseTime, total-1, timeTaken)

		if err := store.UpdateVendorMetrics(ctx, tx, vendor.ID, vendor.Metrics); err != nil {
			return err
		}

		result = &AcknowledgeResult{
			OrderID:             orderID,
			AcknowledgmentDate:  ackAt,
			TimeTakenHours:      timeTaken,
			AverageResponseTime: vendor.Metrics.AverageResponseTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.tel.CountAcknowledgment()
	e.tel.CountRecalc(telemetry.MetricResponseTime)
	e.tel.ObserveWriteLatency(time.Since(start).Seconds())
	return result, nil
}

func fulfillmentRate(completed, canceled int) float64 {
	denom := completed + canceled
	if denom == 0 {
		return 0.0
	}
	return metrics.Round2(float64(completed) / float64(denom))
}
