// Package model defines the vendor and purchase-order entities and the
// purchase-order lifecycle states.
//
// A vendor carries four derived metric fields. Invariant: each metric must
// always equal what a full recomputation over the vendor's purchase orders
// would yield. The engine package maintains this incrementally; nothing else
// may write the metric fields.
package model

import (
	"encoding/json"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Vendor represents a supplier and its current performance aggregate.
type Vendor struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	ContactDetails string        `json:"contact_details"`
	Address        string        `json:"address"`
	VendorCode     string        `json:"vendor_code"`
	Metrics        VendorMetrics `json:"metrics"`
}

// VendorMetrics holds the four derived performance metrics.
//
// OnTimeDeliveryRate and FulfillmentRate are fractions in [0,1].
// QualityRatingAvg is on the rating scale of the orders.
// AverageResponseTime is in hours.
type VendorMetrics struct {
	OnTimeDeliveryRate  float64 `json:"on_time_delivery_rate"`
	QualityRatingAvg    float64 `json:"quality_rating_avg"`
	AverageResponseTime float64 `json:"average_response_time"`
	FulfillmentRate     float64 `json:"fulfillment_rate"`
}

// PurchaseOrder represents one order issued to a vendor.
//
// QualityRating is nil until a rating is explicitly assigned.
// AcknowledgmentDate is nil until the acknowledge action fires; it is set at
// most once per order.
type PurchaseOrder struct {
	ID                 string          `json:"id"`
	PONumber           string          `json:"po_number"`
	VendorID           string          `json:"vendor_id"`
	OrderDate          time.Time       `json:"order_date"`
	DeliveryDate       time.Time       `json:"delivery_date"`
	Items              json.RawMessage `json:"items"`
	Quantity           int             `json:"quantity"`
	Status             Status          `json:"status"`
	QualityRating      *float64        `json:"quality_rating"`
	IssueDate          time.Time       `json:"issue_date"`
	AcknowledgmentDate *time.Time      `json:"acknowledgment_date"`
}

// Snapshot is the engine's view of a purchase order at a point in time.
// The engine compares a prior and an incoming snapshot to decide which
// recalculation rules fire.
type Snapshot struct {
	ID                 string
	VendorID           string
	Status             Status
	QualityRating      *float64
	DeliveryDate       time.Time
	IssueDate          time.Time
	AcknowledgmentDate *time.Time
}

// Snapshot captures the order's metric-relevant fields.
func (p *PurchaseOrder) Snapshot() Snapshot {
	return Snapshot{
		ID:                 p.ID,
		VendorID:           p.VendorID,
		Status:             p.Status,
		QualityRating:      p.QualityRating,
		DeliveryDate:       p.DeliveryDate,
		IssueDate:          p.IssueDate,
		AcknowledgmentDate: p.AcknowledgmentDate,
	}
}

// PerformanceRecord is a historical snapshot of a vendor's aggregate,
// taken at RecordedAt.
type PerformanceRecord struct {
	ID         int64         `json:"id"`
	VendorID   string        `json:"vendor_id"`
	RecordedAt time.Time     `json:"recorded_at"`
	Metrics    VendorMetrics `json:"metrics"`
}

// NormalizeName returns the NFC normalization of a vendor name.
// Names are normalized before storage so equality checks and unique
// constraints behave the same regardless of input encoding form.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// RatingEqual compares two optional ratings by value.
func RatingEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
