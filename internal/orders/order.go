// Package orders is a mediated sample domain: orders with item rows and the
// shipments created for them. Every change to an order goes through an update request.
package orders

import (
	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/domain/document"
)

// Document type names
const (
	TypeOrder     = "Order"
	TypeOrderItem = "Order Item"
	TypeShipment  = "Shipment"
)

// Order statuses
const (
	StatusOrdered   = "Ordered"
	StatusShipped   = "Shipped"
	StatusDelivered = "Delivered"
	StatusCancelled = "Cancelled"
)

// nextStatuses lists the statuses reachable from each status
var nextStatuses = map[string][]string{
	StatusOrdered: {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered, StatusCancelled},
}

// Rules holds the configurable parts of order handling
type Rules struct {
	// CancelApprover must approve cancellations. Empty applies them directly.
	CancelApprover string
	// CancelApproverType is recorded as the party type of gated requests
	CancelApproverType string
}

// OrderItem is a row of an order's items table
type OrderItem struct {
	Name     string `json:"name"`
	ItemCode string `json:"item_code"`
	Qty      int    `json:"qty"`
}

// DocType implements document.Document
func (i *OrderItem) DocType() string { return TypeOrderItem }

// DocID implements document.Document
func (i *OrderItem) DocID() string { return i.Name }

// SetDocID implements document.Document
func (i *OrderItem) SetDocID(id string) { i.Name = id }

// Order is a customer order
type Order struct {
	document.Base
	Customer    string      `json:"customer"`
	OrderStatus string      `json:"status"`
	Items       []OrderItem `json:"items"`
	ShipmentID  string      `json:"shipment_id,omitempty"`

	rules *Rules
}

// DocType implements document.Document
func (o *Order) DocType() string { return TypeOrder }

// UpdateHandlers implements mediation.Mediated
func (o *Order) UpdateHandlers() mediation.Handlers {
	return mediation.Handlers{
		mediation.FieldHandlerName("status"): o.updateStatus,
		mediation.FieldHandlerName("items"):  o.updateItems,
		"create_shipment":                    o.createShipment,
	}
}

func (o *Order) item(name string) (int, bool) {
	for i, item := range o.Items {
		if item.Name == name {
			return i, true
		}
	}
	return -1, false
}

func canMove(from, to string) bool {
	for _, next := range nextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Verify interface compliance
var (
	_ mediation.Mediated   = (*Order)(nil)
	_ document.Submittable = (*Order)(nil)
)
