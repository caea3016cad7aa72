package orders

import (
	"context"
	"fmt"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// RemoveShipmentFunc is the qualified name of the shipment removal handler
const RemoveShipmentFunc = "orders.remove_shipment"

func (o *Order) updateStatus(ctx context.Context, call *mediation.Call) ([]entity.RevertItem, error) {
	fields, err := call.Fields()
	if err != nil {
		return nil, err
	}
	next, _ := fields["status"].(string)
	if next == "" {
		return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: status is required", workflow.ErrMissingOrInvalidData.Message)
	}
	if !canMove(o.OrderStatus, next) {
		return nil, workflow.NewInvalidFieldTransitionError(next)
	}

	if next == StatusCancelled && o.rules != nil && o.rules.CancelApprover != "" && !call.IsApproved() {
		call.DeferTo(o.rules.CancelApprover, o.rules.CancelApproverType)
		return nil, nil
	}

	o.OrderStatus = next
	return call.StandardRevertData()
}

func (o *Order) updateItems(ctx context.Context, call *mediation.Call) ([]entity.RevertItem, error) {
	if o.OrderStatus != StatusOrdered {
		return nil, workflow.NewValidationError("Items of a %s order can't change", o.OrderStatus)
	}

	var row OrderItem
	if err := call.Bind(&row); err != nil {
		return nil, err
	}
	if row.Name == "" {
		return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: row name is required", workflow.ErrMissingOrInvalidData.Message)
	}
	i, exists := o.item(row.Name)

	switch call.Request.ChangeKind {
	case entity.ChangeKindAddChildRow:
		if exists {
			return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: items already has row %s", workflow.ErrMissingOrInvalidData.Message, row.Name)
		}
		o.Items = append(o.Items, row)

	case entity.ChangeKindUpdateChildRow:
		if !exists {
			return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: items has no row %s", workflow.ErrMissingOrInvalidData.Message, row.Name)
		}
		// overlay only the keys present in the payload
		updated := o.Items[i]
		if err := call.Bind(&updated); err != nil {
			return nil, err
		}
		o.Items[i] = updated

	case entity.ChangeKindDeleteChildRow:
		if !exists {
			return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: items has no row %s", workflow.ErrMissingOrInvalidData.Message, row.Name)
		}
		o.Items = append(o.Items[:i:i], o.Items[i+1:]...)

	default:
		return nil, workflow.NewValidationError("items only accepts child row changes, got %q", call.Request.ChangeKind)
	}

	return call.StandardRevertData()
}

type shipmentPayload struct {
	Carrier    string `json:"carrier"`
	TrackingNo string `json:"tracking_no"`
}

// createShipment creates a submitted shipment for the order and marks it Shipped
func (o *Order) createShipment(ctx context.Context, call *mediation.Call) ([]entity.RevertItem, error) {
	if o.ShipmentID != "" {
		return nil, workflow.NewValidationError("Order %s already has shipment %s", o.ID, o.ShipmentID)
	}
	if o.OrderStatus != StatusOrdered {
		return nil, workflow.NewInvalidFieldTransitionError(StatusShipped)
	}

	var payload shipmentPayload
	if err := call.Bind(&payload); err != nil {
		return nil, err
	}
	if payload.Carrier == "" {
		return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: carrier is required", workflow.ErrMissingOrInvalidData.Message)
	}

	orderItem, err := call.UpdatedItem(o, "shipment_id", "status")
	if err != nil {
		return nil, err
	}

	shipment := &Shipment{
		Base:       document.Base{Status: document.DocStatusSubmitted},
		OrderID:    o.ID,
		Carrier:    payload.Carrier,
		TrackingNo: payload.TrackingNo,
	}
	if err := call.Documents.Create(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to create shipment for order %s: %w", o.ID, err)
	}

	o.ShipmentID = shipment.ID
	o.OrderStatus = StatusShipped

	return []entity.RevertItem{call.CreatedItem(shipment), orderItem}, nil
}

// RemoveShipment deletes the shipment of the target order and clears the link.
// It is registered as a global function under RemoveShipmentFunc.
func RemoveShipment(ctx context.Context, call *mediation.Call) ([]entity.RevertItem, error) {
	order, ok := call.Target.(*Order)
	if !ok {
		return nil, workflow.NewValidationError("%s only applies to orders", RemoveShipmentFunc)
	}
	if order.ShipmentID == "" {
		return nil, workflow.NewValidationError("Order %s has no shipment", order.ID)
	}

	shipment, err := call.Documents.Load(ctx, TypeShipment, order.ShipmentID)
	if err != nil {
		return nil, err
	}
	removed, err := call.RemovedItem(shipment)
	if err != nil {
		return nil, err
	}
	orderItem, err := call.UpdatedItem(order, "shipment_id", "status")
	if err != nil {
		return nil, err
	}

	if err := call.Documents.Delete(ctx, TypeShipment, shipment.DocID()); err != nil {
		return nil, fmt.Errorf("failed to delete shipment %s: %w", shipment.DocID(), err)
	}
	order.ShipmentID = ""
	if order.OrderStatus == StatusShipped {
		order.OrderStatus = StatusOrdered
	}

	return []entity.RevertItem{removed, orderItem}, nil
}
