package orders

import (
	"context"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// Shipment is the delivery of an order
type Shipment struct {
	document.Base
	OrderID    string `json:"order_id"`
	Carrier    string `json:"carrier"`
	TrackingNo string `json:"tracking_no,omitempty"`
}

// DocType implements document.Document
func (s *Shipment) DocType() string { return TypeShipment }

// UpdateHandlers implements mediation.Mediated
func (s *Shipment) UpdateHandlers() mediation.Handlers {
	return mediation.Handlers{
		mediation.FieldHandlerName("tracking_no"): s.updateTrackingNo,
	}
}

func (s *Shipment) updateTrackingNo(ctx context.Context, call *mediation.Call) ([]entity.RevertItem, error) {
	if s.Status == document.DocStatusCancelled {
		return nil, workflow.NewValidationError("Shipment %s is cancelled", s.ID)
	}
	fields, err := call.Fields()
	if err != nil {
		return nil, err
	}
	trackingNo, ok := fields["tracking_no"].(string)
	if !ok {
		return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: tracking_no must be a string", workflow.ErrMissingOrInvalidData.Message)
	}
	s.TrackingNo = trackingNo
	return call.StandardRevertData()
}

// RevertUpdateRequest refuses to touch cancelled shipments, then replays normally
func (s *Shipment) RevertUpdateRequest(ctx context.Context, call *mediation.RevertCall) error {
	if s.Status == document.DocStatusCancelled {
		return workflow.NewValidationError("Shipment %s is cancelled and can't be reverted", s.ID)
	}
	return call.ReplayAll(ctx)
}

// Verify interface compliance
var (
	_ mediation.Mediated = (*Shipment)(nil)
	_ mediation.Reverter = (*Shipment)(nil)
)
