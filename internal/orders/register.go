package orders

import (
	"fmt"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/domain/document"
)

// MetaRegistrar accepts document type registrations
type MetaRegistrar interface {
	Register(meta document.Meta) error
}

// Register installs the order document types and their global handlers
func Register(metas MetaRegistrar, registry *mediation.Registry, rules Rules) error {
	types := []document.Meta{
		{
			Name:          TypeOrder,
			IsSubmittable: true,
			New:           func() document.Document { return &Order{rules: &rules} },
		},
		{
			Name:    TypeOrderItem,
			IsTable: true,
			New:     func() document.Document { return &OrderItem{} },
		},
		{
			Name:          TypeShipment,
			IsSubmittable: true,
			New:           func() document.Document { return &Shipment{} },
		},
	}
	for _, meta := range types {
		if err := metas.Register(meta); err != nil {
			return fmt.Errorf("failed to register %s: %w", meta.Name, err)
		}
	}

	if err := registry.RegisterFunc(RemoveShipmentFunc, RemoveShipment); err != nil {
		return fmt.Errorf("failed to register %s: %w", RemoveShipmentFunc, err)
	}
	return nil
}
