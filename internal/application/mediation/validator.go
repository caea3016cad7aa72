package mediation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// Validator checks a new update request before it is stored
type Validator struct {
	store    port.DocumentStore
	requests port.UpdateRequestRepository
	codec    port.PayloadCodec
	validate *validator.Validate
}

// NewValidator creates a validator
func NewValidator(store port.DocumentStore, requests port.UpdateRequestRepository, codec port.PayloadCodec) *Validator {
	return &Validator{
		store:    store,
		requests: requests,
		codec:    codec,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate refuses an invalid request and normalizes an accepted one.
// Run it in the transaction that inserts the request.
func (v *Validator) Validate(ctx context.Context, req *entity.UpdateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return describeTagErrors(err)
	}

	meta, err := v.store.Meta(req.TargetType)
	if err != nil {
		return err
	}
	if meta.IsTable {
		return workflow.NewValidationError("%s is a child table and can't be the target of an update request", meta.Name)
	}

	var target document.Document
	if !req.IsCreate() {
		target, err = v.store.Load(ctx, req.TargetType, req.TargetID)
		if err != nil {
			return err
		}
		if _, ok := target.(Mediated); !ok {
			return workflow.NewValidationError("%s does not accept update requests", req.TargetType)
		}
	}

	if req.TargetID != "" {
		open, err := v.requests.HasOpenRequest(ctx, req.TargetType, req.TargetID)
		if err != nil {
			return fmt.Errorf("failed to check open requests: %w", err)
		}
		if open {
			return workflow.ErrPendingUpdateRequest
		}
	}

	if !req.IsCreate() {
		switch {
		case req.FieldName == "" && req.CustomCall == "":
			return workflow.NewValidationError("Either field name or custom call is required")
		case req.FieldName != "" && req.CustomCall != "":
			return workflow.NewValidationError("Only one of field name and custom call may be set")
		case req.FieldName != "" && req.ChangeKind == "":
			return workflow.NewValidationError("Change kind is required when a field name is set")
		}
	}

	if req.IsCreate() {
		if err := v.checkCreatePayload(req); err != nil {
			return err
		}
	}

	if req.IsChildRowChange() {
		if err := v.checkChildRow(req, target); err != nil {
			return err
		}
	}

	req.Normalize()
	return nil
}

func (v *Validator) checkCreatePayload(req *entity.UpdateRequest) error {
	if strings.TrimSpace(req.Payload) == "" {
		return workflow.NewError(workflow.KindMissingOrInvalidData, "%s: Create requests need a payload", workflow.ErrMissingOrInvalidData.Message)
	}
	payload, err := v.codec.Parse(req.Payload)
	if err != nil {
		return err
	}
	if _, ok := payload.(map[string]interface{}); !ok {
		return workflow.NewError(workflow.KindMissingOrInvalidData, "%s: Create payload must be an object", workflow.ErrMissingOrInvalidData.Message)
	}
	return nil
}

func (v *Validator) checkChildRow(req *entity.UpdateRequest, target document.Document) error {
	if strings.TrimSpace(req.Payload) == "" {
		return workflow.ErrMissingOrInvalidData
	}
	payload, err := v.codec.Parse(req.Payload)
	if err != nil {
		return workflow.Wrap(workflow.KindMissingOrInvalidData, workflow.ErrMissingOrInvalidData.Message, err)
	}
	if _, ok := payload.(map[string]interface{}); !ok {
		return workflow.NewError(workflow.KindMissingOrInvalidData, "%s: payload must be an object", workflow.ErrMissingOrInvalidData.Message)
	}
	// custom calls name no child table to look the row up in
	if req.FieldName == "" || !req.ChangeKind.RequiresExistingRow() {
		return nil
	}

	name, ok := childRowName(payload)
	if !ok {
		return workflow.NewError(workflow.KindMissingOrInvalidData, "%s: payload has no row name", workflow.ErrMissingOrInvalidData.Message)
	}
	body, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", req.TargetType, req.TargetID, err)
	}
	if !childRowExists(body, req.FieldName, name) {
		return workflow.NewError(workflow.KindMissingOrInvalidData, "%s: %s has no row %s", workflow.ErrMissingOrInvalidData.Message, req.FieldName, name)
	}
	return nil
}

func describeTagErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return workflow.Wrap(workflow.KindValidation, workflow.ErrValidation.Message, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return workflow.NewValidationError("%s: %s", workflow.ErrValidation.Message, strings.Join(msgs, "; "))
}
