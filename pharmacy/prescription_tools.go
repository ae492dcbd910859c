package pharmacy

import (
	"context"
	"errors"
	"fmt"

	pherr "github.com/sweetpotato0/pharmacy-assistant/errors"
	"github.com/sweetpotato0/pharmacy-assistant/store"
	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

type listPrescriptionArgs struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

// ListUserPrescriptions lists a user's prescriptions with refill state,
// filtered by status ("active" by default, "expired" or "all").
func (t *Tools) ListUserPrescriptions(ctx context.Context, args map[string]any) tool.Result {
	var a listPrescriptionArgs
	if err := tool.DecodeArgs(args, &a); err != nil {
		return invalidArgs("list_user_prescriptions", err)
	}
	userID := a.UserID
	status := a.Status
	if status == "" {
		status = "active"
	}
	t.logger.Info("list_user_prescriptions", "user_id", userID, "status", status)

	user, err := t.store.UserByID(ctx, userID)
	if errors.Is(err, pherr.ErrNotFound) {
		return tool.Fail(tool.CodeNotFound, fmt.Sprintf("User with ID %d not found", userID))
	}
	if err != nil {
		return t.internal("list_user_prescriptions", err)
	}

	var prescriptions []*store.Prescription
	today := store.Today()
	switch status {
	case "active":
		prescriptions, err = t.store.PrescriptionsByUser(ctx, userID, true)
	case "expired":
		var all []*store.Prescription
		all, err = t.store.PrescriptionsByUser(ctx, userID, false)
		for _, p := range all {
			if p.ExpiryDate < today {
				prescriptions = append(prescriptions, p)
			}
		}
	default:
		status = "all"
		prescriptions, err = t.store.PrescriptionsByUser(ctx, userID, false)
	}
	if err != nil {
		return t.internal("list_user_prescriptions", err)
	}

	formatted := make([]map[string]any, 0, len(prescriptions))
	for _, p := range prescriptions {
		remaining := p.RefillsAllowed - p.RefillsUsed
		expired := p.ExpiryDate < today
		formatted = append(formatted, map[string]any{
			"prescription_id":    p.ID,
			"medication_name":    p.MedicationName,
			"medication_name_he": p.MedicationHebrewName,
			"prescribed_date":    p.PrescribedDate,
			"expiry_date":        p.ExpiryDate,
			"is_expired":         expired,
			"refills_allowed":    p.RefillsAllowed,
			"refills_used":       p.RefillsUsed,
			"refills_remaining":  remaining,
			"can_refill":         !expired && remaining > 0,
			"prescribing_doctor": p.PrescribingDoctor,
		})
	}

	return tool.OK(map[string]any{
		"user_id":       userID,
		"user_name":     user.Name,
		"filter":        status,
		"prescriptions": formatted,
		"count":         len(formatted),
	})
}

type refillArgs struct {
	UserID         int64 `json:"user_id"`
	PrescriptionID int64 `json:"prescription_id"`
}

// RequestPrescriptionRefill validates eligibility and submits a refill
// request. Checks run in a fixed order so the caller always learns the
// first gate that failed: user exists, prescription exists, ownership,
// expiry, remaining refills.
func (t *Tools) RequestPrescriptionRefill(ctx context.Context, args map[string]any) tool.Result {
	var a refillArgs
	if err := tool.DecodeArgs(args, &a); err != nil {
		return invalidArgs("request_prescription_refill", err)
	}
	userID, prescriptionID := a.UserID, a.PrescriptionID
	t.logger.Info("request_prescription_refill",
		"user_id", userID, "prescription_id", prescriptionID)

	user, err := t.store.UserByID(ctx, userID)
	if errors.Is(err, pherr.ErrNotFound) {
		return tool.Fail(tool.CodeNotFound, fmt.Sprintf("User with ID %d not found", userID))
	}
	if err != nil {
		return t.internal("request_prescription_refill", err)
	}

	presc, err := t.store.PrescriptionByID(ctx, prescriptionID)
	if errors.Is(err, pherr.ErrNotFound) {
		return tool.Fail(tool.CodeNotFound, "Prescription not found")
	}
	if err != nil {
		return t.internal("request_prescription_refill", err)
	}

	if presc.UserID != userID {
		return tool.Fail(tool.CodeUnauthorized, "Prescription does not belong to this user")
	}
	if presc.ExpiryDate < store.Today() {
		return tool.Fail(tool.CodeExpired, "Prescription has expired")
	}
	remaining := presc.RefillsAllowed - presc.RefillsUsed
	if remaining <= 0 {
		return tool.Fail(tool.CodeNoRefills, "No refills remaining on this prescription")
	}

	requestID, err := t.store.SubmitRefill(ctx, userID, prescriptionID)
	if err != nil {
		t.logger.Error("refill submission failed",
			"user_id", userID, "prescription_id", prescriptionID, "error", err)
		return tool.Fail(tool.CodeInternal, "Failed to create refill request. Please try again.")
	}

	return tool.OK(map[string]any{
		"request_id": requestID,
		"status":     "pending",
		"message": fmt.Sprintf(
			"Refill request #%d submitted successfully for %s. It will be ready for pickup in 2-3 hours.",
			requestID, presc.MedicationName),
		"prescription_id":         prescriptionID,
		"medication_name":         presc.MedicationName,
		"medication_name_he":      presc.MedicationHebrewName,
		"refills_remaining_after": remaining - 1,
		"user_name":               user.Name,
	})
}
