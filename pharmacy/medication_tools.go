package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pherr "github.com/sweetpotato0/pharmacy-assistant/errors"
	"github.com/sweetpotato0/pharmacy-assistant/store"
	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

type medicationArgs struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// GetMedicationByName returns medication details in the requested language.
func (t *Tools) GetMedicationByName(ctx context.Context, args map[string]any) tool.Result {
	var a medicationArgs
	if err := tool.DecodeArgs(args, &a); err != nil {
		return invalidArgs("get_medication_by_name", err)
	}
	name := strings.TrimSpace(a.Name)
	t.logger.Info("get_medication_by_name", "name", name, "lang", a.Lang)

	if name == "" {
		return tool.Fail(tool.CodeInvalidInput, "Medication name is required")
	}

	med, err := t.store.MedicationByName(ctx, name)
	if errors.Is(err, pherr.ErrNotFound) {
		return tool.Fail(tool.CodeNotFound,
			fmt.Sprintf("Medication '%s' not found in our database", name))
	}
	if err != nil {
		return t.internal("get_medication_by_name", err)
	}

	if a.Lang == "he" {
		return tool.OK(map[string]any{
			"id":                    med.ID,
			"name":                  med.HebrewName,
			"name_en":               med.Name,
			"active_ingredient":     med.ActiveIngredientHebrew,
			"dosage_form":           med.DosageForm,
			"strength":              med.Strength,
			"usage_instructions":    med.UsageInstructionsHebrew,
			"requires_prescription": med.RequiresPrescription,
		})
	}
	return tool.OK(map[string]any{
		"id":                    med.ID,
		"name":                  med.Name,
		"name_he":               med.HebrewName,
		"active_ingredient":     med.ActiveIngredient,
		"dosage_form":           med.DosageForm,
		"strength":              med.Strength,
		"usage_instructions":    med.UsageInstructions,
		"requires_prescription": med.RequiresPrescription,
	})
}

type stockArgs struct {
	MedicationName string `json:"medication_name"`
	Branch         string `json:"branch"`
}

// CheckMedicationStock reports stock per branch, or for one branch when
// requested.
func (t *Tools) CheckMedicationStock(ctx context.Context, args map[string]any) tool.Result {
	var a stockArgs
	if err := tool.DecodeArgs(args, &a); err != nil {
		return invalidArgs("check_medication_stock", err)
	}
	name := strings.TrimSpace(a.MedicationName)
	t.logger.Info("check_medication_stock", "medication_name", name, "branch", a.Branch)

	if name == "" {
		return tool.Fail(tool.CodeInvalidInput, "Medication name is required")
	}

	med, err := t.store.MedicationByName(ctx, name)
	if errors.Is(err, pherr.ErrNotFound) {
		return tool.Fail(tool.CodeNotFound,
			fmt.Sprintf("Medication '%s' not found in our database", name))
	}
	if err != nil {
		return t.internal("check_medication_stock", err)
	}

	var levels []*store.StockLevel
	if a.Branch != "" {
		level, err := t.store.StockAtBranch(ctx, med.ID, store.NormalizeText(a.Branch))
		if errors.Is(err, pherr.ErrNotFound) {
			return tool.Fail(tool.CodeNotFound,
				fmt.Sprintf("Branch '%s' not found or no stock record for this medication at this branch", a.Branch))
		}
		if err != nil {
			return t.internal("check_medication_stock", err)
		}
		levels = []*store.StockLevel{level}
	} else {
		levels, err = t.store.StockByMedication(ctx, med.ID)
		if err != nil {
			return t.internal("check_medication_stock", err)
		}
	}

	branches := make([]map[string]any, 0, len(levels))
	total := 0
	for _, level := range levels {
		total += level.Quantity
		branches = append(branches, map[string]any{
			"branch":    level.Branch,
			"quantity":  level.Quantity,
			"available": level.Quantity > 0,
		})
	}

	return tool.OK(map[string]any{
		"medication_name":    med.Name,
		"medication_name_he": med.HebrewName,
		"branches":           branches,
		"total_quantity":     total,
		"any_available":      total > 0,
	})
}

type requirementArgs struct {
	MedicationName string `json:"medication_name"`
}

// GetPrescriptionRequirement reports whether a medication needs a
// prescription.
func (t *Tools) GetPrescriptionRequirement(ctx context.Context, args map[string]any) tool.Result {
	var a requirementArgs
	if err := tool.DecodeArgs(args, &a); err != nil {
		return invalidArgs("get_prescription_requirement", err)
	}
	name := strings.TrimSpace(a.MedicationName)
	t.logger.Info("get_prescription_requirement", "medication_name", name)

	if name == "" {
		return tool.Fail(tool.CodeInvalidInput, "Medication name is required")
	}

	med, err := t.store.MedicationByName(ctx, name)
	if errors.Is(err, pherr.ErrNotFound) {
		return tool.Fail(tool.CodeNotFound,
			fmt.Sprintf("Medication '%s' not found in our database", name))
	}
	if err != nil {
		return t.internal("get_prescription_requirement", err)
	}

	message := fmt.Sprintf("%s is available over-the-counter without a prescription.", med.Name)
	if med.RequiresPrescription {
		message = fmt.Sprintf("%s requires a valid prescription from a doctor.", med.Name)
	}

	return tool.OK(map[string]any{
		"medication_name":       med.Name,
		"medication_name_he":    med.HebrewName,
		"requires_prescription": med.RequiresPrescription,
		"message":               message,
	})
}
