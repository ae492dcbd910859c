package pharmacy

import (
	"fmt"

	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

// Catalog returns the closed set of tools exposed to the model.
func (t *Tools) Catalog() []*tool.Tool {
	return []*tool.Tool{
		{
			Name: "get_medication_by_name",
			Description: "Get detailed information about a medication including its active ingredient, " +
				"dosage form, strength, usage instructions, and whether it requires a prescription. " +
				"Use this when a user asks about a specific medication.",
			Parameters: []tool.Parameter{
				{Name: "name", Type: "string", Required: true,
					Description: "The name of the medication in English or Hebrew"},
				{Name: "lang", Type: "string", Enum: []string{"en", "he"},
					Description: "Preferred language for the response. Use 'he' if user speaks Hebrew."},
			},
			Handler: t.GetMedicationByName,
		},
		{
			Name: "check_medication_stock",
			Description: "Check the current stock availability of a medication across pharmacy branches. " +
				"Returns quantity available at each branch. Use when user asks about availability " +
				"or wants to know if a medication is in stock.",
			Parameters: []tool.Parameter{
				{Name: "medication_name", Type: "string", Required: true,
					Description: "The name of the medication to check stock for"},
				{Name: "branch", Type: "string",
					Description: "Optional: specific branch to check (e.g., 'Main Street', 'Downtown', 'Airport')"},
			},
			Handler: t.CheckMedicationStock,
		},
		{
			Name: "get_prescription_requirement",
			Description: "Check if a medication requires a prescription or is available over-the-counter. " +
				"Use when user asks if they need a prescription for a medication.",
			Parameters: []tool.Parameter{
				{Name: "medication_name", Type: "string", Required: true,
					Description: "The name of the medication to check"},
			},
			Handler: t.GetPrescriptionRequirement,
		},
		{
			Name: "get_user_profile",
			Description: "Look up a user's profile by their ID, phone number, email, or name. " +
				"Use this to identify a customer before performing actions like prescription lookup or refill requests. " +
				"Ask the user to provide their phone or email if not already known.",
			Parameters: []tool.Parameter{
				{Name: "user_id", Type: "integer",
					Description: "The user's ID if already known"},
				{Name: "phone", Type: "string",
					Description: "User's phone number to search by"},
				{Name: "email", Type: "string",
					Description: "User's email address to search by"},
				{Name: "name", Type: "string",
					Description: "User's full or partial name to search by, in English or Hebrew"},
			},
			Handler: t.GetUserProfile,
		},
		{
			Name: "list_user_prescriptions",
			Description: "List all prescriptions for a user, including medication name, expiry date, " +
				"and remaining refills. User must be identified first using get_user_profile. " +
				"Use when user asks about their prescriptions or wants to see what they can refill.",
			Parameters: []tool.Parameter{
				{Name: "user_id", Type: "integer", Required: true,
					Description: "The user's ID (obtained from get_user_profile)"},
				{Name: "status", Type: "string", Enum: []string{"active", "expired", "all"},
					Description: "Filter prescriptions by status. Default is 'active'."},
			},
			Handler: t.ListUserPrescriptions,
		},
		{
			Name: "request_prescription_refill",
			Description: "Submit a refill request for an existing prescription. " +
				"Validates that the prescription is active and has refills remaining. " +
				"User must be identified first. Use when user wants to refill a prescription.",
			Parameters: []tool.Parameter{
				{Name: "user_id", Type: "integer", Required: true,
					Description: "The user's ID (obtained from get_user_profile)"},
				{Name: "prescription_id", Type: "integer", Required: true,
					Description: "The prescription ID to refill (obtained from list_user_prescriptions)"},
			},
			Handler: t.RequestPrescriptionRefill,
		},
	}
}

// RegisterAll adds every pharmacy tool to the registry.
func (t *Tools) RegisterAll(registry *tool.Registry) error {
	for _, tl := range t.Catalog() {
		if err := registry.Register(tl); err != nil {
			return fmt.Errorf("register %s: %w", tl.Name, err)
		}
	}
	return nil
}
