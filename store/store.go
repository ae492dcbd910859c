package store

import (
	"context"
	"time"
)

// DateLayout is the wire format for prescription dates. Dates are kept as
// ISO-8601 strings so ordering comparisons stay plain string comparisons.
const DateLayout = "2006-01-02"

// User is a pharmacy customer row.
type User struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	HebrewName string `json:"hebrew_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Medication is a catalogue row with bilingual labelling.
type Medication struct {
	ID                      int64  `json:"id"`
	Name                    string `json:"name"`
	HebrewName              string `json:"hebrew_name"`
	ActiveIngredient        string `json:"active_ingredient"`
	ActiveIngredientHebrew  string `json:"active_ingredient_hebrew"`
	DosageForm              string `json:"dosage_form"`
	Strength                string `json:"strength"`
	UsageInstructions       string `json:"usage_instructions"`
	UsageInstructionsHebrew string `json:"usage_instructions_hebrew"`
	RequiresPrescription    bool   `json:"requires_prescription"`
}

// StockLevel tracks the quantity of one medication at one branch.
type StockLevel struct {
	ID           int64     `json:"id"`
	MedicationID int64     `json:"medication_id"`
	Branch       string    `json:"branch"`
	Quantity     int       `json:"quantity"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Prescription is a prescription row joined with its medication names.
type Prescription struct {
	ID                   int64  `json:"id"`
	UserID               int64  `json:"user_id"`
	MedicationID         int64  `json:"medication_id"`
	PrescribedDate       string `json:"prescribed_date"`
	ExpiryDate           string `json:"expiry_date"`
	RefillsAllowed       int    `json:"refills_allowed"`
	RefillsUsed          int    `json:"refills_used"`
	PrescribingDoctor    string `json:"prescribing_doctor"`
	MedicationName       string `json:"medication_name"`
	MedicationHebrewName string `json:"medication_hebrew_name"`
}

// RefillRequest is a pending dispensation request joined with its
// medication names.
type RefillRequest struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"user_id"`
	PrescriptionID       int64     `json:"prescription_id"`
	RequestDate          time.Time `json:"request_date"`
	Status               string    `json:"status"`
	MedicationName       string    `json:"medication_name"`
	MedicationHebrewName string    `json:"medication_hebrew_name"`
}

// Store is the row-oriented repository consumed by the tool layer. Lookups
// return errors.ErrNotFound (wrapped) when no row matches.
//
// Identifier matching rules:
//   - UserByPhone matches the digit-normalized input as a substring of the
//     digit-normalized stored phone.
//   - UserByEmail matches the trimmed, lowercased input exactly.
//   - UserByName matches a substring of either language name,
//     case-insensitive.
//   - MedicationByName tries a case-insensitive exact match on either
//     language name, then a substring match.
//   - StockAtBranch matches branch names ignoring case, whitespace, hyphens
//     and underscores.
type Store interface {
	UserByID(ctx context.Context, id int64) (*User, error)
	UserByPhone(ctx context.Context, phone string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByName(ctx context.Context, name string) (*User, error)

	MedicationByName(ctx context.Context, name string) (*Medication, error)
	Medications(ctx context.Context) ([]*Medication, error)

	StockByMedication(ctx context.Context, medicationID int64) ([]*StockLevel, error)
	StockAtBranch(ctx context.Context, medicationID int64, branch string) (*StockLevel, error)

	PrescriptionByID(ctx context.Context, id int64) (*Prescription, error)
	PrescriptionsByUser(ctx context.Context, userID int64, activeOnly bool) ([]*Prescription, error)

	// SubmitRefill creates a pending refill request and increments the
	// prescription's used-refill counter as one unit. It returns the new
	// request id. It does not validate refill eligibility; callers do.
	SubmitRefill(ctx context.Context, userID, prescriptionID int64) (int64, error)
	RefillRequestsByUser(ctx context.Context, userID int64) ([]*RefillRequest, error)
}

// Today returns the current date in DateLayout, the comparison key for
// prescription expiry.
func Today() string {
	return time.Now().Format(DateLayout)
}
