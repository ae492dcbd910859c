package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
)

// Seeder is the write surface needed to populate a store with the demo
// dataset. Both backends implement it alongside Store.
type Seeder interface {
	Seeded(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	InsertUser(ctx context.Context, u *User) (int64, error)
	InsertMedication(ctx context.Context, m *Medication) (int64, error)
	InsertStock(ctx context.Context, s *StockLevel) error
	InsertPrescription(ctx context.Context, p *Prescription) error
}

// Branches are the pharmacy branch names carried by stock rows.
var Branches = []string{"Main Street", "Downtown", "Airport"}

var seedUsers = []User{
	{Name: "David Cohen", HebrewName: "דוד כהן", Phone: "050-1234567", Email: "david.cohen@email.com"},
	{Name: "Sarah Levi", HebrewName: "שרה לוי", Phone: "052-2345678", Email: "sarah.levi@email.com"},
	{Name: "Michael Ben-Ari", HebrewName: "מיכאל בן-ארי", Phone: "054-3456789", Email: "michael.benari@email.com"},
	{Name: "Rachel Goldstein", HebrewName: "רחל גולדשטיין", Phone: "053-4567890", Email: "rachel.gold@email.com"},
	{Name: "Yossi Mizrachi", HebrewName: "יוסי מזרחי", Phone: "050-5678901", Email: "yossi.m@email.com"},
	{Name: "Miriam Shapiro", HebrewName: "מרים שפירא", Phone: "052-6789012", Email: "miriam.shapiro@email.com"},
	{Name: "Avi Peretz", HebrewName: "אבי פרץ", Phone: "054-7890123", Email: "avi.peretz@email.com"},
	{Name: "Tamar Rosenberg", HebrewName: "תמר רוזנברג", Phone: "053-8901234", Email: "tamar.r@email.com"},
	{Name: "Dan Katz", HebrewName: "דן כץ", Phone: "050-9012345", Email: "dan.katz@email.com"},
	{Name: "Noa Friedman", HebrewName: "נועה פרידמן", Phone: "052-0123456", Email: "noa.friedman@email.com"},
}

var seedMedications = []Medication{
	{
		Name:                    "Aspirin",
		HebrewName:              "אספירין",
		ActiveIngredient:        "Acetylsalicylic acid",
		ActiveIngredientHebrew:  "חומצה אצטילסליצילית",
		DosageForm:              "Tablet",
		Strength:                "500mg",
		UsageInstructions:       "Take 1-2 tablets every 4-6 hours as needed for pain or fever. Do not exceed 8 tablets in 24 hours. Take with food or water.",
		UsageInstructionsHebrew: "ליטול 1-2 טבליות כל 4-6 שעות לפי הצורך לכאב או חום. לא לעבור 8 טבליות ב-24 שעות. ליטול עם אוכל או מים.",
		RequiresPrescription:    false,
	},
	{
		Name:                    "Ibuprofen",
		HebrewName:              "איבופרופן",
		ActiveIngredient:        "Ibuprofen",
		ActiveIngredientHebrew:  "איבופרופן",
		DosageForm:              "Tablet",
		Strength:                "400mg",
		UsageInstructions:       "Take 1 tablet every 6-8 hours as needed for pain or inflammation. Maximum 3 tablets per day. Take with food.",
		UsageInstructionsHebrew: "ליטול טבליה אחת כל 6-8 שעות לפי הצורך לכאב או דלקת. מקסימום 3 טבליות ביום. ליטול עם אוכל.",
		RequiresPrescription:    false,
	},
	{
		Name:                    "Amoxicillin",
		HebrewName:              "אמוקסיצילין",
		ActiveIngredient:        "Amoxicillin trihydrate",
		ActiveIngredientHebrew:  "אמוקסיצילין טריהידרט",
		DosageForm:              "Capsule",
		Strength:                "500mg",
		UsageInstructions:       "Take 1 capsule every 8 hours for 7-10 days as prescribed. Complete the full course even if feeling better. May be taken with or without food.",
		UsageInstructionsHebrew: "ליטול כמוסה אחת כל 8 שעות למשך 7-10 ימים לפי הוראת רופא. לסיים את הטיפול המלא גם אם מרגישים טוב יותר. ניתן ליטול עם או בלי אוכל.",
		RequiresPrescription:    true,
	},
	{
		Name:                    "Omeprazole",
		HebrewName:              "אומפרזול",
		ActiveIngredient:        "Omeprazole",
		ActiveIngredientHebrew:  "אומפרזול",
		DosageForm:              "Capsule",
		Strength:                "20mg",
		UsageInstructions:       "Take 1 capsule once daily, preferably in the morning before breakfast. Swallow whole, do not crush or chew.",
		UsageInstructionsHebrew: "ליטול כמוסה אחת פעם ביום, עדיף בבוקר לפני ארוחת הבוקר. לבלוע בשלמות, לא לרסק או ללעוס.",
		RequiresPrescription:    true,
	},
	{
		Name:                    "Vitamin D3",
		HebrewName:              "ויטמין D3",
		ActiveIngredient:        "Cholecalciferol",
		ActiveIngredientHebrew:  "כולקלציפרול",
		DosageForm:              "Softgel",
		Strength:                "1000 IU",
		UsageInstructions:       "Take 1 softgel daily with a meal containing fat for better absorption. Store in a cool, dry place.",
		UsageInstructionsHebrew: "ליטול כמוסת ג'ל אחת ביום עם ארוחה המכילה שומן לספיגה טובה יותר. לאחסן במקום קריר ויבש.",
		RequiresPrescription:    false,
	},
}

// stock quantities indexed by medication, one row per branch.
var seedStock = []struct {
	med    int
	branch string
	qty    int
}{
	{0, "Main Street", 150}, {0, "Downtown", 25}, {0, "Airport", 10},
	{1, "Main Street", 80}, {1, "Downtown", 60}, {1, "Airport", 40},
	{2, "Main Street", 30}, {2, "Downtown", 15}, {2, "Airport", 0},
	{3, "Main Street", 20}, {3, "Downtown", 5}, {3, "Airport", 8},
	{4, "Main Street", 200}, {4, "Downtown", 180}, {4, "Airport", 150},
}

// prescriptions with dates relative to seeding time so the dataset keeps
// its mix of active, expired and exhausted rows whenever it is loaded.
var seedPrescriptions = []struct {
	user           int
	med            int
	prescribedAgo  int
	expiresIn      int
	refillsAllowed int
	refillsUsed    int
	doctor         string
}{
	{0, 3, 60, 305, 5, 2, "Dr. Ruth Avraham"},
	{1, 2, 3, 7, 0, 0, "Dr. Moshe Klein"},
	{2, 3, 400, -35, 3, 3, "Dr. Yael Stern"},
	{3, 3, 180, 185, 4, 4, "Dr. Oren Levy"},
	{4, 2, 1, 13, 1, 0, "Dr. Dana Cohen"},
	{5, 3, 30, 335, 6, 1, "Dr. Eitan Rosen"},
	{5, 2, 5, 5, 0, 0, "Dr. Eitan Rosen"},
	{6, 2, 60, -50, 0, 0, "Dr. Nir Barak"},
	{7, 3, 10, 355, 12, 0, "Dr. Hila Marcus"},
	{8, 3, 200, 165, 5, 3, "Dr. Gadi Weiss"},
	{8, 2, 100, -90, 0, 0, "Dr. Gadi Weiss"},
	{9, 3, 45, 320, 6, 2, "Dr. Shira Tal"},
	{0, 2, 90, -80, 0, 0, "Dr. Ruth Avraham"},
	{1, 3, 15, 350, 10, 0, "Dr. Avi Carmel"},
	{4, 3, 120, 245, 8, 4, "Dr. Dana Cohen"},
}

// Seed populates a store with the demo dataset. It is a no-op when the store
// already holds data unless force is set, in which case existing rows are
// cleared first. It reports whether seeding was performed.
func Seed(ctx context.Context, s Seeder, force bool) (bool, error) {
	logger := logging.WithComponent("store")

	seeded, err := s.Seeded(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: check state: %w", err)
	}
	if seeded && !force {
		logger.Info("store already seeded")
		return false, nil
	}
	if force {
		if err := s.Reset(ctx); err != nil {
			return false, fmt.Errorf("seed: reset: %w", err)
		}
	}

	userIDs := make([]int64, len(seedUsers))
	for i := range seedUsers {
		u := seedUsers[i]
		id, err := s.InsertUser(ctx, &u)
		if err != nil {
			return false, fmt.Errorf("seed: insert user %q: %w", u.Name, err)
		}
		userIDs[i] = id
	}

	medIDs := make([]int64, len(seedMedications))
	for i := range seedMedications {
		m := seedMedications[i]
		id, err := s.InsertMedication(ctx, &m)
		if err != nil {
			return false, fmt.Errorf("seed: insert medication %q: %w", m.Name, err)
		}
		medIDs[i] = id
	}

	now := time.Now()
	for _, row := range seedStock {
		err := s.InsertStock(ctx, &StockLevel{
			MedicationID: medIDs[row.med],
			Branch:       row.branch,
			Quantity:     row.qty,
			LastUpdated:  now,
		})
		if err != nil {
			return false, fmt.Errorf("seed: insert stock: %w", err)
		}
	}

	today := now
	for _, row := range seedPrescriptions {
		err := s.InsertPrescription(ctx, &Prescription{
			UserID:         userIDs[row.user],
			MedicationID:   medIDs[row.med],
			PrescribedDate: today.AddDate(0, 0, -row.prescribedAgo).Format(DateLayout),
			ExpiryDate:     today.AddDate(0, 0, row.expiresIn).Format(DateLayout),
			RefillsAllowed: row.refillsAllowed,
			RefillsUsed:    row.refillsUsed,
			PrescribingDoctor: row.doctor,
		})
		if err != nil {
			return false, fmt.Errorf("seed: insert prescription: %w", err)
		}
	}

	logger.Info("store seeded",
		"users", len(seedUsers),
		"medications", len(seedMedications),
		"stock_rows", len(seedStock),
		"prescriptions", len(seedPrescriptions))
	return true, nil
}
