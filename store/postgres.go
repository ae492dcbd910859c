package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	pherr "github.com/sweetpotato0/pharmacy-assistant/errors"
)

// Postgres implements Store and Seeder on top of PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects to PostgreSQL using a DSN (either key=value or
// postgres:// URL form) and bootstraps the schema.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s := &Postgres{db: db}
	if err := s.createTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

func (s *Postgres) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		hebrew_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL,
		email TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS medications (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		hebrew_name TEXT NOT NULL DEFAULT '',
		active_ingredient TEXT NOT NULL DEFAULT '',
		active_ingredient_hebrew TEXT NOT NULL DEFAULT '',
		dosage_form TEXT NOT NULL DEFAULT '',
		strength TEXT NOT NULL DEFAULT '',
		usage_instructions TEXT NOT NULL DEFAULT '',
		usage_instructions_hebrew TEXT NOT NULL DEFAULT '',
		requires_prescription BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE TABLE IF NOT EXISTS stock (
		id SERIAL PRIMARY KEY,
		medication_id INTEGER NOT NULL REFERENCES medications(id),
		branch TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		last_updated TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS prescriptions (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		medication_id INTEGER NOT NULL REFERENCES medications(id),
		prescribed_date DATE NOT NULL,
		expiry_date DATE NOT NULL,
		refills_allowed INTEGER NOT NULL DEFAULT 0,
		refills_used INTEGER NOT NULL DEFAULT 0,
		prescribing_doctor TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS refill_requests (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		prescription_id INTEGER NOT NULL REFERENCES prescriptions(id),
		request_date TIMESTAMP NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	CREATE INDEX IF NOT EXISTS idx_stock_medication ON stock(medication_id);
	CREATE INDEX IF NOT EXISTS idx_prescriptions_user ON prescriptions(user_id);
	CREATE INDEX IF NOT EXISTS idx_refill_requests_user ON refill_requests(user_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

const userColumns = "id, name, hebrew_name, phone, email"

func scanUser(row *sql.Row, op string) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.HebrewName, &u.Phone, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, pherr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (s *Postgres) UserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row, fmt.Sprintf("user %d", id))
}

func (s *Postgres) UserByPhone(ctx context.Context, phone string) (*User, error) {
	needle := NormalizePhone(phone)
	if needle == "" {
		return nil, fmt.Errorf("user by phone: %w", pherr.ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+` FROM users
		 WHERE regexp_replace(phone, '\D', '', 'g') LIKE '%' || $1 || '%'
		 ORDER BY id LIMIT 1`, needle)
	return scanUser(row, "user by phone")
}

func (s *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	needle := NormalizeEmail(email)
	if needle == "" {
		return nil, fmt.Errorf("user by email: %w", pherr.ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE lower(trim(email)) = $1 ORDER BY id LIMIT 1", needle)
	return scanUser(row, "user by email")
}

func (s *Postgres) UserByName(ctx context.Context, name string) (*User, error) {
	needle := NormalizeText(name)
	if needle == "" {
		return nil, fmt.Errorf("user by name: %w", pherr.ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+` FROM users
		 WHERE name ILIKE '%' || $1 || '%' OR hebrew_name LIKE '%' || $1 || '%'
		 ORDER BY id LIMIT 1`, needle)
	return scanUser(row, "user by name")
}

const medicationColumns = `id, name, hebrew_name, active_ingredient, active_ingredient_hebrew,
	dosage_form, strength, usage_instructions, usage_instructions_hebrew, requires_prescription`

func scanMedication(sc interface{ Scan(...any) error }) (*Medication, error) {
	var m Medication
	err := sc.Scan(&m.ID, &m.Name, &m.HebrewName, &m.ActiveIngredient, &m.ActiveIngredientHebrew,
		&m.DosageForm, &m.Strength, &m.UsageInstructions, &m.UsageInstructionsHebrew,
		&m.RequiresPrescription)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Postgres) MedicationByName(ctx context.Context, name string) (*Medication, error) {
	needle := NormalizeText(name)
	if needle == "" {
		return nil, fmt.Errorf("medication by name: %w", pherr.ErrNotFound)
	}

	// Exact match on either language name wins over substring matches.
	row := s.db.QueryRowContext(ctx,
		"SELECT "+medicationColumns+` FROM medications
		 WHERE lower(name) = lower($1) OR hebrew_name = $1
		 ORDER BY id LIMIT 1`, needle)
	m, err := scanMedication(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("medication %q: %w", name, err)
	}

	row = s.db.QueryRowContext(ctx,
		"SELECT "+medicationColumns+` FROM medications
		 WHERE name ILIKE '%' || $1 || '%' OR hebrew_name LIKE '%' || $1 || '%'
		 ORDER BY id LIMIT 1`, needle)
	m, err = scanMedication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("medication %q: %w", name, pherr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("medication %q: %w", name, err)
	}
	return m, nil
}

func (s *Postgres) Medications(ctx context.Context) ([]*Medication, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+medicationColumns+" FROM medications ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var out []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("list medications: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) StockByMedication(ctx context.Context, medicationID int64) ([]*StockLevel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, medication_id, branch, quantity, last_updated
		 FROM stock WHERE medication_id = $1 ORDER BY branch`, medicationID)
	if err != nil {
		return nil, fmt.Errorf("stock for medication %d: %w", medicationID, err)
	}
	defer rows.Close()

	var out []*StockLevel
	for rows.Next() {
		var st StockLevel
		if err := rows.Scan(&st.ID, &st.MedicationID, &st.Branch, &st.Quantity, &st.LastUpdated); err != nil {
			return nil, fmt.Errorf("stock for medication %d: %w", medicationID, err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *Postgres) StockAtBranch(ctx context.Context, medicationID int64, branch string) (*StockLevel, error) {
	needle := NormalizeBranch(branch)
	var st StockLevel
	err := s.db.QueryRowContext(ctx,
		`SELECT id, medication_id, branch, quantity, last_updated FROM stock
		 WHERE medication_id = $1
		   AND regexp_replace(lower(branch), '[\s_-]+', '', 'g') = $2
		 LIMIT 1`, medicationID, needle).
		Scan(&st.ID, &st.MedicationID, &st.Branch, &st.Quantity, &st.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock for branch %q: %w", branch, pherr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stock for branch %q: %w", branch, err)
	}
	return &st, nil
}

const prescriptionColumns = `p.id, p.user_id, p.medication_id,
	to_char(p.prescribed_date, 'YYYY-MM-DD'), to_char(p.expiry_date, 'YYYY-MM-DD'),
	p.refills_allowed, p.refills_used, p.prescribing_doctor, m.name, m.hebrew_name`

func scanPrescription(sc interface{ Scan(...any) error }) (*Prescription, error) {
	var p Prescription
	err := sc.Scan(&p.ID, &p.UserID, &p.MedicationID, &p.PrescribedDate, &p.ExpiryDate,
		&p.RefillsAllowed, &p.RefillsUsed, &p.PrescribingDoctor,
		&p.MedicationName, &p.MedicationHebrewName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) PrescriptionByID(ctx context.Context, id int64) (*Prescription, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+prescriptionColumns+` FROM prescriptions p
		 JOIN medications m ON m.id = p.medication_id
		 WHERE p.id = $1`, id)
	p, err := scanPrescription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prescription %d: %w", id, pherr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("prescription %d: %w", id, err)
	}
	return p, nil
}

func (s *Postgres) PrescriptionsByUser(ctx context.Context, userID int64, activeOnly bool) ([]*Prescription, error) {
	query := "SELECT " + prescriptionColumns + ` FROM prescriptions p
		 JOIN medications m ON m.id = p.medication_id
		 WHERE p.user_id = $1`
	if activeOnly {
		query += " AND p.expiry_date >= CURRENT_DATE"
	}
	query += " ORDER BY p.id"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]*Prescription, 0)
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("prescriptions for user %d: %w", userID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SubmitRefill inserts the request row and bumps the used-refill counter in
// one transaction so a failure leaves both untouched.
func (s *Postgres) SubmitRefill(ctx context.Context, userID, prescriptionID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("submit refill: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO refill_requests (user_id, prescription_id, request_date, status)
		 VALUES ($1, $2, $3, 'pending') RETURNING id`,
		userID, prescriptionID, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("submit refill: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE prescriptions SET refills_used = refills_used + 1 WHERE id = $1", prescriptionID)
	if err != nil {
		return 0, fmt.Errorf("submit refill: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("prescription %d: %w", prescriptionID, pherr.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("submit refill: %w", err)
	}
	return id, nil
}

func (s *Postgres) RefillRequestsByUser(ctx context.Context, userID int64) ([]*RefillRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.prescription_id, r.request_date, r.status,
		        m.name, m.hebrew_name
		 FROM refill_requests r
		 JOIN prescriptions p ON p.id = r.prescription_id
		 JOIN medications m ON m.id = p.medication_id
		 WHERE r.user_id = $1 ORDER BY r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("refill requests for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]*RefillRequest, 0)
	for rows.Next() {
		var r RefillRequest
		err := rows.Scan(&r.ID, &r.UserID, &r.PrescriptionID, &r.RequestDate, &r.Status,
			&r.MedicationName, &r.MedicationHebrewName)
		if err != nil {
			return nil, fmt.Errorf("refill requests for user %d: %w", userID, err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Seeder implementation.

func (s *Postgres) Seeded(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM users").Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Postgres) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"TRUNCATE refill_requests, stock, prescriptions, medications, users RESTART IDENTITY CASCADE")
	return err
}

func (s *Postgres) InsertUser(ctx context.Context, u *User) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, hebrew_name, phone, email)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Name, u.HebrewName, u.Phone, u.Email).Scan(&id)
	return id, err
}

func (s *Postgres) InsertMedication(ctx context.Context, m *Medication) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO medications (name, hebrew_name, active_ingredient, active_ingredient_hebrew,
		   dosage_form, strength, usage_instructions, usage_instructions_hebrew, requires_prescription)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		m.Name, m.HebrewName, m.ActiveIngredient, m.ActiveIngredientHebrew,
		m.DosageForm, m.Strength, m.UsageInstructions, m.UsageInstructionsHebrew,
		m.RequiresPrescription).Scan(&id)
	return id, err
}

func (s *Postgres) InsertStock(ctx context.Context, st *StockLevel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stock (medication_id, branch, quantity, last_updated)
		 VALUES ($1, $2, $3, $4)`,
		st.MedicationID, st.Branch, st.Quantity, st.LastUpdated)
	return err
}

func (s *Postgres) InsertPrescription(ctx context.Context, p *Prescription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prescriptions (user_id, medication_id, prescribed_date, expiry_date,
		   refills_allowed, refills_used, prescribing_doctor)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.UserID, p.MedicationID, p.PrescribedDate, p.ExpiryDate,
		p.RefillsAllowed, p.RefillsUsed, p.PrescribingDoctor)
	return err
}
