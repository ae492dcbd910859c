package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pherr "github.com/sweetpotato0/pharmacy-assistant/errors"
)

// InMemory is a mutex-guarded in-process store. It backs tests and local
// runs without a database and implements both Store and Seeder.
type InMemory struct {
	mu            sync.RWMutex
	users         []*User
	medications   []*Medication
	stock         []*StockLevel
	prescriptions []*Prescription
	refills       []*RefillRequest

	nextUserID         int64
	nextMedicationID   int64
	nextStockID        int64
	nextPrescriptionID int64
	nextRefillID       int64
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		nextUserID:         1,
		nextMedicationID:   1,
		nextStockID:        1,
		nextPrescriptionID: 1,
		nextRefillID:       1,
	}
}

func (s *InMemory) UserByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, pherr.ErrNotFound)
}

func (s *InMemory) UserByPhone(_ context.Context, phone string) (*User, error) {
	needle := NormalizePhone(phone)
	if needle == "" {
		return nil, fmt.Errorf("user by phone: %w", pherr.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.Contains(NormalizePhone(u.Phone), needle) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user by phone: %w", pherr.ErrNotFound)
}

func (s *InMemory) UserByEmail(_ context.Context, email string) (*User, error) {
	needle := NormalizeEmail(email)
	if needle == "" {
		return nil, fmt.Errorf("user by email: %w", pherr.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if NormalizeEmail(u.Email) == needle {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user by email: %w", pherr.ErrNotFound)
}

func (s *InMemory) UserByName(_ context.Context, name string) (*User, error) {
	needle := strings.ToLower(NormalizeText(name))
	if needle == "" {
		return nil, fmt.Errorf("user by name: %w", pherr.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Name), needle) ||
			strings.Contains(u.HebrewName, needle) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user by name: %w", pherr.ErrNotFound)
}

func (s *InMemory) MedicationByName(_ context.Context, name string) (*Medication, error) {
	needle := strings.ToLower(NormalizeText(name))
	if needle == "" {
		return nil, fmt.Errorf("medication by name: %w", pherr.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Exact match on either language name wins over substring matches.
	for _, m := range s.medications {
		if strings.ToLower(m.Name) == needle || m.HebrewName == NormalizeText(name) {
			cp := *m
			return &cp, nil
		}
	}
	for _, m := range s.medications {
		if strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(m.HebrewName, NormalizeText(name)) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("medication %q: %w", name, pherr.ErrNotFound)
}

func (s *InMemory) Medications(_ context.Context) ([]*Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Medication, 0, len(s.medications))
	for _, m := range s.medications {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) StockByMedication(_ context.Context, medicationID int64) ([]*StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StockLevel, 0, len(Branches))
	for _, st := range s.stock {
		if st.MedicationID == medicationID {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) StockAtBranch(_ context.Context, medicationID int64, branch string) (*StockLevel, error) {
	needle := NormalizeBranch(branch)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stock {
		if st.MedicationID == medicationID && NormalizeBranch(st.Branch) == needle {
			cp := *st
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("stock for branch %q: %w", branch, pherr.ErrNotFound)
}

func (s *InMemory) PrescriptionByID(_ context.Context, id int64) (*Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.prescriptions {
		if p.ID == id {
			return s.joinPrescription(p), nil
		}
	}
	return nil, fmt.Errorf("prescription %d: %w", id, pherr.ErrNotFound)
}

func (s *InMemory) PrescriptionsByUser(_ context.Context, userID int64, activeOnly bool) ([]*Prescription, error) {
	today := Today()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Prescription, 0)
	for _, p := range s.prescriptions {
		if p.UserID != userID {
			continue
		}
		if activeOnly && p.ExpiryDate < today {
			continue
		}
		out = append(out, s.joinPrescription(p))
	}
	return out, nil
}

func (s *InMemory) SubmitRefill(_ context.Context, userID, prescriptionID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var presc *Prescription
	for _, p := range s.prescriptions {
		if p.ID == prescriptionID {
			presc = p
			break
		}
	}
	if presc == nil {
		return 0, fmt.Errorf("prescription %d: %w", prescriptionID, pherr.ErrNotFound)
	}

	req := &RefillRequest{
		ID:             s.nextRefillID,
		UserID:         userID,
		PrescriptionID: prescriptionID,
		RequestDate:    time.Now(),
		Status:         "pending",
	}
	s.nextRefillID++
	s.refills = append(s.refills, req)
	presc.RefillsUsed++
	return req.ID, nil
}

func (s *InMemory) RefillRequestsByUser(_ context.Context, userID int64) ([]*RefillRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*RefillRequest, 0)
	for _, r := range s.refills {
		if r.UserID != userID {
			continue
		}
		cp := *r
		for _, p := range s.prescriptions {
			if p.ID == r.PrescriptionID {
				if m := s.medicationByID(p.MedicationID); m != nil {
					cp.MedicationName = m.Name
					cp.MedicationHebrewName = m.HebrewName
				}
				break
			}
		}
		out = append(out, &cp)
	}
	return out, nil
}

// joinPrescription copies a prescription row with its medication names
// filled in. Callers must hold at least the read lock.
func (s *InMemory) joinPrescription(p *Prescription) *Prescription {
	cp := *p
	if m := s.medicationByID(p.MedicationID); m != nil {
		cp.MedicationName = m.Name
		cp.MedicationHebrewName = m.HebrewName
	}
	return &cp
}

func (s *InMemory) medicationByID(id int64) *Medication {
	for _, m := range s.medications {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Seeder implementation.

func (s *InMemory) Seeded(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users) > 0, nil
}

func (s *InMemory) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = nil
	s.medications = nil
	s.stock = nil
	s.prescriptions = nil
	s.refills = nil
	s.nextUserID = 1
	s.nextMedicationID = 1
	s.nextStockID = 1
	s.nextPrescriptionID = 1
	s.nextRefillID = 1
	return nil
}

func (s *InMemory) InsertUser(_ context.Context, u *User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	cp.ID = s.nextUserID
	s.nextUserID++
	s.users = append(s.users, &cp)
	return cp.ID, nil
}

func (s *InMemory) InsertMedication(_ context.Context, m *Medication) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.ID = s.nextMedicationID
	s.nextMedicationID++
	s.medications = append(s.medications, &cp)
	return cp.ID, nil
}

func (s *InMemory) InsertStock(_ context.Context, st *StockLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	cp.ID = s.nextStockID
	s.nextStockID++
	s.stock = append(s.stock, &cp)
	return nil
}

func (s *InMemory) InsertPrescription(_ context.Context, p *Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.ID = s.nextPrescriptionID
	s.nextPrescriptionID++
	s.prescriptions = append(s.prescriptions, &cp)
	return nil
}
