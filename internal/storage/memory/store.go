package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ruralpay/orgledger/internal/locks"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/storage"
)

// Store is an in-memory implementation of storage.Store. Units of work hold
// per-row locks until they end and apply their writes in one step at commit,
// so concurrent readers never observe half of a unit of work.
type Store struct {
	mu             sync.RWMutex
	organizations  map[int64]models.Organization
	transactions   []models.Transaction
	batches        map[int64]models.PayrollBatch
	vendorPayments map[int64]models.VendorPayment
	bills          map[int64]models.Bill // keyed by vendor payment id
	deposits       []models.Deposit
	employees      map[int64]models.Employee
	salaries       map[int64][]models.SalaryStructure
	vendors        map[int64]models.Vendor

	rows *locks.Local

	seqMu sync.Mutex
	seq   map[string]int64
}

func NewStore() *Store {
	return &Store{
		organizations:  make(map[int64]models.Organization),
		batches:        make(map[int64]models.PayrollBatch),
		vendorPayments: make(map[int64]models.VendorPayment),
		bills:          make(map[int64]models.Bill),
		employees:      make(map[int64]models.Employee),
		salaries:       make(map[int64][]models.SalaryStructure),
		vendors:        make(map[int64]models.Vendor),
		rows:           locks.NewLocal(),
		seq:            make(map[string]int64),
	}
}

// nextID hands out ids like a database sequence: ids of rolled back rows are never reused.
func (s *Store) nextID(table string) int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq[table]++
	return s.seq[table]
}

// AddOrganization registers a tenant with a zero balance.
func (s *Store) AddOrganization(name string) models.Organization {
	org := models.Organization{ID: s.nextID("organizations"), Name: name}
	s.mu.Lock()
	s.organizations[org.ID] = org
	s.mu.Unlock()
	return org
}

func (s *Store) AddEmployee(e models.Employee) models.Employee {
	e.ID = s.nextID("employees")
	s.mu.Lock()
	s.employees[e.ID] = e
	s.mu.Unlock()
	return e
}

func (s *Store) AddSalaryStructure(ss models.SalaryStructure) models.SalaryStructure {
	ss.ID = s.nextID("salary_structures")
	s.mu.Lock()
	s.salaries[ss.EmployeeID] = append(s.salaries[ss.EmployeeID], ss)
	s.mu.Unlock()
	return ss
}

func (s *Store) AddVendor(v models.Vendor) models.Vendor {
	v.ID = s.nextID("vendors")
	s.mu.Lock()
	s.vendors[v.ID] = v
	s.mu.Unlock()
	return v
}

func (s *Store) GetOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &org, nil
}

func (s *Store) ListTransactions(ctx context.Context, orgID int64, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Transaction
	for _, txn := range s.transactions {
		if txn.OrganizationID == orgID {
			result = append(result, txn)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (s *Store) GetPayrollBatch(ctx context.Context, id int64) (*models.PayrollBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyBatch(b), nil
}

func (s *Store) ListPayrollBatches(ctx context.Context, orgID int64) ([]models.PayrollBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.PayrollBatch
	for _, b := range s.batches {
		if b.OrganizationID == orgID {
			b.Payments = nil
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *Store) PayrollBatchExists(ctx context.Context, orgID int64, month, year int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchExists(orgID, month, year), nil
}

func (s *Store) batchExists(orgID int64, month, year int) bool {
	for _, b := range s.batches {
		if b.OrganizationID == orgID && b.Month == month && b.Year == year {
			return true
		}
	}
	return false
}

func (s *Store) GetVendorPayment(ctx context.Context, id int64) (*models.VendorPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.vendorPayments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListVendorPayments(ctx context.Context, orgID int64) ([]models.VendorPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.VendorPayment
	for _, p := range s.vendorPayments {
		if p.OrganizationID == orgID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *Store) GetBillByPayment(ctx context.Context, paymentID int64) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bills[paymentID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (s *Store) ListDeposits(ctx context.Context, orgID int64) ([]models.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Deposit
	for i := len(s.deposits) - 1; i >= 0; i-- {
		if s.deposits[i].OrganizationID == orgID {
			result = append(result, s.deposits[i])
		}
	}
	return result, nil
}

func (s *Store) GetVendor(ctx context.Context, id int64) (*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &v, nil
}

func (s *Store) ListActiveEmployees(ctx context.Context, orgID int64) ([]models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Employee
	for _, e := range s.employees {
		if e.OrganizationID == orgID && e.Active {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) GetActiveSalaryStructure(ctx context.Context, employeeID int64) (*models.SalaryStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current *models.SalaryStructure
	for _, ss := range s.salaries[employeeID] {
		if !ss.Active {
			continue
		}
		if current == nil || ss.EffectiveFrom.After(current.EffectiveFrom) {
			candidate := ss
			current = &candidate
		}
	}
	if current == nil {
		return nil, storage.ErrNotFound
	}
	return current, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	t := &tx{
		s:        s,
		held:     make(map[string]func()),
		orgState: make(map[int64]models.Organization),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

func copyBatch(b models.PayrollBatch) *models.PayrollBatch {
	if b.Payments != nil {
		payments := make([]models.PayrollPayment, len(b.Payments))
		copy(payments, b.Payments)
		b.Payments = payments
	}
	return &b
}

var _ storage.Store = (*Store)(nil)
