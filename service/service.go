package service

import (
	"context"
	"sync"

	c "Userdb/common"
	"Userdb/storage"
	"Userdb/validation"

	"github.com/sirupsen/logrus"
)

// API is the operation surface exposed to remote callers. The in-process
// Service and the network client both implement it.
type API interface {
	Create(ctx context.Context, candidate *c.Record) (c.Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Read(ctx context.Context, id int64) (c.Record, bool, error)
	List(ctx context.Context) ([]c.Record, error)
	UpdateSalary(ctx context.Context, id int64, salary float64) (bool, error)
	UpdateDepartmentAndPosition(ctx context.Context, id int64, department, position string) (bool, error)
	Shutdown(ctx context.Context) error
}

// Audit actions.
const (
	ActionCreate       = "CREATE"
	ActionDelete       = "DELETE"
	ActionUpdateSalary = "UPDATE-SALARY"
	ActionUpdateDept   = "UPDATE-DEPT"
	ActionShutdown     = "SHUTDOWN"
)

// Service implements API on top of a Storage. It holds no locks of its own:
// all shared state lives in the store.
type Service struct {
	store     *storage.Storage
	validator *validation.Validator
	log       logrus.FieldLogger

	shutdownOnce sync.Once
	onShutdown   func()
}

type Option func(*Service)

// WithValidator replaces the wall-clock validator.
func WithValidator(v *validation.Validator) Option {
	return func(s *Service) { s.validator = v }
}

// WithLogger sets the sink for audit events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithShutdownHook sets the function run, on its own goroutine, after a
// shutdown request has been acknowledged.
func WithShutdownHook(fn func()) Option {
	return func(s *Service) { s.onShutdown = fn }
}

func NewService(store *storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:     store,
		validator: &validation.Validator{},
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) audit(action string) *logrus.Entry {
	return s.log.WithField("action", action)
}

func (s *Service) Create(_ context.Context, candidate *c.Record) (c.Record, error) {
	if err := s.validator.ValidateNew(candidate); err != nil {
		return c.Record{}, err
	}

	rec := *candidate
	rec.ID = s.store.NextID()
	s.store.Insert(rec.ID, rec)

	s.audit(ActionCreate).WithField("id", rec.ID).Infof("[%s] User created -> %s", ActionCreate, rec)
	return rec, nil
}

func (s *Service) Delete(_ context.Context, id int64) (bool, error) {
	removed, ok := s.store.Remove(id)
	if !ok {
		s.audit(ActionDelete).WithField("id", id).Infof("[%s] User id=%d not found.", ActionDelete, id)
		return false, nil
	}
	s.audit(ActionDelete).WithField("id", id).Infof("[%s] User removed -> %s", ActionDelete, removed)
	return true, nil
}

func (s *Service) Read(_ context.Context, id int64) (c.Record, bool, error) {
	rec, ok := s.store.Get(id)
	return rec, ok, nil
}

func (s *Service) List(_ context.Context) ([]c.Record, error) {
	return s.store.GetAll(), nil
}

func (s *Service) UpdateSalary(_ context.Context, id int64, salary float64) (bool, error) {
	if err := s.validator.ValidateSalary(salary); err != nil {
		return false, err
	}

	prev, ok := s.store.Update(id, func(r *c.Record) {
		r.Salary = salary
	})
	if !ok {
		s.audit(ActionUpdateSalary).WithField("id", id).Infof("[%s] User id=%d not found.", ActionUpdateSalary, id)
		return false, nil
	}

	s.audit(ActionUpdateSalary).WithField("id", id).Infof("[%s] User id=%d | %v -> %v", ActionUpdateSalary, id, prev.Salary, salary)
	return true, nil
}

func (s *Service) UpdateDepartmentAndPosition(_ context.Context, id int64, department, position string) (bool, error) {
	if err := s.validator.ValidateDepartmentPosition(department, position); err != nil {
		return false, err
	}

	prev, ok := s.store.Update(id, func(r *c.Record) {
		r.Department = department
		r.Position = position
	})
	if !ok {
		s.audit(ActionUpdateDept).WithField("id", id).Infof("[%s] User id=%d not found.", ActionUpdateDept, id)
		return false, nil
	}

	s.audit(ActionUpdateDept).WithField("id", id).Infof("[%s] User id=%d | Department: %s -> %s | Position: %s -> %s",
		ActionUpdateDept, id, prev.Department, department, prev.Position, position)
	return true, nil
}

// Shutdown acknowledges the request and tears the process down from another
// goroutine, so the reply can still reach the caller.
func (s *Service) Shutdown(_ context.Context) error {
	s.audit(ActionShutdown).Infof("[%s] Remote server shutdown requested.", ActionShutdown)
	s.shutdownOnce.Do(func() {
		if s.onShutdown != nil {
			go s.onShutdown()
		}
	})
	return nil
}
