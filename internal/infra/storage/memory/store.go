package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Store хранилище в памяти для локального запуска и тестов
// Транзакции сериализуются одним мьютексом, при ошибке состояние откатывается к снимку
type Store struct {
	mu sync.Mutex

	schedules     map[int64]*domain.Schedule
	registrations map[int64]*domain.Registration
	payments      map[int64]*domain.Payment // по registration_id

	lastScheduleID     int64
	lastRegistrationID int64
	lastPaymentID      int64

	now func() time.Time
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		schedules:     make(map[int64]*domain.Schedule),
		registrations: make(map[int64]*domain.Registration),
		payments:      make(map[int64]*domain.Payment),
		now:           time.Now,
	}
}

type txKey struct{}

// Do выполняет fn атомарно; вложенные вызовы выполняются в транзакции внешнего
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}

	return nil
}

// DoSerializable совпадает с Do: все транзакции хранилища и так последовательны
func (s *Store) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.Do(ctx, fn)
}

// DoReadOnly совпадает с Do
func (s *Store) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.Do(ctx, fn)
}

// AddSchedule добавляет расписание и возвращает его с присвоенным ID
func (s *Store) AddSchedule(schedule domain.Schedule) *domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastScheduleID++
	schedule.ID = s.lastScheduleID
	now := s.now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	stored := schedule
	s.schedules[stored.ID] = &stored

	out := stored
	return &out
}

// Schedules репозиторий расписаний поверх хранилища
func (s *Store) Schedules() *ScheduleRepository {
	return &ScheduleRepository{store: s}
}

// Registrations репозиторий записей поверх хранилища
func (s *Store) Registrations() *RegistrationRepository {
	return &RegistrationRepository{store: s}
}

// Payments репозиторий платежей поверх хранилища
func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{store: s}
}

// run выполняет fn под мьютексом, если вызов не внутри транзакции хранилища
func (s *Store) run(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn()
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

type snapshot struct {
	schedules     map[int64]domain.Schedule
	registrations map[int64]domain.Registration
	payments      map[int64]domain.Payment

	lastScheduleID     int64
	lastRegistrationID int64
	lastPaymentID      int64
}

// snapshot копирует значения, указатели-поля разделяются: доменные методы их не мутируют, а заменяют
func (s *Store) snapshot() snapshot {
	snap := snapshot{
		schedules:          make(map[int64]domain.Schedule, len(s.schedules)),
		registrations:      make(map[int64]domain.Registration, len(s.registrations)),
		payments:           make(map[int64]domain.Payment, len(s.payments)),
		lastScheduleID:     s.lastScheduleID,
		lastRegistrationID: s.lastRegistrationID,
		lastPaymentID:      s.lastPaymentID,
	}

	for id, v := range s.schedules {
		snap.schedules[id] = *v
	}
	for id, v := range s.registrations {
		snap.registrations[id] = *v
	}
	for id, v := range s.payments {
		snap.payments[id] = *v
	}

	return snap
}

func (s *Store) restore(snap snapshot) {
	s.schedules = make(map[int64]*domain.Schedule, len(snap.schedules))
	for id, v := range snap.schedules {
		v := v
		s.schedules[id] = &v
	}

	s.registrations = make(map[int64]*domain.Registration, len(snap.registrations))
	for id, v := range snap.registrations {
		v := v
		s.registrations[id] = &v
	}

	s.payments = make(map[int64]*domain.Payment, len(snap.payments))
	for id, v := range snap.payments {
		v := v
		s.payments[id] = &v
	}

	s.lastScheduleID = snap.lastScheduleID
	s.lastRegistrationID = snap.lastRegistrationID
	s.lastPaymentID = snap.lastPaymentID
}
