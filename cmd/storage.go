package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	paymentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/payment"
	registrationRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
	scheduleRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/schedule"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

type scheduleStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Schedule, error)
	DecrementRemainingSeats(ctx context.Context, id int64, today time.Time) (int, error)
	IncrementRemainingSeats(ctx context.Context, id int64) error
}

type registrationStore interface {
	Create(ctx context.Context, reg *domain.Registration) (*domain.Registration, error)
	NextQueueNumber(ctx context.Context, scheduleID int64) (int, error)
	GetByID(ctx context.Context, id int64) (*domain.Registration, error)
	GetByPatientID(ctx context.Context, patientID int64, status *domain.RegistrationStatus) ([]*domain.Registration, error)
	CountActiveByDetailSlot(ctx context.Context, scheduleID int64) (map[string]int, error)
	GetActiveDetailSlotCodes(ctx context.Context, scheduleID, patientID int64) ([]string, error)
	UpdateState(ctx context.Context, reg *domain.Registration, expected domain.RegistrationState) error
	MarkRefundPublished(ctx context.Context, id int64, at time.Time) error
	GetUnpublishedRefunds(ctx context.Context, before time.Time, limit int) ([]*domain.Registration, error)
}

type paymentStore interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetByRegistrationID(ctx context.Context, registrationID int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, registrationID int64, from, to domain.PaymentStatus, at time.Time) error
}

type txManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// storage репозитории и менеджер транзакций выбранного драйвера
type storage struct {
	schedules     scheduleStore
	registrations registrationStore
	payments      paymentStore
	tx            txManager
	close         func()
}

// openStorage открывает PostgreSQL или хранилище в памяти по storage.driver
func openStorage(cfg *config.Config, m *metrics.Metrics, stopCh <-chan struct{}, log *logger.Logger) *storage {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		store := memory.NewStore()
		seedSchedules(store, time.Now())
		log.Warn("Using in-memory storage, data is lost on restart")

		return &storage{
			schedules:     store.Schedules(),
			registrations: store.Registrations(),
			payments:      store.Payments(),
			tx:            store,
			close:         func() {},
		}
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	var wrapped *dbmetrics.DB
	if m != nil {
		wrapped = dbmetrics.WrapWithDefault(db, m, stopCh)
		log.Info("Database metrics collection started")
	} else {
		wrapped = dbmetrics.Wrap(db, nil)
	}

	return &storage{
		schedules:     scheduleRepo.NewRepository(wrapped),
		registrations: registrationRepo.NewRepository(wrapped),
		payments:      paymentRepo.NewRepository(wrapped),
		tx:            txmanager.NewTransactionManager(wrapped),
		close: func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close database: %v", err)
			}
		},
	}
}

// seedSchedules заполняет хранилище в памяти расписаниями на ближайшие дни для локального запуска
func seedSchedules(store *memory.Store, now time.Time) {
	doctors := []struct {
		doctorID       int64
		departmentID   int64
		doctorName     string
		departmentName string
	}{
		{doctorID: 1, departmentID: 1, doctorName: "Ivanova A.", departmentName: "Therapy"},
		{doctorID: 2, departmentID: 2, doctorName: "Petrov S.", departmentName: "Cardiology"},
	}
	periods := []domain.Period{domain.PeriodMorning, domain.PeriodAfternoon, domain.PeriodEvening}

	for day := 0; day < 3; day++ {
		date := domain.CalendarDate(now.AddDate(0, 0, day))
		for _, d := range doctors {
			for _, p := range periods {
				store.AddSchedule(domain.Schedule{
					DoctorID:       d.doctorID,
					DepartmentID:   d.departmentID,
					DoctorName:     d.doctorName,
					DepartmentName: d.departmentName,
					ScheduleDate:   date,
					Period:         p,
					TotalSeats:     20,
					RemainingSeats: 20,
					Fee:            5000,
					Status:         domain.ScheduleBookable,
				})
			}
		}
	}
}
