package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelRegistrationHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/cancel_registration"
	confirmPaymentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/confirm_payment"
	createRegistrationHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/create_registration"
	getDetailSlotsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_detail_slots"
	getPatientRegistrationsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_patient_registrations"
	getRegistrationHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_registration"
	updateRegistrationStatusHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/update_registration_status"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/broker/rabbitmq"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notification"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	allocatorService "github.com/m04kA/SMC-AppointmentService/internal/service/allocator"
	detailSlotsService "github.com/m04kA/SMC-AppointmentService/internal/service/detailslots"
	registrationsService "github.com/m04kA/SMC-AppointmentService/internal/service/registrations"
	cancelRegistrationUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/cancel_registration"
	confirmPaymentUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
	createRegistrationUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_registration"
	processRefundUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/process_refund"
	refundWorker "github.com/m04kA/SMC-AppointmentService/internal/worker/refund"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
)

// errRefundsDisabled возвращается публикатором-заглушкой, когда обработка возвратов выключена
var errRefundsDisabled = errors.New("refund processing is disabled")

// disabledRefunds оставляет запись в REFUNDING без публикации; задачу подберёт сверка после включения
type disabledRefunds struct{}

func (disabledRefunds) PublishRefund(ctx context.Context, task domain.RefundTask) error {
	return errRefundsDisabled
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-AppointmentService...")
	log.Info("Configuration loaded from config.toml (storage=%s, gateway=%s, notifications=%s)",
		cfg.Storage.Driver, cfg.Gateway.Driver, cfg.Notification.Driver)

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Хранилище: PostgreSQL или память
	store := openStorage(cfg, metricsCollector, stopMetricsCh, log)
	defer store.close()

	// Брокер нужен для возвратов и для уведомлений через exchange
	var publisher *rabbitmq.Publisher
	topology := rabbitmq.DefaultRefundTopology(cfg.Refund.MessageTTL())

	if cfg.Refund.Enabled || cfg.Notification.Driver == config.NotificationDriverBroker {
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()

		err = publisher.Setup(func(ch rabbitmq.Declarer) error {
			if err := rabbitmq.DeclareRefundTopology(ch, topology); err != nil {
				return err
			}
			return rabbitmq.DeclareTopicExchange(ch, cfg.RabbitMQ.NotificationExchange)
		})
		if err != nil {
			log.Fatal("Failed to declare RabbitMQ topology: %v", err)
		}
		log.Info("RabbitMQ topology declared (refund queue=%s, notification exchange=%s)",
			topology.Queue, cfg.RabbitMQ.NotificationExchange)
	}

	// Уведомления
	var sender notification.Sender
	switch cfg.Notification.Driver {
	case config.NotificationDriverBroker:
		sender = notification.NewBrokerSender(publisher, cfg.RabbitMQ.NotificationExchange)
	case config.NotificationDriverWebhook:
		sender = notification.NewWebhookSender(cfg.Notification.WebhookURL,
			time.Duration(cfg.Notification.Timeout)*time.Second)
	default:
		sender = notification.NewLogSender(log)
	}
	notifier := notification.NewClient(sender, time.Duration(cfg.Notification.Timeout)*time.Second, log)

	// Платежный шлюз
	var gateway processRefundUC.Gateway
	switch cfg.Gateway.Driver {
	case config.GatewayDriverOmise:
		omise, err := paymentgateway.NewOmise(cfg.Gateway.OmisePublicKey, cfg.Gateway.OmiseSecretKey, log)
		if err != nil {
			log.Fatal("Failed to initialize Omise gateway: %v", err)
		}
		gateway = omise
	default:
		gateway = paymentgateway.NewSimulated(cfg.Gateway.Delay(), cfg.Gateway.FailureRate, log)
	}

	// Публикация возвратов
	var refundPublisher *rabbitmq.RefundPublisher
	var cancelRefunds cancelRegistrationUC.RefundPublisher = disabledRefunds{}
	if cfg.Refund.Enabled {
		refundPublisher = rabbitmq.NewRefundPublisher(publisher, topology)
		cancelRefunds = refundPublisher
	} else {
		log.Warn("Refund processing is disabled, cancelled paid registrations stay in REFUNDING")
	}

	// Инициализируем сервисы
	allocatorSvc := allocatorService.NewService(
		store.schedules,
		store.registrations,
		store.tx,
		metricsCollector,
		log,
	)
	detailSlotsSvc := detailSlotsService.NewService(
		store.schedules,
		store.registrations,
		cfg.DetailSlots.Capacity,
		log,
	)
	registrationsSvc := registrationsService.NewService(
		store.registrations,
		store.tx,
		log,
	)

	// Инициализируем use cases
	createRegistrationUseCase := createRegistrationUC.NewUseCase(
		allocatorSvc,
		detailSlotsSvc,
		store.registrations,
		notifier,
		createRegistrationUC.NewRandomRegistrationNoGenerator(),
		store.tx,
		log,
	)
	cancelRegistrationUseCase := cancelRegistrationUC.NewUseCase(
		store.registrations,
		store.payments,
		allocatorSvc,
		cancelRefunds,
		notifier,
		metricsCollector,
		store.tx,
		log,
	)
	confirmPaymentUseCase := confirmPaymentUC.NewUseCase(
		store.registrations,
		store.payments,
		store.tx,
		log,
	)
	processRefundUseCase := processRefundUC.NewUseCase(
		store.registrations,
		store.payments,
		gateway,
		notifier,
		metricsCollector,
		store.tx,
		log,
	)

	// Фоновые воркеры возвратов
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if cfg.Refund.Enabled {
		source, err := rabbitmq.NewConsumer(cfg.RabbitMQ.URL, topology, cfg.Refund.Prefetch, cfg.Metrics.ServiceName)
		if err != nil {
			log.Fatal("Failed to start refund consumer: %v", err)
		}
		defer source.Close()

		consumer := refundWorker.NewConsumer(
			source,
			processRefundUseCase,
			refundPublisher,
			metricsCollector,
			cfg.Refund.Workers,
			cfg.Refund.MaxAttempts,
			log,
		)
		reconciler := refundWorker.NewReconciler(
			store.registrations,
			store.payments,
			refundPublisher,
			metricsCollector,
			cfg.Refund.ReconcileInterval(),
			cfg.Refund.StuckAfter(),
			log,
		)

		workers.Add(2)
		go func() {
			defer workers.Done()
			if err := consumer.Run(workersCtx); err != nil {
				log.Error("Refund consumer stopped: %v", err)
			}
		}()
		go func() {
			defer workers.Done()
			reconciler.Run(workersCtx)
		}()
		log.Info("Refund workers started (workers=%d, max_attempts=%d, reconcile every %s)",
			cfg.Refund.Workers, cfg.Refund.MaxAttempts, cfg.Refund.ReconcileInterval())
	}

	// Инициализируем handlers
	createRegistration := createRegistrationHandler.NewHandler(createRegistrationUseCase, log)
	cancelRegistration := cancelRegistrationHandler.NewHandler(cancelRegistrationUseCase, log)
	confirmPayment := confirmPaymentHandler.NewHandler(confirmPaymentUseCase, log)
	getRegistration := getRegistrationHandler.NewHandler(registrationsSvc, log)
	getPatientRegistrations := getPatientRegistrationsHandler.NewHandler(registrationsSvc, log)
	updateRegistrationStatus := updateRegistrationStatusHandler.NewHandler(registrationsSvc, log)
	getDetailSlots := getDetailSlotsHandler.NewHandler(detailSlotsSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		log.Info("HTTP metrics middleware enabled")

		// Metrics endpoint (публичный, без аутентификации)
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (пациент определяется, если передан X-User-ID)
	// ============================================================

	public := api.PathPrefix("").Subrouter()
	public.Use(middleware.OptionalAuth)

	// Детальные слоты расписания с заполненностью
	public.HandleFunc("/schedules/{scheduleId}/detail-slots", getDetailSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Записи ---
	// Создание записи
	protected.HandleFunc("/registrations", createRegistration.Handle).Methods(http.MethodPost)

	// Получение записи по ID
	protected.HandleFunc("/registrations/{registrationId}", getRegistration.Handle).Methods(http.MethodGet)

	// Отмена записи
	protected.HandleFunc("/registrations/{registrationId}/cancel", cancelRegistration.Handle).Methods(http.MethodPatch)

	// Оплата записи
	protected.HandleFunc("/registrations/{registrationId}/payment", confirmPayment.Handle).Methods(http.MethodPost)

	// История записей пациента
	protected.HandleFunc("/patients/me/registrations", getPatientRegistrations.Handle).Methods(http.MethodGet)

	// ============================================================
	// STAFF ROUTES (X-User-ID и роль doctor или staff в X-User-Role)
	// ============================================================

	staff := protected.PathPrefix("").Subrouter()
	staff.Use(middleware.RequireRole(middleware.RoleDoctor, middleware.RoleStaff))

	// Подтверждение, приход и завершение приёма
	staff.HandleFunc("/registrations/{registrationId}/status", updateRegistrationStatus.Handle).Methods(http.MethodPatch)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Останавливаем воркеры возвратов: незавершённые сообщения вернутся в очередь
	stopWorkers()
	workers.Wait()
	log.Info("Refund workers stopped")

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	log.Info("Server stopped gracefully")
}
