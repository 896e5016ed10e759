package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gl3e_manager/internal/app"
	"gl3e_manager/internal/domain/alert"
	"gl3e_manager/internal/infra/config"
	idb "gl3e_manager/internal/infra/database"
	"gl3e_manager/internal/infra/email"
	"gl3e_manager/internal/infra/logger"
	"gl3e_manager/internal/infra/scheduler"
	"gl3e_manager/internal/infra/sms"
	"gl3e_manager/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("GL3E assignment service starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL, idb.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	if err := idb.RunMigrations(db, cfg.MigrationsURL); err != nil {
		log.Fatalf("Could not apply database migrations: %v", err)
	}
	log.Info("Database schema up to date.")

	// Initialize Repositories
	studentRepo := idb.NewPostgresStudentRepository(db)
	projectRepo := idb.NewPostgresProjectRepository(db)
	otpRepo := idb.NewPostgresOTPRepository(db)
	activityLogRepo := idb.NewPostgresActivityLogRepository(db)

	// Initialize Provider Clients
	httpClient := &http.Client{Timeout: cfg.SendTimeout}
	emailProvider := email.NewSMTPClient(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		UseTLS:   cfg.SMTPUseTLS,
		Timeout:  cfg.SMTPTimeout,
	})
	mtargetProvider := sms.NewMTargetClient(sms.MTargetConfig{
		Username:  cfg.MTargetUsername,
		Password:  cfg.MTargetPassword,
		ServiceID: cfg.MTargetServiceID,
		Sender:    cfg.MTargetSender,
		APIURL:    cfg.MTargetAPIURL,
	}, httpClient)
	twilioProvider := sms.NewTwilioClient(sms.TwilioConfig{
		AccountSID:  cfg.TwilioAccountSID,
		AuthToken:   cfg.TwilioAuthToken,
		PhoneNumber: cfg.TwilioPhoneNumber,
	}, httpClient)

	// Initialize Dispatcher and Services
	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		MaxRetries:       cfg.SendMaxRetries,
		RetryDelay:       cfg.SendRetryDelay,
		SendTimeout:      cfg.SendTimeout,
		CircuitThreshold: cfg.CircuitThreshold,
		CircuitCooldown:  cfg.CircuitCooldown,
		RateLimitMax:     cfg.RateLimitMax,
		RateLimitWindow:  cfg.RateLimitWindow,
	}, emailProvider, mtargetProvider, twilioProvider, log)

	otpService := app.NewOTPService(otpRepo, app.OTPConfig{
		Length:      cfg.OTPLength,
		Expiry:      cfg.OTPExpiry,
		MaxAttempts: cfg.OTPMaxAttempts,
	}, log)
	allocationService := app.NewAllocationService(studentRepo, projectRepo, log)
	auditor := app.NewAuditRecorder(activityLogRepo, log)
	portal := app.NewPortalService(studentRepo, otpService, allocationService, dispatcher, auditor, log)

	// Optional Telegram ops alerts
	var alerter alert.Client
	if cfg.TelegramToken != "" && cfg.AdminTelegramID != 0 {
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			log.Fatalf("Could not create Telegram bot for ops alerts: %v", err)
		}
		alerter = telegram.NewTelebotAdapter(bot, cfg.AdminTelegramID)
		log.Info("Telegram ops alerts enabled.")
	} else {
		log.Info("Telegram ops alerts disabled (no token or admin chat configured).")
	}

	// Start the periodic health reporter
	healthReporter := scheduler.NewHealthReporter(dispatcher, alerter, log, cfg.HealthCronSpec)
	if err := healthReporter.Start(); err != nil {
		log.Fatalf("Could not start health reporter: %v", err)
	}

	health := portal.Health()
	log.Infof("Application setup complete. Delivery status: %s", health.Status)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	healthReporter.Stop()
	log.Info("Application shut down gracefully.")
}
