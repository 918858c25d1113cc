package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Daskott/guardian/server/alerts"
	"github.com/Daskott/guardian/server/auth/key"
	"github.com/Daskott/guardian/server/contacts"
	"github.com/Daskott/guardian/server/cron"
	"github.com/Daskott/guardian/server/detection"
	"github.com/Daskott/guardian/server/logger"
	"github.com/Daskott/guardian/server/metrics"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/server/notify"
	"github.com/Daskott/guardian/server/settings"
	"github.com/Daskott/guardian/server/twilio"
	"github.com/Daskott/guardian/server/validation"
	"github.com/Daskott/guardian/server/vision"
	"github.com/Daskott/guardian/shared"
	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

const (
	MAX_BODY_BYTES = 10 << 20

	MAX_SIGNIN_FAILURES = 5
	SIGNIN_FAILURE_TTL  = 15 * time.Minute
)

var logg = logger.NewLogger()

// App holds everything the handlers share. Stores are created once the
// database handle is attached; until then only the readiness-exempt routes
// are served.
type App struct {
	config     shared.ServerConfig
	keyPair    *key.KeyPair
	metrics    *metrics.Metrics
	dispatcher *notify.Dispatcher
	vision     *vision.Client
	location   *time.Location
	validate   *validator.Validate

	signinFailures *cache.Cache

	ready    atomic.Bool
	db       *gorm.DB
	settings *settings.Store
	contacts *contacts.Store
	alerts   *alerts.Recorder
	pipeline *detection.Pipeline
}

func NewApp(config shared.ServerConfig, keyPair *key.KeyPair, m *metrics.Metrics, dispatcher *notify.Dispatcher, visionClient *vision.Client) (*App, error) {
	location, err := time.LoadLocation(config.Guardian.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid guardian.timeZone: %v", err)
	}

	return &App{
		config:         config,
		keyPair:        keyPair,
		metrics:        m,
		dispatcher:     dispatcher,
		vision:         visionClient,
		location:       location,
		validate:       validation.New(),
		signinFailures: cache.New(SIGNIN_FAILURE_TTL, 2*SIGNIN_FAILURE_TTL),
	}, nil
}

// attachDB wires the stores to db and opens the API for traffic.
func (app *App) attachDB(db *gorm.DB) {
	app.db = db
	app.settings = settings.NewStore(db)
	app.contacts = contacts.NewStore(db)
	app.alerts = alerts.NewRecorder(db, app.contacts, app.dispatcher, app.metrics)
	app.pipeline = detection.NewPipeline(app.vision, app.settings, app.alerts, app.location)

	app.ready.Store(true)
}

func (app *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(app.loggingMiddleware)

	router.Handle("/metrics", app.metrics.Handler()).Methods("GET")

	jsonRouter := router.NewRoute().Subrouter()
	jsonRouter.Use(jsonContentMiddleware)
	jsonRouter.HandleFunc("/.well-known/jwks.json", app.jwksHandler).Methods("GET")
	jsonRouter.HandleFunc("/api/health", app.healthHandler).Methods("GET")

	api := jsonRouter.PathPrefix("/api").Subrouter()
	api.Use(app.readinessMiddleware)
	api.HandleFunc("/auth/signup", app.signupHandler).Methods("POST")
	api.HandleFunc("/auth/signin", app.signinHandler).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(app.protectedRouteMiddleware)
	protected.HandleFunc("/auth/me", app.meHandler).Methods("GET")

	protected.HandleFunc("/user-settings", app.getSettingsHandler).Methods("GET")
	protected.HandleFunc("/user-settings", app.updateSettingsHandler).Methods("PUT")

	protected.HandleFunc("/emergency-contacts", app.listContactsHandler).Methods("GET")
	protected.HandleFunc("/emergency-contacts", app.createContactHandler).Methods("POST")
	protected.HandleFunc("/emergency-contacts/{id}", app.updateContactHandler).Methods("PUT")
	protected.HandleFunc("/emergency-contacts/{id}", app.deleteContactHandler).Methods("DELETE")

	protected.HandleFunc("/alerts", app.listAlertsHandler).Methods("GET")
	protected.HandleFunc("/alerts", app.createAlertHandler).Methods("POST")
	protected.HandleFunc("/emergency-alert", app.emergencyAlertHandler).Methods("POST")

	protected.HandleFunc("/analyze-frame", app.analyzeFrameHandler).Methods("POST")
	protected.HandleFunc("/detections", app.detectionHandler).Methods("POST")

	return router
}

// Start runs the guardian server until SIGINT/SIGTERM.
func Start(configs *viper.Viper, devMode bool) {
	configDir := configDirectory(devMode)

	config, err := ParseConfig(configs)
	fatalOnError(err)

	fatalOnError(logger.SetLevel(config.Guardian.LogLevel))

	keyPair, err := loadKeyPair(config.Guardian)
	fatalOnError(err)

	if config.Sentry.DSN != "" {
		err = sentry.Init(sentry.ClientOptions{Dsn: config.Sentry.DSN, Environment: config.Sentry.Environment})
		fatalOnError(err)
		defer sentry.Flush(2 * time.Second)
	}

	appMetrics := metrics.New()
	visionClient := vision.NewClient(vision.Config{
		URL:     config.Vision.URL,
		APIKey:  config.Vision.APIKey,
		Model:   config.Vision.Model,
		Timeout: time.Duration(config.Vision.TimeoutSeconds) * time.Second,
	}, appMetrics)

	app, err := NewApp(config, keyPair, appMetrics, newDispatcher(config.Notify, appMetrics), visionClient)
	fatalOnError(err)

	dsn := config.Database.DSN
	var backup *sqliteBackup
	if config.Database.Driver == models.SQLITE_DRIVER {
		dsn, err = models.SqliteDSN(configDir)
		fatalOnError(err)

		backup, err = newSqliteBackup(config.Google, configDir)
		fatalOnError(err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", config.Guardian.Listener.Port),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(server)

	scheduler := cron.NewScheduler(app.location)
	go func() {
		if backup != nil {
			backup.restore()
		}

		db := connectWithRetry(config.Database.Driver, dsn, config.Database.ConnectRetries)
		if backup != nil {
			backup.db = db
		}
		app.attachDB(db)
		logg.Info("Database is ready")

		if backup != nil {
			fatalOnError(cron.Schedule(scheduler, "backupSqliteDb", config.Google.Storage.SqliteBackupSchedule, backup.run))
			scheduler.StartAsync()
		}
	}()

	// Wait for the interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	scheduler.Stop()
	shutdown(server)

	if app.ready.Load() {
		if backup != nil {
			backup.run()
		}
		models.Close(app.db)
	}

	logg.Infof("Guardian server stopped properly")
}

// ParseConfig applies defaults and validates the server config.
func ParseConfig(configs *viper.Viper) (shared.ServerConfig, error) {
	shared.SetDefaults(configs)

	config := shared.ServerConfig{}
	if err := configs.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unable to decode server config: %v", err)
	}

	if err := validation.New().Struct(config); err != nil {
		return config, fmt.Errorf("invalid server config: %v", validation.Errors(err))
	}

	if config.Database.Driver == models.MYSQL_DRIVER && config.Database.DSN == "" {
		return config, fmt.Errorf("invalid server config: database.dsn is required for mysql")
	}

	return config, nil
}

// loadKeyPair reads the signing key from privateKeyFile when set, else from
// the inline privateKeyPem.
func loadKeyPair(config shared.GuardianConfig) (*key.KeyPair, error) {
	if config.PrivateKeyFile != "" {
		return key.NewKeyPairFromRSAPrivateKeyPem(config.PrivateKeyFile)
	}
	return key.NewKeyPairFromPem(config.PrivateKeyPem)
}

func newDispatcher(config shared.NotifyConfig, m *metrics.Metrics) *notify.Dispatcher {
	dispatcher := notify.NewDispatcher(m)

	if config.Twilio.Enabled() {
		twilioClient := twilio.NewClient(config.Twilio)
		dispatcher.Register(models.SMS_METHOD, notify.SMSChannel{Messenger: twilioClient})
		dispatcher.Register(models.CALL_METHOD, notify.CallChannel{Messenger: twilioClient})
	} else {
		logg.Warn("notify.twilio is not configured, sms and call alerts will fail")
	}

	if config.Email.SmtpURL != "" {
		emailChannel, err := notify.NewEmailChannel(config.Email.SmtpURL)
		fatalOnError(err)
		dispatcher.Register(models.EMAIL_METHOD, emailChannel)
	} else {
		logg.Warn("notify.email is not configured, email alerts will fail")
	}

	if len(config.Push.URLs) > 0 {
		pushChannel, err := notify.NewPushChannel(config.Push.URLs)
		fatalOnError(err)
		dispatcher.Register(models.PUSH_METHOD, pushChannel)
	}

	return dispatcher
}

// connectWithRetry opens and migrates the database, retrying with a linear
// backoff. It exits the process once all attempts fail.
func connectWithRetry(driver, dsn string, retries int) *gorm.DB {
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			logg.Warnf("database connection attempt %v failed: %v", attempt, lastErr)
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}

		db, err := models.Open(driver, dsn)
		if err != nil {
			lastErr = err
			continue
		}

		if err = models.AutoMigrate(db); err != nil {
			models.Close(db)
			lastErr = err
			continue
		}

		return db
	}

	logg.Fatalf("Failed to initialize database: %v", lastErr)
	return nil
}
