package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"github.com/suraksha-app/suraksha/server/auth"
	"github.com/suraksha-app/suraksha/server/auth/key"
	"github.com/suraksha-app/suraksha/server/gstorage"
	"github.com/suraksha-app/suraksha/server/logger"
	"github.com/suraksha-app/suraksha/server/models"
	"github.com/suraksha-app/suraksha/server/sos"
	"github.com/suraksha-app/suraksha/server/twilio"
	"github.com/suraksha-app/suraksha/server/work"
	"github.com/suraksha-app/suraksha/shared"
	"github.com/suraksha-app/suraksha/utils"
)

const DB_FILE_NAME = "suraksha.db"

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.TokenClaims
	ErrorMsg string
}

var (
	validate    *validator.Validate
	logg        = logger.NewLogger()
	authKeyPair *key.KeyPair
	dispatcher  *sos.Dispatcher
	workerPool  *work.WorkerPoolAdapter
	config      *shared.ServerConfig
)

func init() {
	validate = validator.New()
	fatalOnError(RegisterValidators(validate))
}

// Start wires up storage, the sms channel, background jobs & the http
// listener, then blocks until the process is told to shut down.
func Start(configProvider *viper.Viper, devMode bool) {
	serverConfig := shared.ServerConfig{}
	fatalOnError(configProvider.Unmarshal(&serverConfig))
	fatalOnError(validate.Struct(serverConfig))
	config = &serverConfig

	dbDir := configDirectory(devMode)
	dbPath := filepath.Join(dbDir, DB_FILE_NAME)

	workerPool = work.NewWorkerAdapter(config.Suraksha.Cron.TimeZone)

	// Pull the last db backup before the db is opened, for a fresh host
	restoreDbBackupIfEnabled(dbPath)

	fatalOnError(models.Initialize(dbPath, config.Sqlite.PassPhrase))

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(config.Suraksha.PrivateKeyPem)
	fatalOnError(err)
	authKeyPair = keyPair

	messenger := twilio.NewClient(config.Twilio, devMode)
	dispatcher = sos.NewDispatcher(messenger, config.Suraksha.Sos.CountryCode)

	registerJobHandlers(workerPool, dbPath)
	enqueueJobs(workerPool)
	workerPool.Start()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", config.Suraksha.Listener.Port),
		Handler: router(),

		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}
	go serve(httpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cleanup(workerPool, httpServer, backupEnabled())
}

func router() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware, recoverMiddleware, initialContextMiddleware)

	r.HandleFunc("/health", health).Methods("GET")
	r.HandleFunc("/jwks.json", jwks).Methods("GET")

	r.HandleFunc("/signup", signUp).Methods("POST")
	r.HandleFunc("/login", logIn).Methods("POST")

	r.HandleFunc("/contacts", saveContacts).Methods("POST")
	r.HandleFunc("/contacts/{userId}", listContacts).Methods("GET")

	r.HandleFunc("/sos", raiseSos).Methods("POST")
	r.HandleFunc("/sos/whatsapp/{userId}", whatsAppLinks).Methods("GET")
	r.HandleFunc("/location", updateLocation).Methods("POST")
	r.HandleFunc("/alerts/{userId}", listAlerts).Methods("GET")

	protected := r.PathPrefix("/me").Subrouter()
	protected.Use(protectedRouteMiddleware)
	protected.HandleFunc("", currentUser).Methods("GET")

	return r
}

func restoreDbBackupIfEnabled(dbPath string) {
	if !backupEnabled() || utils.FileExist(dbPath) {
		return
	}

	gStorage, err := gstorage.NewGStorage(config.Google.ApplicationCredentials)
	if err != nil {
		logg.Warnf("unable to create storage client for db restore: %v", err)
		return
	}

	objectName := gstorage.ObjectName(config.Google.Storage.Prefix, DB_FILE_NAME)
	err = gStorage.DownloadFile(config.Google.Storage.Bucket, objectName, dbPath)
	if err == gstorage.ErrObjectNotExist {
		logg.Infof("no db backup found at %v, starting fresh", objectName)
		return
	}
	if err != nil {
		logg.Warnf("unable to restore db backup: %v", err)
		return
	}

	logg.Infof("restored db backup from %v", objectName)
}

func backupEnabled() bool {
	return config != nil && config.Google.Storage.EnableSqliteBackupAndSync == true
}
