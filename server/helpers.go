package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/suraksha-app/suraksha/server/apperrors"
	"github.com/suraksha-app/suraksha/server/auth"
	"github.com/suraksha-app/suraksha/server/models"
	"github.com/suraksha-app/suraksha/server/work"
	"github.com/suraksha-app/suraksha/utils"
	"gorm.io/gorm"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

type errorResponse struct {
	Ok     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

func writeResponse(rw http.ResponseWriter, payload interface{}, statusCode int) {
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payload)
}

func writeError(rw http.ResponseWriter, statusCode int, errs ...string) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(errs)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(errs)
	}

	writeResponse(rw, errorResponse{Errors: errs}, statusCode)
}

// errorStatus maps domain errors to http status codes. Validation, conflict
// & credential errors all come back as 400s; anything unanticipated is a 500.
func errorStatus(err error) int {
	switch {
	case apperrors.IsValidationError(err),
		errors.Is(err, apperrors.ErrDuplicateEmail),
		errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func coordinatesFromQuery(r *http.Request) (lat, lon *float64, err error) {
	latArg := r.URL.Query().Get("latitude")
	lonArg := r.URL.Query().Get("longitude")
	if latArg == "" || lonArg == "" {
		return nil, nil, fmt.Errorf("latitude & longitude query params are required")
	}

	latValue, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid latitude: %v", latArg)
	}

	lonValue, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid longitude: %v", lonArg)
	}

	return &latValue, &lonValue, nil
}

func RegisterValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) > 0
	})
	if err != nil {
		return err
	}

	return validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return isValidPhoneNumber(fl.Field().String())
	})
}

// isValidPhoneNumber accepts free-form numbers: digits with optional '+'
// prefix & common separators.
func isValidPhoneNumber(phone string) bool {
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}

	return digits >= 7 && digits <= 15
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(authHeaderList[1], authKeyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	// validate that the user account still exists
	_, err = models.FindUserBy("id", tokenClaims.Subject)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Suraksha server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, backupDb bool) {
	// Stop pending follow-ups & regular server jobs
	workerPool.Stop()

	if backupDb {
		if err := backupSqliteDb(nil); err != nil {
			logg.Error(err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Suraksha server shutdown failed:%+s", err)
	}

	logg.Infof("Suraksha server stopped properly")
}

// configDirectory retrieves the directory to store the db & configs,
// or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'suraksha' folder in home directory for prod
	configFolderName := "suraksha"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
