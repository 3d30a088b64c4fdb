package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"github.com/suraksha-app/suraksha/server/accounts"
	"github.com/suraksha-app/suraksha/server/auth"
	"github.com/suraksha-app/suraksha/server/auth/key"
	"github.com/suraksha-app/suraksha/server/models"
	"github.com/suraksha-app/suraksha/server/sos"
	"github.com/suraksha-app/suraksha/server/work"
)

const TOKEN_TTL = 24 * time.Hour

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type logInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type contactsRequest struct {
	UserID   string           `json:"userId"`
	Contacts []models.Contact `json:"contacts"`
}

type coordinatesRequest struct {
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type userResponse struct {
	Ok    bool                     `json:"ok"`
	User  *accounts.UserProjection `json:"user"`
	Token string                   `json:"token,omitempty"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type contactsResponse struct {
	Ok       bool             `json:"ok"`
	Contacts []models.Contact `json:"contacts"`
}

type alertsResponse struct {
	Ok     bool           `json:"ok"`
	Alerts []models.Alert `json:"alerts"`
}

type sosResponse struct {
	Ok      bool   `json:"ok"`
	AlertID string `json:"alertId"`
}

type linksResponse struct {
	Ok    bool               `json:"ok"`
	Links []sos.WhatsAppLink `json:"links"`
}

func health(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, okResponse{Ok: true}, http.StatusOK)
}

func jwks(rw http.ResponseWriter, r *http.Request) {
	keyPairJWK, err := authKeyPair.JWK()
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}

	writeResponse(rw, key.ExportJWKAsJWKS(keyPairJWK), http.StatusOK)
}

func signUp(rw http.ResponseWriter, r *http.Request) {
	data := signUpRequest{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	errs := validate.Struct(models.User{
		Name:        data.Name,
		Email:       data.Email,
		Password:    data.Password,
		PhoneNumber: data.Phone,
	})
	if errs != nil {
		writeError(rw, http.StatusBadRequest, strings.Split(errs.Error(), "\n")...)
		return
	}

	user, err := accounts.Register(data.Name, data.Email, data.Password, data.Phone)
	if err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	writeResponse(rw, userResponse{Ok: true, User: user}, http.StatusOK)
}

func logIn(rw http.ResponseWriter, r *http.Request) {
	data := logInRequest{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	user, err := accounts.Authenticate(data.Email, data.Password)
	if err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	token, err := auth.EncodeJWT(auth.TokenClaims{
		Name:  user.Name,
		Email: user.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			Issuer:    "suraksha",
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(TOKEN_TTL).Unix(),
		},
	}, authKeyPair)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}

	writeResponse(rw, userResponse{Ok: true, User: user, Token: token}, http.StatusOK)
}

func saveContacts(rw http.ResponseWriter, r *http.Request) {
	data := contactsRequest{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	for _, contact := range data.Contacts {
		if errs := validate.Struct(contact); errs != nil {
			writeError(rw, http.StatusBadRequest, strings.Split(errs.Error(), "\n")...)
			return
		}
	}

	if err := accounts.ReplaceContacts(data.UserID, data.Contacts); err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	writeResponse(rw, okResponse{Ok: true}, http.StatusOK)
}

func listContacts(rw http.ResponseWriter, r *http.Request) {
	contacts, err := accounts.ListContacts(mux.Vars(r)["userId"])
	if err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	writeResponse(rw, contactsResponse{Ok: true, Contacts: contacts}, http.StatusOK)
}

func raiseSos(rw http.ResponseWriter, r *http.Request) {
	data := coordinatesRequest{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	result, err := dispatcher.RaiseSOS(data.UserID, data.Latitude, data.Longitude)
	if err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	// Delivery failures get one delayed retry, alert history stays as recorded
	if !result.Delivered && config.Suraksha.Sos.FollowUpDelaySeconds > 0 {
		err := workerPool.PerformIn(config.Suraksha.Sos.FollowUpDelaySeconds, work.JobParams{
			Name:    "sosFollowUp/" + result.AlertID,
			Handler: "sosFollowUp",
			Unique:  true,
			Args:    map[string]interface{}{"alert_id": result.AlertID},
		})
		if err != nil {
			logg.Error(err)
		}
	}

	writeResponse(rw, sosResponse{Ok: result.Delivered, AlertID: result.AlertID}, http.StatusOK)
}

func whatsAppLinks(rw http.ResponseWriter, r *http.Request) {
	lat, lon, err := coordinatesFromQuery(r)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	links, err := dispatcher.WhatsAppLinks(mux.Vars(r)["userId"], lat, lon)
	if err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	writeResponse(rw, linksResponse{Ok: true, Links: links}, http.StatusOK)
}

func updateLocation(rw http.ResponseWriter, r *http.Request) {
	data := coordinatesRequest{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	// Location pings are fire-and-forget: incomplete ones are dropped, the
	// client never fails on a tracking write
	if data.UserID == "" || data.Latitude == nil || data.Longitude == nil {
		writeResponse(rw, okResponse{Ok: true}, http.StatusOK)
		return
	}

	if err := accounts.UpdateLastLocation(data.UserID, *data.Latitude, *data.Longitude); err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	writeResponse(rw, okResponse{Ok: true}, http.StatusOK)
}

func listAlerts(rw http.ResponseWriter, r *http.Request) {
	alerts, err := models.AlertsFor(mux.Vars(r)["userId"])
	if err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	writeResponse(rw, alertsResponse{Ok: true, Alerts: alerts}, http.StatusOK)
}

func currentUser(rw http.ResponseWriter, r *http.Request) {
	decodedJWT := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)

	user, err := accounts.FindUser(decodedJWT.Claims.Subject)
	if err != nil {
		writeError(rw, errorStatus(err), err.Error())
		return
	}

	writeResponse(rw, userResponse{Ok: true, User: user}, http.StatusOK)
}
