package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apphttp "cashflow/internal/http"
	"cashflow/internal/models"
	"cashflow/internal/services/aggregator"
	"cashflow/internal/services/ledger"
	"cashflow/internal/services/preferences"
	"cashflow/internal/services/storage"
	"cashflow/internal/version"
)

var (
	backend storage.Backend
	kind    string
	book    *ledger.Ledger
	prefs   *preferences.Store
	clock   aggregator.Clock
)

// Initialize sets up the backup package with required dependencies
func Initialize(b storage.Backend, backendKind string, l *ledger.Ledger, p *preferences.Store, c aggregator.Clock) {
	backend = b
	kind = backendKind
	book = l
	prefs = p
	clock = c
}

// RegisterRoutes registers health, export/restore and storage routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/health", HandleHealth)
	r.Get("/api/export", HandleExport)
	r.Post("/api/restore", HandleRestore)
	r.Delete("/api/data", HandleDeleteAllData)

	r.Get("/api/storage/status", HandleStorageStatus)
	r.Post("/api/storage/unlock", HandleUnlock)
	r.Post("/api/storage/lock", HandleLock)
	r.Post("/api/storage/encrypt", HandleEncrypt)
	r.Post("/api/storage/decrypt", HandleDecrypt)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": info.Version,
		"commit":  info.ShortRevision(),
	})
}

// HandleExport downloads every transaction as indented JSON
func HandleExport(w http.ResponseWriter, r *http.Request) {
	items, _ := book.Snapshot()
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	filename := fmt.Sprintf("finance-data-%s.json", clock.Now().Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(data)
}

// HandleRestore replaces every transaction with the contents of an export
// file, sent either as the request body or as the multipart field "file"
func HandleRestore(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = apphttp.LimitBody(w, r)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			apphttp.ErrorResponse(w, r, &models.ValidationError{Field: "file", Reason: "error reading file"})
			return
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
			apphttp.ErrorResponse(w, r, &models.ValidationError{Field: "file", Value: header.Filename, Reason: "only JSON export files are allowed"})
			return
		}
		src = file
	}

	var items []models.Transaction
	if err := json.NewDecoder(src).Decode(&items); err != nil {
		apphttp.ErrorResponse(w, r, &models.ValidationError{Field: "file", Reason: "invalid export file: " + err.Error()})
		return
	}
	if items == nil {
		items = []models.Transaction{}
	}

	if err := book.Replace(items); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	slog.Info("Restore complete", "transactions", len(items))
	apphttp.WriteJSON(w, http.StatusOK, map[string]int{"restored": len(items)})
}

func HandleDeleteAllData(w http.ResponseWriter, r *http.Request) {
	items, _ := book.Snapshot()
	if err := book.Replace(nil); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	slog.Info("Deleted all transactions", "count", len(items))
	apphttp.WriteJSON(w, http.StatusOK, map[string]int{"deleted": len(items)})
}

type storageStatus struct {
	Backend     string `json:"backend"`
	Encryptable bool   `json:"encryptable"`
	Encrypted   bool   `json:"encrypted"`
	Unlocked    bool   `json:"unlocked"`
}

type passwordBody struct {
	Password string `json:"password"`
}

func HandleStorageStatus(w http.ResponseWriter, r *http.Request) {
	status := storageStatus{Backend: kind, Unlocked: true}
	if enc, ok := backend.(storage.Encryptable); ok {
		status.Encryptable = true
		status.Encrypted = enc.IsEncrypted()
		status.Unlocked = enc.IsUnlocked()
	}
	apphttp.WriteJSON(w, http.StatusOK, status)
}

// HandleUnlock opens encrypted storage and reloads everything read from it
func HandleUnlock(w http.ResponseWriter, r *http.Request) {
	withPassword(w, r, func(enc storage.Encryptable, password string) error {
		if err := enc.Unlock(password); err != nil {
			return err
		}
		if err := book.Reload(); err != nil {
			return err
		}
		return prefs.Reload()
	})
}

func HandleLock(w http.ResponseWriter, r *http.Request) {
	enc, ok := encryptable(w, r)
	if !ok {
		return
	}
	enc.Lock()
	slog.Info("Storage locked")
	HandleStorageStatus(w, r)
}

func HandleEncrypt(w http.ResponseWriter, r *http.Request) {
	withPassword(w, r, func(enc storage.Encryptable, password string) error {
		return enc.EnableEncryption(password)
	})
}

func HandleDecrypt(w http.ResponseWriter, r *http.Request) {
	withPassword(w, r, func(enc storage.Encryptable, password string) error {
		return enc.DisableEncryption(password)
	})
}

// withPassword decodes the password body, runs fn against the encryptable
// backend and answers with the resulting status
func withPassword(w http.ResponseWriter, r *http.Request, fn func(storage.Encryptable, string) error) {
	enc, ok := encryptable(w, r)
	if !ok {
		return
	}

	var body passwordBody
	if err := apphttp.DecodeJSON(r, &body); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	if err := fn(enc, body.Password); err != nil {
		switch {
		case errors.Is(err, storage.ErrIncorrectPassword):
			apphttp.WriteJSON(w, http.StatusUnauthorized, apphttp.ErrorBody{Error: err.Error(), Field: "password"})
		case errors.Is(err, storage.ErrEncryptionState):
			apphttp.ErrorResponse(w, r, fmt.Errorf("%w: %v", apphttp.ErrConflict, err))
		default:
			apphttp.ErrorResponse(w, r, err)
		}
		return
	}
	HandleStorageStatus(w, r)
}

func encryptable(w http.ResponseWriter, r *http.Request) (storage.Encryptable, bool) {
	enc, ok := backend.(storage.Encryptable)
	if !ok {
		apphttp.ErrorResponse(w, r, fmt.Errorf("%w: %s storage does not support encryption", apphttp.ErrConflict, kind))
		return nil, false
	}
	return enc, true
}
