package transactions

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apphttp "cashflow/internal/http"
	"cashflow/internal/models"
	"cashflow/internal/services/dataloader"
	"cashflow/internal/services/ledger"
)

var (
	book   *ledger.Ledger
	loader *dataloader.DataLoader
)

// Initialize sets up the transactions package with required dependencies
func Initialize(l *ledger.Ledger, dl *dataloader.DataLoader) {
	book = l
	loader = dl
}

// RegisterRoutes registers all transaction routes
func RegisterRoutes(r chi.Router) {
	r.Route("/api/transactions", func(r chi.Router) {
		r.Get("/", handleList)
		r.Post("/", handleCreate)
		r.Post("/import", handleImport)
		r.Get("/{id}", handleGet)
		r.Put("/{id}", handleUpdate)
		r.Delete("/{id}", handleDelete)
	})
	r.Get("/api/categories", handleCategories)
}

// importResponse summarises a CSV import
type importResponse struct {
	Imported          int                     `json:"imported"`
	Skipped           []dataloader.SkippedRow `json:"skipped"`
	FilteredTransfers int                     `json:"filteredTransfers"`
	Duplicates        int                     `json:"duplicates"`
	Transactions      []models.Transaction    `json:"transactions"`
}

func handleList(w http.ResponseWriter, r *http.Request) {
	items := book.List(r.URL.Query().Get("search"))
	if items == nil {
		items = []models.Transaction{}
	}
	apphttp.WriteJSON(w, http.StatusOK, items)
}

func handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := book.Get(chi.URLParam(r, "id"))
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, t)
}

func handleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.TransactionInput
	if err := apphttp.DecodeJSON(r, &in); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	t, err := book.Create(in)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+t.ID)
	apphttp.WriteJSON(w, http.StatusCreated, t)
}

func handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in models.TransactionInput
	if err := apphttp.DecodeJSON(r, &in); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	t, err := book.Update(chi.URLParam(r, "id"), in)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, t)
}

func handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := book.Delete(chi.URLParam(r, "id")); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleImport(w http.ResponseWriter, r *http.Request) {
	existing, _ := book.Snapshot()

	res, err := loader.Load(apphttp.LimitBody(w, r), existing)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = &models.ValidationError{Field: "file", Reason: "file too large"}
		}
		apphttp.ErrorResponse(w, r, err)
		return
	}

	added := []models.Transaction{}
	if len(res.Transactions) > 0 {
		added, err = book.Append(res.Transactions)
		if err != nil {
			apphttp.ErrorResponse(w, r, err)
			return
		}
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []dataloader.SkippedRow{}
	}
	apphttp.WriteJSON(w, http.StatusOK, importResponse{
		Imported:          len(added),
		Skipped:           skipped,
		FilteredTransfers: res.FilteredTransfers,
		Duplicates:        res.Duplicates,
		Transactions:      added,
	})
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, models.Categories())
}
