package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apphttp "cashflow/internal/http"
	"cashflow/internal/services/preferences"
)

var prefs *preferences.Store

// Initialize sets up the settings package with required dependencies
func Initialize(p *preferences.Store) {
	prefs = p
}

// RegisterRoutes registers all settings routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/settings/theme", handleGetTheme)
	r.Put("/api/settings/theme", handleSetTheme)
	r.Post("/api/settings/theme/toggle", handleToggleTheme)
}

type themeBody struct {
	Theme preferences.Theme `json:"theme"`
}

func handleGetTheme(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, themeBody{Theme: prefs.Theme()})
}

func handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := apphttp.DecodeJSON(r, &body); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	if err := prefs.SetTheme(body.Theme); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, themeBody{Theme: prefs.Theme()})
}

func handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := prefs.Toggle()
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, themeBody{Theme: theme})
}
