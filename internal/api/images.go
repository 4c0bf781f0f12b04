package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DMarby/stockphotos/internal/handler"
	"github.com/DMarby/stockphotos/internal/imagelookup"
	"github.com/gorilla/mux"
)

// ResolvedCategory is the provider category id a category label resolves to
type ResolvedCategory struct {
	Category string `json:"category"`
	ID       string `json:"id"`
}

// Returns the images for a category, always responding with a list even when the lookup failed
func (a *API) imagesHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	category := mux.Vars(r)["category"]
	images := a.Lookup.Images(r.Context(), category)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := json.NewEncoder(w).Encode(images); err != nil {
		a.logError(r, "error encoding images", err)
		return handler.InternalServerError()
	}

	return nil
}

// Returns every provider category, keyed by id
func (a *API) categoriesHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	categories, err := a.Lookup.ProviderCategories(r.Context())
	if err != nil {
		a.logError(r, "error getting provider categories", err)
		return handler.BadGateway()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if err := json.NewEncoder(w).Encode(categories); err != nil {
		a.logError(r, "error encoding categories", err)
		return handler.InternalServerError()
	}

	return nil
}

// Returns the provider category id for a category
func (a *API) categoryHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	category := mux.Vars(r)["category"]

	id, err := a.Lookup.Resolve(r.Context(), category)
	if err != nil {
		if errors.Is(err, imagelookup.ErrCategoryNotFound) {
			return handler.NotFound("category not found")
		}

		a.logError(r, "error resolving category", err)
		return handler.BadGateway()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := json.NewEncoder(w).Encode(ResolvedCategory{Category: category, ID: id}); err != nil {
		a.logError(r, "error encoding category", err)
		return handler.InternalServerError()
	}

	return nil
}
