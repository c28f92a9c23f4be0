package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
)

func listCategoriesHandler(repo catalog.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := repo.ListCategories(r.Context())
		if err != nil {
			handleCatalogError(w, r, log, err)
			return
		}

		resp := make([]CategoryResponse, 0, len(cats))
		for _, c := range cats {
			resp = append(resp, CategoryResponse{
				CategoryID:   c.ID,
				CategoryName: c.Name,
				Description:  c.Description,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addCategoryHandler(repo catalog.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateCategoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		c, err := repo.CreateCategory(r.Context(), req.CategoryName, req.Description)
		if err != nil {
			handleCatalogError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, CreatedResponse{
			Success: true,
			Message: "Category added successfully",
			ID:      c.ID,
		})
	}
}

func listDoctorsHandler(repo catalog.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("category_id")
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing_category_id", "category_id query parameter is required")
			return
		}
		categoryID, err := strconv.Atoi(raw)
		if err != nil || categoryID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_category_id", "category_id must be a positive integer")
			return
		}

		doctors, err := repo.ListDoctorsByCategory(r.Context(), categoryID)
		if err != nil {
			handleCatalogError(w, r, log, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{
				DoctorID:        d.ID,
				DoctorName:      d.Name,
				ExperienceYears: d.ExperienceYears,
				Qualifications:  d.Qualifications,
				Ratings:         d.Ratings,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addDoctorHandler(repo catalog.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		d, err := repo.CreateDoctor(r.Context(), catalog.Doctor{
			Name:            req.DoctorName,
			ExperienceYears: req.ExperienceYears,
			Qualifications:  req.Qualifications,
			Ratings:         req.Ratings,
			CategoryID:      req.CategoryID,
		})
		if err != nil {
			handleCatalogError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, CreatedResponse{
			Success: true,
			Message: "Doctor added successfully",
			ID:      d.ID,
		})
	}
}

func listSlotsHandler(repo catalog.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := repo.ListSlots(r.Context())
		if err != nil {
			handleCatalogError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func addSlotHandler(repo catalog.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		s, err := repo.CreateSlot(r.Context(), req.TimeSlot)
		if err != nil {
			handleCatalogError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, CreatedResponse{
			Success: true,
			Message: "Slot added successfully",
			ID:      s.ID,
		})
	}
}

func handleCatalogError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "missing_field", err.Error())
	case errors.Is(err, catalog.ErrCategoryNotFound):
		writeError(w, http.StatusBadRequest, "category_not_found", "Category not found")
	case errors.Is(err, catalog.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err.Error())
	default:
		log.Error("catalog request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
