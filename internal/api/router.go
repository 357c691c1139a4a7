package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akulagin/mlservice/internal/api/httpx"
	"github.com/akulagin/mlservice/internal/api/validate"
	"github.com/akulagin/mlservice/internal/config"
	"github.com/akulagin/mlservice/internal/middleware"
	"github.com/akulagin/mlservice/internal/models"
	"github.com/akulagin/mlservice/internal/predictor"
	"github.com/akulagin/mlservice/internal/services"
	"github.com/akulagin/mlservice/internal/storage"
)

// publicUser is the user record exposed over the API.
type publicUser struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

func toPublic(u models.User) publicUser {
	return publicUser{ID: u.ID, Username: u.Username, Balance: u.Balance}
}

func NewRouter(cfg config.Config, us *services.UserService, ps *services.PredictionService, files *storage.FileStore, frontend http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	authmw := middleware.NewAuthMiddleware(us)

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	// ---------- auth ----------
	r.Post("/users/register", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Username, Password string }
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
			return
		}
		var errs validate.Errs
		if e := validate.Required("username", req.Username); e != nil { errs = append(errs, *e) }
		if e := validate.Required("password", req.Password); e != nil { errs = append(errs, *e) }
		if len(errs) > 0 {
			httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", errs.Error(), errs)
			return
		}
		u, err := us.Register(req.Username, req.Password)
		if err != nil { httpx.WriteAppError(w, err); return }
		httpx.WriteJSON(w, http.StatusCreated, toPublic(u))
	})

	// OAuth2-style password grant: form-encoded username/password
	r.Post("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad form", nil)
			return
		}
		token, _, u, err := us.Login(r.PostFormValue("username"), r.PostFormValue("password"))
		if err != nil { httpx.WriteAppError(w, err); return }
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"user_id":      u.ID,
		})
	})

	// ---------- users ----------
	r.Group(func(r chi.Router) {
		r.Use(authmw.Auth)

		r.Get("/users/me/", func(w http.ResponseWriter, r *http.Request) {
			u, _ := middleware.CurrentUser(r.Context())
			httpx.WriteJSON(w, http.StatusOK, toPublic(u))
		})

		r.Put("/users/update_balance", func(w http.ResponseWriter, r *http.Request) {
			u, _ := middleware.CurrentUser(r.Context())
			amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
			if err != nil {
				httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", "amount must be a number", nil)
				return
			}
			fresh, err := us.TopUp(u.ID, amount)
			if err != nil { httpx.WriteAppError(w, err); return }
			httpx.WriteJSON(w, http.StatusOK, toPublic(fresh))
		})

		// ---------- predictions ----------
		r.Post("/predict/", func(w http.ResponseWriter, r *http.Request) {
			u, _ := middleware.CurrentUser(r.Context())
			fileID := r.URL.Query().Get("file_id")
			modelName := r.URL.Query().Get("model_name")
			if fileID == "" || modelName == "" {
				httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", "file_id and model_name required", nil)
				return
			}
			jobID, err := ps.Submit(r.Context(), u, fileID, modelName)
			if err != nil { httpx.WriteAppError(w, err); return }
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"job_id": jobID})
		})
	})

	r.Get("/users/{id}/predictions", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", "bad user id", nil)
			return
		}
		preds, err := ps.ListByUser(id)
		if err != nil { httpx.WriteAppError(w, err); return }
		if preds == nil { preds = []models.Prediction{} }
		httpx.WriteJSON(w, http.StatusOK, preds)
	})

	// ---------- file intake ----------
	r.Post("/upload_file/", func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("file")
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "multipart field 'file' required", nil)
			return
		}
		defer f.Close()
		id, err := files.Save(f)
		if err != nil { httpx.WriteAppError(w, err); return }
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"file_id": id})
	})

	// ---------- job state ----------
	r.Get("/get_prediction_status/{job_id}", func(w http.ResponseWriter, r *http.Request) {
		st, err := ps.Status(r.Context(), chi.URLParam(r, "job_id"))
		if err != nil { httpx.WriteAppError(w, err); return }
		httpx.WriteJSON(w, http.StatusOK, st)
	})

	r.Get("/predictions/{job_id}", func(w http.ResponseWriter, r *http.Request) {
		p, ready, err := ps.Result(r.Context(), chi.URLParam(r, "job_id"))
		if err != nil { httpx.WriteAppError(w, err); return }
		if !ready {
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "processing"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, p)
	})

	// price table for the predict page
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, predictor.Prices())
	})

	// browser front end
	if frontend != nil {
		r.Handle("/*", frontend)
	}

	return r
}
