package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
	redisinfra "telegram-vpn-shop/internal/infra/redis"
)

// maskedSettings are never echoed back to the panel; only whether they are
// set.
var maskedSettings = map[string]struct{}{
	"panel_password":      {},
	"yookassa_secret_key": {},
	"cryptobot_token":     {},
	"heleket_api_key":     {},
	"tonapi_key":          {},
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ok, err := s.limiter.Allow(ctx, redisinfra.LoginAttemptKey(r.RemoteAddr), loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		s.log.Error().Err(err).Msg("login rate limiter unavailable")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Too many attempts", http.StatusTooManyRequests)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	stored, err := s.settings.Get(ctx, "panel_password")
	if err != nil {
		s.log.Error().Err(err).Msg("panel password lookup failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(req.Password)) != 1 {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("failed admin login")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	token, err := s.auth.Issue(w)
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	users, transactions, hosts, revenue, err := s.statsUC.Totals(r.Context())
	if err != nil {
		http.Error(w, "Failed to get totals", http.StatusInternalServerError)
		return
	}

	response := struct {
		TotalUsers        int     `json:"total_users"`
		TotalTransactions int     `json:"total_transactions"`
		TotalHosts        int     `json:"total_hosts"`
		TotalRevenue      float64 `json:"total_revenue"`
	}{users, transactions, hosts, revenue}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 15
	}

	rows, total, err := s.payUC.Page(r.Context(), page, perPage)
	if err != nil {
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	response := struct {
		Data    []*model.Transaction `json:"data"`
		Total   int                  `json:"total"`
		Page    int                  `json:"page"`
		PerPage int                  `json:"per_page"`
	}{rows, total, page, perPage}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleUsersList(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListAll(r.Context(), repository.NoTX)
	if err != nil {
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	response := struct {
		Data  []*model.User `json:"data"`
		Total int           `json:"total"`
	}{users, len(users)}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleUserBan(banned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "User ID must be numeric", http.StatusBadRequest)
			return
		}

		if err := s.users.SetBanned(r.Context(), repository.NoTX, id, banned); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to update user", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"telegram_id": id, "banned": banned})
	}
}

func (s *Server) handleHostsList(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.hosts.ListAll(r.Context(), repository.NoTX)
	if err != nil {
		http.Error(w, "Failed to list hosts", http.StatusInternalServerError)
		return
	}
	// Panel credentials stay server-side.
	for _, h := range hosts {
		h.Password = ""
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Host `json:"data"`
	}{hosts})
}

func (s *Server) handleHostUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		URL       string `json:"url"`
		Username  string `json:"username"`
		Password  string `json:"password"`
		InboundID int    `json:"inbound_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.URL == "" {
		http.Error(w, "Host name and url are required", http.StatusBadRequest)
		return
	}

	h := &model.Host{
		Name:      req.Name,
		URL:       req.URL,
		Username:  req.Username,
		Password:  req.Password,
		InboundID: req.InboundID,
	}
	if err := s.hosts.Save(r.Context(), repository.NoTX, h); err != nil {
		http.Error(w, "Failed to save host", http.StatusInternalServerError)
		return
	}
	h.Password = ""
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleHostDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.hosts.Delete(r.Context(), repository.NoTX, name); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to delete host", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlansList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListForHost(r.Context(), repository.NoTX, r.URL.Query().Get("host"))
	if err != nil {
		http.Error(w, "Failed to list plans", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Plan `json:"data"`
	}{plans})
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostName string  `json:"host_name"`
		Name     string  `json:"name"`
		Months   int     `json:"months"`
		Price    float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.HostName == "" || req.Name == "" || req.Months <= 0 || req.Price < 0 {
		http.Error(w, "Invalid plan", http.StatusBadRequest)
		return
	}

	p := &model.Plan{HostName: req.HostName, Name: req.Name, Months: req.Months, Price: req.Price}
	id, err := s.plans.Create(r.Context(), repository.NoTX, p)
	if err != nil {
		http.Error(w, "Failed to create plan", http.StatusInternalServerError)
		return
	}
	p.ID = id
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePlanDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Plan ID must be numeric", http.StatusBadRequest)
		return
	}
	if err := s.plans.Delete(r.Context(), repository.NoTX, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to delete plan", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	all, err := s.settings.All(r.Context())
	if err != nil {
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	out := make(map[string]string, len(all))
	for k, v := range all {
		if _, masked := maskedSettings[k]; masked {
			if v != "" {
				out[k] = "********"
			} else {
				out[k] = ""
			}
			continue
		}
		out[k] = v
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	for k, v := range req {
		if err := s.settings.Set(r.Context(), k, v); err != nil {
			s.log.Error().Err(err).Str("key", k).Msg("setting update failed")
			http.Error(w, "Failed to update settings", http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
