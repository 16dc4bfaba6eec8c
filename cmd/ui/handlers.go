package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"hot-swap-bot-go/internal/models"

	"go.uber.org/zap"
)

// DashboardStore is the read-only data the dashboard needs.
type DashboardStore interface {
	List(ctx context.Context) ([]models.Wallet, error)
	Trades(ctx context.Context, walletID string, limit int) ([]models.Trade, error)
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log   *zap.Logger
	store DashboardStore
	now   func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store DashboardStore) *APIHandler {
	return &APIHandler{log: log, store: store, now: time.Now}
}

// Routes registers the dashboard endpoints.
func (h *APIHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/wallets", h.WalletsHandler)
	mux.HandleFunc("GET /api/trades", h.TradesHandler)
	mux.HandleFunc("GET /api/statistics", h.StatisticsHandler)
	return mux
}

// WalletSummary is a wallet as shown on the dashboard.
type WalletSummary struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Address        string        `json:"address"`
	TokenAddress   string        `json:"token_address"`
	Strategy       string        `json:"strategy"`
	Active         bool          `json:"active"`
	LastAction     models.Action `json:"last_action"`
	LastActionTime *time.Time    `json:"last_action_time,omitempty"`
	LastError      string        `json:"last_error,omitempty"`
}

// WalletsHandler returns every wallet without its key.
func (h *APIHandler) WalletsHandler(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error("Failed to get wallets from database", zap.Error(err))
		http.Error(w, "Failed to get wallets", http.StatusInternalServerError)
		return
	}

	out := make([]WalletSummary, len(wallets))
	for i, wl := range wallets {
		out[i] = WalletSummary{
			ID:             wl.ID,
			Name:           wl.Name,
			Address:        wl.Address,
			TokenAddress:   wl.TokenAddress,
			Strategy:       string(wl.Strategy),
			Active:         wl.Active,
			LastAction:     wl.LastAction,
			LastActionTime: wl.LastActionTime,
			LastError:      wl.LastError,
		}
	}
	writeJSON(w, out)
}

// TradesHandler returns historical trades, most recent first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trades, err := h.store.Trades(r.Context(), r.URL.Query().Get("wallet_id"), limit)
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	writeJSON(w, trades)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	SuccessfulTrades int64   `json:"successful_trades"`
	Buys             int64   `json:"buys"`
	Sells            int64   `json:"sells"`
	SuccessRate      float64 `json:"success_rate"`
	NativeSpent      float64 `json:"native_spent"`
}

func (s *StatsDetail) add(t models.Trade) {
	s.TotalTrades++
	if !t.Success {
		return
	}
	s.SuccessfulTrades++
	if t.Action == models.ActionBuy {
		s.Buys++
		s.NativeSpent += t.AmountIn
	} else {
		s.Sells++
	}
}

func (s *StatsDetail) finish() {
	if s.TotalTrades > 0 {
		s.SuccessRate = float64(s.SuccessfulTrades) / float64(s.TotalTrades)
	}
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler calculates and returns trading statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.Trades(r.Context(), r.URL.Query().Get("wallet_id"), 0)
	if err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	since24h := h.now().Add(-24 * time.Hour).UnixMilli()

	var resp StatisticsResponse
	for _, trade := range trades {
		resp.AllTime.add(trade)
		if trade.Timestamp > since24h {
			resp.Since24h.add(trade)
		}
	}
	resp.AllTime.finish()
	resp.Since24h.finish()

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
