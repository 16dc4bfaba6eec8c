package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hot-swap-bot-go/internal/chain"
	"hot-swap-bot-go/internal/logger"
	"hot-swap-bot-go/internal/models"
	"hot-swap-bot-go/internal/price"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIStore is the wallet store surface used by the control API.
type APIStore interface {
	WalletStore
	Create(ctx context.Context, wallet *models.Wallet) error
	Delete(ctx context.Context, id string) error
	Trades(ctx context.Context, walletID string, limit int) ([]models.Trade, error)
}

// NativePricer returns the native asset's USD price.
type NativePricer interface {
	Price(ctx context.Context) (price.Resolution, error)
}

// APIServer provides an HTTP interface for managing wallets and their schedules.
type APIServer struct {
	server    *http.Server
	store     APIStore
	scheduler *Scheduler
	engine    *Engine
	prices    PriceResolver
	native    NativePricer
	validate  *validator.Validate
	logger    *zap.Logger
	startTime time.Time
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(port int, store APIStore, scheduler *Scheduler, engine *Engine, prices PriceResolver, native NativePricer, logger *zap.Logger) *APIServer {
	s := &APIServer{
		store:     store,
		scheduler: scheduler,
		engine:    engine,
		prices:    prices,
		native:    native,
		validate:  validator.New(),
		logger:    logger.Named("api-server"),
		startTime: time.Now(),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /status", s.statusHandler)

	mux.HandleFunc("GET /api/wallets", s.listWallets)
	mux.HandleFunc("POST /api/wallets", s.createWallet)
	mux.HandleFunc("GET /api/wallets/{id}", s.getWallet)
	mux.HandleFunc("PATCH /api/wallets/{id}", s.updateWallet)
	mux.HandleFunc("DELETE /api/wallets/{id}", s.deleteWallet)
	mux.HandleFunc("POST /api/wallets/{id}/start", s.startWallet)
	mux.HandleFunc("POST /api/wallets/{id}/stop", s.stopWallet)
	mux.HandleFunc("POST /api/wallets/{id}/execute", s.executeWallet)
	mux.HandleFunc("GET /api/wallets/{id}/trading-data", s.tradingData)
	mux.HandleFunc("GET /api/wallets/{id}/trades", s.walletTrades)

	mux.HandleFunc("GET /api/prices/native", s.nativePrice)
	mux.HandleFunc("GET /api/prices/{token}", s.tokenPrice)
	return mux
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	active := 0
	for _, wl := range wallets {
		if wl.Active {
			active++
		}
	}

	scheduled := s.scheduler.Scheduled()
	intervals := make(map[string]int64, len(scheduled))
	for id, d := range scheduled {
		intervals[id] = d.Milliseconds()
	}

	s.writeJSON(w, http.StatusOK, struct {
		StartTime     string           `json:"start_time"`
		Uptime        string           `json:"uptime"`
		Wallets       int              `json:"wallets"`
		ActiveWallets int              `json:"active_wallets"`
		Scheduled     map[string]int64 `json:"scheduled"`
	}{
		StartTime:     s.startTime.Format(time.RFC3339),
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Wallets:       len(wallets),
		ActiveWallets: active,
		Scheduled:     intervals,
	})
}

// walletView is a wallet with its live schedule state.
type walletView struct {
	*models.Wallet
	Scheduled bool `json:"scheduled"`
	Busy      bool `json:"busy"`
}

func (s *APIServer) view(w *models.Wallet) walletView {
	return walletView{Wallet: w, Scheduled: s.scheduler.IsScheduled(w.ID), Busy: s.scheduler.IsBusy(w.ID)}
}

func (s *APIServer) listWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]walletView, len(wallets))
	for i := range wallets {
		views[i] = s.view(&wallets[i])
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *APIServer) getWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(wallet))
}

type createWalletRequest struct {
	Name              string          `json:"name" validate:"max=100"`
	PrivateKey        string          `json:"privateKey" validate:"required"`
	TokenAddress      string          `json:"tokenAddress" validate:"omitempty,eth_addr"`
	Strategy          models.Strategy `json:"strategy" validate:"omitempty,oneof=buy sell mixed"`
	Active            bool            `json:"active"`
	IntervalMs        int64           `json:"intervalMs" validate:"gte=0"`
	BuyAmount         float64         `json:"buyAmount" validate:"gte=0"`
	SellPercentage    float64         `json:"sellPercentage" validate:"gte=0,lte=100"`
	SlippageTolerance float64         `json:"slippageTolerance" validate:"gte=0,lt=100"`
}

func (s *APIServer) createWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if !s.decode(w, r, &req) {
		return
	}

	address, err := chain.AddressFromPrivateKey(req.PrivateKey)
	if err != nil {
		s.writeError(w, models.NewValidationError(err.Error()))
		return
	}

	wallet := &models.Wallet{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Address:           address,
		PrivateKey:        strings.TrimSpace(req.PrivateKey),
		TokenAddress:      req.TokenAddress,
		Strategy:          req.Strategy,
		Active:            req.Active,
		IntervalMs:        req.IntervalMs,
		BuyAmount:         req.BuyAmount,
		SellPercentage:    req.SellPercentage,
		SlippageTolerance: req.SlippageTolerance,
	}
	if wallet.Strategy == "" {
		wallet.Strategy = models.StrategyMixed
	}
	if wallet.IntervalMs == 0 {
		wallet.IntervalMs = models.DefaultIntervalMs
	}

	if err := s.store.Create(r.Context(), wallet); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Wallet created", zap.String(logger.KeyWallet, wallet.ID), zap.String("address", address))

	if err := s.scheduler.Reconcile(r.Context(), wallet.ID); err != nil {
		s.logger.Warn("Created wallet could not be scheduled", zap.String(logger.KeyWallet, wallet.ID), zap.Error(err))
	}
	s.writeJSON(w, http.StatusCreated, s.view(wallet))
}

type updateWalletRequest struct {
	Name              *string          `json:"name" validate:"omitempty,max=100"`
	TokenAddress      *string          `json:"tokenAddress" validate:"omitempty,eth_addr"`
	Strategy          *models.Strategy `json:"strategy" validate:"omitempty,oneof=buy sell mixed"`
	Active            *bool            `json:"active"`
	IntervalMs        *int64           `json:"intervalMs" validate:"omitempty,gte=0"`
	BuyAmount         *float64         `json:"buyAmount" validate:"omitempty,gte=0"`
	SellPercentage    *float64         `json:"sellPercentage" validate:"omitempty,gte=0,lte=100"`
	SlippageTolerance *float64         `json:"slippageTolerance" validate:"omitempty,gte=0,lt=100"`
}

func (req updateWalletRequest) patch() models.WalletPatch {
	return models.WalletPatch{
		Name:              req.Name,
		TokenAddress:      req.TokenAddress,
		Strategy:          req.Strategy,
		Active:            req.Active,
		IntervalMs:        req.IntervalMs,
		BuyAmount:         req.BuyAmount,
		SellPercentage:    req.SellPercentage,
		SlippageTolerance: req.SlippageTolerance,
	}
}

func (s *APIServer) updateWallet(w http.ResponseWriter, r *http.Request) {
	var req updateWalletRequest
	if !s.decode(w, r, &req) {
		return
	}
	patch := req.patch()
	if err := patch.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	s.applyPatch(w, r, r.PathValue("id"), patch)
}

func (s *APIServer) startWallet(w http.ResponseWriter, r *http.Request) {
	active := true
	s.applyPatch(w, r, r.PathValue("id"), models.WalletPatch{Active: &active})
}

func (s *APIServer) stopWallet(w http.ResponseWriter, r *http.Request) {
	active := false
	s.applyPatch(w, r, r.PathValue("id"), models.WalletPatch{Active: &active})
}

// applyPatch stores the patch and reconciles the wallet's schedule with the result.
func (s *APIServer) applyPatch(w http.ResponseWriter, r *http.Request, id string, patch models.WalletPatch) {
	wallet, err := s.store.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.scheduler.Reconcile(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(wallet))
}

func (s *APIServer) deleteWallet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.scheduler.Stop(id)
	s.logger.Info("Wallet deleted", zap.String(logger.KeyWallet, id))
	w.WriteHeader(http.StatusNoContent)
}

type executeResponse struct {
	Result
	Error     string           `json:"error,omitempty"`
	ErrorCode models.ErrorCode `json:"errorCode,omitempty"`
}

func (s *APIServer) executeWallet(w http.ResponseWriter, r *http.Request) {
	res, err := s.scheduler.Trigger(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if models.IsCode(res.Err, models.ErrorCodeNotFound) {
		s.writeError(w, res.Err)
		return
	}

	resp := executeResponse{Result: res}
	if res.Err != nil {
		resp.Error = res.Err.Error()
		resp.ErrorCode = models.CodeOf(res.Err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) tradingData(w http.ResponseWriter, r *http.Request) {
	data, err := s.engine.TradingData(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *APIServer) walletTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, models.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	trades, err := s.store.Trades(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *APIServer) tokenPrice(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if !chain.IsAddress(token) {
		s.writeError(w, models.NewValidationError(fmt.Sprintf("invalid token address %q", token)))
		return
	}
	res, err := s.prices.ResolvePrice(r.Context(), token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *APIServer) nativePrice(w http.ResponseWriter, r *http.Request) {
	res, err := s.native.Price(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *APIServer) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, models.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, models.NewValidationError(err.Error()))
		return false
	}
	return true
}

func statusFor(code models.ErrorCode) int {
	switch code {
	case models.ErrorCodeNotFound:
		return http.StatusNotFound
	case models.ErrorCodeValidation:
		return http.StatusBadRequest
	case models.ErrorCodeScheduling:
		return http.StatusConflict
	case models.ErrorCodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case models.ErrorCodePriceUnavailable:
		return http.StatusServiceUnavailable
	case models.ErrorCodeExchange:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	code := models.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}

	msg := err.Error()
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	s.writeJSON(w, status, map[string]string{"error": msg, "code": string(code)})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}
