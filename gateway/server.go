package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prizepool/core/types"
	"prizepool/gateway/middleware"
	"prizepool/native/common"
	"prizepool/native/lottery"
	"prizepool/native/staking"
	"prizepool/native/token"
)

// ErrUnknownToken rejects operations naming a token symbol the daemon does
// not manage.
var ErrUnknownToken = errors.New("gateway: unknown token symbol")

// Server exposes the engines over HTTP: public staking and lottery routes, a
// JWT-gated admin surface, a websocket event feed, and Prometheus metrics.
type Server struct {
	service *Service
	hub     *Hub
	logger  *slog.Logger
	auth    *middleware.Authenticator
	limiter *middleware.RateLimiter
	// adminCaller is the engine-level authority the admin routes act as once
	// the bearer token has been verified.
	adminCaller [20]byte
}

// NewServer assembles the gateway.
func NewServer(service *Service, hub *Hub, logger *slog.Logger, auth *middleware.Authenticator, limiter *middleware.RateLimiter, adminCaller [20]byte) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:     service,
		hub:         hub,
		logger:      logger,
		auth:        auth,
		limiter:     limiter,
		adminCaller: adminCaller,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/staking/stake", s.handleStake)
		r.Post("/staking/unstake", s.handleUnstake)
		r.Post("/staking/claim", s.handleClaim)
		r.Get("/staking/earned/{address}", s.handleEarned)
		r.Get("/staking/balance/{address}", s.handleStakedBalance)
		r.Get("/staking/global", s.handleStakingGlobal)

		r.Post("/lottery/enter", s.handleEnter)
		r.Get("/lottery/round", s.handleRound)
		r.Get("/lottery/result/{round}", s.handleResult)

		r.Post("/token/approve", s.handleApprove)
		r.Get("/token/{symbol}/balance/{address}", s.handleTokenBalance)

		r.Group(func(r chi.Router) {
			if s.auth != nil {
				r.Use(s.auth.Middleware)
			}
			r.Post("/admin/round", s.handleStartRound)
			r.Post("/admin/draw", s.handleRequestDraw)
			r.Post("/admin/reward-rate", s.handleSetRewardRate)
		})
	})

	if s.hub != nil {
		r.Get("/ws/events", s.hub.Handler())
	}
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type accountAmountRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type accountRequest struct {
	Address string `json:"address"`
}

type startRoundRequest struct {
	DurationSeconds int64  `json:"durationSeconds"`
	Prize           string `json:"prize"`
}

type rewardRateRequest struct {
	RatePerSecond string `json:"ratePerSecond"`
}

type approveRequest struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func parseAddressParam(w http.ResponseWriter, raw string) ([20]byte, bool) {
	addr, err := types.ParseAddress(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return addr, false
	}
	return addr, true
}

func parseAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return nil, false
	}
	return amount, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

// statusFor maps engine sentinels onto the HTTP taxonomy: invalid input 400,
// unauthorized 403, lifecycle conflicts 409, resource shortfalls 422.
func statusFor(err error) int {
	switch {
	case errors.Is(err, staking.ErrInvalidAmount),
		errors.Is(err, staking.ErrZeroAddress),
		errors.Is(err, lottery.ErrInvalidAmount),
		errors.Is(err, lottery.ErrZeroAddress),
		errors.Is(err, lottery.ErrInvalidDuration),
		errors.Is(err, token.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, staking.ErrUnauthorized),
		errors.Is(err, lottery.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, lottery.ErrRoundActive),
		errors.Is(err, lottery.ErrNoActiveRound),
		errors.Is(err, lottery.ErrRoundOpen),
		errors.Is(err, lottery.ErrNoEntries),
		errors.Is(err, lottery.ErrStaleRequest),
		errors.Is(err, lottery.ErrUnknownRequest),
		errors.Is(err, lottery.ErrAlreadyResolved),
		errors.Is(err, common.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, staking.ErrInsufficientStake),
		errors.Is(err, lottery.ErrPrizeNotEscrowed),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnknownToken):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req accountAmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, ok := parseAddressParam(w, req.Address)
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if err := s.service.Stake(addr, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "staked"})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var req accountAmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, ok := parseAddressParam(w, req.Address)
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if err := s.service.Unstake(addr, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unstaked"})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, ok := parseAddressParam(w, req.Address)
	if !ok {
		return
	}
	if err := s.service.Claim(addr); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
}

func (s *Server) handleEarned(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddressParam(w, chi.URLParam(r, "address"))
	if !ok {
		return
	}
	earned, err := s.service.Earned(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"earned": earned.String()})
}

func (s *Server) handleStakedBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddressParam(w, chi.URLParam(r, "address"))
	if !ok {
		return
	}
	staked, err := s.service.StakedBalance(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"staked": staked.String()})
}

func (s *Server) handleStakingGlobal(w http.ResponseWriter, r *http.Request) {
	g, err := s.service.StakingGlobal()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"totalStaked": g.TotalStaked.String(),
		"rewardRate":  g.RewardRate.String(),
		"accumulator": g.Accumulator.String(),
		"lastUpdate":  strconv.FormatInt(g.LastUpdate, 10),
	})
}

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req accountAmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, ok := parseAddressParam(w, req.Address)
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if err := s.service.Enter(addr, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "entered"})
}

type roundResponse struct {
	ID           uint64 `json:"id"`
	StartTime    int64  `json:"startTime"`
	EndTime      int64  `json:"endTime"`
	Prize        string `json:"prize"`
	Active       bool   `json:"active"`
	TotalEntered string `json:"totalEntered"`
	Participants int    `json:"participants"`
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.service.CurrentRound()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if round == nil {
		http.Error(w, "no round started", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, roundResponse{
		ID:           round.ID,
		StartTime:    round.StartTime,
		EndTime:      round.EndTime(),
		Prize:        round.Prize.String(),
		Active:       round.Active,
		TotalEntered: round.TotalEntered.String(),
		Participants: len(round.Entries),
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	roundID, err := strconv.ParseUint(chi.URLParam(r, "round"), 10, 64)
	if err != nil {
		http.Error(w, "invalid round id", http.StatusBadRequest)
		return
	}
	result, ok, err := s.service.ResultFor(roundID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "no result for round", http.StatusNotFound)
		return
	}
	winner := ""
	if result.Winner != nil {
		winner = types.FormatAddress(*result.Winner)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"round":       strconv.FormatUint(result.Round, 10),
		"winner":      winner,
		"prizePaid":   result.PrizePaid.String(),
		"randomValue": result.RandomValue.String(),
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, ok := parseAddressParam(w, req.Address)
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if err := s.service.Approve(req.Symbol, addr, amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddressParam(w, chi.URLParam(r, "address"))
	if !ok {
		return
	}
	balance, err := s.service.TokenBalance(chi.URLParam(r, "symbol"), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	var req startRoundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	prize, ok := parseAmount(w, req.Prize)
	if !ok {
		return
	}
	id, err := s.service.StartRound(s.adminCaller, req.DurationSeconds, prize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"round": id})
}

func (s *Server) handleRequestDraw(w http.ResponseWriter, r *http.Request) {
	requestID, err := s.service.RequestDraw(s.adminCaller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"requestId": requestID.String()})
}

func (s *Server) handleSetRewardRate(w http.ResponseWriter, r *http.Request) {
	var req rewardRateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	newRate, ok := parseAmount(w, req.RatePerSecond)
	if !ok {
		return
	}
	if err := s.service.SetRewardRate(s.adminCaller, newRate); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
