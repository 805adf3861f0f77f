// handlers.go - HTTP surface of the auction service.
//
// Routes marshal JSON requests onto the core operations. Ciphertext handles
// travel as opaque strings, sealed bid fields as decimal scalars plus a
// compressed curve point in hex, proofs as base64.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/gorilla/mux"

	"github.com/0xjingxuanli/fhe-auction/internal/auction"
	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// Server wires the registry, the engine, and the ambient pieces behind the
// HTTP routes.
type Server struct {
	registry   *auction.Registry
	engine     *fhe.SimEngine
	logger     *Logger
	metrics    *MetricsCollector
	health     *HealthChecker
	bidLimiter *PrincipalRateLimiter
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auctions", s.handleCreateAuction).Methods("POST")
	api.HandleFunc("/auctions/{id}", s.handleAuctionInfo).Methods("GET")
	api.HandleFunc("/auctions/{id}/highest-bid", s.handleHighestBid).Methods("GET")
	api.HandleFunc("/auctions/{id}/highest-bidder", s.handleHighestBidder).Methods("GET")
	api.HandleFunc("/auctions/{id}/bids", s.handleBid).Methods("POST")
	api.HandleFunc("/auctions/{id}/ended", s.handleEnded).Methods("GET")
	api.HandleFunc("/decrypt", s.handleDecrypt).Methods("POST")
	api.HandleFunc("/engine/pubkey", s.handleEnginePubKey).Methods("GET")

	router.Use(s.loggingMiddleware)
	return router
}

type createAuctionRequest struct {
	Name       string `json:"name"`
	StartPrice uint64 `json:"start_price"`
}

type createAuctionResponse struct {
	ID uint64 `json:"id"`
}

type auctionInfoResponse struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type handleResponse struct {
	Handle string `json:"handle"`
}

// bidRequest carries a sealed bid: decimal commitment and masked value, the
// sealer's ephemeral point compressed in hex, and the Groth16 proof.
type bidRequest struct {
	Commitment string `json:"commitment"`
	Masked     string `json:"masked"`
	EphPub     string `json:"eph_pub"`
	Proof      []byte `json:"proof"`
}

type decryptRequest struct {
	Handle string `json:"handle"`
}

type decryptResponse struct {
	Handle string `json:"handle"`
	Value  string `json:"value"`
}

// pubKeyResponse is the engine sealing key, coordinates hex-encoded.
type pubKeyResponse struct {
	X string `json:"x"`
	Y string `json:"y"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.CheckHealth()
	status := http.StatusOK
	if health.OverallStatus == Unhealthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.GetMetricsSummary())
}

func (s *Server) handleEnginePubKey(w http.ResponseWriter, r *http.Request) {
	pk := s.engine.PublicKey()
	xBytes := pk.X.Bytes()
	yBytes := pk.Y.Bytes()
	respondJSON(w, http.StatusOK, pubKeyResponse{
		X: hex.EncodeToString(xBytes[:]),
		Y: hex.EncodeToString(yBytes[:]),
	})
}

func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.registry.CreateAuction(req.Name, req.StartPrice)
	if err != nil {
		s.logger.Error("create auction failed: %v", err)
		respondError(w, http.StatusInternalServerError, "auction creation failed")
		return
	}

	s.metrics.RecordAuctionCreated(id)
	s.logger.Info("auction %d created (%q, start %d)", id, req.Name, req.StartPrice)
	respondJSON(w, http.StatusCreated, createAuctionResponse{ID: id})
}

func (s *Server) handleAuctionInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionID(w, r)
	if !ok {
		return
	}
	name, createdAt, err := s.registry.AuctionInfo(id)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auctionInfoResponse{ID: id, Name: name, CreatedAt: createdAt})
}

func (s *Server) handleHighestBid(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionID(w, r)
	if !ok {
		return
	}
	h, err := s.registry.EncryptedHighestBid(id)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, handleResponse{Handle: h.String()})
}

func (s *Server) handleHighestBidder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionID(w, r)
	if !ok {
		return
	}
	h, err := s.registry.EncryptedHighestBidder(id)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, handleResponse{Handle: h.String()})
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionID(w, r)
	if !ok {
		return
	}
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !s.bidLimiter.Allow(string(caller)) {
		s.metrics.IncrementCounter(MetricRateLimited, nil)
		respondError(w, http.StatusTooManyRequests, "bid rate exceeded")
		return
	}

	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sealed, err := decodeSealedBid(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	isHighest, err := s.registry.Bid(id, sealed, req.Proof, caller)
	if err != nil {
		if errors.Is(err, fhe.ErrImportRejected) {
			s.metrics.IncrementCounter(MetricBidRejected, nil)
			s.logger.Warn("bid on auction %d rejected for %s: %v", id, caller, err)
			respondError(w, http.StatusBadRequest, "bid ciphertext rejected")
			return
		}
		s.respondCoreError(w, err)
		return
	}

	s.metrics.RecordBid(id, time.Since(start))
	s.logger.Audit("bid", map[string]interface{}{"auction": id, "principal": string(caller)})
	respondJSON(w, http.StatusCreated, handleResponse{Handle: isHighest.String()})
}

func (s *Server) handleEnded(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionID(w, r)
	if !ok {
		return
	}
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	h, err := s.registry.CheckEnded(id, caller)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	s.metrics.IncrementCounter(MetricEndedQueries, nil)
	respondJSON(w, http.StatusOK, handleResponse{Handle: h.String()})
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req decryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h, err := fhe.ParseHandle(req.Handle)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid handle")
		return
	}

	value, err := s.engine.RequestDecrypt(h, caller)
	if err != nil {
		if errors.Is(err, fhe.ErrNotAuthorized) {
			s.metrics.IncrementCounter(MetricDecryptDenied, nil)
			s.logger.Warn("decrypt denied for %s on %s", caller, h)
			respondError(w, http.StatusForbidden, "not authorized for handle")
			return
		}
		respondError(w, http.StatusBadRequest, "unknown handle")
		return
	}

	s.metrics.IncrementCounter(MetricDecryptCount, nil)
	respondJSON(w, http.StatusOK, decryptResponse{Handle: h.String(), Value: value.String()})
}

// auctionID parses the {id} path variable.
func (s *Server) auctionID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "invalid auction id")
		return 0, false
	}
	return id, true
}

// principal reads the caller identity header. Transport authentication is
// out of scope; the header is trusted as-is.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (fhe.Principal, bool) {
	p := r.Header.Get("X-Principal")
	if p == "" {
		respondError(w, http.StatusBadRequest, "X-Principal header required")
		return "", false
	}
	return fhe.Principal(p), true
}

func (s *Server) respondCoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, auction.ErrNotFound) {
		s.metrics.IncrementCounter(MetricNotFound, nil)
		respondError(w, http.StatusNotFound, "auction not found")
		return
	}
	s.logger.Error("operation failed: %v", err)
	respondError(w, http.StatusInternalServerError, "operation failed")
}

func decodeSealedBid(req *bidRequest) (*fhe.SealedBid, error) {
	commitment, ok := new(big.Int).SetString(req.Commitment, 10)
	if !ok {
		return nil, errors.New("invalid commitment")
	}
	masked, ok := new(big.Int).SetString(req.Masked, 10)
	if !ok {
		return nil, errors.New("invalid masked value")
	}
	pointBytes, err := hex.DecodeString(req.EphPub)
	if err != nil {
		return nil, errors.New("invalid ephemeral point encoding")
	}
	var ephPub bls12377.G1Affine
	if _, err := ephPub.SetBytes(pointBytes); err != nil {
		return nil, errors.New("invalid ephemeral point")
	}
	return &fhe.SealedBid{Commitment: commitment, Masked: masked, EphPub: ephPub}, nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// loggingMiddleware logs all HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}
