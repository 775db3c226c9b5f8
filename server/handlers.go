package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrBlankCoding/StockDashboard/ledger"
	"github.com/MrBlankCoding/StockDashboard/quotes"
	"github.com/MrBlankCoding/StockDashboard/store"
)

const historyDays = 30

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the domain error taxonomy onto HTTP statuses. Every
// ledger rejection leaves the account untouched, so 4xx bodies are safe to
// surface verbatim.
func (s *Server) writeError(c *gin.Context, where string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_input", Message: err.Error()})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, apiError{Code: "insufficient_funds", Message: err.Error()})
	case errors.Is(err, ledger.ErrInsufficientShares):
		c.JSON(http.StatusUnprocessableEntity, apiError{Code: "insufficient_shares", Message: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, apiError{Code: "account_not_found", Message: err.Error()})
	case errors.Is(err, quotes.ErrSymbolNotFound):
		c.JSON(http.StatusNotFound, apiError{Code: "symbol_not_found", Message: err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, apiError{Code: "conflict", Message: "account modified concurrently, retry"})
	case errors.Is(err, ledger.ErrPriceUnavailable), errors.Is(err, quotes.ErrUpstream):
		c.JSON(http.StatusBadGateway, apiError{Code: "price_unavailable", Message: err.Error()})
	default:
		s.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
		c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
	}
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

// --- Market data ---

type stockResponse struct {
	quotes.Quote
	CompanyName    string              `json:"company_name,omitempty"`
	Exchange       string              `json:"exchange,omitempty"`
	Industry       string              `json:"industry,omitempty"`
	Currency       string              `json:"currency"`
	HistoricalData []quotes.DailyClose `json:"historical_data,omitempty"`
}

func (s *Server) getStock(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		s.badRequest(c, "symbol is required")
		return
	}

	q, err := s.Market.LastPrice(c.Request.Context(), symbol)
	if err != nil {
		s.writeError(c, "LastPrice", err)
		return
	}

	resp := stockResponse{Quote: q, Currency: "USD"}

	// Overview and history are best-effort decoration; the quote alone is
	// a valid answer.
	if ov, err := s.Market.Overview(c.Request.Context(), symbol); err == nil {
		resp.CompanyName = ov.Name
		resp.Exchange = ov.Exchange
		resp.Industry = ov.Industry
	}
	if hist, err := s.Market.DailyHistory(c.Request.Context(), symbol, historyDays); err == nil {
		resp.HistoricalData = hist
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) searchSymbols(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		s.badRequest(c, "query parameter q is required")
		return
	}

	matches, err := s.Market.Search(c.Request.Context(), query)
	if err != nil {
		s.writeError(c, "Search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": matches})
}

// --- Accounts & trading ---

func (s *Server) createAccount(c *gin.Context) {
	acct, err := s.Trading.Register(c.Request.Context())
	if err != nil {
		s.writeError(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

func (s *Server) getAccount(c *gin.Context) {
	acct, err := s.Trading.Account(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Account", err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (s *Server) getPortfolio(c *gin.Context) {
	rep, err := s.Trading.Valuation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Valuation", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

type tradeRequest struct {
	Symbol string          `json:"symbol" binding:"required"`
	Shares decimal.Decimal `json:"shares"`
	// Price zero or omitted means "at market".
	Price  decimal.Decimal `json:"price"`
	Reason string          `json:"reason"`
}

type tradeResponse struct {
	Trade      any    `json:"trade"`
	NewBalance string `json:"new_balance"`
}

func (s *Server) buy(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	acct, rec, err := s.Trading.Buy(c.Request.Context(), c.Param("id"),
		strings.ToUpper(req.Symbol), req.Shares, req.Price, req.Reason)
	if err != nil {
		s.writeError(c, "Buy", err)
		return
	}
	c.JSON(http.StatusOK, tradeResponse{Trade: rec, NewBalance: acct.Balance.String()})
}

func (s *Server) sell(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	acct, rec, err := s.Trading.Sell(c.Request.Context(), c.Param("id"),
		strings.ToUpper(req.Symbol), req.Shares, req.Price)
	if err != nil {
		s.writeError(c, "Sell", err)
		return
	}
	c.JSON(http.StatusOK, tradeResponse{Trade: rec, NewBalance: acct.Balance.String()})
}

func (s *Server) getTrades(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"), 100, 1000)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	trades, err := s.Trading.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.writeError(c, "History", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// parseLimit rejects garbage rather than papering over it with the default;
// values above max are clamped, not errors.
func parseLimit(v string, def, max int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > max {
		return max, nil
	}
	return n, nil
}

// --- Watchlist ---

type watchRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (s *Server) getWatchlist(c *gin.Context) {
	items, err := s.Trading.Watchlist(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Watchlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": items})
}

func (s *Server) addWatch(c *gin.Context) {
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := s.Trading.AddWatch(c.Request.Context(), c.Param("id"), strings.ToUpper(req.Symbol)); err != nil {
		s.writeError(c, "AddWatch", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeWatch(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if err := s.Trading.RemoveWatch(c.Request.Context(), c.Param("id"), symbol); err != nil {
		s.writeError(c, "RemoveWatch", err)
		return
	}
	c.Status(http.StatusNoContent)
}
