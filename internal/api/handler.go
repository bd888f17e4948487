package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/ledger"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/recurring"
)

const (
	headerUser    = "X-User-ID"
	headerCompany = "X-Company-ID"
	identityKey   = "identity"
)

// Handler serves the ledger API.
type Handler struct {
	journal   *journal.Engine
	ledger    *ledger.Engine
	recurring *recurring.Engine
	authz     auth.Authorizer
}

// NewHandler creates a Handler.
func NewHandler(j *journal.Engine, l *ledger.Engine, r *recurring.Engine, authz auth.Authorizer) *Handler {
	return &Handler{journal: j, ledger: l, recurring: r, authz: authz}
}

// RegisterRoutes registers the v1 routes on r.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/entries", h.CreateEntry)
	r.GET("/entries/:id", h.GetEntry)
	r.DELETE("/entries/:id", h.DeleteEntry)
	r.GET("/general-ledger", h.GeneralLedger)
	r.GET("/trial-balance", h.TrialBalance)
	r.POST("/recurring/process", h.ProcessDue)
}

// identity reads the caller from X-User-ID and X-Company-ID.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(headerUser)
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + headerUser})
			return
		}
		c.Set(identityKey, auth.Identity{ID: user, CompanyID: c.GetHeader(headerCompany)})
		c.Next()
	}
}

func caller(c *gin.Context) auth.Identity {
	id, _ := c.Get(identityKey)
	identity, _ := id.(auth.Identity)
	return identity
}

// companyOf returns the caller's company or writes 400.
func companyOf(c *gin.Context) (string, bool) {
	company := caller(c).CompanyID
	if company == "" {
		badRequest(c, "missing "+headerCompany)
		return "", false
	}
	return company, true
}

// CreateEntry posts a journal entry.
// POST /api/v1/entries
func (h *Handler) CreateEntry(c *gin.Context) {
	company, ok := companyOf(c)
	if !ok {
		return
	}

	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		badRequest(c, "invalid date: "+err.Error())
		return
	}

	params := journal.CreateEntryParams{
		CompanyID:   company,
		PeriodID:    req.PeriodID,
		Date:        date,
		Description: req.Description,
		Source:      model.SourceManual,
		Lines:       make([]journal.LineInput, len(req.Lines)),
	}
	for i, l := range req.Lines {
		params.Lines[i] = journal.LineInput{AccountID: l.AccountID, Description: l.Description, Debit: l.Debit, Credit: l.Credit}
	}

	entry, err := h.journal.CreateEntry(c.Request.Context(), caller(c), params)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEntryResponse(entry))
}

// GetEntry returns one entry with its lines.
// GET /api/v1/entries/:id
func (h *Handler) GetEntry(c *gin.Context) {
	entry, err := h.journal.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if company := caller(c).CompanyID; company != "" && company != entry.CompanyID {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry " + c.Param("id") + " not found"})
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(entry))
}

// DeleteEntry removes an entry from an open period.
// DELETE /api/v1/entries/:id
func (h *Handler) DeleteEntry(c *gin.Context) {
	if err := h.journal.DeleteEntry(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GeneralLedger reports postings per account.
// GET /api/v1/general-ledger?period_id=&account_id=&from=&to=
func (h *Handler) GeneralLedger(c *gin.Context) {
	company, ok := companyOf(c)
	if !ok {
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		badRequest(c, "invalid from: "+err.Error())
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		badRequest(c, "invalid to: "+err.Error())
		return
	}

	gl, err := h.ledger.GeneralLedger(c.Request.Context(), ledger.GeneralLedgerQuery{
		CompanyID: company,
		PeriodID:  c.Query("period_id"),
		AccountID: c.Query("account_id"),
		From:      from,
		To:        to,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toGeneralLedgerResponse(gl))
}

// TrialBalance reports the trial balance of a period.
// GET /api/v1/trial-balance?period_id=&as_of=
func (h *Handler) TrialBalance(c *gin.Context) {
	company, ok := companyOf(c)
	if !ok {
		return
	}
	asOf, err := parseDate(c.Query("as_of"))
	if err != nil {
		badRequest(c, "invalid as_of: "+err.Error())
		return
	}

	tb, err := h.ledger.TrialBalance(c.Request.Context(), company, c.Query("period_id"), asOf)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrialBalanceResponse(tb))
}

// ProcessDue runs one recurring pass immediately.
// POST /api/v1/recurring/process
func (h *Handler) ProcessDue(c *gin.Context) {
	if err := auth.Check(c.Request.Context(), h.authz, caller(c), auth.ActionExecuteRecurring, "*"); err != nil {
		fail(c, err)
		return
	}

	var req processDueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	now := time.Now().UTC()
	if req.Now != "" {
		t, err := time.Parse(dateFormat, req.Now)
		if err != nil {
			badRequest(c, "invalid now: "+err.Error())
			return
		}
		now = t
	}

	report, err := h.recurring.ProcessDue(c.Request.Context(), now)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReportResponse(report))
}
