package http

import (
	"net/http"
	"strings"

	"organize/internal/core"
	"organize/internal/ledger"
	"organize/internal/log"
)

type submitRequest struct {
	ledger.Purchase
	Confirmed bool `json:"confirmed"`
}

type editRequest struct {
	ledger.Edit
	Confirmed bool `json:"confirmed"`
}

type transferRequest struct {
	Month core.MonthKey `json:"month"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req.Description = sanitizeInput(req.Description)
	req.Category = sanitizeInput(req.Category)

	res, err := s.ledger.Submit(r.Context(), req.Purchase, req.Confirmed)
	if err != nil {
		writeError(w, r, log.OpSubmit, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(res).Write(w)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req.Description = sanitizeInput(req.Description)
	req.Category = sanitizeInput(req.Category)

	res, err := s.ledger.Edit(r.Context(), r.PathValue("id"), req.Edit, req.Confirmed)
	if err != nil {
		writeError(w, r, log.OpEdit, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.DeleteGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleAnticipate(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.Anticipate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpAnticipate, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	month, err := core.ParseMonthKey(req.Month.String())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	res, err := s.ledger.TransferBalance(r.Context(), month)
	if err != nil {
		writeError(w, r, log.OpTransfer, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(res).Write(w)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	summary, err := s.ledger.MonthSummary(r.Context(), month)
	if err != nil {
		writeError(w, r, "month_summary", err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleMonthTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	txs, err := s.ledger.MonthTransactions(r.Context(), month)
	if err != nil {
		writeError(w, r, "month_transactions", err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ledger.Cards(r.Context())
	if err != nil {
		writeError(w, r, "cards", err)
		return
	}
	NewJSONResponse().Body(cards).Write(w)
}

func (s *Server) handleSaveCard(w http.ResponseWriter, r *http.Request) {
	var card core.Card
	if err := decodeJSON(r, &card); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	card.ID = r.PathValue("id")
	card.Name = sanitizeInput(card.Name)
	card.Holder = sanitizeInput(card.Holder)

	saved, err := s.ledger.SaveCard(r.Context(), card)
	if err != nil {
		writeError(w, r, log.OpSaveCard, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCard(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDeleteCard, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCardInvoices(w http.ResponseWriter, r *http.Request) {
	month, err := queryMonth(r.URL.Query(), "month")
	if err != nil {
		FromError(err).Write(w)
		return
	}
	status, err := s.ledger.CardInvoices(r.Context(), r.PathValue("id"), month)
	if err != nil {
		writeError(w, r, "card_invoices", err)
		return
	}
	NewJSONResponse().Body(status).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	month, err := queryMonth(query, "month")
	if err != nil {
		FromError(err).Write(w)
		return
	}
	filter := ledger.BreakdownFilter{
		Month:    month,
		Type:     core.TransactionType(strings.TrimSpace(query.Get("type"))),
		Category: sanitizeInput(query.Get("category")),
	}
	res, err := s.ledger.Breakdown(r.Context(), filter)
	if err != nil {
		writeError(w, r, "breakdown", err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseSeriesRange(r.URL.Query(), s.now())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	series, err := s.ledger.Series(r.Context(), rng.From, rng.To)
	if err != nil {
		writeError(w, r, "series", err)
		return
	}
	NewJSONResponse().Body(series).Write(w)
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	violations, err := s.ledger.Integrity(r.Context())
	if err != nil {
		writeError(w, r, "integrity", err)
		return
	}
	if violations == nil {
		violations = []ledger.Violation{}
	}
	NewJSONResponse().Body(map[string]any{
		"consistent": len(violations) == 0,
		"violations": violations,
	}).Write(w)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.Settings(r.Context())
	if err != nil {
		writeError(w, r, "settings", err)
		return
	}
	NewJSONResponse().Body(settings).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.UserSettings
	if err := decodeJSON(r, &settings); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.ledger.UpdateSettings(r.Context(), settings)
	if err != nil {
		writeError(w, r, log.OpSettings, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}
