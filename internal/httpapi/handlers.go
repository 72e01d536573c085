package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/tally/internal/calculator"
	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/payments"
	"github.com/mmynk/tally/internal/service"
	"github.com/mmynk/tally/internal/storage"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, payments.ErrUnauthorizedTransition):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, calculator.ErrInvalidSplitTotal),
		errors.Is(err, calculator.ErrInvalidPercentageTotal),
		errors.Is(err, calculator.ErrZeroWeightGroup),
		errors.Is(err, calculator.ErrUnknownPolicy),
		errors.Is(err, calculator.ErrNoMembers),
		errors.Is(err, calculator.ErrNegativeAmount),
		errors.Is(err, payments.ErrInvalidTransition),
		errors.Is(err, payments.ErrReasonRequired),
		errors.Is(err, payments.ErrUnknownAction):
		status = http.StatusBadRequest
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	group, err := s.groups.CreateGroup(r.Context(), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Weight  int    `json:"weight"`
		Contact bool   `json:"contact"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Weight == 0 {
		req.Weight = 1
	}
	member, err := s.groups.AddMember(r.Context(), r.PathValue("id"), req.Name, req.Weight, req.Contact)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.groups.ListMembers(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

func (s *Server) handleSetMemberWeight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weight int `json:"weight"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if err := s.groups.SetMemberWeight(r.Context(), r.PathValue("id"), req.Weight); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.RemoveMember(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

type splitItemRequest struct {
	Description string   `json:"description"`
	AmountCents int64    `json:"amount_cents"`
	MemberIDs   []string `json:"member_ids"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID     string             `json:"group_id"`
		PayerID     string             `json:"payer_id"`
		Description string             `json:"description"`
		AmountCents int64              `json:"amount_cents"`
		Policy      string             `json:"policy"`
		Date        int64              `json:"date"`
		CustomCents map[string]int64   `json:"custom_cents"`
		Percentages map[string]float64 `json:"percentages"`
		Items       []splitItemRequest `json:"items"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	items := make([]calculator.SplitItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = calculator.SplitItem{
			Description: item.Description,
			AmountCents: item.AmountCents,
			MemberIDs:   item.MemberIDs,
		}
	}

	expense, err := s.ledger.CreateExpense(r.Context(), service.CreateExpenseRequest{
		GroupID:     req.GroupID,
		PayerID:     req.PayerID,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Policy:      models.SplitPolicy(req.Policy),
		Date:        req.Date,
		CustomCents: req.CustomCents,
		Percentages: req.Percentages,
		Items:       items,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.ledger.GroupBalances(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balances)
}

func (s *Server) handleAuditGroup(w http.ResponseWriter, r *http.Request) {
	fix := r.URL.Query().Get("fix") == "true"
	report, err := s.ledger.AuditGroup(r.Context(), r.PathValue("id"), fix)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleTransitionPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	payment, err := s.ledger.TransitionPayment(
		r.Context(),
		r.PathValue("id"),
		r.PathValue("member"),
		payments.Action(req.Action),
		actorFromRequest(r),
		req.Reason,
	)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

func (s *Server) handleCreateAdvance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID              string   `json:"group_id"`
		RecipientID          string   `json:"recipient_id"`
		SenderIDs            []string `json:"sender_ids"`
		AmountPerSenderCents int64    `json:"amount_per_sender_cents"`
		Policy               string   `json:"policy"`
		Note                 string   `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	advance := &models.Advance{
		GroupID:              req.GroupID,
		RecipientID:          req.RecipientID,
		SenderIDs:            req.SenderIDs,
		AmountPerSenderCents: req.AmountPerSenderCents,
		Policy:               models.AdvancePolicy(req.Policy),
		Note:                 req.Note,
	}
	if err := s.ledger.RecordAdvance(r.Context(), advance); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, advance)
}

func (s *Server) handleDeleteAdvance(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteAdvance(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCreateDirectPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID     string `json:"group_id"`
		FromID      string `json:"from_id"`
		ToID        string `json:"to_id"`
		AmountCents int64  `json:"amount_cents"`
		Note        string `json:"note"`
		Date        int64  `json:"date"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	payment := &models.DirectPayment{
		GroupID:     req.GroupID,
		FromID:      req.FromID,
		ToID:        req.ToID,
		AmountCents: req.AmountCents,
		Note:        req.Note,
		Date:        req.Date,
	}
	if err := s.ledger.RecordDirectPayment(r.Context(), payment); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleDeleteDirectPayment(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteDirectPayment(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
