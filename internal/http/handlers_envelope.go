package http

import (
	"fmt"
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
)

type amountRequest struct {
	Amount core.Money `json:"amount"`
}

type withdrawResponse struct {
	Envelope core.Envelope `json:"envelope"`
	Amount   core.Money    `json:"amount"`
}

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	var req core.NewEnvelope
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	env, err := s.store.CreateEnvelope(r.Context(), req)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, env)
}

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	envs, err := s.store.ListEnvelopes(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	env, err := s.store.GetEnvelope(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleUpdateEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var patch core.EnvelopePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	env, err := s.store.UpdateEnvelope(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleDeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.store.DeleteEnvelope(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Envelope ID %d successfully deleted.", id)})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpWithdraw, err)
		return
	}
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpWithdraw, err)
		return
	}
	env, err := s.store.Withdraw(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, r, applog.OpWithdraw, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{Envelope: env, Amount: req.Amount})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	fromID, err := pathID(r, "from")
	if err != nil {
		writeError(w, r, applog.OpTransfer, err)
		return
	}
	toID, err := pathID(r, "to")
	if err != nil {
		writeError(w, r, applog.OpTransfer, err)
		return
	}
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpTransfer, err)
		return
	}
	res, err := s.store.Transfer(r.Context(), fromID, toID, req.Amount)
	if err != nil {
		writeError(w, r, applog.OpTransfer, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListEnvelopeTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.store.ListTransactionsByEnvelope(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
