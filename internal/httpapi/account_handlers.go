package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"kassa.org/internal/account"
	"kassa.org/internal/obs"
	"kassa.org/internal/registry"
	"kassa.org/internal/stream"
)

type openAccountRequest struct {
	Name           string           `json:"name"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	Type           account.Kind     `json:"type"`
	CreditLimit    *decimal.Decimal `json:"credit_limit,omitempty"`
	MonthlyDeposit *decimal.Decimal `json:"monthly_deposit,omitempty"`
}

type movementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

type movementResponse struct {
	Entry   account.Entry    `json:"entry"`
	Account account.Snapshot `json:"account"`
}

type historyResponse struct {
	Items []account.Entry `json:"items"`
	AsOf  time.Time       `json:"as_of"`
}

type monthEndResponse struct {
	Entries []account.Entry  `json:"entries"`
	Account account.Snapshot `json:"account"`
}

func (a *API) openAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Name) > 128 {
		writeError(w, r, http.StatusBadRequest, "name too long")
		return
	}
	if !req.Type.Valid() {
		writeError(w, r, http.StatusBadRequest, "type must be one of line_of_credit, gift_card, interest_earning")
		return
	}
	if req.Type == account.LineOfCredit && req.CreditLimit == nil {
		writeError(w, r, http.StatusBadRequest, "credit_limit is required for a line_of_credit account")
		return
	}

	snap, err := a.registry.Open(r.Context(), registry.OpenSpec{
		Name:           req.Name,
		Kind:           req.Type,
		InitialBalance: req.InitialBalance,
		CreditLimit:    req.CreditLimit,
		MonthlyDeposit: req.MonthlyDeposit,
	})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	obs.AccountOpened(string(snap.Kind))
	a.audit(r.Context(), "account.open", "account", snap.ID, map[string]string{
		"kind":            string(snap.Kind),
		"initial_balance": req.InitialBalance.String(),
	})

	w.Header().Set("Location", "/v1/accounts/"+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	snap, err := a.registry.Get(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) getBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "accountID")
	balance, err := a.registry.Balance(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"balance":    balance,
	})
}

func (a *API) getHistory(w http.ResponseWriter, r *http.Request) {
	items, err := a.registry.History(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if items == nil {
		items = []account.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	a.move(w, r, "deposit")
}

func (a *API) withdraw(w http.ResponseWriter, r *http.Request) {
	a.move(w, r, "withdrawal")
}

// move handles deposits and withdrawals, which differ only in the registry
// call and the audit event name.
func (a *API) move(w http.ResponseWriter, r *http.Request, op string) {
	var req movementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Note) > 256 {
		writeError(w, r, http.StatusBadRequest, "note too long")
		return
	}

	id := chi.URLParam(r, "accountID")

	var (
		entry account.Entry
		snap  account.Snapshot
		err   error
	)
	if op == "deposit" {
		entry, snap, err = a.registry.Deposit(r.Context(), id, req.Amount, req.Note)
	} else {
		entry, snap, err = a.registry.Withdraw(r.Context(), id, req.Amount, req.Note)
	}
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	obs.EntriesRecorded(string(entry.Kind), 1)
	a.publish(snap, entry)
	a.audit(r.Context(), "account."+op, "account", id, map[string]string{
		"amount": req.Amount.String(),
	})

	writeJSON(w, http.StatusCreated, movementResponse{Entry: entry, Account: snap})
}

func (a *API) monthEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "accountID")
	entries, snap, err := a.registry.CloseMonth(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	obs.MonthEndRun()
	for _, e := range entries {
		obs.EntriesRecorded(string(e.Kind), 1)
		a.publish(snap, e)
	}
	a.audit(r.Context(), "account.month_end", "account", id, map[string]string{
		"entries": strconv.Itoa(len(entries)),
	})

	if entries == nil {
		entries = []account.Entry{}
	}
	writeJSON(w, http.StatusOK, monthEndResponse{Entries: entries, Account: snap})
}

func (a *API) publish(snap account.Snapshot, e account.Entry) {
	if a.stream == nil {
		return
	}
	a.stream.Publish(stream.AccountEvent{
		AccountID: snap.ID,
		Kind:      string(e.Kind),
		Amount:    e.Amount,
		Balance:   snap.Balance,
		Timestamp: e.Timestamp,
	})
}

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidAmount), errors.Is(err, account.ErrInvalidConfiguration):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
