package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbooks/reconcile-backend/internal/api/dto"
	"github.com/crestbooks/reconcile-backend/internal/application/service"
	"github.com/crestbooks/reconcile-backend/internal/domain/match"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

func date(day int) time.Time {
	return time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestServer seeds a mock repository with one account, a completed
// statement (1000.00 -> 775.00) and two matchable pairs: rent (auto range)
// and supplies (suggest range, two days apart, no reference).
func newTestServer(t *testing.T) (*Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()

	require.NoError(t, repo.SaveAccount(&storage.Account{ID: "acc-1", Name: "Operating", Type: "checking"}))
	require.NoError(t, repo.SaveStatement(&storage.BankStatement{
		ID: "stmt-1", AccountID: "acc-1",
		PeriodStart: date(1), PeriodEnd: date(31),
		OpeningBalance: dec("1000.00"), ClosingBalance: dec("775.00"),
		Status: storage.StatementCompleted,
	}))
	require.NoError(t, repo.SaveStatementLine(&storage.BankStatementLine{
		ID: "l-rent", StatementID: "stmt-1", TransactionDate: date(10),
		Amount: dec("-150.00"), Description: "Rent payment", ReferenceNumber: "RENT-1",
	}))
	require.NoError(t, repo.SaveStatementLine(&storage.BankStatementLine{
		ID: "l-supplies", StatementID: "stmt-1", TransactionDate: date(15),
		Amount: dec("-75.00"), Description: "Office supplies",
	}))
	require.NoError(t, repo.SaveTransaction(&storage.BookTransaction{
		ID: "t-rent", AccountID: "acc-1", TransactionDate: date(10),
		Amount: dec("-150.00"), Description: "Rent payment", ReferenceNumber: "RENT-1",
		Status: storage.TransactionCompleted,
	}))
	require.NoError(t, repo.SaveTransaction(&storage.BookTransaction{
		ID: "t-supplies", AccountID: "acc-1", TransactionDate: date(17),
		Amount: dec("-75.00"), Description: "Office supplies",
		Status: storage.TransactionCompleted,
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewReconciliationService(repo, match.DefaultConfig(), logger)
	return NewServer(DefaultConfig(), svc, logger), repo
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) dto.ReconciliationResponse {
	t.Helper()
	var resp dto.ReconciliationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func createSession(t *testing.T, srv *Server) dto.ReconciliationResponse {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/reconciliations", dto.CreateReconciliationRequest{
		AccountID: "acc-1", StatementID: "stmt-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeSession(t, w)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCreateReconciliation(t *testing.T) {
	srv, _ := newTestServer(t)

	session := createSession(t, srv)
	assert.Equal(t, "in_progress", session.Status)
	assert.Equal(t, "alice", session.CreatedBy)
	assert.Equal(t, 2, session.UnmatchedBankCount)
	assert.True(t, dec(session.Difference).Equal(dec("-225.00")), "difference was %s", session.Difference)

	// Validation failure on missing fields.
	w := doJSON(t, srv, http.MethodPost, "/api/reconciliations", map[string]string{"account_id": "acc-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/reconciliations/"+session.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetUnknownReconciliation(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/reconciliations/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var apiErr dto.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, dto.ErrCodeNotFound, apiErr.Code)
}

func TestAutoMatchEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	session := createSession(t, srv)

	w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/auto-match", session.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.AutoMatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.MatchedCount)
	assert.Equal(t, 1, resp.Reconciliation.MatchedCount)
	assert.True(t, dec(resp.Reconciliation.Difference).Equal(dec("-75.00")))

	txn, err := repo.GetTransaction("t-rent")
	require.NoError(t, err)
	assert.True(t, txn.IsReconciled)
}

func TestManualMatchAndUnmatch(t *testing.T) {
	srv, repo := newTestServer(t)
	session := createSession(t, srv)

	w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/matches", session.ID),
		dto.ManualMatchRequest{StatementLineID: "l-supplies", BookTransactionID: "t-supplies"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	matched := decodeSession(t, w)
	assert.Equal(t, 1, matched.MatchedCount)

	// Matching the same pair again conflicts.
	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/matches", session.ID),
		dto.ManualMatchRequest{StatementLineID: "l-supplies", BookTransactionID: "t-supplies"})
	assert.Equal(t, http.StatusConflict, w.Code)
	var apiErr dto.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, dto.ErrCodeAlreadyMatched, apiErr.Code)

	items, err := repo.ListItems(session.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	w = doJSON(t, srv, http.MethodDelete,
		fmt.Sprintf("/api/reconciliations/%s/matches/%s", session.ID, items[0].ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reverted := decodeSession(t, w)
	assert.Equal(t, 0, reverted.MatchedCount)
}

func TestCrossAccountManualMatchIsUnprocessable(t *testing.T) {
	srv, repo := newTestServer(t)
	session := createSession(t, srv)

	require.NoError(t, repo.SaveTransaction(&storage.BookTransaction{
		ID: "t-foreign", AccountID: "acc-other", TransactionDate: date(10),
		Amount: dec("-150.00"), Status: storage.TransactionCompleted,
	}))

	w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/matches", session.ID),
		dto.ManualMatchRequest{StatementLineID: "l-rent", BookTransactionID: "t-foreign"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var apiErr dto.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, dto.ErrCodeCrossAccount, apiErr.Code)
}

func TestSuggestionsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	session := createSession(t, srv)

	w := doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/reconciliations/%s/lines/l-supplies/suggestions", session.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var suggestions []dto.SuggestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "t-supplies", suggestions[0].BookTransactionID)
	assert.InDelta(t, 80.0, suggestions[0].Score, 0.001)
	assert.Equal(t, 2, suggestions[0].DateDiffDays)
}

func TestLifecycleOverHTTP(t *testing.T) {
	srv, repo := newTestServer(t)
	session := createSession(t, srv)

	// Completing while unbalanced conflicts.
	w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/complete", session.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var apiErr dto.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, dto.ErrCodeNotBalanced, apiErr.Code)

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/auto-match", session.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/matches", session.ID),
		dto.ManualMatchRequest{StatementLineID: "l-supplies", BookTransactionID: "t-supplies"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/complete", session.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decodeSession(t, w).Status)

	stmt, err := repo.GetStatement("stmt-1")
	require.NoError(t, err)
	require.NotNil(t, stmt.ReconciliationID)

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/review", session.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/approve", session.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", decodeSession(t, w).Status)

	// Approved sessions are immutable.
	w = doJSON(t, srv, http.MethodDelete, "/api/reconciliations/"+session.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, dto.ErrCodeImmutable, apiErr.Code)
}

func TestDeleteInProgressSession(t *testing.T) {
	srv, repo := newTestServer(t)
	session := createSession(t, srv)

	w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/reconciliations/%s/auto-match", session.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/reconciliations/"+session.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	gone, err := repo.GetReconciliation(session.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	txn, err := repo.GetTransaction("t-rent")
	require.NoError(t, err)
	assert.False(t, txn.IsReconciled)
}

func TestListReconciliations(t *testing.T) {
	srv, _ := newTestServer(t)
	session := createSession(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/reconciliations?account_id=acc-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sessions []dto.ReconciliationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)

	w = doJSON(t, srv, http.MethodGet, "/api/reconciliations?account_id=acc-none", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	assert.Empty(t, sessions)
}
