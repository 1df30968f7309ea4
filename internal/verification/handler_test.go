package verification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carbocredit/backend/internal/middleware"
	"github.com/carbocredit/backend/internal/models"
)

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- DecisionService mock driven by canned errors ---

type mockDecisionSvc struct {
	approveErr error
	rejectErr  error
	decided    *models.VerificationRequest
}

func (m *mockDecisionSvc) Submit(_ context.Context, userID uuid.UUID, amount int64, category, evidence string) (*models.VerificationRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &models.VerificationRequest{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   amount,
		Category: category,
		Evidence: evidence,
		Status:   models.VerificationPending,
	}, nil
}

func (m *mockDecisionSvc) Approve(context.Context, pgx.Tx, uuid.UUID, uuid.UUID) (*models.VerificationRequest, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return m.decided, nil
}

func (m *mockDecisionSvc) Reject(context.Context, pgx.Tx, uuid.UUID, uuid.UUID, string) (*models.VerificationRequest, error) {
	if m.rejectErr != nil {
		return nil, m.rejectErr
	}
	return m.decided, nil
}

type mockQueueStore struct{}

func (mockQueueStore) List(context.Context) ([]models.VerificationRequest, error) {
	return []models.VerificationRequest{}, nil
}
func (mockQueueStore) ListByStatus(context.Context, string) ([]QueueItem, error) {
	return []QueueItem{}, nil
}

// ---

func asAuditor(r *http.Request) *http.Request {
	auditor := &models.User{ID: uuid.New(), Role: models.RoleAuditor}
	return r.WithContext(middleware.WithUser(r.Context(), auditor))
}

func approveRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/verification/"+id+"/approve", nil)
	req.SetPathValue("requestId", id)
	return asAuditor(req)
}

func TestApproveHandler_Success(t *testing.T) {
	decided := &models.VerificationRequest{ID: uuid.New(), Status: models.VerificationApproved}
	h := NewHandler(mockPool{}, &mockDecisionSvc{decided: decided}, mockQueueStore{}, slog.Default())

	rec := httptest.NewRecorder()
	h.Approve(rec, approveRequest(decided.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.VerificationRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != models.VerificationApproved {
		t.Errorf("status: got %q, want %q", got.Status, models.VerificationApproved)
	}
}

func TestApproveHandler_AlreadyDecidedMapsTo409(t *testing.T) {
	h := NewHandler(mockPool{}, &mockDecisionSvc{approveErr: ErrAlreadyDecided}, mockQueueStore{}, slog.Default())

	rec := httptest.NewRecorder()
	h.Approve(rec, approveRequest(uuid.NewString()))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestApproveHandler_NotFoundMapsTo404(t *testing.T) {
	h := NewHandler(mockPool{}, &mockDecisionSvc{approveErr: ErrNotFound}, mockQueueStore{}, slog.Default())

	rec := httptest.NewRecorder()
	h.Approve(rec, approveRequest(uuid.NewString()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestApproveHandler_BadID(t *testing.T) {
	h := NewHandler(mockPool{}, &mockDecisionSvc{}, mockQueueStore{}, slog.Default())

	rec := httptest.NewRecorder()
	h.Approve(rec, approveRequest("not-a-uuid"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitHandler(t *testing.T) {
	h := NewHandler(mockPool{}, &mockDecisionSvc{}, mockQueueStore{}, slog.Default())

	body := `{"amount": 40, "category": "energy", "evidence": "solar install receipt"}`
	req := httptest.NewRequest(http.MethodPost, "/api/verification", strings.NewReader(body))
	user := &models.User{ID: uuid.New(), Role: models.RoleUser}
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.VerificationRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != models.VerificationPending {
		t.Errorf("status: got %q, want %q", created.Status, models.VerificationPending)
	}
}

func TestSubmitHandler_ZeroAmount(t *testing.T) {
	h := NewHandler(mockPool{}, &mockDecisionSvc{}, mockQueueStore{}, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/verification", strings.NewReader(`{"amount": 0}`))
	req = req.WithContext(middleware.WithUser(req.Context(), &models.User{ID: uuid.New()}))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
