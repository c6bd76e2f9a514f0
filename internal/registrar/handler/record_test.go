package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jakaria-jihad/certchain/internal/admins"
	"github.com/jakaria-jihad/certchain/internal/docstore"
	"github.com/jakaria-jihad/certchain/internal/identity"
	"github.com/jakaria-jihad/certchain/internal/registrar/handler"
	"github.com/jakaria-jihad/certchain/internal/registrar/model"
	"github.com/jakaria-jihad/certchain/internal/registrar/service"
	"go.uber.org/zap"
)

type env struct {
	router *gin.Engine
	tokens *identity.SessionIssuer
	svc    *service.RecordService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := docstore.NewMemoryStore()
	logger := zap.NewNop()
	svc := service.NewRecordService(store, logger)
	adminSvc := admins.NewService(store, logger)

	tokens, err := identity.NewSessionIssuer("test-secret", "http://test", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	router := gin.New()
	v1 := router.Group("/api/v1")
	handler.NewRecordHandler(svc, tokens, logger).Register(v1)
	handler.NewAuthHandler(adminSvc, tokens, logger).Register(v1)

	return &env{router: router, tokens: tokens, svc: svc}
}

func (e *env) token(t *testing.T, adminID string, role model.Role) string {
	t.Helper()
	tok, err := e.tokens.Issue(adminID, role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func createDraft(t *testing.T, e *env) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/records", e.token(t, "A1", model.RoleEntry), gin.H{
		"student_id": "S100", "name": "Jane Doe", "major": "CS",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create draft: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestCreateRecord_requiresAuth(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/records", "", gin.H{
		"student_id": "S100", "name": "Jane Doe", "major": "CS",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", w.Code)
	}
}

func TestCreateRecord_editorForbidden(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/records", e.token(t, "E1", model.RoleEditor), gin.H{
		"student_id": "S100", "name": "Jane Doe", "major": "CS",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403, body %s", w.Code, w.Body.String())
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)
	createDraft(t, e)

	// Editor amends the major; supplied name must be ignored.
	w := e.do(t, http.MethodPatch, "/api/v1/records/S100", e.token(t, "E1", model.RoleEditor), gin.H{
		"name": "Impostor", "major": "Math",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("edit: status %d, body %s", w.Code, w.Body.String())
	}
	var edited model.StudentRecord
	if err := json.Unmarshal(w.Body.Bytes(), &edited); err != nil {
		t.Fatal(err)
	}
	if edited.Name != "Jane Doe" || edited.Major != "Math" {
		t.Errorf("after edit: name=%q major=%q", edited.Name, edited.Major)
	}

	// Chief finalizes.
	w = e.do(t, http.MethodPost, "/api/v1/records/S100/finalize", e.token(t, "C1", model.RoleChief), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("finalize: status %d, body %s", w.Code, w.Body.String())
	}
	var final model.StudentRecord
	if err := json.Unmarshal(w.Body.Bytes(), &final); err != nil {
		t.Fatal(err)
	}
	if !final.Finalized || final.SecurityHex == "" || final.BlockHash == "" {
		t.Fatalf("finalize response incomplete: %+v", final)
	}

	// Editing a finalized record is a state violation.
	w = e.do(t, http.MethodPatch, "/api/v1/records/S100", e.token(t, "E1", model.RoleEditor), gin.H{
		"major": "History",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("edit after finalize: status %d, want 409", w.Code)
	}

	// Public verification with the issued code.
	w = e.do(t, http.MethodGet, "/api/v1/verify?code="+final.SecurityHex, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: status %d, body %s", w.Code, w.Body.String())
	}
	var verifyResp struct {
		Record struct {
			StudentID          string     `json:"student_id"`
			TimestampFinalized *time.Time `json:"timestamp_finalized"`
		} `json:"record"`
		HashValid bool `json:"hash_valid"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &verifyResp); err != nil {
		t.Fatal(err)
	}
	if verifyResp.Record.StudentID != "S100" || !verifyResp.HashValid {
		t.Errorf("verify response: %+v", verifyResp)
	}
	if verifyResp.Record.TimestampFinalized == nil || verifyResp.Record.TimestampFinalized.IsZero() {
		t.Error("verify response must carry the finalization timestamp")
	}
}

func TestVerify_unknownCode(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/api/v1/verify?code=FFFFFFFFFFFF", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestVerify_emptyCode(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/api/v1/verify", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestGetRecord_viewFullIsChiefOnly(t *testing.T) {
	e := newEnv(t)
	createDraft(t, e)

	w := e.do(t, http.MethodGet, "/api/v1/records/S100", e.token(t, "E1", model.RoleEditor), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("editor full view: status %d, want 403", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/v1/records/S100", e.token(t, "C1", model.RoleChief), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chief full view: status %d", w.Code)
	}
	var rec model.StudentRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.AdminChain) != 1 {
		t.Errorf("full view must include the admin chain: %+v", rec.AdminChain)
	}
}

func TestGetAuditLog(t *testing.T) {
	e := newEnv(t)
	createDraft(t, e)

	w := e.do(t, http.MethodGet, "/api/v1/records/S100/log", e.token(t, "C1", model.RoleChief), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		AdminChain model.AdminChain `json:"admin_chain"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.AdminChain) != 1 || resp.AdminChain[0].Actions[0] != "added student" {
		t.Errorf("audit log: %+v", resp.AdminChain)
	}
}

func TestEditRecord_rejectsNonNumericCGPA(t *testing.T) {
	e := newEnv(t)
	createDraft(t, e)

	w := e.do(t, http.MethodPatch, "/api/v1/records/S100", e.token(t, "E1", model.RoleEditor), gin.H{
		"cgpa": "three point nine",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric cgpa: status %d, want 400", w.Code)
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	adminStore := docstore.NewMemoryStore()
	logger := zap.NewNop()
	adminSvc := admins.NewService(adminStore, logger)
	if _, err := adminSvc.Upsert(context.Background(), "C1", "Chief", model.RoleChief, "correct horse"); err != nil {
		t.Fatal(err)
	}

	router := gin.New()
	v1 := router.Group("/api/v1")
	handler.NewAuthHandler(adminSvc, e.tokens, logger).Register(v1)

	body, _ := json.Marshal(gin.H{"admin_id": "C1", "password": "correct horse"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	claims, err := e.tokens.Verify(resp.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != model.RoleChief {
		t.Errorf("token role: got %q, want chief", claims.Role)
	}

	// Wrong password.
	body, _ = json.Marshal(gin.H{"admin_id": "C1", "password": "wrong"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", w.Code)
	}
}
