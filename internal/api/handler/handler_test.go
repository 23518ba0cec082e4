package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/dto"
	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/service"
	"github.com/davimluiz/painelalunosvercel/pkg/jwt"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult *dto.TokenResponse
	loginErr    error
	logoutErr   error
	loggedOut   *jwt.Claims
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Logout(_ context.Context, claims *jwt.Claims) error {
	m.loggedOut = claims
	return m.logoutErr
}
func (m *mockAuthService) Authenticate(_ context.Context, _ string) (*jwt.Claims, error) {
	return nil, jwt.ErrTokenInvalid
}

// ── Mock SessionService ──

type mockSessionService struct {
	listResult   *dto.SessionListResponse
	listErr      error
	listQuery    *dto.ListSessionsQuery
	getResult    *model.ClassSession
	getErr       error
	createResult *model.ClassSession
	createErr    error
	updateResult *model.ClassSession
	updateErr    error
	deleteErr    error
	clearErr     error
}

func (m *mockSessionService) List(_ context.Context, q *dto.ListSessionsQuery) (*dto.SessionListResponse, error) {
	m.listQuery = q
	return m.listResult, m.listErr
}
func (m *mockSessionService) Get(_ context.Context, _ string) (*model.ClassSession, error) {
	return m.getResult, m.getErr
}
func (m *mockSessionService) Create(_ context.Context, _ *dto.CreateSessionRequest) (*model.ClassSession, error) {
	return m.createResult, m.createErr
}
func (m *mockSessionService) Update(_ context.Context, _ string, _ *dto.UpdateSessionRequest) (*model.ClassSession, error) {
	return m.updateResult, m.updateErr
}
func (m *mockSessionService) Delete(_ context.Context, _ string) error { return m.deleteErr }
func (m *mockSessionService) Clear(_ context.Context) error            { return m.clearErr }

// ── Mock ImportService ──

type mockImportService struct {
	importResult *dto.ImportResponse
	importErr    error
	gotFilename  string
	gotContent   string
	syncResult   *dto.ImportResponse
	syncErr      error
}

func (m *mockImportService) ImportFile(_ context.Context, r io.Reader, filename string) (*dto.ImportResponse, error) {
	b, _ := io.ReadAll(r)
	m.gotFilename, m.gotContent = filename, string(b)
	return m.importResult, m.importErr
}
func (m *mockImportService) Sync(_ context.Context) (*dto.ImportResponse, error) {
	return m.syncResult, m.syncErr
}
func (m *mockImportService) Status(_ context.Context) *dto.ImportStatusResponse {
	return &dto.ImportStatusResponse{Running: true, LastCount: 7}
}

// ── Mock AnnouncementService ──

type mockAnnouncementService struct {
	list      []model.Announcement
	createErr error
	deleteErr error
}

func (m *mockAnnouncementService) List(_ context.Context) ([]model.Announcement, error) {
	return m.list, nil
}
func (m *mockAnnouncementService) Create(_ context.Context, req *dto.CreateAnnouncementRequest) (*model.Announcement, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &model.Announcement{ID: "ann-1", Type: model.AnnouncementImage, Src: req.Src}, nil
}
func (m *mockAnnouncementService) Delete(_ context.Context, _ string) error { return m.deleteErr }

// ── Mock DisplayService ──

type mockDisplayService struct {
	board    *dto.BoardResponse
	boardErr error
	gotQuery *dto.BoardQuery
	revision int64
}

func (m *mockDisplayService) Board(_ context.Context, _ time.Time, q *dto.BoardQuery) (*dto.BoardResponse, error) {
	m.gotQuery = q
	return m.board, m.boardErr
}
func (m *mockDisplayService) Revision(_ context.Context) (int64, error) {
	return m.revision, nil
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportXLSX(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportICS(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(method, path, route string, h gin.HandlerFunc, body io.Reader, contentType string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartFile(t *testing.T, field, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("创建 multipart 失败: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{loginResult: &dto.TokenResponse{AccessToken: "test-access-token", ExpiresIn: 3600}}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/login", "/auth/login", h.Login,
		jsonBody(dto.LoginRequest{Username: "admin", Password: "senha"}), "application/json")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/login", "/auth/login", h.Login, strings.NewReader("invalid json"), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := serve("POST", "/auth/login", "/auth/login", h.Login,
		jsonBody(dto.LoginRequest{Username: "admin", Password: "errada"}), "application/json")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	// 未注入 Claims
	w := serve("POST", "/auth/logout", "/auth/logout", h.Logout, nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	claims := &jwt.Claims{Role: jwt.RoleAdmin}
	r := gin.New()
	r.POST("/auth/logout", func(c *gin.Context) { c.Set(ClaimsKey, claims) }, h.Logout)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/logout", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.loggedOut != claims {
		t.Error("expected claims to be passed to Logout")
	}
}

// ═══════════════════════════════════════════════════════════
// SessionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSessionHandler_List(t *testing.T) {
	mock := &mockSessionService{listResult: &dto.SessionListResponse{
		Sessions: []model.ClassSession{{ID: "s1", Date: "01/03/2024"}}, Total: 1, Revision: 3,
	}}
	h := NewSessionHandler(mock)

	w := serve("GET", "/sessions?start=2024-03-01&end=2024-03-02", "/sessions", h.ListSessions, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listQuery.Start != "2024-03-01" || mock.listQuery.End != "2024-03-02" {
		t.Errorf("query not bound: %+v", mock.listQuery)
	}
	if !strings.Contains(w.Body.String(), `"aulas":[{"id":"s1"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestSessionHandler_Errors(t *testing.T) {
	cases := []struct {
		name     string
		mock     *mockSessionService
		method   string
		path     string
		route    string
		body     io.Reader
		pick     func(h *SessionHandler) gin.HandlerFunc
		wantHTTP int
		wantCode int
	}{
		{
			name: "get not found", mock: &mockSessionService{getErr: service.ErrSessionNotFound},
			method: "GET", path: "/sessions/x", route: "/sessions/:id",
			pick:     func(h *SessionHandler) gin.HandlerFunc { return h.GetSession },
			wantHTTP: http.StatusNotFound, wantCode: 21001,
		},
		{
			name: "create invalid", mock: &mockSessionService{createErr: fmt.Errorf("%w: inicio", service.ErrSessionInvalid)},
			method: "POST", path: "/sessions", route: "/sessions",
			body:     jsonBody(map[string]string{"data": "01/03/2024", "turma": "A", "inicio": "25:00"}),
			pick:     func(h *SessionHandler) gin.HandlerFunc { return h.CreateSession },
			wantHTTP: http.StatusBadRequest, wantCode: 21002,
		},
		{
			name: "create missing fields", mock: &mockSessionService{},
			method: "POST", path: "/sessions", route: "/sessions",
			body:     jsonBody(map[string]string{"sala": "VTRIA-01"}),
			pick:     func(h *SessionHandler) gin.HandlerFunc { return h.CreateSession },
			wantHTTP: http.StatusBadRequest, wantCode: 10001,
		},
		{
			name: "update not found", mock: &mockSessionService{updateErr: service.ErrSessionNotFound},
			method: "PUT", path: "/sessions/x", route: "/sessions/:id",
			body:     jsonBody(map[string]string{"sala": "VTRIA-02"}),
			pick:     func(h *SessionHandler) gin.HandlerFunc { return h.UpdateSession },
			wantHTTP: http.StatusNotFound, wantCode: 21001,
		},
		{
			name: "delete internal", mock: &mockSessionService{deleteErr: fmt.Errorf("disk full")},
			method: "DELETE", path: "/sessions/x", route: "/sessions/:id",
			pick:     func(h *SessionHandler) gin.HandlerFunc { return h.DeleteSession },
			wantHTTP: http.StatusInternalServerError, wantCode: 50000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewSessionHandler(tc.mock)
			w := serve(tc.method, tc.path, tc.route, tc.pick(h), tc.body, "application/json")
			if w.Code != tc.wantHTTP {
				t.Errorf("expected %d, got %d", tc.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tc.wantCode {
				t.Errorf("expected code %d, got %d", tc.wantCode, resp.Code)
			}
		})
	}
}

func TestSessionHandler_Create_Success(t *testing.T) {
	mock := &mockSessionService{createResult: &model.ClassSession{ID: "s1", Shift: model.ShiftNoturno}}
	h := NewSessionHandler(mock)

	w := serve("POST", "/sessions", "/sessions", h.CreateSession,
		jsonBody(map[string]string{"data": "01/03/2024", "turma": "A", "inicio": "19:00"}), "application/json")

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ImportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestImportHandler_ImportFile_Success(t *testing.T) {
	mock := &mockImportService{importResult: &dto.ImportResponse{ImportedCount: 2, Source: "aulas.csv"}}
	h := NewImportHandler(mock)

	body, ct := multipartFile(t, "file", "aulas.csv", "Data,Turma,Inicio\n01/03/2024,A,08:00\n")
	w := serve("POST", "/sessions/import", "/sessions/import", h.ImportFile, body, ct)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.gotFilename != "aulas.csv" || !strings.HasPrefix(mock.gotContent, "Data,Turma") {
		t.Errorf("file not forwarded: %q %q", mock.gotFilename, mock.gotContent)
	}
}

func TestImportHandler_ImportFile_MissingFile(t *testing.T) {
	h := NewImportHandler(&mockImportService{})

	body, ct := multipartFile(t, "arquivo", "aulas.csv", "x")
	w := serve("POST", "/sessions/import", "/sessions/import", h.ImportFile, body, ct)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestImportHandler_HeaderResolutionDetails(t *testing.T) {
	headerErr := &ingest.HeaderResolutionError{
		Missing: []ingest.Role{ingest.RoleDate, ingest.RoleStart},
		Headers: []string{"Ambiente", "Turma"},
	}
	h := NewImportHandler(&mockImportService{importErr: headerErr})

	body, ct := multipartFile(t, "file", "aulas.csv", "Ambiente,Turma\n")
	w := serve("POST", "/sessions/import", "/sessions/import", h.ImportFile, body, ct)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var resp struct {
		Code    int `json:"code"`
		Details struct {
			Missing []string `json:"missing"`
			Headers []string `json:"headers"`
		} `json:"details"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != 20001 || len(resp.Details.Missing) != 2 || len(resp.Details.Headers) != 2 {
		t.Errorf("unexpected error payload: %s", w.Body.String())
	}
}

func TestImportHandler_SyncErrors(t *testing.T) {
	cases := []struct {
		err      error
		wantHTTP int
		wantCode int
	}{
		{ingest.ErrNoValidRecords, http.StatusUnprocessableEntity, 20002},
		{fmt.Errorf("%w: HTTP 500", ingest.ErrSourceUnavailable), http.StatusBadGateway, 20003},
		{service.ErrImportBusy, http.StatusConflict, 20004},
		{fmt.Errorf("%w: zip", ingest.ErrUnreadableTable), http.StatusBadRequest, 20005},
		{service.ErrImportNoSource, http.StatusBadRequest, 10001},
	}
	for _, tc := range cases {
		h := NewImportHandler(&mockImportService{syncErr: tc.err})
		w := serve("POST", "/sessions/sync", "/sessions/sync", h.Sync, nil, "")
		if w.Code != tc.wantHTTP {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.wantHTTP, w.Code)
		}
		if resp := parseResponse(w); resp.Code != tc.wantCode {
			t.Errorf("%v: expected code %d, got %d", tc.err, tc.wantCode, resp.Code)
		}
	}
}

func TestImportHandler_Status(t *testing.T) {
	h := NewImportHandler(&mockImportService{})

	w := serve("GET", "/sessions/import/status", "/sessions/import/status", h.Status, nil, "")

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"running":true`) {
		t.Errorf("unexpected status response %d: %s", w.Code, w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// AnnouncementHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAnnouncementHandler(t *testing.T) {
	h := NewAnnouncementHandler(&mockAnnouncementService{createErr: service.ErrAnnouncementLimit})
	w := serve("POST", "/announcements", "/announcements", h.CreateAnnouncement,
		jsonBody(dto.CreateAnnouncementRequest{Src: "a.png"}), "application/json")
	if w.Code != http.StatusConflict || parseResponse(w).Code != 22002 {
		t.Errorf("limit: expected 409/22002, got %d/%d", w.Code, parseResponse(w).Code)
	}

	w = serve("POST", "/announcements", "/announcements", h.CreateAnnouncement,
		jsonBody(map[string]string{"src": "a.png", "type": "audio"}), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid type: expected 400, got %d", w.Code)
	}

	h = NewAnnouncementHandler(&mockAnnouncementService{deleteErr: service.ErrAnnouncementNotFound})
	w = serve("DELETE", "/announcements/x", "/announcements/:id", h.DeleteAnnouncement, nil, "")
	if w.Code != http.StatusNotFound || parseResponse(w).Code != 22001 {
		t.Errorf("delete: expected 404/22001, got %d", w.Code)
	}

	h = NewAnnouncementHandler(&mockAnnouncementService{})
	w = serve("POST", "/announcements", "/announcements", h.CreateAnnouncement,
		jsonBody(dto.CreateAnnouncementRequest{Src: "a.png"}), "application/json")
	if w.Code != http.StatusCreated {
		t.Errorf("create: expected 201, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// DisplayHandler Tests
// ═══════════════════════════════════════════════════════════

func TestDisplayHandler_Board(t *testing.T) {
	mock := &mockDisplayService{board: &dto.BoardResponse{
		Date: "01/03/2024", Shift: model.ShiftMatutino, ShiftLabel: "7:00 as 11:30",
		Cards: []dto.BoardCard{{ID: "s1", RoomShort: "Lab"}},
	}}
	h := NewDisplayHandler(mock, service.NewNotifier(), zap.NewNop())

	w := serve("GET", "/display/board?turno=manha&page=2", "/display/board", h.Board, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotQuery.Shift != "manha" || mock.gotQuery.Page != 2 {
		t.Errorf("query not bound: %+v", mock.gotQuery)
	}
	if !strings.Contains(w.Body.String(), `"horario_turno":"7:00 as 11:30"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestDisplayHandler_BoardInvalidQuery(t *testing.T) {
	mock := &mockDisplayService{boardErr: fmt.Errorf("%w: turno", service.ErrBoardInvalidQuery)}
	h := NewDisplayHandler(mock, service.NewNotifier(), zap.NewNop())

	w := serve("GET", "/display/board?turno=madrugada", "/display/board", h.Board, nil, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDisplayHandler_Revision(t *testing.T) {
	h := NewDisplayHandler(&mockDisplayService{revision: 42}, service.NewNotifier(), zap.NewNop())

	w := serve("GET", "/display/revision", "/display/revision", h.Revision, nil, "")

	if !strings.Contains(w.Body.String(), `"revision":42`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Download(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("BEGIN:VCALENDAR"), filename: "aulas_2024-03-01.ics"}
	h := NewExportHandler(mock)

	w := serve("GET", "/export/sessions.ics", "/export/sessions.ics", h.ExportICS, nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "aulas_2024-03-01.ics") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected Content-Type: %s", ct)
	}
}

func TestExportHandler_Empty(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportEmpty})

	w := serve("GET", "/export/sessions.xlsx", "/export/sessions.xlsx", h.ExportXLSX, nil, "")

	if w.Code != http.StatusNotFound || parseResponse(w).Code != 21003 {
		t.Errorf("expected 404/21003, got %d", w.Code)
	}
}
