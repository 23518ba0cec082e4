package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	"github.com/davimluiz/painelalunosvercel/internal/api/handler"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
	"github.com/davimluiz/painelalunosvercel/internal/service"
	"github.com/davimluiz/painelalunosvercel/pkg/jwt"
)

const sampleCSV = "Data,Ambiente,Turma,Instrutor,Unidade Curricular,Inicio,Fim\n" +
	"01/03/2024,VTRIA-05-Lab Redes,Turma A,Maria,Redes,08:00,11:30\n" +
	"01/03/2024,VTRIA-06-Lab,Turma B,João,Lógica,19:00,22:00\n"

func setupEngine(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 3001, MaxBodyBytes: 1 << 20},
		Auth: config.AuthConfig{
			AdminUsername:  "admin",
			AdminPassword:  "senha-secreta",
			JWTSecret:      "test-secret-key-at-least-16",
			AccessTokenTTL: time.Hour,
		},
		Ingest:  config.IngestConfig{MaxFileBytes: 1 << 20, RoomPrefix: "VTRIA-"},
		Display: config.DisplayConfig{ItemsPerPage: 8, MaxAnnouncements: 4},
	}

	repo, err := repository.NewMemoryRepository("")
	if err != nil {
		t.Fatalf("创建内存存储失败: %v", err)
	}
	logger := zap.NewNop()
	svc := service.NewService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, logger)
	engine := Setup(cfg, handler.NewHandler(svc, logger), svc.Auth, nil, logger)
	gin.SetMode(gin.TestMode)
	return engine
}

func do(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "senha-secreta"})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := do(engine, req)
	if w.Code != http.StatusOK {
		t.Fatalf("登录失败 %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Data.AccessToken
}

func uploadRequest(t *testing.T, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "aulas.csv")
	fw.Write([]byte(sampleCSV))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/sessions/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRouter_ImportThenBoard(t *testing.T) {
	engine := setupEngine(t)

	if w := do(engine, httptest.NewRequest("GET", "/health", nil)); w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}

	// 未登录不能导入
	if w := do(engine, uploadRequest(t, "")); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	token := login(t, engine)
	w := do(engine, uploadRequest(t, token))
	if w.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(engine, httptest.NewRequest("GET", "/api/v1/display/board?data=01/03/2024&turno=manha", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("board: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var board struct {
		Data struct {
			Shift string `json:"turno"`
			Cards []struct {
				ClassGroup string `json:"turma"`
				RoomShort  string `json:"sala_curta"`
			} `json:"aulas"`
			Revision int64 `json:"revision"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &board)
	if board.Data.Shift != "Matutino" || len(board.Data.Cards) != 1 {
		t.Fatalf("unexpected board: %s", w.Body.String())
	}
	if board.Data.Cards[0].ClassGroup != "Turma A" || board.Data.Cards[0].RoomShort != "Lab Redes" {
		t.Errorf("unexpected card: %+v", board.Data.Cards[0])
	}
	if board.Data.Revision == 0 {
		t.Error("revision should advance after import")
	}

	// 公开列表
	w = do(engine, httptest.NewRequest("GET", "/api/v1/sessions", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"total":2`)) {
		t.Errorf("sessions list: %d %s", w.Code, w.Body.String())
	}
}

func TestRouter_LogoutRequiresToken(t *testing.T) {
	engine := setupEngine(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	if w := do(engine, req); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	token := login(t, engine)
	req = httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(engine, req); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
