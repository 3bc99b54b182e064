package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/dto"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/service"
	pkgerrors "github.com/LimoEisbxr/untis-pro-sub002/pkg/errors"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock TimetableService ──

type mockTimetableService struct {
	result *service.ScheduleResult
	err    error

	gotRequesterID string
	gotOwnerID     string
	gotStart       *time.Time
	gotEnd         *time.Time
}

func (m *mockTimetableService) GetOrFetchSchedule(_ context.Context, requesterID, ownerID string, start, end *time.Time) (*service.ScheduleResult, error) {
	m.gotRequesterID = requesterID
	m.gotOwnerID = ownerID
	m.gotStart = start
	m.gotEnd = end
	return m.result, m.err
}

func (m *mockTimetableService) Close() {}

// ── Mock CredentialService ──

type mockCredentialService struct {
	setErr    error
	getResult *dto.CredentialInfo
	getErr    error
	deleteErr error
}

func (m *mockCredentialService) Set(_ context.Context, _ string, _ *dto.SetCredentialRequest) error {
	return m.setErr
}
func (m *mockCredentialService) Get(_ context.Context, _ string) (*dto.CredentialInfo, error) {
	return m.getResult, m.getErr
}
func (m *mockCredentialService) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

// ── 测试辅助 ──

// performAuthed 以注入好 user_id 的上下文执行一次请求
func performAuthed(handlerFunc gin.HandlerFunc, method, target string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, engine := gin.CreateTestContext(w)
	engine.Use(func(c *gin.Context) {
		c.Set("user_id", "11111111-1111-1111-1111-111111111111")
	})
	engine.Handle(method, "/test", handlerFunc)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, "/test"+target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v (body: %s)", err, w.Body.String())
	}
	return resp
}

// ═══════════════════════════════════════════════════════════
// TimetableHandler
// ═══════════════════════════════════════════════════════════

func TestGetMySchedule_OK(t *testing.T) {
	mock := &mockTimetableService{
		result: &service.ScheduleResult{Cached: true},
	}
	h := NewTimetableHandler(mock)

	w := performAuthed(h.GetMySchedule, http.MethodGet, "?start=2024-03-04&end=2024-03-10", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d: %s", w.Code, w.Body.String())
	}
	if mock.gotOwnerID != mock.gotRequesterID {
		t.Error("自查自己的课表时 requester 与 owner 应一致")
	}
	if mock.gotStart == nil || mock.gotStart.Format("2006-01-02") != "2024-03-04" {
		t.Errorf("start 解析错误: %v", mock.gotStart)
	}
	if mock.gotEnd == nil || mock.gotEnd.Format("2006-01-02") != "2024-03-10" {
		t.Errorf("end 解析错误: %v", mock.gotEnd)
	}
}

func TestGetMySchedule_NoBoundsAreOptional(t *testing.T) {
	mock := &mockTimetableService{result: &service.ScheduleResult{}}
	h := NewTimetableHandler(mock)

	w := performAuthed(h.GetMySchedule, http.MethodGet, "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("无区间参数应合法, 实际 %d", w.Code)
	}
	if mock.gotStart != nil || mock.gotEnd != nil {
		t.Error("缺省区间应以 nil 下传, 由服务层规范化")
	}
}

func TestGetMySchedule_BadDateFormat(t *testing.T) {
	h := NewTimetableHandler(&mockTimetableService{})

	w := performAuthed(h.GetMySchedule, http.MethodGet, "?start=04.03.2024", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("非法日期格式期望 400, 实际 %d", w.Code)
	}
}

func TestGetMySchedule_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"凭据缺失", pkgerrors.ErrCredentialMissing, http.StatusPreconditionFailed},
		{"上游拒绝凭据", pkgerrors.ErrUnauthorized, http.StatusBadGateway},
		{"上游登录失败", pkgerrors.ErrLoginFailed, http.StatusBadGateway},
		{"上游拉取失败", pkgerrors.ErrFetchFailed, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTimetableHandler(&mockTimetableService{err: tc.err})
			w := performAuthed(h.GetMySchedule, http.MethodGet, "", nil)
			if w.Code != tc.wantStatus {
				t.Errorf("期望 HTTP %d, 实际 %d", tc.wantStatus, w.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// CredentialHandler
// ═══════════════════════════════════════════════════════════

func TestSetCredential_OK(t *testing.T) {
	h := NewCredentialHandler(&mockCredentialService{})

	body, _ := json.Marshal(dto.SetCredentialRequest{
		School: "gym-musterstadt", Username: "schueler", Password: "geheim123",
	})
	w := performAuthed(h.SetCredential, http.MethodPut, "", body)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200, 实际 %d: %s", w.Code, w.Body.String())
	}
}

func TestSetCredential_MissingFields(t *testing.T) {
	h := NewCredentialHandler(&mockCredentialService{})

	body, _ := json.Marshal(map[string]string{"school": "x"})
	w := performAuthed(h.SetCredential, http.MethodPut, "", body)

	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少必填字段期望 400, 实际 %d", w.Code)
	}
}

func TestGetCredential_NotConfigured(t *testing.T) {
	h := NewCredentialHandler(&mockCredentialService{getErr: pkgerrors.ErrCredentialMissing})

	w := performAuthed(h.GetCredential, http.MethodGet, "", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("未配置凭据期望 404, 实际 %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Code != 12001 {
		t.Errorf("业务码期望 12001, 实际 %d", resp.Code)
	}
}

