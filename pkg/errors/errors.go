package errors

import "errors"

// ── 课表同步核心错误分类 ──
//
// 四类错误对应不同的调用方处理策略：
//   - ErrCredentialMissing: 配置性错误，该用户未录入 Untis 凭据，请求直接失败
//   - ErrUnauthorized:      上游拒绝凭据，不自动重试（重试只会触发上游锁号）
//   - ErrLoginFailed:       登录阶段的网络/会话故障，下次请求可重试
//   - ErrFetchFailed:       数据拉取阶段的故障，下次请求可重试
//
// 上游返回"无数据"不是错误，正常返回空列表。

var (
	ErrCredentialMissing = errors.New("未配置 Untis 凭据")
	ErrUnauthorized      = errors.New("Untis 凭据被上游拒绝")
	ErrLoginFailed       = errors.New("Untis 登录失败")
	ErrFetchFailed       = errors.New("Untis 数据拉取失败")
)
