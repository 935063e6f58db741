package sender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sudooom.im.typing/internal/config"
	imErrors "sudooom.im.typing/pkg/errors"
	"sudooom.im.typing/pkg/proto"
)

// typingPath 服务端输入状态接口
const typingPath = "/json/typing"

// maxErrorBody 错误日志中保留的响应体长度
const maxErrorBody = 512

// HTTPSender 通过 HTTP 表单上报输入状态
type HTTPSender struct {
	endpoint string
	email    string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPSender 创建 HTTP 发送器，email 与 apiKey 用于 Basic 认证
func NewHTTPSender(cfg config.HTTPConfig, email string) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSender{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + typingPath,
		email:    email,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   slog.Default(),
	}
}

// Send 发送一条通知，非 2xx 响应返回 ErrTransport
func (s *HTTPSender) Send(ctx context.Context, notice *proto.TypingNotice) error {
	form := url.Values{}
	form.Set("to", notice.To)
	form.Set("op", string(notice.Op))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return imErrors.ErrTransport.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.apiKey != "" {
		req.SetBasicAuth(s.email, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return imErrors.ErrTransport.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return imErrors.ErrTransport.Wrap(fmt.Errorf("typing notice rejected: %s: %s",
			resp.Status, strings.TrimSpace(string(body))))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}
