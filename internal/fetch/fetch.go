// 包 fetch：外部抓取协作者的最小契约与默认 HTTP 实现
// 背景：图层源与转换代理统一通过 Fetch(url, host) 取回原始字节；
// 失败以 error 形式返回，由聚合层按单图层软失败处理
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Fetcher：抓取协作者契约；host 为可选的 Host 头提示（转换代理回源场景）
type Fetcher interface {
	Fetch(ctx context.Context, url, host string) ([]byte, error)
}

// HTTPFetcher：默认实现，带固定超时的共享客户端
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher：按环境变量构造默认抓取器（FETCH_TIMEOUT_SECONDS，默认 10 秒）
func NewHTTPFetcher() *HTTPFetcher {
	timeout := 10
	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: time.Duration(timeout) * time.Second}}
}

var errBadStatus = errors.New("fetch: non-2xx status")

// Fetch：取回原始字节；非 2xx 状态按下载错误处理
func (f *HTTPFetcher) Fetch(ctx context.Context, url, host string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if host != "" {
		req.Host = host
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errBadStatus
	}
	return io.ReadAll(resp.Body)
}
