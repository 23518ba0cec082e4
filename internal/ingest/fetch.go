package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// ErrSourceUnavailable 数据源无法获取（网络/文件错误）
var ErrSourceUnavailable = errors.New("课表数据源不可用")

const defaultFetchTimeout = 30 * time.Second

// Source 获取到的原始课表文件
type Source struct {
	Name string
	Data []byte
}

// Fetcher 通过 HTTP 获取课表文件
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher 创建 Fetcher；timeout<=0 时使用默认 30s
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

// Fetch 下载 rawURL 指向的 CSV/XLSX 文件
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: 无效的地址 %q", ErrSourceUnavailable, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrSourceUnavailable, resp.StatusCode)
	}

	// 限制响应体大小，防止异常地址返回超大内容
	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应失败: %v", ErrSourceUnavailable, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: 文件超过 %d 字节", ErrSourceUnavailable, f.maxBytes)
	}

	return &Source{Name: path.Base(u.Path), Data: data}, nil
}
