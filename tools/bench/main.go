package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -------------------- 统计 --------------------

type APITestStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	latencies          []time.Duration
	mu                 sync.Mutex
}

func (s *APITestStats) Add(success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	if success {
		s.SuccessfulRequests++
		s.latencies = append(s.latencies, latency)
	} else {
		s.FailedRequests++
	}
}

func (s *APITestStats) percentile(p float64) time.Duration {
	if len(s.latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), s.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// Bench 按接口分别统计
type Bench struct {
	base   string
	client *http.Client
	mu     sync.Mutex
	stats  map[string]*APITestStats
}

func NewBench(base string) *Bench {
	return &Bench{
		base:   base,
		client: &http.Client{Timeout: 8 * time.Second},
		stats:  make(map[string]*APITestStats),
	}
}

func (b *Bench) statsFor(name string) *APITestStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stats[name]
	if !ok {
		s = &APITestStats{}
		b.stats[name] = s
	}
	return s
}

// call 发送请求并记录延迟；want 为期望的状态码
func (b *Bench) call(name, method, path, token, contentType string, body io.Reader, want int) ([]byte, error) {
	req, err := http.NewRequest(method, b.base+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	lat := time.Since(start)
	if err != nil {
		b.statsFor(name).Add(false, lat)
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	ok := resp.StatusCode == want
	b.statsFor(name).Add(ok, lat)
	if !ok {
		return data, fmt.Errorf("%s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func (b *Bench) signUp(username string) (string, error) {
	form := url.Values{"email": {username + "@bench.io"}, "password": {"Bench1234"}}
	data, err := b.call("sign-up", http.MethodPost, "/auth/sign-up?username="+username, "",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), http.StatusCreated)
	if err != nil {
		return "", err
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// flow 一对用户的完整流程：注册、请求、接受、列表、私聊
func (b *Bench) flow(messages int) error {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	alice, bob := "a"+suffix, "b"+suffix

	aliceTok, err := b.signUp(alice)
	if err != nil {
		return err
	}
	bobTok, err := b.signUp(bob)
	if err != nil {
		return err
	}
	if _, err := b.call("send-request", http.MethodPost, "/friends/requests/send-request?username="+bob,
		aliceTok, "", nil, http.StatusCreated); err != nil {
		return err
	}
	if _, err := b.call("accept", http.MethodPost, "/friends/requests/accept?requester_username="+alice,
		bobTok, "", nil, http.StatusCreated); err != nil {
		return err
	}
	if _, err := b.call("accepted", http.MethodGet, "/friends/requests/accepted?limit=10",
		aliceTok, "", nil, http.StatusOK); err != nil {
		return err
	}
	for i := 0; i < messages; i++ {
		body := fmt.Sprintf(`{"content":"bench message %d"}`, i)
		if _, err := b.call("send-message", http.MethodPost, "/messages/?addressee_username="+bob,
			aliceTok, "application/json", strings.NewReader(body), http.StatusCreated); err != nil {
			return err
		}
	}
	_, err = b.call("unread-count", http.MethodGet, "/messages/unread-count", bobTok, "", nil, http.StatusOK)
	return err
}

func (b *Bench) Report(took time.Duration) {
	names := make([]string, 0, len(b.stats))
	for name := range b.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\n=== 压测结果 ===")
	fmt.Printf("耗时: %v\n", took)
	total := 0
	for _, name := range names {
		s := b.stats[name]
		total += s.SuccessfulRequests
		fmt.Printf("%-14s 总请求: %5d 成功: %5d 失败: %4d p50: %v p99: %v\n",
			name, s.TotalRequests, s.SuccessfulRequests, s.FailedRequests,
			s.percentile(0.5), s.percentile(0.99))
	}
	if took > 0 {
		fmt.Printf("QPS: %.2f\n", float64(total)/took.Seconds())
	}
}

// -------------------- 入口 --------------------

func argInt(i, def int) int {
	if len(os.Args) > i {
		if v, err := strconv.Atoi(os.Args[i]); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	// 参数：并发数 每协程流程数 每流程消息数
	concurrency := argInt(1, 5)
	flows := argInt(2, 10)
	messages := argInt(3, 5)

	baseURL := os.Getenv("BENCH_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	fmt.Println("=== social-im 好友与消息流程压测 ===")
	fmt.Printf("开始时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("目标: %s 并发: %d 每协程流程: %d 每流程消息: %d\n", baseURL, concurrency, flows, messages)

	b := NewBench(baseURL)
	var wg sync.WaitGroup
	var failed sync.Map
	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < flows; j++ {
				if err := b.flow(messages); err != nil {
					failed.Store(fmt.Sprintf("%d-%d", id, j), err)
				}
			}
		}(i)
	}
	wg.Wait()

	b.Report(time.Since(start))
	n := 0
	failed.Range(func(k, v any) bool {
		if n < 5 {
			fmt.Println("失败流程:", k, v)
		}
		n++
		return true
	})
	if n > 0 {
		fmt.Printf("失败流程数: %d\n", n)
	}
	fmt.Println("\n=== 测试完成 ===")
}
