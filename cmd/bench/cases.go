// README: Bench cases; environment checks, API contract checks and a concurrent checkout load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"ravito/migrations"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"

	benchZone = "bench-zone"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

var checkoutPayload = map[string]any{
	"zone_id":  benchZone,
	"delivery": map[string]float64{"lat": 5.36, "lng": -4.02},
	"items":    []map[string]any{{"product_id": "flag-65", "name": "Flag 65cl", "quantity": 6, "unit_price": 650, "consigne_price": 100}},
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: pingDB},
		{Name: "Env: Redis connect", Run: pingRedis},
		{Name: "Migration: tables exist", Run: tablesExist},
		{Name: "Seed: bench zone and suppliers", Run: seed},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/health", "", nil, http.StatusOK)
		}},
		{Name: "API: rejects anonymous checkout", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/orders", "", checkoutPayload, http.StatusUnauthorized)
		}},
		{Name: "API: delivery quote", Run: func(ctx context.Context, r *Runner) Result {
			return r.asClient(ctx, "/api/delivery/quote", map[string]any{
				"zone_id": benchZone, "delivery": checkoutPayload["delivery"],
			}, http.StatusOK, http.StatusUnprocessableEntity)
		}},
		{Name: "API: checkout with empty cart -> 400", Run: func(ctx context.Context, r *Runner) Result {
			return r.asClient(ctx, "/api/orders", map[string]any{
				"zone_id": benchZone, "delivery": checkoutPayload["delivery"], "items": []any{},
			}, http.StatusBadRequest)
		}},
		{Name: "API: checkout in uncovered zone -> 422", Run: func(ctx context.Context, r *Runner) Result {
			return r.asClient(ctx, "/api/orders", map[string]any{
				"zone_id": "nowhere", "delivery": checkoutPayload["delivery"], "items": checkoutPayload["items"],
			}, http.StatusUnprocessableEntity)
		}},
		{Name: "Load: concurrent checkouts", Run: checkoutLoad},
		{Name: "Redis: no leases left behind", Run: leasesReleased},
	}
}

func pingDB(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func pingRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusFail, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	tables, err := extractTables(migrations.FS)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("%d tables", len(tables))}
}

// seed inserts one zone with three approved suppliers at increasing distance from the bench client.
func seed(ctx context.Context, r *Runner) Result {
	if !r.cfg.Seed {
		return Result{Status: statusSkip, Note: "seed=false"}
	}
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	stmts := []string{
		`INSERT INTO zones (id, name) VALUES ('bench-zone', 'Bench') ON CONFLICT DO NOTHING`,
		`INSERT INTO suppliers (id, name, is_approved, depot_lat, depot_lng) VALUES
			('bench-a', 'Bench A', TRUE, 5.37, -4.03),
			('bench-b', 'Bench B', TRUE, 5.42, -4.06),
			('bench-c', 'Bench C', TRUE, 5.50, -4.10)
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO supplier_zones (supplier_id, zone_id, approval_status) VALUES
			('bench-a', 'bench-zone', 'approved'),
			('bench-b', 'bench-zone', 'approved'),
			('bench-c', 'bench-zone', 'approved')
		 ON CONFLICT DO NOTHING`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}
	return Result{Status: statusPass}
}

func (r *Runner) clientToken() (string, error) {
	if r.cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret not set")
	}
	claims := jwt.MapClaims{
		"sub":  "bench-client",
		"role": "client",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(r.cfg.JWTSecret))
}

func (r *Runner) asClient(ctx context.Context, path string, body any, ok ...int) Result {
	token, err := r.clientToken()
	if err != nil {
		return Result{Status: statusSkip, Note: err.Error()}
	}
	return r.expect(ctx, http.MethodPost, path, token, body, ok...)
}

func (r *Runner) do(ctx context.Context, method, path, token string, body any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (r *Runner) expect(ctx context.Context, method, path, token string, body any, ok ...int) Result {
	start := time.Now()
	code, err := r.do(ctx, method, path, token, body)
	latency := time.Since(start)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	note := fmt.Sprintf("status=%d", code)
	if contains(ok, code) {
		return Result{Status: statusPass, Latency: latency, Note: note}
	}
	return Result{Status: statusFail, Latency: latency, Note: note}
}

// checkoutLoad runs concurrent checkouts against the bench zone and reports latency percentiles.
// Every response must be 201, 422 or 503 (suppliers busy); anything else means selection or persistence broke.
func checkoutLoad(ctx context.Context, r *Runner) Result {
	token, err := r.clientToken()
	if err != nil {
		return Result{Status: statusSkip, Note: err.Error()}
	}
	end := time.Now().Add(r.cfg.Duration)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		latencies []time.Duration
		byCode    = map[int]int{}
		errCount  int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				start := time.Now()
				code, err := r.do(ctx, http.MethodPost, "/api/orders", token, checkoutPayload)
				took := time.Since(start)
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					byCode[code]++
					latencies = append(latencies, took)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("no requests completed, errors=%d", errCount)}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p50 := latencies[len(latencies)/2]
	p95 := latencies[len(latencies)*95/100]
	note := fmt.Sprintf("n=%d created=%d no_supplier=%d busy=%d errors=%d p50=%s p95=%s",
		len(latencies), byCode[http.StatusCreated], byCode[http.StatusUnprocessableEntity],
		byCode[http.StatusServiceUnavailable], errCount, p50, p95)

	for code := range byCode {
		if !contains([]int{http.StatusCreated, http.StatusUnprocessableEntity, http.StatusServiceUnavailable}, code) {
			return Result{Status: statusFail, Note: fmt.Sprintf("unexpected status %d; %s", code, note)}
		}
	}
	return Result{Status: statusPass, Note: note}
}

func leasesReleased(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusFail, Note: "redis not configured"}
	}
	var held []string
	iter := r.redis.Scan(ctx, 0, "matching:supplier:*:lease", 100).Iterator()
	for iter.Next(ctx) {
		held = append(held, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(held) > 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("%d leases still held: %v", len(held), held)}
	}
	return Result{Status: statusPass}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTableRe.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}
