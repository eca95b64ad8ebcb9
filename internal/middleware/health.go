package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	healthTimeout = 5 * time.Second
	readyTimeout  = 2 * time.Second
)

// HealthChecker is anything the service depends on that can answer a ping:
// the history database, the image store, the classifier.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// DatabaseHealthChecker pings the history database.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return d.DB.PingContext(ctx)
}

// CheckerFunc adapts a plain function (memory backends, MinIO, classifier)
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// runChecks fans the checkers out concurrently so one slow dependency does not
// serialize the rest. Returns the failing names in sorted order.
func runChecks(ctx context.Context, checkers map[string]HealthChecker, up, down string) (map[string]CheckStatus, []string) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckStatus, len(checkers))
		failed []string
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, c HealthChecker) {
			defer wg.Done()
			st := CheckStatus{Status: up}
			if err := c.Check(ctx); err != nil {
				st = CheckStatus{Status: down, Message: err.Error()}
			}
			mu.Lock()
			defer mu.Unlock()
			checks[name] = st
			if st.Status == down {
				failed = append(failed, name)
			}
		}(name, checker)
	}
	wg.Wait()
	sort.Strings(failed)
	return checks, failed
}

func writeStatus(w http.ResponseWriter, ok bool, body any) {
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// HealthHandler reports every dependency, classifier included.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		checks, failed := runChecks(ctx, checkers, "healthy", "unhealthy")
		status := HealthStatus{Status: "healthy", Timestamp: time.Now(), Checks: checks}
		if len(failed) > 0 {
			status.Status = "unhealthy"
		}
		writeStatus(w, len(failed) == 0, status)
	}
}

// ReadinessHandler answers 503 until the checkers it was given respond.
// Only hard dependencies belong here; a down classifier still leaves
// uploads and history usable, so main keeps it on /healthz only.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		_, failed := runChecks(ctx, checkers, "ready", "not ready")
		body := map[string]any{"status": "ready", "timestamp": time.Now()}
		if len(failed) > 0 {
			body["status"] = "not ready"
			body["failing"] = failed
		}
		writeStatus(w, len(failed) == 0, body)
	}
}

// LivenessHandler never touches dependencies.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
