package storefeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func upstreamJSON(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const productsBody = `{"products":[
	{"id":1,"title":"Phone","image":"p.png","price":499.9,"description":"d","brand":"Acme","model":"X1","category":"electronics"},
	{"id":2,"title":"Laptop","image":"l.png","price":1299,"description":"d","brand":"Acme","model":"B2","category":"electronics","onSale":true}
]}`

const usersBody = `{"users":[
	{"id":1,"email":"ada@example.com","username":"ada","password":"pw","phone":"555",
	 "name":{"firstname":"Ada","lastname":"Lovelace"},
	 "address":{"city":"London","street":"St James Sq","number":12,"zipcode":"SW1Y",
	            "geolocation":{"lat":"51.5","long":"-0.13"}}}
]}`

func newTestService(t *testing.T, productsURL, usersURL string) *Service {
	t.Helper()
	svc, err := New(&Config{
		DBPath: ":memory:",
		Sources: SourcesConfig{
			Products: productsURL,
			Users:    usersURL,
		},
		Fetch: FetchConfig{Timeout: Duration(5 * time.Second)},
	}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestServiceRunOnce(t *testing.T) {
	// WHAT: One run ingests both entities, rebuilds both projections, and
	// records a run_log entry.
	products := upstreamJSON(t, productsBody)
	users := upstreamJSON(t, usersBody)
	svc := newTestService(t, products.URL, users.URL)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !report.IngestOK {
		t.Error("ingest should succeed")
	}
	if report.Projections["most_expensive"] != 2 {
		t.Errorf("most_expensive: got %d, want 2", report.Projections["most_expensive"])
	}
	if report.Projections["ods_users"] != 1 {
		t.Errorf("ods_users: got %d, want 1", report.Projections["ods_users"])
	}

	stats, err := svc.Store().Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["products"] != 2 || stats["users"] != 1 {
		t.Errorf("primary counts: got %v", stats)
	}

	runs, err := svc.runs.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("run history: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("run history: got %d entries, want 1", len(runs))
	}
	if runs[0].RunID != report.RunID {
		t.Errorf("run id: got %q, want %q", runs[0].RunID, report.RunID)
	}
}

func TestServiceRunOnceDegradedSource(t *testing.T) {
	// WHAT: With both upstreams down, the run still completes: ingest is OK
	// with zero rows and projections report 0.
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(down.Close)
	svc := newTestService(t, down.URL, down.URL)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !report.IngestOK {
		t.Error("empty fetches should not fail the run")
	}
	if report.Projections["most_expensive"] != 0 || report.Projections["ods_users"] != 0 {
		t.Errorf("projections: got %v, want zeros", report.Projections)
	}
}

func TestServiceConcurrentRunRejected(t *testing.T) {
	// WHAT: A second RunOnce while the first is fetching returns
	// ErrRunInProgress.
	// WHY: Concurrent runs against the same relations are unsafe.
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.Write([]byte(`{"products":[]}`))
	}))
	t.Cleanup(slow.Close)

	users := upstreamJSON(t, `{"users":[]}`)
	svc := newTestService(t, slow.URL, users.URL)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunOnce(context.Background())
	}()

	<-started
	if _, err := svc.RunOnce(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("error: got %v, want ErrRunInProgress", err)
	}
	close(release)
	<-done
}

func TestServiceHTTPSurface(t *testing.T) {
	// WHAT: The JSON API exposes health, run trigger, stats, and browsing.
	products := upstreamJSON(t, productsBody)
	users := upstreamJSON(t, usersBody)
	svc := newTestService(t, products.URL, users.URL)
	api := httptest.NewServer(svc.Handler())
	t.Cleanup(api.Close)

	resp, err := http.Get(api.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: got %d", resp.StatusCode)
	}

	resp, err = http.Post(api.URL+"/api/run", "application/json", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var report RunReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	resp.Body.Close()
	if !report.IngestOK {
		t.Error("ingest should succeed")
	}

	resp, err = http.Get(api.URL + "/api/tables/products?sort_by=price&sort_order=desc")
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	var page struct {
		TotalItems int64            `json:"total_items"`
		Rows       []map[string]any `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	resp.Body.Close()
	if page.TotalItems != 2 {
		t.Errorf("total items: got %d, want 2", page.TotalItems)
	}
	if len(page.Rows) > 0 && page.Rows[0]["title"] != "Laptop" {
		t.Errorf("first row by price desc: got %v", page.Rows[0]["title"])
	}

	resp, err = http.Get(api.URL + "/api/tables/secrets")
	if err != nil {
		t.Fatalf("browse unknown: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown table: got %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(api.URL + "/api/runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var entries []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	resp.Body.Close()
	if len(entries) != 1 {
		t.Errorf("run entries: got %d, want 1", len(entries))
	}
}
