package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/runger/dishdex/internal/dishes"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}

// fakeService is an in-process dish service.
type fakeService struct {
	mu          sync.Mutex
	listQueries []string
	recommends  []dishes.RecommendRequest
	ingredients int
}

func (f *fakeService) lists() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listQueries...)
}

func (f *fakeService) recommendCalls() []dishes.RecommendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dishes.RecommendRequest(nil), f.recommends...)
}

func (f *fakeService) ingredientCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ingredients
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/dishes":
		f.listQueries = append(f.listQueries, r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"items":[`+
			`{"id":1,"name":"Dal makhani","ingredients":"black lentils, butter","diet":"vegetarian","prep_time":15,"cook_time":60,"state":"Punjab","region":"North"},`+
			`{"id":2,"name":"Appam","ingredients":"rice, coconut","diet":"vegetarian","prep_time":-1,"cook_time":20,"state":"Kerala"}`+
			`],"meta":{"total":12}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/dishes/ingredients":
		f.ingredients++
		_, _ = io.WriteString(w, `{"data":["rice","ghee","coconut"]}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/dishes/from-ingredients":
		var req dishes.RecommendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.recommends = append(f.recommends, req)
		_, _ = io.WriteString(w, `{"data":[{"id":7,"name":"Ghee rice","ingredients":"rice, ghee"}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/dishes/1":
		_, _ = io.WriteString(w, `{"data":{"id":1,"name":"Dal makhani","ingredients":"black lentils, butter","diet":"vegetarian","prep_time":15,"cook_time":-1,"spice_level":"medium"}}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/dishes/"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Dish not found"}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

// withTestEnv points every dishdex path at a temp dir and the service at a
// fake. Colors are off so output can be compared.
func withTestEnv(t *testing.T) *fakeService {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(dir, "run"))
	t.Setenv("DISHDEX_LOG_LEVEL", "")
	t.Setenv("DISHDEX_DEBUG", "")

	svc := &fakeService{}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	t.Setenv("DISHDEX_API_URL", srv.URL+"/api")

	oldAPI := apiURL
	apiURL = ""
	t.Cleanup(func() { apiURL = oldAPI })

	disableColors()
	t.Cleanup(applyColorMode)
	return svc
}

type accountGlobals struct {
	email    string
	password string
	stdin    bool
}

func withAccountGlobals(t *testing.T, g accountGlobals) {
	t.Helper()
	old := accountGlobals{email: accountEmail, password: accountPassword, stdin: accountPasswordStdin}
	accountEmail = g.email
	accountPassword = g.password
	accountPasswordStdin = g.stdin
	t.Cleanup(func() {
		accountEmail = old.email
		accountPassword = old.password
		accountPasswordStdin = old.stdin
	})
}

// signIn registers and signs in a test account.
func signIn(t *testing.T) {
	t.Helper()
	withAccountGlobals(t, accountGlobals{email: "cook@example.com", password: "s3cret"})
	captureStdout(t, func() {
		if err := runRegister(registerCmd, nil); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := runLogin(loginCmd, nil); err != nil {
			t.Fatalf("login: %v", err)
		}
	})
}
