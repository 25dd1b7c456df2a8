package modrinth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type pickFirst struct{}

func (pickFirst) Intn(int) int                { return 0 }
func (pickFirst) Float64() float64            { return 0 }
func (pickFirst) Shuffle(int, func(i, j int)) {}

func newAPIServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/project/test-mod", func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write([]byte(`{"slug":"test-mod","title":"Test Mod","downloads":1234}`))
	})
	mux.HandleFunc("/project/test-mod/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name":"Release 1.0","version_number":"1.0","loaders":["fabric"],"game_versions":["1.20.1"],
			 "files":[{"url":"https://cdn.example/mod-1.0.jar","filename":"mod-1.0.jar","primary":true,"size":1000},
			          {"url":"https://cdn.example/mod-1.0-sources.jar","filename":"mod-1.0-sources.jar","primary":false,"size":500}]},
			{"name":"Broken","version_number":"0.9","loaders":["forge"],"game_versions":["1.19"],"files":[]}
		]`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestEnsure_LoadsOnceAndCaches(t *testing.T) {
	var hits atomic.Int64
	server := newAPIServer(t, &hits)

	client := NewClient(server.URL, "test-mod", "", 2*time.Second)
	for i := 0; i < 3; i++ {
		if err := client.Ensure(context.Background()); err != nil {
			t.Fatalf("Ensure returned error: %v", err)
		}
	}

	if hits.Load() != 1 {
		t.Fatalf("project endpoint hit %d times, want 1", hits.Load())
	}
	if client.Project().Title != "Test Mod" {
		t.Fatalf("Project title = %q, want Test Mod", client.Project().Title)
	}
	if len(client.Versions()) != 2 {
		t.Fatalf("cached %d versions, want 2", len(client.Versions()))
	}
}

func TestEnsure_FailedLoadIsRetriable(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/project/test-mod" {
			_, _ = w.Write([]byte(`{"slug":"test-mod","title":"Test Mod"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "test-mod", "", 2*time.Second)
	if err := client.Ensure(context.Background()); err == nil {
		t.Fatal("Ensure succeeded against a failing API")
	}

	fail.Store(false)
	if err := client.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure did not recover after API came back: %v", err)
	}
}

func TestRandomTarget_PrefersPrimaryAndSkipsFilelessVersions(t *testing.T) {
	server := newAPIServer(t, nil)
	client := NewClient(server.URL, "test-mod", "", 2*time.Second)
	if err := client.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}

	target, err := client.RandomTarget(pickFirst{})
	if err != nil {
		t.Fatalf("RandomTarget returned error: %v", err)
	}
	if target.File.Filename != "mod-1.0.jar" {
		t.Fatalf("RandomTarget picked %q, want primary mod-1.0.jar", target.File.Filename)
	}
	if target.Version.Name != "Release 1.0" {
		t.Fatalf("RandomTarget picked version %q, want Release 1.0", target.Version.Name)
	}
}

func TestRandomTarget_NoFilesAnywhere(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/project/empty", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"slug":"empty","title":"Empty"}`))
	})
	mux.HandleFunc("/project/empty/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"v","files":[]}]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "empty", "", 2*time.Second)
	if err := client.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}

	if _, err := client.RandomTarget(pickFirst{}); err == nil {
		t.Fatal("RandomTarget succeeded with no downloadable files")
	}
}

func TestPageURL_FallsBackToSlug(t *testing.T) {
	server := newAPIServer(t, nil)

	explicit := NewClient(server.URL, "test-mod", "https://example.com/page", 2*time.Second)
	if got := explicit.PageURL(); got != "https://example.com/page" {
		t.Fatalf("PageURL = %q, want explicit override", got)
	}

	derived := NewClient(server.URL, "test-mod", "", 2*time.Second)
	if err := derived.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if got := derived.PageURL(); got != "https://modrinth.com/mod/test-mod" {
		t.Fatalf("PageURL = %q, want slug-derived URL", got)
	}
}
