package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"mastothread/internal/adapters/cache"
	"mastothread/internal/adapters/web"
	"mastothread/internal/domain"
	"mastothread/internal/usecases"
)

// fakeStore is an in-memory SettingsStore.
type fakeStore struct {
	settings domain.Settings
}

func (s *fakeStore) Load() (domain.Settings, error) { return s.settings, nil }
func (s *fakeStore) Save(settings domain.Settings) error {
	s.settings = settings
	return nil
}

// fakeFiles is an in-memory FileStore and FileOpener.
type fakeFiles struct {
	files map[string]int64
}

func (f *fakeFiles) Resolve(ref string) (domain.MediaFile, error) {
	size, ok := f.files[ref]
	if !ok {
		return domain.MediaFile{}, &domain.MediaError{Path: ref, Reason: domain.MediaFileNotFound}
	}
	return domain.MediaFile{Path: "/media/" + ref, Size: size}, nil
}

func (f *fakeFiles) Open(file domain.MediaFile) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("bytes")), nil
}

// fakeServer answers every server call with canned values.
type fakeServer struct {
	snap        domain.Capability
	instanceErr error
	statusIDs   map[string]string
	posts       int
	uploads     int
	createErrAt int
	creds       domain.AppCredentials
	token       string
	verified    bool
}

func (s *fakeServer) Instance(ctx context.Context) (domain.Capability, error) {
	if s.instanceErr != nil {
		return domain.Capability{}, s.instanceErr
	}
	return s.snap, nil
}

func (s *fakeServer) SearchStatus(ctx context.Context, query string) (string, error) {
	return s.statusIDs[query], nil
}

func (s *fakeServer) UploadMedia(ctx context.Context, file io.Reader, filename, description string) (domain.UploadReceipt, error) {
	s.uploads++
	return domain.UploadReceipt{MediaID: fmt.Sprintf("media-%d", s.uploads), RateRemaining: domain.RateUnknown}, nil
}

func (s *fakeServer) CreateStatus(ctx context.Context, draft domain.StatusDraft) (domain.CreateReceipt, error) {
	s.posts++
	if s.createErrAt == s.posts {
		return domain.CreateReceipt{}, fmt.Errorf("server exploded")
	}
	return domain.CreateReceipt{ID: fmt.Sprintf("status-%d", s.posts), RateRemaining: domain.RateUnknown}, nil
}

func (s *fakeServer) RegisterApp(ctx context.Context, redirectURI string) (domain.AppCredentials, error) {
	return s.creds, nil
}

func (s *fakeServer) AuthorizeURL(clientID, redirectURI string) string {
	return "https://mastodon.example/oauth/authorize?client_id=" + clientID
}

func (s *fakeServer) ExchangeCode(ctx context.Context, creds domain.AppCredentials, code, redirectURI string) (string, error) {
	return s.token, nil
}

func (s *fakeServer) VerifyCredentials(ctx context.Context) (bool, error) {
	return s.verified, nil
}

func connectedSettings() domain.Settings {
	settings := domain.DefaultSettings()
	settings.Server = "mastodon.example"
	settings.ClientID = "id-1"
	settings.ClientSecret = "secret-1"
	settings.AccessToken = "token-1"
	return settings
}

func setupApp(store *fakeStore, server *fakeServer, files *fakeFiles) *fiber.App {
	if files == nil {
		files = &fakeFiles{files: map[string]int64{}}
	}
	compose := usecases.NewComposeThreadUseCase(files)
	publish := usecases.NewPublishThreadUseCase(files)
	caps := usecases.NewRefreshCapabilitiesUseCase(cache.NewCapabilityCache(5 * time.Minute))
	auth := usecases.NewAuthorizeUseCase(store)

	factory := func(host, token string) web.ServerClient { return server }
	handlers := web.NewHandlers(compose, publish, caps, auth, store, factory,
		"http://localhost:8080/api/auth/callback")

	app := fiber.New()
	web.SetupRoutes(app, handlers)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	return doJSON(t, app, "POST", path, body)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func TestHealthz(t *testing.T) {
	app := setupApp(&fakeStore{settings: domain.DefaultSettings()}, &fakeServer{}, nil)

	resp, body := doJSON(t, app, "GET", "/healthz", nil)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body: got %v", body)
	}
}

func TestPreviewThread(t *testing.T) {
	store := &fakeStore{settings: connectedSettings()}
	server := &fakeServer{snap: domain.DefaultCapability()}
	app := setupApp(store, server, nil)

	resp, body := postJSON(t, app, "/api/thread/preview", map[string]string{
		"text": "first\n§\nsecond",
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200, body %v", resp.StatusCode, body)
	}
	fragments, ok := body["fragments"].([]any)
	if !ok || len(fragments) != 2 {
		t.Fatalf("fragments: got %v", body["fragments"])
	}
	first := fragments[0].(map[string]any)
	if first["text"] != "first" {
		t.Errorf("first fragment: got %v", first["text"])
	}
	if body["request_estimate"].(float64) != 2 {
		t.Errorf("request estimate: got %v, want 2", body["request_estimate"])
	}
}

func TestPreviewThread_NotConnected(t *testing.T) {
	app := setupApp(&fakeStore{settings: domain.DefaultSettings()}, &fakeServer{snap: domain.DefaultCapability()}, nil)

	resp, _ := postJSON(t, app, "/api/thread/preview", map[string]string{"text": "hello"})

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", resp.StatusCode)
	}
}

func TestPreviewThread_TooLong(t *testing.T) {
	settings := connectedSettings()
	settings.MaxPost = 10
	app := setupApp(&fakeStore{settings: settings}, &fakeServer{snap: domain.DefaultCapability()}, nil)

	resp, body := postJSON(t, app, "/api/thread/preview", map[string]string{
		"text": "this is well over ten characters",
	})

	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422, body %v", resp.StatusCode, body)
	}
	if body["condition"] != "post_too_long" {
		t.Errorf("condition: got %v, want post_too_long", body["condition"])
	}
}

func TestPublishThread_MissingDescriptionGate(t *testing.T) {
	store := &fakeStore{settings: connectedSettings()}
	server := &fakeServer{snap: domain.DefaultCapability()}
	files := &fakeFiles{files: map[string]int64{"cat.png": 1024}}
	app := setupApp(store, server, files)

	resp, body := postJSON(t, app, "/api/thread/publish", map[string]any{
		"text": "no alt text here ![[cat.png]]",
	})

	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422, body %v", resp.StatusCode, body)
	}
	if body["condition"] != "missing_descriptions" {
		t.Errorf("condition: got %v, want missing_descriptions", body["condition"])
	}
	if server.posts != 0 {
		t.Errorf("posts made through the gate: %d", server.posts)
	}

	resp, body = postJSON(t, app, "/api/thread/publish", map[string]any{
		"text":                     "no alt text here ![[cat.png]]",
		"ack_missing_descriptions": true,
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("acknowledged publish: got %d, want 200, body %v", resp.StatusCode, body)
	}
}

func TestPreviewThread_MalformedBody(t *testing.T) {
	app := setupApp(&fakeStore{settings: connectedSettings()}, &fakeServer{}, nil)

	req := httptest.NewRequest("POST", "/api/thread/preview", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode response %q: %v", raw, err)
	}
	if body["condition"] != "bad_request" {
		t.Errorf("condition: got %v, want bad_request", body["condition"])
	}
	if _, present := body["fragments"]; present {
		t.Errorf("rejected request still composed a plan: %v", body)
	}
}

func TestPublishThread_InvalidVisibilityRejected(t *testing.T) {
	store := &fakeStore{settings: connectedSettings()}
	server := &fakeServer{snap: domain.DefaultCapability()}
	app := setupApp(store, server, nil)

	resp, body := postJSON(t, app, "/api/thread/publish", map[string]string{
		"text":             "hello",
		"visibility_first": "banana",
	})

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status: got %d, want 400, body %v", resp.StatusCode, body)
	}
	if body["condition"] != "bad_request" {
		t.Errorf("condition: got %v, want bad_request", body["condition"])
	}
	if server.posts != 0 || server.uploads != 0 {
		t.Errorf("rejected request reached the server: posts=%d uploads=%d", server.posts, server.uploads)
	}
}

func TestPublishThread(t *testing.T) {
	store := &fakeStore{settings: connectedSettings()}
	server := &fakeServer{snap: domain.DefaultCapability()}
	files := &fakeFiles{files: map[string]int64{"cat.png": 1024}}
	app := setupApp(store, server, files)

	resp, body := postJSON(t, app, "/api/thread/publish", map[string]string{
		"text": "first ![[cat.png]]\n> a cat\n§\nsecond",
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200, body %v", resp.StatusCode, body)
	}
	ids, ok := body["post_ids"].([]any)
	if !ok || len(ids) != 2 {
		t.Fatalf("post_ids: got %v", body["post_ids"])
	}
	if body["state"] != string(usecases.PhaseDone) {
		t.Errorf("state: got %v, want done", body["state"])
	}
	if body["uploaded"].(float64) != 1 {
		t.Errorf("uploaded: got %v, want 1", body["uploaded"])
	}
}

func TestPublishThread_PartialFailureReported(t *testing.T) {
	store := &fakeStore{settings: connectedSettings()}
	server := &fakeServer{snap: domain.DefaultCapability(), createErrAt: 2}
	app := setupApp(store, server, nil)

	resp, body := postJSON(t, app, "/api/thread/publish", map[string]string{
		"text": "first\n§\nsecond\n§\nthird",
	})

	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status: got %d, want 502, body %v", resp.StatusCode, body)
	}
	ids, ok := body["post_ids"].([]any)
	if !ok || len(ids) != 1 {
		t.Errorf("post_ids: got %v, want the first post", body["post_ids"])
	}
	if body["state"] != string(usecases.PhaseAborted) {
		t.Errorf("state: got %v, want aborted", body["state"])
	}
}

func TestInsertFragments(t *testing.T) {
	settings := connectedSettings()
	settings.MaxPost = 12
	app := setupApp(&fakeStore{settings: settings}, &fakeServer{}, nil)

	resp, body := postJSON(t, app, "/api/fragments", map[string]any{
		"text": "one two\nthree four\nfive six",
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	text, _ := body["text"].(string)
	if !strings.Contains(text, "§") {
		t.Errorf("text: got %q, want separators inserted", text)
	}
}

func TestRemoveFragments(t *testing.T) {
	app := setupApp(&fakeStore{settings: connectedSettings()}, &fakeServer{}, nil)

	resp, body := doJSON(t, app, "DELETE", "/api/fragments", map[string]any{
		"text": "one\n§\ntwo",
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	text, _ := body["text"].(string)
	if strings.Contains(text, "§") {
		t.Errorf("text: got %q, want separators removed", text)
	}
}

func TestCapabilities(t *testing.T) {
	snap := domain.DefaultCapability()
	snap.MaxPostChars = 5000
	app := setupApp(&fakeStore{settings: connectedSettings()}, &fakeServer{snap: snap}, nil)

	resp, body := doJSON(t, app, "GET", "/api/capabilities", nil)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if body["max_post_chars"].(float64) != 5000 {
		t.Errorf("max_post_chars: got %v, want 5000", body["max_post_chars"])
	}
}

func TestCapabilities_NoServer(t *testing.T) {
	app := setupApp(&fakeStore{settings: domain.DefaultSettings()}, &fakeServer{}, nil)

	resp, _ := doJSON(t, app, "GET", "/api/capabilities", nil)

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", resp.StatusCode)
	}
}

func TestAuthConnect(t *testing.T) {
	store := &fakeStore{settings: domain.DefaultSettings()}
	server := &fakeServer{creds: domain.AppCredentials{ClientID: "id-1", ClientSecret: "secret-1"}}
	app := setupApp(store, server, nil)

	resp, body := postJSON(t, app, "/api/auth/connect", map[string]string{
		"server": "https://mastodon.example/",
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200, body %v", resp.StatusCode, body)
	}
	url, _ := body["authorize_url"].(string)
	if !strings.Contains(url, "client_id=id-1") {
		t.Errorf("authorize_url: got %q", url)
	}
	if store.settings.Server != "mastodon.example" {
		t.Errorf("stored server: got %q, want normalized host", store.settings.Server)
	}
}

func TestAuthCallback(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Server = "mastodon.example"
	settings.ClientID = "id-1"
	settings.ClientSecret = "secret-1"
	store := &fakeStore{settings: settings}
	app := setupApp(store, &fakeServer{token: "token-1"}, nil)

	resp, body := doJSON(t, app, "GET", "/api/auth/callback?code=abc", nil)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d, want 200, body %v", resp.StatusCode, body)
	}
	if store.settings.AccessToken != "token-1" {
		t.Errorf("token: got %q, want token-1", store.settings.AccessToken)
	}
}

func TestAuthCallback_MissingCode(t *testing.T) {
	app := setupApp(&fakeStore{settings: connectedSettings()}, &fakeServer{}, nil)

	resp, _ := doJSON(t, app, "GET", "/api/auth/callback", nil)

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestAuthStatus(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.Settings
		verified bool
		want     bool
	}{
		{"disconnected", domain.DefaultSettings(), true, false},
		{"connected", connectedSettings(), true, true},
		{"token rejected", connectedSettings(), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(&fakeStore{settings: tt.settings}, &fakeServer{verified: tt.verified}, nil)

			resp, body := doJSON(t, app, "GET", "/api/auth/status", nil)

			if resp.StatusCode != fiber.StatusOK {
				t.Fatalf("status: got %d, want 200", resp.StatusCode)
			}
			if body["connected"] != tt.want {
				t.Errorf("connected: got %v, want %v", body["connected"], tt.want)
			}
		})
	}
}

func TestAuthDisconnect(t *testing.T) {
	store := &fakeStore{settings: connectedSettings()}
	app := setupApp(store, &fakeServer{}, nil)

	resp, _ := postJSON(t, app, "/api/auth/disconnect", nil)

	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status: got %d, want 204", resp.StatusCode)
	}
	if store.settings.AccessToken != "" || store.settings.ClientID != "" {
		t.Errorf("credentials not cleared: %+v", store.settings)
	}
}
