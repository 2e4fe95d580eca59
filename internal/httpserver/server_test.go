package httpserver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/glimpse/internal/flow"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/mw"
	"github.com/MrSnakeDoc/glimpse/internal/identify"
	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/metrics"
)

var pngImage = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR\x00\x00\x00\x01")

const starryNight = `{"title":"Starry Night","author":"Vincent van Gogh","year":"1889","museum":"MoMA"}`

type testEnv struct {
	app     *httptest.Server
	webhook *httptest.Server
	storage *kv.Memory
}

// newTestEnv starts glimpse against a fake webhook answering with status and
// body. webhook == false leaves the webhook unconfigured. opts adjust the
// dependencies before the router is built.
func newTestEnv(t *testing.T, webhook bool, status int, body string, opts ...func(*deps.Deps)) *testEnv {
	t.Helper()

	env := &testEnv{storage: kv.NewMemory()}

	endpoint := ""
	if webhook {
		env.webhook = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}))
		t.Cleanup(env.webhook.Close)
		endpoint = env.webhook.URL
	}

	log := logger.Nop()
	m := metrics.New()
	client := identify.NewClient(endpoint, 5*time.Second, log)

	d := deps.Deps{
		Logger:               log,
		StartTime:            time.Now(),
		Version:              "test",
		Storage:              env.storage,
		Flow:                 flow.New(client, m, log, "/static/placeholder.svg"),
		WebhookConfigured:    client.Configured(),
		PlaceholderImage:     "/static/placeholder.svg",
		MaxImageBytes:        10 << 20,
		IdentifyBurst:        100,
		IdentifyRefillPerMin: 100,
		Metrics:              m,
	}
	for _, opt := range opts {
		opt(&d)
	}

	env.app = httptest.NewServer(NewRouter(d, 10*time.Second))
	t.Cleanup(env.app.Close)
	return env
}

// browserClient keeps cookies and does not follow redirects.
func browserClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func do(t *testing.T, c *http.Client, method, url, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func identifyJSON(t *testing.T, env *testEnv, c *http.Client) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"imageData": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngImage),
	})
	return do(t, c, http.MethodPost, env.app.URL+"/api/identify", "application/json", bytes.NewReader(payload))
}

type identifyBody struct {
	ID       string `json:"id"`
	Redirect string `json:"redirect"`
	Artwork  struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
	} `json:"artwork"`
	Error string `json:"error"`
}

type artworkBody struct {
	Artwork struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Artist   string `json:"artist"`
		ImageURL string `json:"imageUrl"`
	} `json:"artwork"`
	Saved bool `json:"saved"`
}

func TestIdentifyThenSaveFlow(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	resp := identifyJSON(t, env, c)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("identify status = %d", resp.StatusCode)
	}
	var ident identifyBody
	decode(t, resp, &ident)
	if ident.ID == "" || ident.Redirect != "/artwork?id="+ident.ID {
		t.Fatalf("identify body = %+v", ident)
	}
	if ident.Artwork.Artist != "Vincent van Gogh" {
		t.Errorf("artist = %q", ident.Artwork.Artist)
	}

	// The artwork page resolves from the handoff, twice.
	for i := 0; i < 2; i++ {
		resp = do(t, c, http.MethodGet, env.app.URL+ident.Redirect, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("artwork #%d status = %d", i+1, resp.StatusCode)
		}
		var art artworkBody
		decode(t, resp, &art)
		if art.Artwork.Title != "Starry Night" || art.Saved {
			t.Errorf("artwork #%d = %+v", i+1, art)
		}
		if art.Artwork.ImageURL != "/static/placeholder.svg" {
			t.Errorf("imageUrl = %q", art.Artwork.ImageURL)
		}
	}

	// Save it.
	resp = do(t, c, http.MethodPost, env.app.URL+"/api/favourites", "application/json",
		strings.NewReader(`{"id":"`+ident.ID+`"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}

	// Saving again is a no-op.
	resp = do(t, c, http.MethodPost, env.app.URL+"/api/favourites", "application/json",
		strings.NewReader(`{"id":"`+ident.ID+`"}`))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("duplicate save status = %d, want 200", resp.StatusCode)
	}

	var list struct {
		Artworks []struct {
			ID     string `json:"id"`
			Artist string `json:"artist"`
		} `json:"artworks"`
	}
	decode(t, do(t, c, http.MethodGet, env.app.URL+"/api/favourites", "", nil), &list)
	if len(list.Artworks) != 1 || list.Artworks[0].ID != ident.ID || list.Artworks[0].Artist != "Vincent van Gogh" {
		t.Fatalf("favourites = %+v", list)
	}

	resp = do(t, c, http.MethodGet, env.app.URL+"/api/favourites?format=yaml", "", nil)
	yamlBody, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(yamlBody), "title: Starry Night") {
		t.Errorf("yaml export = %q", yamlBody)
	}

	var status struct {
		Saved bool `json:"saved"`
	}
	decode(t, do(t, c, http.MethodGet, env.app.URL+"/api/favourites/"+ident.ID, "", nil), &status)
	if !status.Saved {
		t.Error("saved should be true after save")
	}

	resp = do(t, c, http.MethodDelete, env.app.URL+"/api/favourites/"+ident.ID, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	decode(t, do(t, c, http.MethodGet, env.app.URL+"/api/favourites/"+ident.ID, "", nil), &status)
	if status.Saved {
		t.Error("saved should be false after delete")
	}
}

func TestArtworkWithoutDataRedirectsHome(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	for _, path := range []string{"/artwork", "/artwork?id=", "/artwork?id=nope"} {
		resp := do(t, c, http.MethodGet, env.app.URL+path, "", nil)
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
			t.Errorf("%s: status = %d, location = %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestHandoffStaysInSession(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	owner := browserClient(t)

	var ident identifyBody
	decode(t, identifyJSON(t, env, owner), &ident)

	stranger := browserClient(t)
	resp := do(t, stranger, http.MethodGet, env.app.URL+ident.Redirect, "", nil)
	if resp.StatusCode != http.StatusFound {
		t.Errorf("another browser got status %d, want redirect", resp.StatusCode)
	}
}

func TestSavedArtworkOutlivesSession(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	var ident identifyBody
	decode(t, identifyJSON(t, env, c), &ident)
	do(t, c, http.MethodPost, env.app.URL+"/api/favourites", "application/json",
		strings.NewReader(`{"id":"`+ident.ID+`"}`))

	// A new browser session: same profile cookie, no session cookie.
	var profile *http.Cookie
	for _, ck := range c.Jar.Cookies(mustURL(t, env.app.URL)) {
		if ck.Name == mw.ProfileCookie {
			profile = ck
		}
	}
	if profile == nil {
		t.Fatal("no profile cookie issued")
	}

	next := browserClient(t)
	next.Jar.SetCookies(mustURL(t, env.app.URL), []*http.Cookie{profile})

	resp := do(t, next, http.MethodGet, env.app.URL+ident.Redirect, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("artwork status = %d, want 200 from favourites", resp.StatusCode)
	}
	var art artworkBody
	decode(t, resp, &art)
	if !art.Saved || art.Artwork.Title != "Starry Night" {
		t.Errorf("artwork = %+v", art)
	}
}

func TestSaveFullRecord(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	resp := do(t, c, http.MethodPost, env.app.URL+"/api/favourites", "application/json",
		strings.NewReader(`{"id":"m1","title":"Mona Lisa","artist":"Leonardo da Vinci","year":"1503","museum":"Louvre","medium":"Oil on poplar"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp = do(t, c, http.MethodPost, env.app.URL+"/api/favourites", "application/json", strings.NewReader(`{"id":"unknown"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("id-only save without handoff: status = %d, want 404", resp.StatusCode)
	}

	resp = do(t, c, http.MethodPost, env.app.URL+"/api/favourites", "application/json", strings.NewReader(`{"title":"x"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("save without id: status = %d, want 400", resp.StatusCode)
	}

	resp = do(t, c, http.MethodDelete, env.app.URL+"/api/favourites", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d", resp.StatusCode)
	}
	if n := env.storage.Len(); n != 1 {
		// Only the session stamp is left.
		t.Errorf("storage holds %d keys after clear, want 1", n)
	}
}

func TestIdentifyErrors(t *testing.T) {
	tests := []struct {
		name       string
		webhook    bool
		status     int
		body       string
		wantStatus int
		wantError  string
	}{
		{"webhook error", true, 500, `{"message":"rate limited"}`, http.StatusBadGateway, "API Error: 500 - rate limited"},
		{"empty answer", true, 200, "", http.StatusBadGateway, identify.ErrEmptyResponse.Error()},
		{"not configured", false, 0, "", http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.webhook, tt.status, tt.body)
			c := browserClient(t)

			resp := identifyJSON(t, env, c)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body identifyBody
			decode(t, resp, &body)
			if body.Error == "" || (tt.wantError != "" && body.Error != tt.wantError) {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
			if n := env.storage.Len(); n != 1 {
				t.Errorf("failed identification left %d keys, want only the session stamp", n)
			}
		})
	}
}

func TestIdentifyRejectsInvalidImage(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	resp := do(t, c, http.MethodPost, env.app.URL+"/api/identify", "application/json",
		strings.NewReader(`{"imageData":"`+base64.StdEncoding.EncodeToString([]byte("plain text"))+`"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestIdentifyMultipart(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	fw, _ := mpw.CreateFormFile("file", "photo.png")
	_, _ = fw.Write(pngImage)
	_ = mpw.Close()

	resp := do(t, c, http.MethodPost, env.app.URL+"/api/identify", mpw.FormDataContentType(), &buf)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestIdentifyMultipartTooLarge(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight, func(d *deps.Deps) {
		d.MaxImageBytes = 1024
	})
	c := browserClient(t)

	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	fw, _ := mpw.CreateFormFile("file", "photo.png")
	_, _ = fw.Write(pngImage)
	_, _ = fw.Write(bytes.Repeat([]byte{0}, 1<<20+8<<10))
	_ = mpw.Close()

	resp := do(t, c, http.MethodPost, env.app.URL+"/api/identify", mpw.FormDataContentType(), &buf)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body identifyBody
	decode(t, resp, &body)
	if body.Error != "invalid image: image is too large" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestPagesRenderHTML(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	for _, path := range []string{"/", "/favourites"} {
		req, _ := http.NewRequest(http.MethodGet, env.app.URL+path, nil)
		req.Header.Set("Accept", "text/html")
		resp, err := c.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
			t.Errorf("%s: status = %d, type = %q", path, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
		if !strings.Contains(string(body), "<nav>") {
			t.Errorf("%s: layout missing", path)
		}
	}

	resp, err := c.Get(env.app.URL + "/static/placeholder.svg")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("placeholder status = %d", resp.StatusCode)
	}
}

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t, true, http.StatusOK, starryNight)
	c := browserClient(t)

	identifyJSON(t, env, c)

	for _, path := range []string{"/healthz", "/readyz", "/infra"} {
		if resp := do(t, c, http.MethodGet, env.app.URL+path, "", nil); resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}

	resp := do(t, c, http.MethodGet, env.app.URL+"/metrics", "", nil)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `glimpse_identifications_total{outcome="success"} 1`) {
		t.Errorf("metrics missing identification counter")
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
