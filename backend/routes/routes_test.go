package routes_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/vidana-academy/learning-hub/backend/config"
	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/routes"
	"github.com/vidana-academy/learning-hub/backend/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

type harness struct {
	t        *testing.T
	app      *fiber.App
	auth     *remote.LocalAuth
	services *routes.Services
	mail     *outbox
}

type outbox struct {
	mu   sync.Mutex
	sent []remote.Message
}

func (o *outbox) Send(ctx context.Context, msg remote.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// googleStub serves the token and userinfo endpoints of an OAuth provider.
func googleStub(t *testing.T) remote.OAuthProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			_, _ = w.Write([]byte(`{"sub":"1","email":"grace@example.com","name":"Grace"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return remote.OAuthProvider{
		Config: &oauth2.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:8080/api/auth/oauth/google/callback",
			Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		},
		UserInfoURL: srv.URL + "/userinfo",
	}
}

func setup(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	cfg := &config.Config{
		SiteURL:          "http://localhost:5173",
		JWTSecret:        "testsecret",
		AccessTokenTTL:   time.Hour,
		TopicCacheTTL:    time.Minute,
		SessionCacheSize: 16,
	}
	mail := &outbox{}
	auth := remote.NewLocalAuth(db, remote.LocalAuthConfig{
		Secret:    cfg.JWTSecret,
		Mailer:    mail,
		SiteURL:   cfg.SiteURL,
		Providers: map[string]remote.OAuthProvider{"google": googleStub(t)},
	}, testutil.Logger())
	services := routes.NewServices(db, cfg, auth, testutil.Logger())
	t.Cleanup(services.Close)
	require.NoError(t, services.Catalog.Seed(context.Background()))

	app := routes.NewApp(cfg, testutil.Logger())
	routes.SetupRoutes(app, services)
	return &harness{t: t, app: app, auth: auth, services: services, mail: mail}
}

func (h *harness) do(method, path, token string, body any) (*http.Response, envelope) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func (h *harness) signup(email string) string {
	h.t.Helper()
	resp, env := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "full_name": "Test " + email,
	})
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	var data struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
		Redirect string `json:"redirect"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	assert.Equal(h.t, "/dashboard", data.Redirect)
	return data.Session.AccessToken
}

// redirect issues a GET that must answer 302 and returns the Location header.
func (h *harness) redirect(path string) string {
	h.t.Helper()
	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(h.t, err)
	require.Equal(h.t, http.StatusFound, resp.StatusCode)
	return resp.Header.Get("Location")
}

// adminToken signs up directly against the auth client and stores an admin
// profile before the first request resolves the session.
func (h *harness) adminToken() string {
	h.t.Helper()
	ctx := context.Background()
	sess, err := h.auth.SignUp(ctx, "boss@example.com", "secret1", map[string]any{"full_name": "Boss"})
	require.NoError(h.t, err)
	require.NoError(h.t, h.services.Client.Profiles.Insert(ctx, &models.Profile{
		ID: sess.User.ID, Email: "boss@example.com", FullName: "Boss", Role: models.RoleAdmin,
	}))
	return sess.AccessToken
}

func TestHealth(t *testing.T) {
	h := setup(t)
	resp, env := h.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestTopicsArePublic(t *testing.T) {
	h := setup(t)
	resp, env := h.do(http.MethodGet, "/api/topics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var topics []models.Topic
	require.NoError(t, json.Unmarshal(env.Data, &topics))
	require.Len(t, topics, 4)
	assert.Equal(t, "ai-tools", topics[0].Slug)
}

func TestAuthErrorsAreFriendly(t *testing.T) {
	h := setup(t)
	h.signup("ada@example.com")

	resp, env := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "User already exists. Try signing in.", env.Message)

	resp, env = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect email or password.", env.Message)

	resp, _ = h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDashboardRequiresSession(t *testing.T) {
	h := setup(t)
	resp, env := h.do(http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"redirect":"/login"}`, string(env.Details))
}

func TestToggleDaysShowsOnDashboard(t *testing.T) {
	h := setup(t)
	token := h.signup("ada@example.com")

	for _, day := range []string{"1", "3", "5"} {
		resp, env := h.do(http.MethodPost, "/api/topics/n8n/days/"+day+"/toggle", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var data struct {
			Completed bool `json:"completed"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.True(t, data.Completed)
	}

	resp, env := h.do(http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dash struct {
		Topics []struct {
			Slug     string `json:"slug"`
			Progress int    `json:"progress"`
			Status   string `json:"status"`
		} `json:"topics"`
		Active int `json:"active_topics"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	require.Len(t, dash.Topics, 4)
	assert.Equal(t, "n8n", dash.Topics[0].Slug, "in-progress topics come first")
	assert.Equal(t, 33, dash.Topics[0].Progress)
	assert.Equal(t, "in_progress", dash.Topics[0].Status)
	assert.Equal(t, 1, dash.Active)

	resp, env = h.do(http.MethodPost, "/api/topics/n8n/days/3/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var untoggled struct {
		Completed bool `json:"completed"`
		View      struct {
			CompletedDays []int `json:"completed_days"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &untoggled))
	assert.False(t, untoggled.Completed)
	assert.ElementsMatch(t, []int{1, 5}, untoggled.View.CompletedDays)
}

func TestTopicNotesAndChecklist(t *testing.T) {
	h := setup(t)
	token := h.signup("ada@example.com")

	resp, _ := h.do(http.MethodPut, "/api/topics/vibe-coding/notes/2", token, map[string]string{"text": "prompted a todo app"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(http.MethodPost, "/api/topics/vibe-coding/checklist", token, map[string]string{"task": "Final Documentation"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := h.do(http.MethodGet, "/api/topics/vibe-coding", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Notes     map[string]any `json:"notes"`
		Checklist []string       `json:"capstone_checklist"`
		Days      []struct {
			Day  int    `json:"day"`
			Note string `json:"note"`
		} `json:"curriculum"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "prompted a todo app", view.Notes["2"])
	assert.Equal(t, []string{"Final Documentation"}, view.Checklist)
	require.Len(t, view.Days, 5)
	assert.Equal(t, "prompted a todo app", view.Days[1].Note)

	resp, _ = h.do(http.MethodGet, "/api/topics/unknown-topic", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoutesRejectInterns(t *testing.T) {
	h := setup(t)
	token := h.signup("ada@example.com")

	resp, env := h.do(http.MethodGet, "/api/admin/students", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"redirect":"/dashboard"}`, string(env.Details))
}

func TestAdminCohortAndExport(t *testing.T) {
	h := setup(t)
	intern := h.signup("ada@example.com")
	for _, day := range []string{"1", "3", "5"} {
		resp, _ := h.do(http.MethodPost, "/api/topics/n8n/days/"+day+"/toggle", intern, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	admin := h.adminToken()

	resp, env := h.do(http.MethodGet, "/api/dashboard", admin, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"redirect":"/admin-dashboard"}`, string(env.Details))

	resp, env = h.do(http.MethodGet, "/api/admin/students", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cohort struct {
		Students []struct {
			ID       string         `json:"id"`
			Email    string         `json:"email"`
			Progress map[string]int `json:"progress"`
			Last     string         `json:"last_active"`
		} `json:"students"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cohort))
	require.Len(t, cohort.Students, 1, "admins are not listed")
	assert.Equal(t, "ada@example.com", cohort.Students[0].Email)
	assert.Equal(t, 33, cohort.Students[0].Progress["n8n"])
	assert.Equal(t, "Just now", cohort.Students[0].Last)
	assert.JSONEq(t, `{"students":1,"active_students":1,"average_completion":8}`, string(env.Meta))

	resp, env = h.do(http.MethodGet, "/api/admin/students/"+cohort.Students[0].ID+"?topic=n8n", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inspection struct {
		Progress       int `json:"progress"`
		CompletedCount int `json:"completed_count"`
		Modules        []struct {
			Completed bool `json:"completed"`
		} `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inspection))
	assert.Equal(t, 33, inspection.Progress)
	assert.Equal(t, 3, inspection.CompletedCount)
	assert.Len(t, inspection.Modules, 9)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/students/export", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	exportResp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, exportResp.StatusCode)
	assert.Contains(t, exportResp.Header.Get("Content-Disposition"), "vidana_cohort_export_")

	records, err := csv.NewReader(exportResp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	n8nColumn := -1
	for i, title := range records[0] {
		if strings.HasPrefix(title, "n8n") {
			n8nColumn = i
		}
	}
	require.NotEqual(t, -1, n8nColumn)
	assert.Equal(t, "33", records[1][n8nColumn])
}

func TestAdminModuleEditor(t *testing.T) {
	h := setup(t)
	admin := h.adminToken()

	resp, env := h.do(http.MethodGet, "/api/admin/modules/next-day?topic=n8n", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"topic_slug":"n8n","day_number":10}`, string(env.Data))

	module := map[string]any{
		"topic_slug": "n8n",
		"day_number": 10,
		"title":      "Error workflows",
		"outcomes":   []string{"Catch failures", ""},
	}
	resp, env = h.do(http.MethodPost, "/api/admin/modules", admin, module)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Module
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, []string{"Catch failures"}, []string(created.Outcomes))

	resp, _ = h.do(http.MethodPost, "/api/admin/modules", admin, module)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/api/admin/modules", admin, map[string]any{"topic_slug": "n8n"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	module["title"] = "Dead letter routing"
	resp, env = h.do(http.MethodPut, "/api/admin/modules/"+created.ID.String(), admin, module)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "Dead letter routing")

	resp, env = h.do(http.MethodGet, "/api/admin/modules?topic=n8n&search=dead+letter", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found []models.Module
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found, 1)

	resp, _ = h.do(http.MethodPost, "/api/admin/modules/verify-access?topic=n8n", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(http.MethodDelete, "/api/admin/modules/"+created.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = h.do(http.MethodDelete, "/api/admin/modules/"+created.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNavigationGuard(t *testing.T) {
	h := setup(t)
	token := h.signup("ada@example.com")

	_, env := h.do(http.MethodGet, "/api/navigation?path=/dashboard", "", nil)
	assert.JSONEq(t, `{"path":"/dashboard","allowed":false,"redirect":"/login"}`, string(env.Data))

	_, env = h.do(http.MethodGet, "/api/navigation?path=/admin-modules", token, nil)
	assert.JSONEq(t, `{"path":"/admin-modules","allowed":false,"redirect":"/dashboard"}`, string(env.Data))

	_, env = h.do(http.MethodGet, "/api/navigation?path=/topic/n8n", token, nil)
	assert.JSONEq(t, `{"path":"/topic/n8n","allowed":true,"redirect":""}`, string(env.Data))
}

func TestMeAndLogout(t *testing.T) {
	h := setup(t)
	token := h.signup("ada@example.com")

	resp, env := h.do(http.MethodPut, "/api/me", token, map[string]string{"full_name": "Ada Lovelace"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "Ada Lovelace")

	resp, env = h.do(http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"state":"authenticated"`)

	resp, _ = h.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, env = h.do(http.MethodGet, "/api/auth/session", token, nil)
	assert.Contains(t, string(env.Data), `"state":"anonymous"`)
}

func TestMetricsEndpoint(t *testing.T) {
	h := setup(t)
	h.do(http.MethodGet, "/api/health", "", nil)

	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "learning_hub_http_requests_total")
}

func TestRefreshAfterLogoutIsRejected(t *testing.T) {
	h := setup(t)
	h.signup("ada@example.com")

	resp, env := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data struct {
		Session remote.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	resp, _ = h.do(http.MethodPost, "/api/auth/logout", data.Session.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = h.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": data.Session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"redirect":"/login"}`, string(env.Details))
}

func TestResetPasswordLinkStaysOnSite(t *testing.T) {
	h := setup(t)
	h.signup("ada@example.com")

	resp, _ := h.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"email": "ada@example.com", "redirect_to": "https://evil.example/reset",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"email": "ada@example.com", "redirect_to": "http://localhost:5173/update-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, h.mail.sent, 2)
	assert.NotContains(t, h.mail.sent[0].Text, "evil.example")
	assert.Contains(t, h.mail.sent[0].Text, "http://localhost:5173/login#type=recovery")
	assert.Contains(t, h.mail.sent[1].Text, "http://localhost:5173/update-password#type=recovery")
}

func TestOAuthRedirectStaysOnSite(t *testing.T) {
	h := setup(t)

	callback := func(redirectTo string) string {
		consent, err := url.Parse(h.redirect("/api/auth/oauth/google?redirect_to=" + url.QueryEscape(redirectTo)))
		require.NoError(t, err)
		state := consent.Query().Get("state")
		require.NotEmpty(t, state)
		return h.redirect("/api/auth/oauth/google/callback?code=code&state=" + url.QueryEscape(state))
	}

	location := callback("https://evil.example/steal")
	assert.NotContains(t, location, "evil.example")
	assert.True(t, strings.HasPrefix(location, "http://localhost:5173/dashboard#access_token="), location)

	location = callback("http://localhost:5173/topic/n8n")
	assert.True(t, strings.HasPrefix(location, "http://localhost:5173/topic/n8n#access_token="), location)
}
