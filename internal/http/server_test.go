package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"expirygenie/internal/auth"
	"expirygenie/internal/core"
	"expirygenie/internal/gemini"
	"expirygenie/internal/services"
	"expirygenie/internal/store/memory"
)

type fakeExtractor struct {
	drafts []core.FoodItem
	err    error
}

func (f *fakeExtractor) ExtractFromText(_ context.Context, _ string, _ core.Date) ([]core.FoodItem, error) {
	return f.drafts, f.err
}

func (f *fakeExtractor) ExtractFromImage(_ context.Context, _ []byte, _ string, _ gemini.ImageKind, _ core.Date) ([]core.FoodItem, error) {
	return f.drafts, f.err
}

type fakeAdvisor struct {
	advice string
	report gemini.DuplicateReport
	err    error
}

func (f *fakeAdvisor) SuggestRecipes(_ context.Context, _ []core.FoodItem) (string, error) {
	return f.advice, f.err
}

func (f *fakeAdvisor) AnalyzeWaste(_ context.Context, _ []core.FoodItem) (string, error) {
	return f.advice, f.err
}

func (f *fakeAdvisor) ShoppingList(_ context.Context, _ []core.FoodItem) (string, error) {
	return f.advice, f.err
}

func (f *fakeAdvisor) DetectDuplicates(_ context.Context, _, _ []core.FoodItem) (gemini.DuplicateReport, error) {
	return f.report, f.err
}

func newTestServer(t *testing.T, extractor gemini.Extractor, advisor gemini.Advisor) (*Server, *memory.Store) {
	t.Helper()

	mem := memory.New()
	s := NewServer(":0", Deps{
		Sessions:  auth.NewSessions(100, time.Hour),
		Users:     mem,
		Items:     services.NewItemService(mem, mem, nil),
		Extractor: extractor,
		Advisor:   advisor,
	})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, mem
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(s *Server, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return do(s, req)
}

func get(s *Server, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return do(s, req)
}

// register signs up a user and returns the session cookie.
func register(t *testing.T, s *Server, email string) *http.Cookie {
	t.Helper()

	rec := postForm(s, "/auth/register", url.Values{
		"email":    {email},
		"name":     {"Test User"},
		"password": {"secret123"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("register set no session cookie")
	return nil
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := get(s, path); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	cookie := register(t, s, "ana@example.com")

	// Duplicate email is rejected.
	rec := postForm(s, "/auth/register", url.Values{
		"email":    {"ana@example.com"},
		"name":     {"Ana Again"},
		"password": {"secret123"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate register = %d, want 422", rec.Code)
	}

	// Wrong password.
	rec = postForm(s, "/auth/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"wrong"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}

	// Correct login redirects to the dashboard.
	rec = postForm(s, "/auth/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret123"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/dashboard" {
		t.Errorf("login HX-Redirect = %q, want /dashboard", got)
	}

	// Logged-in dashboard renders.
	rec = get(s, "/dashboard", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Test User") {
		t.Error("dashboard missing user greeting")
	}

	// Logout kills the session.
	rec = postForm(s, "/auth/logout", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout = %d", rec.Code)
	}
	rec = get(s, "/dashboard", cookie)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("dashboard after logout = %d, want 303", rec.Code)
	}
}

func TestDashboardRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := get(s, "/dashboard")
	if rec.Code != http.StatusSeeOther {
		t.Errorf("browser request = %d, want 303", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/ui/items", nil)
	req.Header.Set("HX-Request", "true")
	rec = do(s, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("htmx request = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/auth" {
		t.Errorf("htmx HX-Redirect = %q, want /auth", got)
	}
}

func TestPasswordReset(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	register(t, s, "ana@example.com")

	rec := postForm(s, "/auth/reset", url.Values{
		"email":        {"ana@example.com"},
		"old_password": {"secret123"},
		"new_password": {"evenmoresecret"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d: %s", rec.Code, rec.Body.String())
	}

	rec = postForm(s, "/auth/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"evenmoresecret"},
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password = %d, want 200", rec.Code)
	}
	rec = postForm(s, "/auth/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret123"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login with old password = %d, want 401", rec.Code)
	}
}

func TestItemCreateAndList(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	rec := postForm(s, "/items", url.Values{
		"name":     {"Whole Milk"},
		"quantity": {"2"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("create item = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "item:created") {
		t.Error("create response missing item:created trigger")
	}

	rec = get(s, "/ui/items", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("item list = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Whole Milk") {
		t.Error("item list missing created item")
	}
	// Milk auto-categorizes as Dairy.
	if !strings.Contains(body, "Dairy") {
		t.Error("item list missing auto-detected category")
	}
}

func TestItemListFilters(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	for _, form := range []url.Values{
		{"name": {"Milk"}, "expiry_date": {core.Today().AddDays(10).String()}},
		{"name": {"Bread"}, "expiry_date": {core.Today().AddDays(1).String()}},
	} {
		if rec := postForm(s, "/items", form, cookie); rec.Code != http.StatusOK {
			t.Fatalf("create item = %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := get(s, "/ui/items?status=Expiring+Soon", cookie)
	body := rec.Body.String()
	if !strings.Contains(body, "Bread") || strings.Contains(body, "Milk") {
		t.Errorf("soon filter returned wrong items: %s", body)
	}

	rec = get(s, "/ui/items?category=Dairy", cookie)
	body = rec.Body.String()
	if !strings.Contains(body, "Milk") || strings.Contains(body, "Bread") {
		t.Errorf("category filter returned wrong items: %s", body)
	}
}

func TestItemListHonorsSoonWindow(t *testing.T) {
	mem := memory.New()
	s := NewServer(":0", Deps{
		Sessions:   auth.NewSessions(100, time.Hour),
		Users:      mem,
		Items:      services.NewItemService(mem, mem, nil),
		SoonWindow: 10,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	cookie := register(t, s, "ana@example.com")

	// 7 days out: Safe with the default 3-day window, Soon with 10.
	postForm(s, "/items", url.Values{
		"name":        {"Milk"},
		"expiry_date": {core.Today().AddDays(7).String()},
	}, cookie)

	rec := get(s, "/ui/items?status=Expiring+Soon", cookie)
	if !strings.Contains(rec.Body.String(), "Milk") {
		t.Errorf("10-day window should bucket a 7-day item as soon: %s", rec.Body.String())
	}

	rec = get(s, "/ui/items?status=Safe", cookie)
	if strings.Contains(rec.Body.String(), "Milk") {
		t.Errorf("10-day window should leave no 7-day item in safe: %s", rec.Body.String())
	}
}

func TestDeleteItem(t *testing.T) {
	s, mem := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	postForm(s, "/items", url.Values{"name": {"Milk"}}, cookie)

	items, err := mem.ItemsByUser(context.Background(), "ana@example.com")
	if err != nil || len(items) != 1 {
		t.Fatalf("ItemsByUser() = %v items, err %v", len(items), err)
	}

	rec := postForm(s, "/items/delete", url.Values{
		"id": {itoa(items[0].ID)},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}

	items, _ = mem.ItemsByUser(context.Background(), "ana@example.com")
	if len(items) != 0 {
		t.Errorf("items after delete = %d, want 0", len(items))
	}
}

func TestConsumeCreditsMoneySaved(t *testing.T) {
	s, mem := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	postForm(s, "/items", url.Values{
		"name":        {"Milk"},
		"expiry_date": {core.Today().AddDays(5).String()},
	}, cookie)
	items, _ := mem.ItemsByUser(context.Background(), "ana@example.com")
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}

	rec := postForm(s, "/items/consume", url.Values{"id": {itoa(items[0].ID)}}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("consume = %d: %s", rec.Code, rec.Body.String())
	}

	u, err := mem.UserByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.MoneySavedCents <= 0 {
		t.Errorf("MoneySavedCents = %d, want > 0", u.MoneySavedCents)
	}
}

func TestBulkCreate(t *testing.T) {
	s, mem := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	rec := postForm(s, "/items/bulk", url.Values{
		"method":      {"voice"},
		"name":        {"Milk", "Eggs"},
		"quantity":    {"1", "12"},
		"category":    {"Dairy", ""},
		"expiry_date": {core.Today().AddDays(7).String(), ""},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk = %d: %s", rec.Code, rec.Body.String())
	}

	items, _ := mem.ItemsByUser(context.Background(), "ana@example.com")
	if len(items) != 2 {
		t.Fatalf("items after bulk = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.AddedMethod != core.MethodVoice {
			t.Errorf("item %s method = %s, want voice", it.Name, it.AddedMethod)
		}
	}
}

func TestExtractVoicePreview(t *testing.T) {
	today := core.Today()
	extractor := &fakeExtractor{drafts: []core.FoodItem{{
		Name:         "Greek Yogurt",
		Category:     "Dairy",
		Quantity:     "2",
		PurchaseDate: today,
		ExpiryDate:   today.AddDays(10),
		AddedMethod:  core.MethodVoice,
	}}}
	s, _ := newTestServer(t, extractor, nil)
	cookie := register(t, s, "ana@example.com")

	rec := postForm(s, "/extract/voice", url.Values{
		"transcript": {"I bought two greek yogurts"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Greek Yogurt") {
		t.Error("preview missing draft name")
	}
	if !strings.Contains(body, `value="voice"`) {
		t.Error("preview missing method field")
	}
}

func TestExtractPreviewFlagsDuplicates(t *testing.T) {
	today := core.Today()
	extractor := &fakeExtractor{drafts: []core.FoodItem{
		{Name: "Whole Milk", Category: "Dairy", Quantity: "1",
			PurchaseDate: today, ExpiryDate: today.AddDays(7)},
		{Name: "Bananas", Category: "Fruits", Quantity: "6",
			PurchaseDate: today, ExpiryDate: today.AddDays(5)},
	}}
	advisor := &fakeAdvisor{report: gemini.DuplicateReport{
		Duplicates:      []string{"Whole Milk"},
		Recommendations: []string{"You already have milk expiring in 2 days - use it first."},
	}}
	s, _ := newTestServer(t, extractor, advisor)
	cookie := register(t, s, "ana@example.com")

	// The duplicate check only runs against a non-empty inventory.
	postForm(s, "/items", url.Values{
		"name":        {"Milk"},
		"expiry_date": {today.AddDays(2).String()},
	}, cookie)

	rec := postForm(s, "/extract/voice", url.Values{
		"transcript": {"a gallon of whole milk and six bananas"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Possible duplicates spotted") {
		t.Error("preview missing duplicate warning block")
	}
	if !strings.Contains(body, "use it first") {
		t.Error("preview missing duplicate recommendation")
	}
	if strings.Count(body, "dup?") != 1 {
		t.Errorf("want exactly one flagged row, body:\n%s", body)
	}
}

func TestExtractVoiceUnconfigured(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	rec := postForm(s, "/extract/voice", url.Values{"transcript": {"milk"}}, cookie)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("extract without extractor = %d, want 503", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	postForm(s, "/items", url.Values{
		"name":        {"Milk"},
		"expiry_date": {core.Today().AddDays(5).String()},
	}, cookie)

	rec := get(s, "/export/csv", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "name,category,quantity") {
		t.Error("csv missing header row")
	}
	if !strings.Contains(body, "Milk,Dairy") {
		t.Errorf("csv missing item row: %s", body)
	}
	if !strings.Contains(body, "Safe") {
		t.Error("csv missing computed status column")
	}
}

func TestRecipesPartial(t *testing.T) {
	s, _ := newTestServer(t, nil, &fakeAdvisor{advice: "Make a frittata."})
	cookie := register(t, s, "ana@example.com")

	// Nothing expiring: no advisor call needed.
	rec := get(s, "/ui/recipes", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Nothing is expiring soon") {
		t.Errorf("empty recipes = %d: %s", rec.Code, rec.Body.String())
	}

	postForm(s, "/items", url.Values{
		"name":        {"Eggs"},
		"expiry_date": {core.Today().AddDays(1).String()},
	}, cookie)

	rec = get(s, "/ui/recipes", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("recipes = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "frittata") {
		t.Errorf("recipes missing advice: %s", rec.Body.String())
	}
}

func TestWasteAnalysisPartial(t *testing.T) {
	s, _ := newTestServer(t, nil, &fakeAdvisor{advice: "Buy smaller milk cartons."})
	cookie := register(t, s, "ana@example.com")

	// No expired items: no advisor call needed.
	rec := get(s, "/ui/waste", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Nothing is going to waste") {
		t.Errorf("empty waste = %d: %s", rec.Code, rec.Body.String())
	}

	postForm(s, "/items", url.Values{
		"name":        {"Milk"},
		"expiry_date": {core.Today().AddDays(-2).String()},
	}, cookie)

	rec = get(s, "/ui/waste", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("waste = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "smaller milk cartons") {
		t.Errorf("waste missing advice: %s", rec.Body.String())
	}
}

func TestShoppingListPartial(t *testing.T) {
	s, _ := newTestServer(t, nil, &fakeAdvisor{advice: "Restock eggs and butter."})
	cookie := register(t, s, "ana@example.com")

	rec := get(s, "/ui/shopping", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("shopping = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Restock eggs") {
		t.Errorf("shopping missing advice: %s", rec.Body.String())
	}
}

func TestAdvisorUnconfigured(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	for _, path := range []string{"/ui/waste", "/ui/shopping"} {
		rec := get(s, path, cookie)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s without advisor = %d, want 503", path, rec.Code)
		}
	}
}

func TestStatsOverview(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	cookie := register(t, s, "ana@example.com")

	postForm(s, "/items", url.Values{
		"name":        {"Milk"},
		"expiry_date": {core.Today().AddDays(10).String()},
	}, cookie)
	postForm(s, "/items", url.Values{
		"name":        {"Old Bread"},
		"expiry_date": {core.Today().AddDays(1).String()},
	}, cookie)

	rec := get(s, "/ui/stats", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "items tracked") {
		t.Error("stats missing totals")
	}
	if !strings.Contains(body, "Dairy") || !strings.Contains(body, "Bakery") {
		t.Error("stats missing category breakdown")
	}
}

func TestRateLimiterBlocksAfterBudget(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()
	metrics := &securityMetrics{}

	for i := 0; i < 60; i++ {
		if !rl.allow("203.0.113.9", metrics) {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if rl.allow("203.0.113.9", metrics) {
		t.Error("request 61 should be limited")
	}
	if metrics.rateLimitHits != 1 {
		t.Errorf("rateLimitHits = %d, want 1", metrics.rateLimitHits)
	}
	// Other clients are unaffected.
	if !rl.allow("198.51.100.4", metrics) {
		t.Error("independent client should not be limited")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
