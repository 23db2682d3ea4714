package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus/leave-ledger/api"
	"github.com/campus/leave-ledger/ledger"
	"github.com/campus/leave-ledger/report"
	"github.com/campus/leave-ledger/store/sqlite"
)

const testSecret = "test-secret"

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestClient spins up the full stack on an in-memory database and
// returns a cookie-carrying client plus the server URL.
func newTestClient(t *testing.T) (*http.Client, string, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.SaveUser(context.Background(), sqlite.User{
		ID: "u1", Username: "principal", PasswordHash: string(hash), DepartmentID: "dept-1",
	}))
	require.NoError(t, store.SaveDepartment(context.Background(), sqlite.Department{
		ID: "dept-1", Name: "Physics",
	}))

	sessions := scs.New()
	engine := ledger.NewEngine(store, ledger.Config{})
	renderer := report.NewRenderer(report.Config{CollegeName: "Test College"}, zap.NewNop())
	handler := api.NewHandler(store, engine, renderer, sessions, zap.NewNop(), []byte(testSecret))

	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}, srv.URL, store
}

func login(t *testing.T, client *http.Client, base string) {
	t.Helper()
	resp := postJSON(t, client, base+"/leave_mgmt/login", map[string]string{
		"username": "principal",
		"password": "open-sesame",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// addFaculty creates a faculty member through the API and returns its id.
func addFaculty(t *testing.T, client *http.Client, base, name, designation string) string {
	t.Helper()
	resp := postJSON(t, client, base+"/leave_mgmt/add-faculty", map[string]string{
		"name":           name,
		"designation":    designation,
		"granted_leaves": "20",
	})
	body := decodeBody(t, resp)
	require.Equal(t, "success", body["status"])
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// =============================================================================
// AUTH GATE
// =============================================================================

func TestAPI_RequiresSession(t *testing.T) {
	// GIVEN: No session cookie
	// WHEN: Hitting a data route
	// THEN: 401 with a JSON error body

	client, base, _ := newTestClient(t)

	resp, err := client.Get(base + "/leave_mgmt/get-leaves")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
}

func TestAPI_LoginRejectsBadPassword(t *testing.T) {
	client, base, _ := newTestClient(t)

	resp := postJSON(t, client, base+"/leave_mgmt/login", map[string]string{
		"username": "principal",
		"password": "wrong",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_LoginThenLogout(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)

	resp, err := client.Get(base + "/leave_mgmt/get-leaves")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, client, base+"/leave_mgmt/logout", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base + "/leave_mgmt/get-leaves")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "session destroyed by logout")
}

func TestAPI_ReportAcceptsBearerToken(t *testing.T) {
	// GIVEN: No session, but a department token signed with the secret
	// WHEN: Pulling the daily digest
	// THEN: 200 with a PDF body

	client, base, _ := newTestClient(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"department_id": "dept-1",
		"exp":           time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, base+"/leave_mgmt/pdf/todays-report", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestAPI_ReportRejectsForgedToken(t *testing.T) {
	client, base, _ := newTestClient(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"department_id": "dept-1",
	})
	signed, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, base+"/leave_mgmt/pdf/todays-report", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// FACULTY AND LEAVES
// =============================================================================

func TestAPI_AddFacultyAndList(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)

	addFaculty(t, client, base, "Dr. Sharma", "Professor")
	addFaculty(t, client, base, "Mr. Verma", "Clerk")

	resp, err := client.Get(base + "/leave_mgmt/get-leaves")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 2)

	// Professor sorts before Clerk
	first := data[0].(map[string]any)
	assert.Equal(t, "Dr. Sharma", first["name"])
	assert.Equal(t, "20.00", first["remaining_leaves"])
}

func TestAPI_AddShortLeave_ReturnsUpdatedCounters(t *testing.T) {
	// GIVEN: A faculty member
	// WHEN: Adding a short leave over the API
	// THEN: The response carries the new count and total

	client, base, _ := newTestClient(t)
	login(t, client, base)
	id := addFaculty(t, client, base, "Dr. Sharma", "Professor")

	resp := postJSON(t, client, base+"/leave_mgmt/add-leave", map[string]string{
		"faculty_id": id,
		"leave_type": "short_leaves",
		"date":       "2026-03-02",
		"from_time":  "09:00",
		"to_time":    "10:00",
	})
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	updated, ok := body["updated_data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, updated["short_leaves"])
	assert.Equal(t, "0.33", updated["total_leaves"])
}

func TestAPI_AddLeave_ValidationErrors(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)
	id := addFaculty(t, client, base, "Dr. Sharma", "Professor")

	// Inverted time range
	resp := postJSON(t, client, base+"/leave_mgmt/add-leave", map[string]string{
		"faculty_id": id,
		"leave_type": "short_leaves",
		"date":       "2026-03-02",
		"from_time":  "11:00",
		"to_time":    "10:00",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown faculty
	resp = postJSON(t, client, base+"/leave_mgmt/add-leave", map[string]string{
		"faculty_id": "nope",
		"leave_type": "short_leaves",
		"date":       "2026-03-02",
		"from_time":  "09:00",
		"to_time":    "10:00",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DeleteLeaveRoundTrip(t *testing.T) {
	client, base, store := newTestClient(t)
	login(t, client, base)
	id := addFaculty(t, client, base, "Dr. Sharma", "Professor")

	resp := postJSON(t, client, base+"/leave_mgmt/add-leave", map[string]string{
		"faculty_id":    id,
		"leave_type":    "half_day_leaves",
		"date":          "2026-03-02",
		"half_day_type": "before_noon",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events, err := store.ListEvents(context.Background(), ledger.FacultyID(id))
	require.NoError(t, err)
	require.Len(t, events, 1)

	resp = postJSON(t, client, fmt.Sprintf("%s/leave_mgmt/delete-leave/%s", base, events[0].ID), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fac, err := store.GetFaculty(context.Background(), ledger.FacultyID(id))
	require.NoError(t, err)
	require.NotNil(t, fac)
	assert.Equal(t, "20", fac.RemainingLeaves.String())
}

func TestAPI_FacultySuggestions(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)
	addFaculty(t, client, base, "Dr. Sharma", "Professor")
	addFaculty(t, client, base, "Mr. Verma", "Clerk")

	resp, err := client.Get(base + "/leave_mgmt/faculty-suggestions?search=Sharma")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	assert.Equal(t, "Dr. Sharma (Professor)", data[0].(map[string]any)["label"])
}

func TestAPI_LeaveDetails(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)
	id := addFaculty(t, client, base, "Dr. Sharma", "Professor")

	resp := postJSON(t, client, base+"/leave_mgmt/add-leave", map[string]string{
		"faculty_id": id,
		"leave_type": "short_leaves",
		"date":       "2026-03-02",
		"from_time":  "09:00",
		"to_time":    "10:00",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := client.Get(base + "/leave_mgmt/leave-details-data/" + id)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	leaves, ok := body["leaves"].([]any)
	require.True(t, ok)
	require.Len(t, leaves, 1)
	leave := leaves[0].(map[string]any)
	assert.Equal(t, "short_leaves", leave["category"])
	assert.Equal(t, "09:00", leave["from_time"])
}

func TestAPI_Reconcile(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)
	id := addFaculty(t, client, base, "Dr. Sharma", "Professor")

	resp := postJSON(t, client, base+"/leave_mgmt/reconcile/"+id, nil)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["drifted"])
}

func TestAPI_SingleFacultyPDF(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)
	id := addFaculty(t, client, base, "Dr. Sharma", "Professor")

	resp, err := client.Get(base + "/leave_mgmt/pdf?facultyId=" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
}

func TestAPI_CombinedPDF_InvalidWindow(t *testing.T) {
	client, base, _ := newTestClient(t)
	login(t, client, base)

	resp, err := client.Get(base + "/leave_mgmt/pdf/all?fromDate=2026-04-10&toDate=2026-04-01")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
