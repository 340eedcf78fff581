package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursedesk/courseapi/internal/auth"
	"github.com/coursedesk/courseapi/internal/db"
	"github.com/coursedesk/courseapi/internal/models"
)

// fakeStore is an in-memory Store used to drive the handlers without
// a database. It mirrors the store contracts: ErrNotFound for missing
// rows and ValidationError for broken referential integrity.
type fakeStore struct {
	users   map[int]*models.User
	courses map[int]*models.Course

	nextUserID   int
	nextCourseID int

	// dropUsersAfterAuth simulates a user deleted between the
	// authenticator's lookup and the handler's re-fetch.
	dropUsersAfterAuth bool
	userLookups        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[int]*models.User),
		courses:      make(map[int]*models.Course),
		nextUserID:   1,
		nextCourseID: 1,
	}
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.userLookups++
	if f.dropUsersAfterAuth && f.userLookups > 1 {
		return nil, db.ErrNotFound
	}

	ids := make([]int, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if f.users[id].EmailAddress == email {
			copied := *f.users[id]
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = f.nextUserID
	f.nextUserID++
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	ids := make([]int, 0, len(f.courses))
	for id := range f.courses {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	courses := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		courses = append(courses, *f.withOwner(f.courses[id]))
	}
	return courses, nil
}

func (f *fakeStore) GetCourse(ctx context.Context, id int) (*models.Course, error) {
	course, ok := f.courses[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return f.withOwner(course), nil
}

func (f *fakeStore) CreateCourse(ctx context.Context, course *models.Course) error {
	if _, ok := f.users[course.UserID]; !ok {
		return &db.ValidationError{Messages: []string{"userId must reference an existing user"}}
	}

	course.ID = f.nextCourseID
	f.nextCourseID++
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	copied := *course
	copied.User = nil
	f.courses[course.ID] = &copied
	return nil
}

func (f *fakeStore) UpdateCourse(ctx context.Context, course *models.Course) error {
	stored, ok := f.courses[course.ID]
	if !ok {
		return db.ErrNotFound
	}

	stored.Title = course.Title
	stored.Description = course.Description
	stored.EstimatedTime = course.EstimatedTime
	stored.MaterialsNeeded = course.MaterialsNeeded
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeStore) DeleteCourse(ctx context.Context, id int) error {
	if _, ok := f.courses[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.courses, id)
	return nil
}

func (f *fakeStore) withOwner(course *models.Course) *models.Course {
	copied := *course
	if owner, ok := f.users[course.UserID]; ok {
		projection := owner.Owner()
		copied.User = &projection
	}
	return &copied
}

func setupTestRouter(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	router := gin.New()
	NewHandler(store, zap.NewNop()).RegisterRoutes(router)

	return router, store
}

func seedUser(t *testing.T, store *fakeStore, email, password string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := &models.User{
		FirstName:    "Joe",
		LastName:     "Smith",
		EmailAddress: email,
		Password:     hash,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func containsMessage(messages []any, substr string) bool {
	for _, m := range messages {
		if s, ok := m.(string); ok && strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestRootGreeting(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Welcome to the REST API project!" {
		t.Fatalf("unexpected greeting: %v", resp["message"])
	}
}

func TestCreateUserValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := map[string]string{
		"firstName":    "",
		"lastName":     "Smith",
		"emailAddress": "joe@smith.com",
		"password":     "secret123",
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/users", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Validation error" {
		t.Fatalf("expected validation error message, got %v", resp["message"])
	}

	errs, ok := resp["errors"].([]any)
	if !ok || !containsMessage(errs, "firstName") {
		t.Fatalf("expected an error naming firstName, got %v", resp["errors"])
	}
}

func TestCreateUserEmailFormat(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := map[string]string{
		"firstName":    "Joe",
		"lastName":     "Smith",
		"emailAddress": "not-an-email",
		"password":     "secret123",
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/users", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	errs, _ := resp["errors"].([]any)
	if !containsMessage(errs, "emailAddress") {
		t.Fatalf("expected an error naming emailAddress, got %v", resp["errors"])
	}
}

func TestCreateUserAndGetCurrentUser(t *testing.T) {
	router, store := setupTestRouter(t)

	body := map[string]string{
		"firstName":    "Joe",
		"lastName":     "Smith",
		"emailAddress": "joe@smith.com",
		"password":     "secret123",
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/users", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %s", rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected Location header /, got %q", loc)
	}

	// The raw password is never persisted.
	if stored := store.users[1].Password; stored == "secret123" || stored == "" {
		t.Fatalf("expected stored password to be a hash")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body %s)", rec.Code, rec.Body.String())
	}

	var user map[string]any
	decodeBody(t, rec.Body.Bytes(), &user)
	if user["firstName"] != "Joe" || user["lastName"] != "Smith" || user["emailAddress"] != "joe@smith.com" {
		t.Fatalf("unexpected user payload: %v", user)
	}
	if _, exists := user["password"]; exists {
		t.Fatalf("password must not appear in the response")
	}
}

func TestGetCurrentUserWrongPassword(t *testing.T) {
	router, store := setupTestRouter(t)
	seedUser(t, store, "joe@smith.com", "secret123")

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.SetBasicAuth("joe@smith.com", "not-the-password")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestGetCurrentUserDeletedAfterAuth(t *testing.T) {
	router, store := setupTestRouter(t)
	seedUser(t, store, "joe@smith.com", "secret123")
	store.dropUsersAfterAuth = true

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "User not found" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}

func TestCreateCourseRequiresAuth(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := map[string]any{"title": "Go", "description": "Learn Go", "userId": 1}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/courses", body))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Access Denied: Missing credentials" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}

func TestCourseLifecycle(t *testing.T) {
	router, store := setupTestRouter(t)
	user := seedUser(t, store, "joe@smith.com", "secret123")

	// Validation: missing title.
	body := map[string]any{"description": "Learn Go", "userId": user.ID}
	req := newJSONRequest(t, http.MethodPost, "/api/courses", body)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	errs, _ := resp["errors"].([]any)
	if !containsMessage(errs, "title") {
		t.Fatalf("expected an error naming title, got %v", resp["errors"])
	}

	// Create.
	body = map[string]any{
		"title":         "Build a REST API",
		"description":   "CRUD with authentication",
		"estimatedTime": "12 hours",
		"userId":        user.ID,
	}
	req = newJSONRequest(t, http.MethodPost, "/api/courses", body)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/courses/1" {
		t.Fatalf("expected Location /api/courses/1, got %q", loc)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %s", rec.Body.String())
	}

	// List with owner projection.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var courses []map[string]any
	decodeBody(t, rec.Body.Bytes(), &courses)
	if len(courses) != 1 {
		t.Fatalf("expected one course, got %d", len(courses))
	}
	owner, ok := courses[0]["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected owner projection, got %v", courses[0]["user"])
	}
	if owner["firstName"] != "Joe" || owner["emailAddress"] != "joe@smith.com" {
		t.Fatalf("unexpected owner projection: %v", owner)
	}
	if len(owner) != 3 {
		t.Fatalf("projection must expose exactly firstName, lastName, emailAddress: %v", owner)
	}

	// Update: full replace of the mutable fields.
	body = map[string]any{
		"title":           "Build a REST API v2",
		"description":     "CRUD with Basic Auth",
		"materialsNeeded": "A laptop",
	}
	req = newJSONRequest(t, http.MethodPut, "/api/courses/1", body)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses/1", nil))
	var course map[string]any
	decodeBody(t, rec.Body.Bytes(), &course)
	if course["title"] != "Build a REST API v2" || course["description"] != "CRUD with Basic Auth" {
		t.Fatalf("update was not applied: %v", course)
	}
	if course["estimatedTime"] != nil {
		t.Fatalf("expected estimatedTime cleared by full replace, got %v", course["estimatedTime"])
	}
	if course["materialsNeeded"] != "A laptop" {
		t.Fatalf("expected materialsNeeded set, got %v", course["materialsNeeded"])
	}

	// Delete, then the course is gone.
	req = httptest.NewRequest(http.MethodDelete, "/api/courses/1", nil)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses/1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", rec.Code)
	}
}

func TestGetCourseNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, path := range []string{"/api/courses/999999", "/api/courses/abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected status 404, got %d", path, rec.Code)
		}

		var resp map[string]any
		decodeBody(t, rec.Body.Bytes(), &resp)
		if resp["message"] != "Course was not found" {
			t.Fatalf("GET %s: unexpected message %v", path, resp["message"])
		}
	}
}

func TestCreateCourseUnknownOwner(t *testing.T) {
	router, store := setupTestRouter(t)
	seedUser(t, store, "joe@smith.com", "secret123")

	body := map[string]any{"title": "Go", "description": "Learn Go", "userId": 42}
	req := newJSONRequest(t, http.MethodPost, "/api/courses", body)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	errs, _ := resp["errors"].([]any)
	if !containsMessage(errs, "userId") {
		t.Fatalf("expected an error naming userId, got %v", resp["errors"])
	}
}

func TestUpdateMissingCourse(t *testing.T) {
	router, store := setupTestRouter(t)
	seedUser(t, store, "joe@smith.com", "secret123")

	body := map[string]any{"title": "Go", "description": "Learn Go"}
	req := newJSONRequest(t, http.MethodPut, "/api/courses/7", body)
	req.SetBasicAuth("joe@smith.com", "secret123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouteNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Route Not Found" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}
