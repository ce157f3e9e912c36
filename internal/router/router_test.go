package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogserver/internal/auth"
	"blogserver/internal/config"
	apperrors "blogserver/internal/errors"
	"blogserver/internal/handler"
	"blogserver/internal/logging"
	"blogserver/internal/model"
	"blogserver/internal/service"
)

type fakeAuthService struct {
	register func(context.Context, service.RegisterInput) (*model.User, error)
	login    func(context.Context, string, string) (*service.LoginResult, error)
}

func (f *fakeAuthService) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	return f.register(ctx, in)
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	return f.login(ctx, email, password)
}

type fakeUserService struct {
	users map[uuid.UUID]*model.User
	calls []string
}

func (f *fakeUserService) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.calls = append(f.calls, "GetUser")
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserService) ListAuthors(context.Context) ([]model.User, error) {
	f.calls = append(f.calls, "ListAuthors")
	out := []model.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserService) ChangeAvatar(_ context.Context, id uuid.UUID, fh *multipart.FileHeader) (*model.User, error) {
	f.calls = append(f.calls, "ChangeAvatar")
	if fh == nil {
		return nil, apperrors.ErrFileMissing
	}
	return &model.User{ID: id, Avatar: fh.Filename}, nil
}

func (f *fakeUserService) EditUser(_ context.Context, id uuid.UUID, in service.EditUserInput) (*model.User, error) {
	f.calls = append(f.calls, "EditUser")
	return &model.User{ID: id, Name: in.Name, Email: in.Email}, nil
}

type fakePostService struct {
	created  *model.Post
	thumb    string
	deleteFn func(callerID, id uuid.UUID) error
	listErr  error
	category string
}

func (f *fakePostService) Create(_ context.Context, creatorID uuid.UUID, in service.PostInput, fh *multipart.FileHeader) (*model.Post, error) {
	if fh == nil {
		return nil, apperrors.ErrMissingPostFields
	}
	f.thumb = fh.Filename
	f.created = &model.Post{ID: uuid.New(), Title: in.Title, Category: in.Category, Description: in.Description, CreatorID: creatorID, Thumbnail: fh.Filename}
	return f.created, nil
}

func (f *fakePostService) List(context.Context) ([]model.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []model.Post{}, nil
}

func (f *fakePostService) Get(_ context.Context, id uuid.UUID) (*model.Post, error) {
	if f.created != nil && f.created.ID == id {
		return f.created, nil
	}
	return nil, apperrors.ErrPostNotFound
}

func (f *fakePostService) ListByCategory(_ context.Context, category string) ([]model.Post, error) {
	f.category = category
	return []model.Post{}, nil
}

func (f *fakePostService) ListByCreator(context.Context, uuid.UUID) ([]model.Post, error) {
	return []model.Post{}, nil
}

func (f *fakePostService) Update(_ context.Context, callerID, id uuid.UUID, in service.PostInput, _ *multipart.FileHeader) (*model.Post, error) {
	return &model.Post{ID: id, Title: in.Title, CreatorID: callerID}, nil
}

func (f *fakePostService) Delete(_ context.Context, callerID, id uuid.UUID) error {
	return f.deleteFn(callerID, id)
}

type testServer struct {
	e     *echo.Echo
	jwt   *auth.JWTService
	auth  *fakeAuthService
	users *fakeUserService
	posts *fakePostService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		e:     echo.New(),
		jwt:   auth.NewJWTService("router-secret", time.Hour),
		auth:  &fakeAuthService{},
		users: &fakeUserService{users: map[uuid.UUID]*model.User{}},
		posts: &fakePostService{},
	}
	cfg := &config.Config{
		UploadDir:   t.TempDir(),
		BodyLimit:   "4M",
		CORSOrigins: []string{"http://localhost:3000"},
	}
	Register(ts.e, cfg, logging.NewNop(), ts.jwt, Handlers{
		Auth:  handler.NewAuthHandler(ts.auth),
		Users: handler.NewUserHandler(ts.users),
		Posts: handler.NewPostHandler(ts.posts),
	})
	return ts
}

func (ts *testServer) bearer(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := ts.jwt.GenerateToken(id, "Ann")
	require.NoError(t, err)
	return "Bearer " + token
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileField, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.register = func(_ context.Context, in service.RegisterInput) (*model.User, error) {
		if in.Email == "taken@example.com" {
			return nil, apperrors.ErrEmailExists
		}
		assert.Equal(t, "secret1", in.PasswordConfirmation)
		return &model.User{ID: uuid.New(), Name: in.Name, Email: in.Email}, nil
	}

	rec := ts.do(jsonRequest(http.MethodPost, "/api/users/register", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "secret1", "password2": "secret1",
	}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	var msg string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "Account created for Ann", msg)

	rec = ts.do(jsonRequest(http.MethodPost, "/api/users/register", map[string]string{
		"name": "Ann", "email": "taken@example.com", "password": "secret1", "password2": "secret1",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Email already exists", decodeError(t, rec).Message)

	rec = ts.do(jsonRequest(http.MethodPost, "/api/users/register", map[string]string{"name": "Ann"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Fill in all fields", decodeError(t, rec).Message)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.auth.login = func(_ context.Context, email, password string) (*service.LoginResult, error) {
		if password != "secret1" {
			return nil, apperrors.ErrInvalidCredentials
		}
		return &service.LoginResult{Token: "tok", ID: id, Name: "Ann"}, nil
	}

	rec := ts.do(jsonRequest(http.MethodPost, "/api/users/login", map[string]string{"email": "ann@example.com", "password": "secret1"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"token": "tok", "id": id.String(), "name": "Ann"}, body)

	rec = ts.do(jsonRequest(http.MethodPost, "/api/users/login", map[string]string{"email": "ann@example.com", "password": "nope123"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New().String()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/users/" + id},
		{http.MethodPost, "/api/users/change-avatar"},
		{http.MethodPatch, "/api/users/edit-user"},
		{http.MethodPost, "/api/posts"},
		{http.MethodPatch, "/api/posts/" + id},
		{http.MethodDelete, "/api/posts/" + id},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ts.do(httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized, no token", decodeError(t, rec).Message)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
			rec = ts.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized, invalid token", decodeError(t, rec).Message)
		})
	}
	assert.Empty(t, ts.users.calls)
}

func TestUserRoutes(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.users.users[id] = &model.User{ID: id, Name: "Ann", PasswordHash: "secret-hash"}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/users/authors", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ListAuthors"}, ts.users.calls)
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+id.String(), nil)
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, id))
	rec = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Ann"`)
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	req = httptest.NewRequest(http.MethodGet, "/api/users/not-a-uuid", nil)
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, id))
	rec = ts.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeError(t, rec).Message)

	req = multipartRequest(t, http.MethodPost, "/api/users/change-avatar", nil, "avatar", "me.png")
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, id))
	rec = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"avatar":"me.png"`)

	req = multipartRequest(t, http.MethodPost, "/api/users/change-avatar", nil, "", "")
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, id))
	rec = ts.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Please choose an image", decodeError(t, rec).Message)

	req = jsonRequest(http.MethodPatch, "/api/users/edit-user", map[string]string{
		"name": "Ann B", "email": "ann@example.com", "currentPassword": "secret1", "newPassword": "secret2", "newConfirmPassword": "secret2",
	})
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, id))
	rec = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Ann B"`)

	req = jsonRequest(http.MethodPatch, "/api/users/edit-user", map[string]string{"name": "Ann B"})
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, id))
	rec = ts.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPostRoutes(t *testing.T) {
	ts := newTestServer(t)
	owner := uuid.New()
	fields := map[string]string{"title": "Hello", "category": "news", "description": "A long enough description"}

	req := multipartRequest(t, http.MethodPost, "/api/posts", fields, "thumbnail", "cover.png")
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, owner))
	rec := ts.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, owner, ts.posts.created.CreatorID)
	assert.Equal(t, "cover.png", ts.posts.thumb)
	assert.Contains(t, rec.Body.String(), `"creator":"`+owner.String()+`"`)

	req = multipartRequest(t, http.MethodPost, "/api/posts", map[string]string{"title": "Hello"}, "thumbnail", "cover.png")
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, owner))
	rec = ts.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Fill in all the fields and choose thumbnail", decodeError(t, rec).Message)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/posts/"+ts.posts.created.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/posts/"+uuid.New().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/posts/categories/news", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "news", ts.posts.category)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/posts/users/"+owner.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req = multipartRequest(t, http.MethodPatch, "/api/posts/"+ts.posts.created.ID.String(), fields, "", "")
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, owner))
	rec = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Hello"`)
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t)
	owner := uuid.New()
	postID := uuid.New()
	ts.posts.deleteFn = func(callerID, id uuid.UUID) error {
		if callerID != owner {
			return apperrors.ErrPostDeleteForbidden
		}
		return nil
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/"+postID.String(), nil)
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, owner))
	rec := ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var msg string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "Post "+postID.String()+" deleted successfully", msg)

	req = httptest.NewRequest(http.MethodDelete, "/api/posts/"+postID.String(), nil)
	req.Header.Set(echo.HeaderAuthorization, ts.bearer(t, uuid.New()))
	rec = ts.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Post couldn't be deleted", decodeError(t, rec).Message)
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.posts.listErr = errors.New("dial tcp 10.0.0.5:3306: connection refused")

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "internal server error", body.Message)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}
