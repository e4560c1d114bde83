package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "keyadmin/backend/docs"
	"keyadmin/backend/internal/auth"
	"keyadmin/backend/internal/auth/jwt"
	"keyadmin/backend/internal/cache"
	"keyadmin/backend/internal/config"
	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/health"
	"keyadmin/backend/internal/monitoring"
	"keyadmin/backend/internal/service"
	"keyadmin/backend/internal/storage"
	"keyadmin/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	store   *memory.Store
	metrics *monitoring.Metrics
}

func newTestServer(t *testing.T, dir storage.DirectoryRepository, allowRegistration bool) *testServer {
	t.Helper()

	store := memory.NewStore()
	if dir == nil {
		dir = store
	}

	c := cache.NewLocalCache(time.Hour, 0)
	t.Cleanup(c.Close)

	cfg := &config.Config{
		CORS:  config.CORSConfig{AllowedOrigins: []string{"*"}},
		Admin: config.AdminConfig{AllowRegistration: allowRegistration},
	}
	metrics := monitoring.NewMetrics()
	checker := monitoring.NewHealthChecker(nil, "test")
	checker.AddDependency("storage", store)
	probes := health.NewChecker(time.Second)
	probes.AddReadiness("storage", store)

	tokens := jwt.NewManager(strings.Repeat("k", 32), "keyadmin-test", time.Hour)
	router := NewRouter(RouterDependencies{
		Config:           cfg,
		APIKeyService:    service.NewAPIKeyService(),
		DirectoryService: service.NewDirectoryService(dir, 0, nil),
		AuthService:      auth.NewService(store, tokens, cache.NewBlacklist(c)),
		Metrics:          metrics,
		HealthChecker:    checker,
		Probes:           probes,
	})

	return &testServer{router: router, store: store, metrics: metrics}
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(http.MethodPost, "/register-admin", gin.H{"email": "root@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/login-admin", gin.H{"email": "root@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestCreateAPIKey(t *testing.T) {
	s := newTestServer(t, nil, true)

	w := s.do(http.MethodPost, "/create", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	key, _ := body["apiKey"].(string)
	assert.True(t, strings.HasPrefix(key, service.APIKeyPrefix))
	assert.Len(t, key, len(service.APIKeyPrefix)+48)
	assert.Equal(t, strings.ToUpper(key[len(service.APIKeyPrefix):]), key[len(service.APIKeyPrefix):])

	// 生成的 Key 不落库
	keys, err := s.store.ListAPIKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.APIKeysGenerated))
}

func TestSaveUser(t *testing.T) {
	s := newTestServer(t, nil, true)
	ctx := context.Background()

	t.Run("保存成功", func(t *testing.T) {
		w := s.do(http.MethodPost, "/save-user", gin.H{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
			"apiKey":    "sk-sm-v1-ABC",
		}, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())

		users, err := s.store.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		keys, err := s.store.ListAPIKeys(ctx)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, keys[0].ID, users[0].APIKeyID)
		assert.Equal(t, "sk-sm-v1-ABC", keys[0].Key)
	})

	t.Run("缺少字段", func(t *testing.T) {
		w := s.do(http.MethodPost, "/save-user", gin.H{
			"firstName": "Ada",
			"lastName":  "",
			"email":     "ada@example.com",
			"apiKey":    "sk-sm-v1-ABC",
		}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgMissingFields, body["message"])

		users, err := s.store.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("空白字段视为已填写", func(t *testing.T) {
		w := s.do(http.MethodPost, "/save-user", gin.H{
			"firstName": " ",
			"lastName":  "Babbage",
			"email":     "charles@example.com",
			"apiKey":    "sk-sm-v1-DEF",
		}, "")
		require.Equal(t, http.StatusOK, w.Code)

		users, err := s.store.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
		keys, err := s.store.ListAPIKeys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})

	t.Run("无效 JSON", func(t *testing.T) {
		w := s.do(http.MethodPost, "/save-user", "{", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// failingDirectory 所有操作都返回存储错误
type failingDirectory struct{}

var errBroken = errors.New("connection refused")

func (failingDirectory) CreateUserWithKey(context.Context, *domain.User, *domain.APIKey) error {
	return errBroken
}
func (failingDirectory) DeleteUserWithKey(context.Context, int64) error { return errBroken }
func (failingDirectory) ListUsers(context.Context) ([]domain.User, error) {
	return nil, errBroken
}
func (failingDirectory) ListAPIKeys(context.Context) ([]domain.APIKey, error) {
	return nil, errBroken
}

func TestStorageFailuresReturnGenericError(t *testing.T) {
	s := newTestServer(t, failingDirectory{}, true)
	token := s.login(t)

	w := s.do(http.MethodPost, "/save-user", gin.H{
		"firstName": "a", "lastName": "b", "email": "c", "apiKey": "d",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Equal(t, MsgUserSaveFailed, decode(t, w)["message"])

	w = s.do(http.MethodDelete, "/delete-user/1", nil, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = s.do(http.MethodGet, "/dashboard-data", nil, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "users")
	assert.NotContains(t, body, "apikeys")
}

func TestDeleteUser(t *testing.T) {
	s := newTestServer(t, nil, true)
	token := s.login(t)
	ctx := context.Background()

	user := &domain.User{FirstName: "a", LastName: "b", Email: "c"}
	require.NoError(t, s.store.CreateUserWithKey(ctx, user, &domain.APIKey{Key: "k", OutOfDate: time.Now()}))

	t.Run("需要登录", func(t *testing.T) {
		w := s.do(http.MethodDelete, "/delete-user/"+strconv.FormatInt(user.ID, 10), nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("非数字 id", func(t *testing.T) {
		w := s.do(http.MethodDelete, "/delete-user/abc", nil, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("不存在的用户", func(t *testing.T) {
		w := s.do(http.MethodDelete, "/delete-user/999", nil, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, MsgUserNotFound, decode(t, w)["message"])
	})

	t.Run("删除用户及其 Key", func(t *testing.T) {
		w := s.do(http.MethodDelete, "/delete-user/"+strconv.FormatInt(user.ID, 10), nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		users, _ := s.store.ListUsers(ctx)
		keys, _ := s.store.ListAPIKeys(ctx)
		assert.Empty(t, users)
		assert.Empty(t, keys)
	})
}

func TestDashboardData(t *testing.T) {
	s := newTestServer(t, nil, true)
	ctx := context.Background()

	fresh := &domain.User{FirstName: "a", LastName: "b", Email: "fresh@example.com"}
	require.NoError(t, s.store.CreateUserWithKey(ctx, fresh, &domain.APIKey{Key: "k1", OutOfDate: time.Now()}))
	stale := &domain.User{FirstName: "c", LastName: "d", Email: "stale@example.com"}
	require.NoError(t, s.store.CreateUserWithKey(ctx, stale, &domain.APIKey{Key: "k2", OutOfDate: time.Now().Add(-31 * 24 * time.Hour)}))

	w := s.do(http.MethodGet, "/dashboard-data", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login(t)
	w = s.do(http.MethodGet, "/dashboard-data", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var body DashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Users, 2)
	require.Len(t, body.APIKeys, 2)

	statuses := map[string]domain.KeyStatus{}
	for _, k := range body.APIKeys {
		statuses[k.Key] = k.Status
	}
	assert.Equal(t, domain.KeyStatusOnline, statuses["k1"])
	assert.Equal(t, domain.KeyStatusOffline, statuses["k2"])

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.APIKeysByStatus.WithLabelValues("online")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.APIKeysByStatus.WithLabelValues("offline")))
}

func TestDashboardData_Empty(t *testing.T) {
	s := newTestServer(t, nil, true)
	token := s.login(t)

	w := s.do(http.MethodGet, "/dashboard-data", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"users":[],"apikeys":[]}`, w.Body.String())
}

func TestAdminAuthFlow(t *testing.T) {
	s := newTestServer(t, nil, true)

	t.Run("注册缺少字段", func(t *testing.T) {
		w := s.do(http.MethodPost, "/register-admin", gin.H{"email": "x@example.com"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, MsgMissingCredentials, decode(t, w)["message"])
	})

	t.Run("注册密码过长", func(t *testing.T) {
		w := s.do(http.MethodPost, "/register-admin", gin.H{"email": "x@example.com", "password": strings.Repeat("p", 73)}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	token := s.login(t)

	t.Run("登录设置 HttpOnly cookie", func(t *testing.T) {
		w := s.do(http.MethodPost, "/login-admin", gin.H{"email": "root@example.com", "password": "secret"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		cookie := w.Header().Get("Set-Cookie")
		assert.Contains(t, cookie, "access_token=")
		assert.Contains(t, cookie, "HttpOnly")
		assert.EqualValues(t, time.Hour.Seconds(), decode(t, w)["expiresIn"])
	})

	t.Run("错误密码", func(t *testing.T) {
		w := s.do(http.MethodPost, "/login-admin", gin.H{"email": "root@example.com", "password": "wrong"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, MsgInvalidCredentials, decode(t, w)["message"])
	})

	t.Run("未知邮箱", func(t *testing.T) {
		w := s.do(http.MethodPost, "/login-admin", gin.H{"email": "nobody@example.com", "password": "secret"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("登录缺少字段按凭据无效处理", func(t *testing.T) {
		bodies := []gin.H{
			{"email": "", "password": "secret"},
			{"email": "root@example.com", "password": ""},
			{},
		}
		for _, body := range bodies {
			w := s.do(http.MethodPost, "/login-admin", body, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decode(t, w)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, MsgInvalidCredentials, resp["message"])
		}
	})

	t.Run("退出后令牌失效", func(t *testing.T) {
		w := s.do(http.MethodGet, "/dashboard-data", nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(http.MethodPost, "/logout-admin", nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(http.MethodGet, "/dashboard-data", nil, token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.AdminLogins.WithLabelValues("success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(s.metrics.AdminLogins.WithLabelValues("invalid")))
}

func TestRegistrationDisabled(t *testing.T) {
	s := newTestServer(t, nil, false)

	w := s.do(http.MethodPost, "/register-admin", gin.H{"email": "root@example.com", "password": "secret"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, MsgRegistrationClosed, decode(t, w)["message"])
}

func TestPagesAndStatic(t *testing.T) {
	s := newTestServer(t, nil, true)

	for _, path := range []string{"/", "/login", "/register", "/admin"} {
		w := s.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "/static/app.js")
	}

	w := s.do(http.MethodGet, "/static/app.js", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/static/missing.js", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil, true)

	w := s.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = s.do(http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	s.do(http.MethodPost, "/create", nil, "")
	w = s.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "keyadmin_api_keys_generated_total")
}

func TestSwaggerDocs(t *testing.T) {
	s := newTestServer(t, nil, true)

	w := s.do(http.MethodGet, "/swagger/doc.json", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Swagger string                     `json:"swagger"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	for _, path := range []string{
		"/create", "/save-user", "/register-admin", "/login-admin",
		"/logout-admin", "/delete-user/{id}", "/dashboard-data",
	} {
		assert.Contains(t, doc.Paths, path)
	}

	w = s.do(http.MethodGet, "/swagger/index.html", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'unsafe-inline'")
}
