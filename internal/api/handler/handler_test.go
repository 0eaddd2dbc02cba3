package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/api/middleware"
	"github.com/qs3c/group_sub_server/internal/pkg/cron"
	"github.com/qs3c/group_sub_server/internal/pkg/keylock"
	"github.com/qs3c/group_sub_server/internal/pkg/response"
	"github.com/qs3c/group_sub_server/internal/repository"
	"github.com/qs3c/group_sub_server/internal/service"
	"github.com/qs3c/group_sub_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testOperatorID int64 = 7

type handlerEnv struct {
	db     *gorm.DB
	clock  clockwork.FakeClock
	cfg    *config.Config
	auth   *service.AuthService
	router *gin.Engine
}

// setupHandlers 组装真实 service 与 sqlite，路由挂在 mockAuth 之后
func setupHandlers(t *testing.T) (*handlerEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret-key-for-handlers"
	cfg.Subscription.DeveloperContact = "@support"

	store := repository.NewStore(db)
	clock := clockwork.NewFakeClockAt(testutil.BaseTime)
	locks := keylock.New()

	catalog := service.NewPlanCatalog(store, cfg)
	_, err := catalog.Bootstrap(context.Background())
	require.NoError(t, err)

	gate := service.NewFeatureGate(store, clock, cfg, locks, nil)
	revocation := service.NewRevocationService(store, catalog, gate, locks, clock, nil, cfg)
	approval := service.NewApprovalService(store, catalog, gate, locks, clock, nil, cfg)
	status := service.NewStatusService(store, catalog, gate, clock)
	notifier := service.NotifierFunc(func(context.Context, int64, string) error { return nil })
	expiry := service.NewExpiryService(store, catalog, revocation, notifier, nil, clock, cfg)
	auth := service.NewAuthService(store, clock, cfg)
	scheduler := cron.NewService(expiry, clock, 0, 0)

	authHandler := NewAuthHandler(auth)
	planHandler := NewPlanHandler(catalog)
	approvalHandler := NewApprovalHandler(approval)
	entitlementHandler := NewEntitlementHandler(status, revocation)
	featureHandler := NewFeatureHandler(gate)
	expiryHandler := NewExpiryHandler(expiry, scheduler)

	router := gin.New()
	router.POST("/auth/login", authHandler.Login)

	api := router.Group("")
	api.Use(mockAuth(testOperatorID))
	{
		api.GET("/plans", planHandler.List)
		api.PUT("/plans/:id", planHandler.Upsert)
		api.POST("/plans/reload", planHandler.Reload)

		api.POST("/requests", approvalHandler.Submit)
		api.GET("/requests/pending", approvalHandler.Pending)
		api.GET("/requests/stats", approvalHandler.Stats)
		api.GET("/requests/history", approvalHandler.History)
		api.GET("/requests/:id", approvalHandler.Get)
		api.POST("/requests/:id/approve", approvalHandler.Approve)
		api.POST("/requests/:id/reject", approvalHandler.Reject)

		api.GET("/groups/:id/status", entitlementHandler.Status)
		api.POST("/groups/:id/cancel", entitlementHandler.Cancel)
		api.POST("/groups/:id/restore", entitlementHandler.Restore)
		api.GET("/cancellations", entitlementHandler.Cancellations)

		api.GET("/groups/:id/features", featureHandler.List)
		api.GET("/groups/:id/features/changes", featureHandler.Changes)
		api.PUT("/groups/:id/features/:feature", featureHandler.Set)
		api.POST("/groups/:id/features/:feature/toggle", featureHandler.Toggle)
		api.POST("/groups/:id/features/:feature/force-unlock", featureHandler.ForceUnlock)

		api.GET("/expiry/stats", expiryHandler.Stats)
		api.GET("/expiry/alerts", expiryHandler.Alerts)
		api.POST("/expiry/sweep", expiryHandler.Sweep)
	}

	env := &handlerEnv{
		db:     db,
		clock:  clock,
		cfg:    cfg,
		auth:   auth,
		router: router,
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return env, cleanup
}

// mockAuth 模拟认证中间件
func mockAuth(operatorID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.OperatorIDKey, operatorID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// dataMap 取出 data 对象
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

// submitAndApprove 提交并审批 basic 套餐，返回请求 ID
func submitAndApprove(t *testing.T, env *handlerEnv, groupID int64) int64 {
	t.Helper()

	w := performRequest(env.router, "POST", "/requests", map[string]interface{}{
		"group_id": groupID,
		"user_id":  55,
		"plan_id":  "basic",
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	id := int64(dataMap(t, resp)["request_id"].(float64))

	w = performRequest(env.router, "POST", "/requests/"+itoa(id)+"/approve", nil)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	return id
}
