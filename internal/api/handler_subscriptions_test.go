package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bins-status-backend/internal/model"
	"bins-status-backend/internal/store"
)

func setupSubscriptionRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	s := newTestStore(t)
	handler := NewHandler(context.Background(), s, nil, nil, nil, time.UTC)

	r := gin.Default()
	r.GET("/api/subscriptions", handler.GetSubscription)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	return r, s
}

func TestPutSubscription_InvalidRequest(t *testing.T) {
	router, _ := setupSubscriptionRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestPutAndGetSubscription(t *testing.T) {
	router, s := setupSubscriptionRouter(t)

	addr := &model.Address{Postcode: "BS16 7AE", UPRN: "100120001001", Label: "1, High Street"}
	require.NoError(t, s.CreateAddress(context.Background(), addr))

	body := `{"endpoint":"https://push.example/abc","p256dh":"key","auth":"auth","subscribed_addresses":[` +
		`1]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_addresses":[1]}`, w.Body.String())
}

func TestDeleteSubscription(t *testing.T) {
	router, s := setupSubscriptionRouter(t)

	sub := model.PushSubscription{Endpoint: "https://push.example/gone", P256DH: "k", Auth: "a"}
	require.NoError(t, s.DB().Create(&sub).Error)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/subscriptions", strings.NewReader(`{"endpoint":"https://push.example/gone"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, s.DB().Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Zero(t, count)
}
