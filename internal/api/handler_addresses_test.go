package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bins-status-backend/internal/bins"
	"bins-status-backend/internal/coordinator"
	"bins-status-backend/internal/council"
	"bins-status-backend/internal/model"
	"bins-status-backend/internal/store"
)

// mockResolver is a test double for the council address lookup.
type mockResolver struct {
	addresses []council.Address
	err       error
}

func (m *mockResolver) LookupAddresses(ctx context.Context, postcode string) ([]council.Address, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.addresses, nil
}

// stubFetcher satisfies coordinator.Fetcher for coordinators the handlers
// start during setup.
type stubFetcher struct {
	snapshot *bins.Snapshot
	err      error
}

func (s *stubFetcher) FetchCollections(ctx context.Context, uprn string) (*bins.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.snapshot != nil {
		return s.snapshot, nil
	}
	return &bins.Snapshot{Collections: map[bins.Type]bins.Collection{}, FetchedAt: time.Now()}, nil
}

func (s *stubFetcher) Location() *time.Location {
	return time.UTC
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Address{}, &model.PushSubscription{}))
	return store.NewGormStore(db)
}

func setupAddressRouter(t *testing.T, resolver Resolver, fetcher coordinator.Fetcher) (*gin.Engine, store.Store, *coordinator.Manager) {
	t.Helper()
	s := newTestStore(t)
	manager := coordinator.NewManager(fetcher, nil, 24*time.Hour, 15*time.Minute)
	t.Cleanup(manager.StopAll)

	handler := NewHandler(context.Background(), s, resolver, manager, nil, time.UTC)

	r := gin.Default()
	r.POST("/api/addresses", handler.RegisterAddress)
	r.POST("/api/addresses/select", handler.SelectAddress)
	r.GET("/api/addresses", handler.ListAddresses)
	r.DELETE("/api/addresses/:id", handler.DeleteAddress)
	r.GET("/api/addresses/:id/sensors", handler.GetSensors)
	r.GET("/api/addresses/:id/collections", handler.GetCollections)
	return r, s, manager
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterAddress_MissingPostcode(t *testing.T) {
	router, _, _ := setupAddressRouter(t, &mockResolver{}, &stubFetcher{})

	w := postJSON(router, "/api/addresses", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAddress_NoMatches(t *testing.T) {
	resolver := &mockResolver{err: council.ErrNoAddresses}
	router, s, manager := setupAddressRouter(t, resolver, &stubFetcher{})

	w := postJSON(router, "/api/addresses", gin.H{"postcode": "ZZ99 9ZZ"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A failed setup persists nothing and starts nothing.
	addresses, err := s.ListAddresses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addresses)
	_, running := manager.Get(1)
	assert.False(t, running)
}

func TestRegisterAddress_SingleMatch(t *testing.T) {
	resolver := &mockResolver{addresses: []council.Address{
		{UPRN: "100120001001", Label: "1, High Street, Bristol, BS16 7AE"},
	}}
	router, s, manager := setupAddressRouter(t, resolver, &stubFetcher{})

	w := postJSON(router, "/api/addresses", gin.H{"postcode": "bs16 7ae"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.Address
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "BS16 7AE", created.Postcode) // normalized
	assert.Equal(t, "100120001001", created.UPRN)

	addresses, err := s.ListAddresses(context.Background())
	require.NoError(t, err)
	require.Len(t, addresses, 1)

	_, running := manager.Get(created.ID)
	assert.True(t, running)
}

func TestRegisterAddress_MultipleMatchesRequireSelection(t *testing.T) {
	resolver := &mockResolver{addresses: []council.Address{
		{UPRN: "100120001001", Label: "1, High Street"},
		{UPRN: "100120001002", Label: "2, High Street"},
	}}
	router, s, manager := setupAddressRouter(t, resolver, &stubFetcher{})

	w := postJSON(router, "/api/addresses", gin.H{"postcode": "BS16 7AE"})
	require.Equal(t, http.StatusMultipleChoices, w.Code)

	var resp struct {
		Postcode  string            `json:"postcode"`
		Addresses []council.Address `json:"addresses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Addresses, 2)

	// Nothing is persisted until a candidate is selected.
	addresses, err := s.ListAddresses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addresses)
	_, running := manager.Get(1)
	assert.False(t, running)

	// Selecting one of the candidates completes setup.
	w = postJSON(router, "/api/addresses/select", gin.H{"postcode": "BS16 7AE", "uprn": "100120001002"})
	require.Equal(t, http.StatusCreated, w.Code)

	addresses, err = s.ListAddresses(context.Background())
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, "100120001002", addresses[0].UPRN)
}

func TestSelectAddress_UnknownUPRN(t *testing.T) {
	resolver := &mockResolver{addresses: []council.Address{
		{UPRN: "100120001001", Label: "1, High Street"},
	}}
	router, s, _ := setupAddressRouter(t, resolver, &stubFetcher{})

	w := postJSON(router, "/api/addresses/select", gin.H{"postcode": "BS16 7AE", "uprn": "999"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	addresses, err := s.ListAddresses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addresses)
}

func TestRegisterAddress_Duplicate(t *testing.T) {
	resolver := &mockResolver{addresses: []council.Address{
		{UPRN: "100120001001", Label: "1, High Street"},
	}}
	router, _, _ := setupAddressRouter(t, resolver, &stubFetcher{})

	w := postJSON(router, "/api/addresses", gin.H{"postcode": "BS16 7AE"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(router, "/api/addresses", gin.H{"postcode": "BS16 7AE"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteAddress_StopsCoordinator(t *testing.T) {
	resolver := &mockResolver{addresses: []council.Address{
		{UPRN: "100120001001", Label: "1, High Street"},
	}}
	router, _, manager := setupAddressRouter(t, resolver, &stubFetcher{})

	w := postJSON(router, "/api/addresses", gin.H{"postcode": "BS16 7AE"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Address
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("/api/addresses/%d", created.ID), nil)
	del := httptest.NewRecorder()
	router.ServeHTTP(del, req)
	assert.Equal(t, http.StatusNoContent, del.Code)

	_, running := manager.Get(created.ID)
	assert.False(t, running)

	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("/api/addresses/%d", created.ID), nil)
	del = httptest.NewRecorder()
	router.ServeHTTP(del, req)
	assert.Equal(t, http.StatusNotFound, del.Code)
}

func TestGetSensors_UnknownAddress(t *testing.T) {
	router, _, _ := setupAddressRouter(t, &mockResolver{}, &stubFetcher{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/addresses/42/sensors", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSensors_FetchNotYetSucceeded(t *testing.T) {
	resolver := &mockResolver{addresses: []council.Address{
		{UPRN: "100120001001", Label: "1, High Street"},
	}}
	fetcher := &stubFetcher{err: fmt.Errorf("council API unreachable")}
	router, _, _ := setupAddressRouter(t, resolver, fetcher)

	w := postJSON(router, "/api/addresses", gin.H{"postcode": "BS16 7AE"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Address
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// The coordinator retries on its schedule; reads meanwhile get a 503,
	// never a crash or a placeholder.
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/addresses/%d/sensors", created.ID), nil)
		router.ServeHTTP(rec, req)
		return rec.Code == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)
}

func TestGetSensors_ReturnsDerivedValues(t *testing.T) {
	next := time.Date(2030, time.January, 10, 0, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{snapshot: &bins.Snapshot{
		FetchedAt: time.Now(),
		Collections: map[bins.Type]bins.Collection{
			bins.TypeRefuse: {
				Type:           bins.TypeRefuse,
				NextCollection: &next,
				Schedule:       "Friday every week",
			},
		},
	}}
	resolver := &mockResolver{addresses: []council.Address{
		{UPRN: "100120001001", Label: "1, High Street"},
	}}
	router, _, _ := setupAddressRouter(t, resolver, fetcher)

	w := postJSON(router, "/api/addresses", gin.H{"postcode": "BS16 7AE"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Address
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	var body struct {
		Sensors []struct {
			CollectionType string `json:"collection_type"`
			NextCollection *struct {
				State string `json:"state"`
			} `json:"next_collection"`
		} `json:"sensors"`
	}
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/addresses/%d/sensors", created.ID), nil)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return true
	}, time.Second, 10*time.Millisecond)

	require.Len(t, body.Sensors, 1)
	assert.Equal(t, "refuse", body.Sensors[0].CollectionType)
	require.NotNil(t, body.Sensors[0].NextCollection)
	assert.Equal(t, "2030-01-10", body.Sensors[0].NextCollection.State)
}
