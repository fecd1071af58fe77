package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/brokerconfig"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/moderation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore хранит копии и архивы в памяти; транзакция применяется целиком или не применяется.
type fakeStore struct {
	mu       sync.Mutex
	copies   map[uuid.UUID]*entity.MessageCopy
	archives map[uuid.UUID]*entity.ArchiveRecord
	configs  map[uuid.UUID]*entity.BrokerConfig
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		copies:   make(map[uuid.UUID]*entity.MessageCopy),
		archives: make(map[uuid.UUID]*entity.ArchiveRecord),
		configs:  make(map[uuid.UUID]*entity.BrokerConfig),
	}
}

func (s *fakeStore) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.MessageCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mc, ok := s.copies[id]
	if !ok || mc.TenantID != tenantID {
		return nil, apperror.ErrCopyNotFound
	}
	clone := *mc
	return &clone, nil
}

func (s *fakeStore) List(ctx context.Context, filter repository.CopyFilter) ([]*entity.MessageCopy, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.MessageCopy
	for _, mc := range s.copies {
		if mc.TenantID == filter.TenantID && !mc.IsArchived() {
			out = append(out, mc)
		}
	}
	return out, len(out), nil
}

func (s *fakeStore) Stats(ctx context.Context, tenantID uuid.UUID) (repository.CopyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st repository.CopyStats
	for _, mc := range s.copies {
		if mc.TenantID != tenantID {
			continue
		}
		switch mc.State() {
		case valueobject.CopyStatePending:
			st.Unreviewed++
		case valueobject.CopyStateFlagged:
			st.Flagged++
		case valueobject.CopyStateReviewed:
			st.Reviewed++
		case valueobject.CopyStateArchived:
			st.Archived++
		}
	}
	return st, nil
}

func (s *fakeStore) FindThreadByMessageID(ctx context.Context, tenantID, messageID uuid.UUID) ([]*entity.ThreadMessage, error) {
	return nil, nil
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.ModerationTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &fakeTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, mc := range tx.saved {
		s.copies[mc.ID] = mc
	}
	for _, rec := range tx.archived {
		s.archives[rec.ID] = rec
	}
	return nil
}

type fakeTx struct {
	store    *fakeStore
	saved    []*entity.MessageCopy
	archived []*entity.ArchiveRecord
}

func (tx *fakeTx) LockCopy(ctx context.Context, tenantID, id uuid.UUID) (*entity.MessageCopy, error) {
	mc, ok := tx.store.copies[id]
	if !ok || mc.TenantID != tenantID {
		return nil, apperror.ErrCopyNotFound
	}
	clone := *mc
	return &clone, nil
}

func (tx *fakeTx) SaveCopyStatus(ctx context.Context, mc *entity.MessageCopy, expectedVersion int) error {
	if tx.store.copies[mc.ID].Version != expectedVersion {
		return apperror.ErrConcurrencyConflict
	}
	tx.saved = append(tx.saved, mc)
	return nil
}

func (tx *fakeTx) LoadThread(ctx context.Context, tenantID, messageID uuid.UUID) ([]*entity.ThreadMessage, error) {
	return nil, nil
}

func (tx *fakeTx) CreateArchive(ctx context.Context, rec *entity.ArchiveRecord) error {
	for _, existing := range tx.store.archives {
		if existing.CopyID == rec.CopyID {
			return apperror.ErrAlreadyArchived
		}
	}
	tx.archived = append(tx.archived, rec)
	return nil
}

func (tx *fakeTx) AppendActivity(ctx context.Context, activity *entity.Activity) error {
	return nil
}

type fakeArchives struct{ store *fakeStore }

func (a fakeArchives) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.ArchiveRecord, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	rec, ok := a.store.archives[id]
	if !ok || rec.TenantID != tenantID {
		return nil, apperror.ErrArchiveNotFound
	}
	return rec, nil
}

func (a fakeArchives) List(ctx context.Context, filter repository.ArchiveFilter) ([]*entity.ArchiveRecord, int, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	var out []*entity.ArchiveRecord
	for _, rec := range a.store.archives {
		if rec.TenantID == filter.TenantID {
			out = append(out, rec)
		}
	}
	return out, len(out), nil
}

type fakeConfigs struct{ store *fakeStore }

func (f fakeConfigs) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*entity.BrokerConfig, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cfg, ok := f.store.configs[tenantID]
	if !ok {
		return nil, nil
	}
	clone := *cfg
	return &clone, nil
}

func (f fakeConfigs) Upsert(ctx context.Context, cfg *entity.BrokerConfig) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	clone := *cfg
	f.store.configs[cfg.TenantID] = &clone
	return nil
}

type testServer struct {
	store  *fakeStore
	engine *gin.Engine
	tenant uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := newFakeStore()
	archives := fakeArchives{store: store}
	configRepo := fakeConfigs{store: store}

	getConfig := brokerconfig.NewGetBrokerConfigUseCase(configRepo, nil, 0)
	messages := NewBrokerMessageHandler(
		moderation.NewListCopiesUseCase(store),
		moderation.NewGetCopyUseCase(store, store),
		moderation.NewCopyStatsUseCase(store),
		moderation.NewMarkReviewedUseCase(store, getConfig, nil),
		moderation.NewFlagCopyUseCase(store, getConfig, nil),
		moderation.NewApproveAndArchiveUseCase(store, getConfig, nil),
	)
	archiveHandler := NewBrokerArchiveHandler(
		moderation.NewListArchivesUseCase(archives),
		moderation.NewGetArchiveUseCase(archives),
	)
	configHandler := NewBrokerConfigHandler(getConfig, brokerconfig.NewUpdateBrokerConfigUseCase(configRepo, getConfig, nil))

	srv := &testServer{store: store, tenant: uuid.New()}
	r := gin.New()
	g := r.Group("/broker")
	// Роль передаётся заголовком, чтобы не выпускать токены в каждом тесте
	g.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			actor := reqctx.Actor{TenantID: srv.tenant, UserID: uuid.New(), Name: "Broker Bea", Role: role}
			c.Request = c.Request.WithContext(reqctx.WithActor(c.Request.Context(), actor))
		}
	})
	g.GET("/messages", messages.ListCopies)
	g.GET("/messages/stats", messages.Stats)
	g.GET("/messages/:id", messages.GetCopy)
	g.POST("/messages/:id/review", messages.Review)
	g.POST("/messages/:id/flag", messages.Flag)
	g.POST("/messages/:id/approve", messages.Approve)
	g.GET("/archives", archiveHandler.ListArchives)
	g.GET("/archives/:id", archiveHandler.GetArchive)
	g.GET("/config", configHandler.GetConfig)
	g.PUT("/config", configHandler.UpdateConfig)
	srv.engine = r
	return srv
}

func (s *testServer) addCopy() *entity.MessageCopy {
	mc := &entity.MessageCopy{
		ID:                uuid.New(),
		TenantID:          s.tenant,
		SenderID:          uuid.New(),
		SenderName:        "Alice",
		ReceiverID:        uuid.New(),
		ReceiverName:      "Bob",
		OriginalMessageID: uuid.New(),
		MessageBody:       "Can you help with gardening on Saturday?",
		CopyReason:        valueobject.CopyReasonFirstContact,
		SentAt:            time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC),
		CreatedAt:         time.Date(2026, 5, 2, 10, 0, 1, 0, time.UTC),
	}
	s.store.mu.Lock()
	s.store.copies[mc.ID] = mc
	s.store.mu.Unlock()
	return mc
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *struct {
		Total   int  `json:"total"`
		Limit   int  `json:"limit"`
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

func (s *testServer) do(t *testing.T, method, path, role string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func errCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestBrokerMessageHandler_ApproveCreatesArchive(t *testing.T) {
	srv := newTestServer(t)
	mc := srv.addCopy()

	code, env := srv.do(t, http.MethodPost, "/broker/messages/"+mc.ID.String()+"/approve", reqctx.RoleBroker, map[string]string{"notes": "looks fine"})
	require.Equal(t, http.StatusCreated, code)

	var archive struct {
		Decision      string  `json:"decision"`
		DecisionNotes *string `json:"decision_notes"`
		CopyID        string  `json:"copy_id"`
		MessageCount  int     `json:"message_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &archive))
	assert.Equal(t, "approved", archive.Decision)
	assert.Equal(t, mc.ID.String(), archive.CopyID)
	require.NotNil(t, archive.DecisionNotes)
	assert.Equal(t, "looks fine", *archive.DecisionNotes)
	assert.Zero(t, archive.MessageCount)

	code, env = srv.do(t, http.MethodPost, "/broker/messages/"+mc.ID.String()+"/approve", reqctx.RoleBroker, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(apperror.ErrCodeAlreadyArchived), errCode(env))
}

func TestBrokerMessageHandler_ApproveWithoutBody(t *testing.T) {
	srv := newTestServer(t)
	mc := srv.addCopy()

	code, _ := srv.do(t, http.MethodPost, "/broker/messages/"+mc.ID.String()+"/approve", reqctx.RoleAdmin, nil)
	assert.Equal(t, http.StatusCreated, code)
}

// approveChunked отправляет тело без объявленной длины, как при Transfer-Encoding: chunked.
func (s *testServer) approveChunked(t *testing.T, copyID uuid.UUID, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/broker/messages/"+copyID.String()+"/approve", strings.NewReader(body))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", reqctx.RoleBroker)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestBrokerMessageHandler_ApproveChunkedBodyKeepsNotes(t *testing.T) {
	srv := newTestServer(t)
	mc := srv.addCopy()

	code, env := srv.approveChunked(t, mc.ID, `{"notes":"looks fine"}`)
	require.Equal(t, http.StatusCreated, code)

	var archive struct {
		DecisionNotes *string `json:"decision_notes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &archive))
	require.NotNil(t, archive.DecisionNotes)
	assert.Equal(t, "looks fine", *archive.DecisionNotes)
}

func TestBrokerMessageHandler_ApproveChunkedEmptyAndMalformed(t *testing.T) {
	srv := newTestServer(t)

	code, _ := srv.approveChunked(t, srv.addCopy().ID, "")
	assert.Equal(t, http.StatusCreated, code)

	malformed := srv.addCopy()
	code, env := srv.approveChunked(t, malformed.ID, `{"notes":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(apperror.ErrCodeBadRequest), errCode(env))
	assert.False(t, srv.store.copies[malformed.ID].IsArchived(), "копия не архивируется при ошибке разбора")
}

func TestBrokerMessageHandler_FlagThenApproveIsFlaggedDecision(t *testing.T) {
	srv := newTestServer(t)
	mc := srv.addCopy()
	path := "/broker/messages/" + mc.ID.String()

	code, env := srv.do(t, http.MethodPost, path+"/flag", reqctx.RoleBroker, map[string]string{"reason": "asks for money", "severity": "concern"})
	require.Equal(t, http.StatusOK, code)
	var flagged struct {
		State        string  `json:"state"`
		FlagSeverity *string `json:"flag_severity"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &flagged))
	assert.Equal(t, "flagged", flagged.State)
	require.NotNil(t, flagged.FlagSeverity)
	assert.Equal(t, "concern", *flagged.FlagSeverity)

	code, env = srv.do(t, http.MethodPost, path+"/approve", reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusCreated, code)
	var archive struct {
		Decision   string  `json:"decision"`
		FlagReason *string `json:"flag_reason"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &archive))
	assert.Equal(t, "flagged", archive.Decision)
	require.NotNil(t, archive.FlagReason)
	assert.Equal(t, "asks for money", *archive.FlagReason)
}

func TestBrokerMessageHandler_FlagValidation(t *testing.T) {
	srv := newTestServer(t)
	mc := srv.addCopy()
	path := "/broker/messages/" + mc.ID.String() + "/flag"

	cases := []struct {
		name string
		body map[string]string
	}{
		{"empty reason", map[string]string{"reason": "   ", "severity": "warning"}},
		{"legacy severity", map[string]string{"reason": "rude", "severity": "serious"}},
		{"missing severity", map[string]string{"reason": "rude"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := srv.do(t, http.MethodPost, path, reqctx.RoleBroker, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, string(apperror.ErrCodeValidation), errCode(env))
		})
	}
	assert.False(t, srv.store.copies[mc.ID].Flagged)
}

func TestBrokerMessageHandler_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/broker/messages/"+uuid.NewString()+"/review", reqctx.RoleBroker, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(apperror.ErrCodeNotFound), errCode(env))

	code, env = srv.do(t, http.MethodGet, "/broker/messages/not-a-uuid", reqctx.RoleBroker, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(apperror.ErrCodeBadRequest), errCode(env))

	mc := srv.addCopy()
	code, _ = srv.do(t, http.MethodPost, "/broker/messages/"+mc.ID.String()+"/review", "member", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = srv.do(t, http.MethodGet, "/broker/messages", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBrokerMessageHandler_ModerationDisabled(t *testing.T) {
	srv := newTestServer(t)
	mc := srv.addCopy()
	cfg := entity.DefaultBrokerConfig(srv.tenant)
	cfg.BrokerMessagingEnabled = false
	srv.store.configs[srv.tenant] = cfg

	code, env := srv.do(t, http.MethodPost, "/broker/messages/"+mc.ID.String()+"/review", reqctx.RoleBroker, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(apperror.ErrCodeModerationDisabled), errCode(env))
}

func TestBrokerMessageHandler_ListStatsAndDetails(t *testing.T) {
	srv := newTestServer(t)
	first := srv.addCopy()
	srv.addCopy()

	code, env := srv.do(t, http.MethodPost, "/broker/messages/"+first.ID.String()+"/review", reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = srv.do(t, http.MethodGet, "/broker/messages?status=all&limit=500", reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Total)
	assert.Equal(t, 100, env.Pagination.Limit)
	assert.False(t, env.Pagination.HasMore)

	code, env = srv.do(t, http.MethodGet, "/broker/messages?status=bogus", reqctx.RoleBroker, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = srv.do(t, http.MethodGet, "/broker/messages/stats", reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusOK, code)
	var stats struct {
		Unreviewed int `json:"unreviewed"`
		Reviewed   int `json:"reviewed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Unreviewed)
	assert.Equal(t, 1, stats.Reviewed)

	code, env = srv.do(t, http.MethodGet, "/broker/messages/"+first.ID.String(), reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusOK, code)
	var details struct {
		Copy struct {
			State string `json:"state"`
		} `json:"copy"`
		Thread []json.RawMessage `json:"thread"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, "reviewed", details.Copy.State)
	assert.Empty(t, details.Thread)
}

func TestBrokerArchiveHandler(t *testing.T) {
	srv := newTestServer(t)
	mc := srv.addCopy()

	code, env := srv.do(t, http.MethodPost, "/broker/messages/"+mc.ID.String()+"/approve", reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, env = srv.do(t, http.MethodGet, "/broker/archives?decision=approved", reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)

	code, env = srv.do(t, http.MethodGet, "/broker/archives/"+created.ID, reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusOK, code)
	var archive struct {
		TargetMessageBody string `json:"target_message_body"`
		Snapshot          struct {
			Messages []json.RawMessage `json:"messages"`
		} `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &archive))
	// Исходного сообщения нет в переписке: тело берётся из копии
	assert.Equal(t, mc.MessageBody, archive.TargetMessageBody)
	assert.Empty(t, archive.Snapshot.Messages)

	code, _ = srv.do(t, http.MethodGet, "/broker/archives/"+uuid.NewString(), reqctx.RoleBroker, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = srv.do(t, http.MethodGet, "/broker/archives?decision=rejected", reqctx.RoleBroker, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBrokerConfigHandler(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodGet, "/broker/config", reqctx.RoleBroker, nil)
	require.Equal(t, http.StatusOK, code)
	var cfg struct {
		Enabled   bool `json:"broker_messaging_enabled"`
		Retention int  `json:"retention_days"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 2555, cfg.Retention)

	code, _ = srv.do(t, http.MethodPut, "/broker/config", reqctx.RoleBroker, map[string]any{"retention_days": 30})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = srv.do(t, http.MethodPut, "/broker/config", reqctx.RoleTenantAdmin, map[string]any{"random_sample_percentage": 150})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(apperror.ErrCodeValidation), errCode(env))

	code, env = srv.do(t, http.MethodPut, "/broker/config", reqctx.RoleTenantAdmin, map[string]any{"retention_days": 30})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.Equal(t, 30, cfg.Retention)
	assert.True(t, cfg.Enabled)
}

type pinger struct{ err error }

func (p pinger) PingContext(ctx context.Context) error { return p.err }

type breaker struct{ state gobreaker.State }

func (b breaker) State() gobreaker.State { return b.state }

func TestHealthHandler(t *testing.T) {
	r := gin.New()
	r.GET("/ok", NewHealthHandler(pinger{}, breaker{state: gobreaker.StateOpen}).Health)
	r.GET("/down", NewHealthHandler(pinger{err: errors.New("connection refused")}, nil).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Contains(t, resp.Checks["kafka"], "open")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
