package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damoang/angple-bans/internal/config"
	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/handler"
	"github.com/damoang/angple-bans/internal/migration"
	"github.com/damoang/angple-bans/internal/repository"
	"github.com/damoang/angple-bans/internal/routes"
	"github.com/damoang/angple-bans/internal/service"
	"github.com/damoang/angple-bans/pkg/cache"
	"github.com/damoang/angple-bans/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Page       int   `json:"page"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"total_pages"`
	} `json:"meta"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type banView struct {
	ID          string     `json:"id"`
	MemberID    *string    `json:"member_id"`
	GroupID     *string    `json:"group_id"`
	Reason      *string    `json:"reason"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	Active      bool       `json:"active"`
	MemberName  string     `json:"member_name"`
	MemberEmail string     `json:"member_email"`
	GroupName   string     `json:"group_name"`
}

// BanAPISuite exercises the admin ban API end to end over sqlite
type BanAPISuite struct {
	suite.Suite
	db         *gorm.DB
	router     *gin.Engine
	jwtManager *jwt.Manager
	now        time.Time
	adminToken string
	userToken  string
}

func TestBanAPISuite(t *testing.T) {
	suite.Run(t, new(BanAPISuite))
}

func (s *BanAPISuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.jwtManager = jwt.NewManager("test-secret-key-for-ban-api", 900)

	var err error
	s.adminToken, err = s.jwtManager.GenerateAccessToken("admin-1", "Admin", 10)
	s.Require().NoError(err)
	s.userToken, err = s.jwtManager.GenerateAccessToken("user-1", "User", 2)
	s.Require().NoError(err)
}

func (s *BanAPISuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(migration.Run(db))
	s.Require().NoError(migration.Seed(db))
	s.db = db

	s.now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	banRepo := repository.NewBanRepositoryWithClock(db, clock)
	memberRepo := repository.NewMemberRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	noCache := cache.NewService(nil)
	cfg := config.Default().Bans

	h := handler.NewBanHandler(
		service.NewBanAdminService(banRepo, noCache, cfg, service.WithClock(clock)),
		service.NewStatusService(banRepo, memberRepo, service.WithClock(clock)),
		service.NewSelectionFilterService(banRepo, groupRepo, noCache, cfg.CacheTTLDuration(), service.WithClock(clock)),
	)

	s.router = gin.New()
	routes.SetupAdmin(s.router, h, s.jwtManager, nil)
}

func (s *BanAPISuite) do(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *BanAPISuite) reason(env envelope) string {
	s.Require().NotNil(env.Error)
	var details struct {
		Reason string `json:"reason"`
	}
	s.Require().NoError(json.Unmarshal(env.Error.Details, &details))
	return details.Reason
}

func (s *BanAPISuite) TestAuthRequired() {
	w, _ := s.do(http.MethodGet, "/api/v2/admin/bans", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v2/admin/bans", nil, s.userToken)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *BanAPISuite) TestBanMembersAndList() {
	w, env := s.do(http.MethodPost, "/api/v2/admin/bans/members", gin.H{
		"member_ids": []string{"mem-0001", "mem-0003", "mem-0003"},
		"reason":     "spam wave",
		"duration":   "7d",
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var result domain.BanMembersResult
	s.Require().NoError(json.Unmarshal(env.Data, &result))
	s.Len(result.Bans, 2)
	s.Equal(int64(2), result.Result.Affected)
	s.Require().NotNil(result.Bans[0].EndAt)
	s.True(result.Bans[0].EndAt.Equal(s.now.Add(7 * 24 * time.Hour)))

	w, env = s.do(http.MethodGet, "/api/v2/admin/bans?scope_kind=member&q=rivera", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Items     []banView `json:"items"`
		Total     int64     `json:"total"`
		PageCount int64     `json:"page_count"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Require().Len(page.Items, 1)
	s.Equal("Alex Rivera", page.Items[0].MemberName)
	s.Equal("alex@support.example.org", page.Items[0].MemberEmail)
	s.True(page.Items[0].Active)
	s.Nil(page.Items[0].GroupID)
	s.Equal(int64(1), page.PageCount)

	w, env = s.do(http.MethodGet, "/api/v2/admin/bans?domain=example.com", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Equal(int64(1), page.Total)
}

func (s *BanAPISuite) TestBanMembersValidation() {
	w, env := s.do(http.MethodPost, "/api/v2/admin/bans/members", gin.H{"member_ids": []string{}}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("missing_member_ids", s.reason(env))

	w, env = s.do(http.MethodPost, "/api/v2/admin/bans/members", gin.H{
		"member_ids": []string{"mem-0001"},
		"end_at":     "next tuesday",
	}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_end_at", s.reason(env))

	w, env = s.do(http.MethodPost, "/api/v2/admin/bans/members", gin.H{
		"member_ids": []string{"mem-0001"},
		"duration":   "3w",
	}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_duration", s.reason(env))

	w, env = s.do(http.MethodPost, "/api/v2/admin/bans/groups", gin.H{"reason": "no target"}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("missing_group_id", s.reason(env))

	var count int64
	s.db.Model(&repository.BanRecord{}).Count(&count)
	s.Zero(count)
}

func (s *BanAPISuite) TestGroupBanFlowsIntoMemberStatus() {
	w, env := s.do(http.MethodPost, "/api/v2/admin/bans/groups", gin.H{
		"group_id": "grp-engineering",
		"end_at":   "2026-05-04T12:00",
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var ban banView
	s.Require().NoError(json.Unmarshal(env.Data, &ban))
	s.Require().NotNil(ban.GroupID)
	s.Nil(ban.MemberID)

	w, env = s.do(http.MethodGet, "/api/v2/admin/members/mem-0002/status", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var status domain.MemberStatus
	s.Require().NoError(json.Unmarshal(env.Data, &status))
	s.True(status.Blocked)

	w, env = s.do(http.MethodGet, "/api/v2/admin/groups/ban-flags", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var flags []domain.GroupBanFlag
	s.Require().NoError(json.Unmarshal(env.Data, &flags))
	banned := map[string]bool{}
	for _, f := range flags {
		banned[f.Group.ID] = f.IsCurrentlyBanned
	}
	s.Equal(map[string]bool{"grp-engineering": true, "grp-support": false, "grp-trial": false}, banned)

	// past the end time the ban has expired on its own
	s.now = s.now.Add(4 * time.Hour)
	w, env = s.do(http.MethodGet, "/api/v2/admin/groups/grp-engineering/status", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var groupStatus struct {
		IsCurrentlyBanned bool `json:"is_currently_banned"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &groupStatus))
	s.False(groupStatus.IsCurrentlyBanned)
}

func (s *BanAPISuite) TestListMembersWithStatus() {
	w, _ := s.do(http.MethodPost, "/api/v2/admin/bans/members", gin.H{"member_ids": []string{"mem-0005"}}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code)

	w, env := s.do(http.MethodGet, "/api/v2/admin/members?page=1&page_size=10", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var items []domain.MemberWithStatus
	s.Require().NoError(json.Unmarshal(env.Data, &items))
	s.Len(items, 5)
	s.Require().NotNil(env.Meta)
	s.Equal(int64(5), env.Meta.Total)
	for _, it := range items {
		s.Equal(it.ID == "mem-0005", it.Blocked, it.ID)
	}

	w, env = s.do(http.MethodGet, "/api/v2/admin/members/status?ids=mem-0005,mem-0001", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var statuses []domain.MemberStatus
	s.Require().NoError(json.Unmarshal(env.Data, &statuses))
	s.Equal([]domain.MemberStatus{{MemberID: "mem-0005", Blocked: true}, {MemberID: "mem-0001", Blocked: false}}, statuses)
}

func (s *BanAPISuite) TestDeleteIsIdempotent() {
	w, env := s.do(http.MethodPost, "/api/v2/admin/bans/groups", gin.H{"group_id": "grp-trial"}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code)
	var ban banView
	s.Require().NoError(json.Unmarshal(env.Data, &ban))

	w, _ = s.do(http.MethodGet, "/api/v2/admin/bans/"+ban.ID, nil, s.adminToken)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/v2/admin/bans/"+ban.ID, nil, s.adminToken)
	s.Equal(http.StatusNoContent, w.Code)
	w, _ = s.do(http.MethodDelete, "/api/v2/admin/bans/"+ban.ID, nil, s.adminToken)
	s.Equal(http.StatusNoContent, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v2/admin/bans/"+ban.ID, nil, s.adminToken)
	s.Equal(http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodPost, "/api/v2/admin/bans/bulk-delete", gin.H{"ids": []string{"does-not-exist"}}, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var result domain.BulkResult
	s.Require().NoError(json.Unmarshal(env.Data, &result))
	s.Zero(result.Affected)
	s.False(result.Failed())

	w, env = s.do(http.MethodPost, "/api/v2/admin/bans/bulk-delete", gin.H{"ids": []string{}}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("empty_ids", s.reason(env))
}

func (s *BanAPISuite) TestExclusions() {
	w, _ := s.do(http.MethodPost, "/api/v2/admin/bans/members", gin.H{"member_ids": []string{"mem-0004", "mem-0002"}}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code)
	w, _ = s.do(http.MethodPost, "/api/v2/admin/bans/groups", gin.H{"group_id": "grp-support"}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code)

	w, env := s.do(http.MethodGet, "/api/v2/admin/bans/exclusions?scope_kind=member", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var out struct {
		IDs []string `json:"ids"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Equal([]string{"mem-0002", "mem-0004"}, out.IDs)

	w, env = s.do(http.MethodGet, "/api/v2/admin/bans/exclusions?scope_kind=group", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Equal([]string{"grp-support"}, out.IDs)

	w, env = s.do(http.MethodGet, "/api/v2/admin/bans/exclusions", nil, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_scope_kind", s.reason(env))

	w, env = s.do(http.MethodGet, "/api/v2/admin/bans?scope_kind=everyone", nil, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_scope_kind", s.reason(env))
}

func (s *BanAPISuite) TestCorruptStoredBanIsServerError() {
	memberID, groupID := "mem-0001", "grp-support"
	s.Require().NoError(s.db.Create(&repository.BanRecord{
		ID:       "corrupt-1",
		MemberID: &memberID,
		GroupID:  &groupID,
		StartAt:  s.now.Add(-time.Hour),
	}).Error)

	w, env := s.do(http.MethodGet, "/api/v2/admin/bans/corrupt-1", nil, s.adminToken)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Require().NotNil(env.Error)
	s.Equal("INTERNAL_SERVER_ERROR", env.Error.Code)

	// listings skip the row instead of failing
	w, _ = s.do(http.MethodGet, "/api/v2/admin/bans", nil, s.adminToken)
	s.Equal(http.StatusOK, w.Code)
}
