package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"certgate/internal/directory/models"
	"certgate/internal/directory/store/memory"
	"certgate/internal/members"
	"certgate/internal/platform/config"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	dir    *memory.InMemory
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	s.dir = memory.NewInMemory()
	s.Require().NoError(s.dir.CreateUser(ctx, &models.User{ID: "alice"}))
	s.Require().NoError(s.dir.CreateUser(ctx, &models.User{ID: "bob"}))
	s.Require().NoError(s.dir.CreateGroup(ctx, &models.Group{Name: "Trusted Managers"}))

	service := members.NewService(s.dir, config.NewEngine(nil))
	s.router = chi.NewRouter()
	New(service, slog.Default()).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) TestAddListRemove() {
	w := s.do(http.MethodPost, "/groups/Trusted%20Managers/members", map[string]string{"user_id": "alice"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/groups/Trusted%20Managers/members", map[string]string{"user_id": "bob"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/groups/Trusted%20Managers/members?filter=ali", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Members []struct {
			UserID string `json:"user_id"`
		} `json:"members"`
		Total int `json:"total"`
	}
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&page))
	s.Equal(1, page.Total)
	s.Require().Len(page.Members, 1)
	s.Equal("alice", page.Members[0].UserID)

	w = s.do(http.MethodDelete, "/groups/Trusted%20Managers/members/alice", nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/groups/Trusted%20Managers/members/alice", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestGetMember() {
	s.do(http.MethodPost, "/groups/Trusted%20Managers/members", map[string]string{"user_id": "alice"})

	w := s.do(http.MethodGet, "/groups/Trusted%20Managers/members/ALICE", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var member struct {
		UserID  string `json:"user_id"`
		GroupID string `json:"group_id"`
	}
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&member))
	s.Equal("alice", member.UserID)
	s.Equal("Trusted Managers", member.GroupID)
}

func (s *HandlerSuite) TestUnknownGroupIs404() {
	w := s.do(http.MethodGet, "/groups/Bogus/members", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestEmptyUserIDIs400() {
	w := s.do(http.MethodPost, "/groups/Trusted%20Managers/members", map[string]string{"user_id": ""})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestMalformedBodyIs400() {
	req := httptest.NewRequest(http.MethodPost, "/groups/Trusted%20Managers/members", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}
