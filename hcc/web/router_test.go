package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RouterTestSuite struct {
	suite.Suite
	apiRouter http.Handler
}

func (s *RouterTestSuite) SetupTest() {
	s.apiRouter = NewAPIRouter()
}

func (s *RouterTestSuite) getAPIRoute(route string) *http.Response {
	req := httptest.NewRequest("GET", route, nil)
	rr := httptest.NewRecorder()
	s.apiRouter.ServeHTTP(rr, req)
	return rr.Result()
}

func (s *RouterTestSuite) postAPIRoute(route string, body interface{}) *http.Response {
	raw, err := json.Marshal(body)
	if err != nil {
		s.FailNow("marshal request body", err)
	}
	req := httptest.NewRequest("POST", route, bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	s.apiRouter.ServeHTTP(rr, req)
	return rr.Result()
}

func (s *RouterTestSuite) TestHealthRoute() {
	res := s.getAPIRoute("/_health")
	assert.Equal(s.T(), http.StatusOK, res.StatusCode)
}

func (s *RouterTestSuite) TestVersionRoute() {
	res := s.getAPIRoute("/_version")
	assert.Equal(s.T(), http.StatusOK, res.StatusCode)
}

func (s *RouterTestSuite) TestModelsRoute() {
	res := s.getAPIRoute("/api/v1/models")
	assert.Equal(s.T(), http.StatusOK, res.StatusCode)

	raw, err := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Nil(s.T(), err)
	var obj map[string]interface{}
	assert.NoError(s.T(), json.Unmarshal(raw, &obj))
	assert.NotEmpty(s.T(), obj["models"])
}

func (s *RouterTestSuite) TestScoreRoute() {
	res := s.postAPIRoute("/api/v1/score", map[string]interface{}{
		"diagnosis_codes": []string{"E11.9"},
		"age":             70,
		"sex":             "M",
	})
	assert.Equal(s.T(), http.StatusOK, res.StatusCode)

	raw, err := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Nil(s.T(), err)
	var obj map[string]interface{}
	assert.NoError(s.T(), json.Unmarshal(raw, &obj))
	assert.Equal(s.T(), "CMS-HCC Model V28", obj["model_name"])
}

func (s *RouterTestSuite) TestScoreRouteRejectsGet() {
	res := s.getAPIRoute("/api/v1/score")
	assert.Equal(s.T(), http.StatusMethodNotAllowed, res.StatusCode)
}

func (s *RouterTestSuite) TestRiskAssessmentRoutes() {
	res := s.getAPIRoute("/api/v1/riskassessment?codes=E11.9&age=70&sex=M")
	assert.Equal(s.T(), http.StatusOK, res.StatusCode)

	res = s.postAPIRoute("/api/v1/riskassessment", map[string]interface{}{
		"diagnosis_codes": []string{"E11.9"},
		"age":             70,
		"sex":             "M",
	})
	assert.Equal(s.T(), http.StatusOK, res.StatusCode)
}

func (s *RouterTestSuite) TestUnknownRoute() {
	res := s.getAPIRoute("/api/v1/nope")
	assert.Equal(s.T(), http.StatusNotFound, res.StatusCode)
}

func (s *RouterTestSuite) TestHTTPServerRedirect() {
	router := NewHTTPRouter()

	req := httptest.NewRequest("GET", "http://example.com/api/v1/models", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	res := rr.Result()

	assert.Equal(s.T(), http.StatusMovedPermanently, res.StatusCode)
	assert.Equal(s.T(), "close", res.Header.Get("Connection"))
	assert.Contains(s.T(), res.Header.Get("Location"), "https://")

	req = httptest.NewRequest("POST", "http://example.com/api/v1/score", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	res = rr.Result()

	assert.Equal(s.T(), http.StatusMethodNotAllowed, res.StatusCode)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
