package servicemux

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ServiceMuxTestSuite struct {
	suite.Suite
}

func (s *ServiceMuxTestSuite) TestNew() {
	sm := New("127.0.0.1:0")
	defer sm.Close()

	s.Equal("127.0.0.1:0", sm.Addr)
	s.IsType(tcpKeepAliveListener{}, sm.Listener)
	s.Empty(sm.servers)
}

func (s *ServiceMuxTestSuite) TestAddServer() {
	sm := New("127.0.0.1:0")
	defer sm.Close()

	sm.AddServer(&http.Server{}, "/api")
	sm.AddServer(&http.Server{}, "")
	s.Len(sm.servers, 2)
	s.Equal("/api", sm.servers[0].pathPrefix)
	s.Empty(sm.servers[1].pathPrefix)
}

func (s *ServiceMuxTestSuite) TestURLPrefixMatcher() {
	m := URLPrefixMatcher("/api")
	s.True(m(strings.NewReader("GET /api/v1/score HTTP/1.1\r\nHost: x\r\n\r\n")))
	s.False(m(strings.NewReader("GET /metrics HTTP/1.1\r\nHost: x\r\n\r\n")))
	s.False(m(strings.NewReader("not an http request")))
}

func (s *ServiceMuxTestSuite) TestKeepAlivePeriod() {
	s.Equal(60*time.Second, keepAlivePeriod())

	s.T().Setenv("SERVICE_MUX_KEEP_ALIVE_INTERVAL", "15")
	s.Equal(15*time.Second, keepAlivePeriod())

	s.T().Setenv("SERVICE_MUX_KEEP_ALIVE_INTERVAL", "not-a-number")
	s.Panics(func() { keepAlivePeriod() })
}

func (s *ServiceMuxTestSuite) TestServeRequiresTLSConfig() {
	tests := []struct {
		name string
		cert string
		key  string
	}{
		{"no cert", "", "test.key"},
		{"no key", "test.crt", ""},
		{"neither", "", ""},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.T().Setenv("HCC_TLS_CERT", tt.cert)
			s.T().Setenv("HCC_TLS_KEY", tt.key)
			s.T().Setenv("HTTP_ONLY", "")

			sm := &ServiceMux{}
			s.Panics(sm.Serve)
		})
	}
}

func TestServiceMuxTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceMuxTestSuite))
}
