package servicemux

import (
	"bufio"
	"crypto/rand"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/soheilhy/cmux"

	"github.com/seenhealth/hccinfhir/conf"
)

// keepAlivePeriod returns the TCP keep-alive interval, overridable through
// SERVICE_MUX_KEEP_ALIVE_INTERVAL (seconds).
func keepAlivePeriod() time.Duration {
	seconds := 60
	if raw := conf.GetEnv("SERVICE_MUX_KEEP_ALIVE_INTERVAL"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			panic(err)
		}
		seconds = parsed
	}
	return time.Duration(seconds) * time.Second
}

type tcpKeepAliveListener struct {
	*net.TCPListener
	period time.Duration
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	conn, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err := conn.SetKeepAlive(true); err != nil {
		return nil, err
	}
	if err := conn.SetKeepAlivePeriod(ln.period); err != nil {
		return nil, err
	}
	return conn, nil
}

// URLPrefixMatcher matches connections whose first request path starts with
// prefix, so multiple servers can share one listener.
func URLPrefixMatcher(prefix string) cmux.Matcher {
	return func(r io.Reader) bool {
		req, err := http.ReadRequest(bufio.NewReader(r))
		if err != nil {
			return false
		}
		return strings.HasPrefix(req.URL.Path, prefix)
	}
}

type server struct {
	srv        *http.Server
	pathPrefix string
}

type ServiceMux struct {
	Addr      string
	Listener  net.Listener
	servers   []server
	TLSConfig tls.Config
}

func New(addr string) *ServiceMux {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		panic(err)
	}

	return &ServiceMux{
		Addr:     addr,
		Listener: tcpKeepAliveListener{TCPListener: ln.(*net.TCPListener), period: keepAlivePeriod()},
	}
}

// AddServer registers srv for connections matching pathPrefix; an empty
// prefix matches everything not claimed by another server.
func (sm *ServiceMux) AddServer(srv *http.Server, pathPrefix string) {
	sm.servers = append(sm.servers, server{srv: srv, pathPrefix: pathPrefix})
}

// Serve blocks, dispatching connections to the registered servers. Plain
// HTTP requires an explicit HTTP_ONLY=true; otherwise HCC_TLS_CERT and
// HCC_TLS_KEY must point at a usable pair.
func (sm *ServiceMux) Serve() {
	if httpOnly, _ := strconv.ParseBool(conf.GetEnv("HTTP_ONLY")); httpOnly {
		log.WithField("addr", sm.Addr).Info("serving plain HTTP")
		sm.serveHTTP()
		return
	}

	certPath, keyPath := conf.GetEnv("HCC_TLS_CERT"), conf.GetEnv("HCC_TLS_KEY")
	if certPath == "" || keyPath == "" {
		panic("missing TLS configuration: set HCC_TLS_CERT and HCC_TLS_KEY, or HTTP_ONLY=true")
	}
	sm.serveHTTPS(certPath, keyPath)
}

func (sm *ServiceMux) serveHTTPS(certPath, keyPath string) {
	certificate, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		log.Panic(err)
	}

	sm.TLSConfig = tls.Config{
		MinVersion:       tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{tls.CurveP256, tls.X25519},
		Certificates:     []tls.Certificate{certificate},
		Rand:             rand.Reader,
	}
	sm.Listener = tls.NewListener(sm.Listener, &sm.TLSConfig)

	log.WithField("addr", sm.Addr).Info("serving HTTPS")
	sm.serveHTTP()
}

func (sm *ServiceMux) serveHTTP() {
	m := cmux.New(sm.Listener)

	for _, s := range sm.servers {
		s.srv.TLSConfig = &sm.TLSConfig
		//nolint
		go s.srv.Serve(m.Match(matcherFor(s.pathPrefix)))
	}

	if err := m.Serve(); err != nil {
		panic(err)
	}
}

func matcherFor(pathPrefix string) cmux.Matcher {
	if pathPrefix == "" {
		return cmux.Any()
	}
	return URLPrefixMatcher(pathPrefix)
}

func (sm *ServiceMux) Close() {
	if err := sm.Listener.Close(); err != nil {
		log.WithField("addr", sm.Addr).Panic(err)
	}
}

// IsHTTPS reports whether the request arrived on a TLS-configured server.
func IsHTTPS(r *http.Request) bool {
	srv, ok := r.Context().Value(http.ServerContextKey).(*http.Server)
	if !ok {
		return false
	}
	return srv.TLSConfig != nil && len(srv.TLSConfig.Certificates) > 0
}
