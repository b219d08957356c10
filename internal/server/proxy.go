package server

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
)

// ProxyConfig holds configuration for the pass-through proxy
type ProxyConfig struct {
	Upstream string        // Defaults to the public Flashnet API
	Timeout  time.Duration // Upstream request timeout
	HTTP     *http.Client  // Optional; built from Timeout when nil
	Logger   *logrus.Logger
}

// Proxy forwards ?path=/v1/... requests to the Flashnet API with CORS
// headers, so browser clients avoid the upstream's bot protection.
type Proxy struct {
	upstream string
	http     *http.Client
	logger   *logrus.Logger
	now      func() time.Time
}

func NewProxy(cfg ProxyConfig) *Proxy {
	if cfg.Upstream == "" {
		cfg.Upstream = constants.FlashnetAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Proxy{
		upstream: strings.TrimRight(cfg.Upstream, "/"),
		http:     cfg.HTTP,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Max-Age", "86400")
}

// Handle serves one proxied request
func (p *Proxy) Handle(c echo.Context) error {
	req := c.Request()
	setCORS(c.Response().Header())

	if req.Method == http.MethodOptions {
		return c.NoContent(http.StatusNoContent)
	}

	path := c.QueryParam("path")
	if path == "" {
		return c.JSON(http.StatusBadRequest, proxyUsageError{
			Error: "Missing 'path' query parameter",
			Usage: "?path=/v1/pools",
		})
	}
	if !strings.HasPrefix(path, constants.APIPathPrefix) {
		return c.JSON(http.StatusBadRequest, proxyPathError{
			Error:    "Invalid path - must start with /v1/",
			Received: path,
		})
	}

	target := p.upstream + path
	log := p.logger.WithFields(logrus.Fields{"method": req.Method, "target": target})
	log.Debug("proxying request")

	status, contentType, body, err := p.forward(c, target)
	if err != nil {
		log.WithError(err).Error("proxy request failed")
		return c.JSON(http.StatusBadGateway, proxyFailure{
			Error:     "Proxy request failed",
			Message:   err.Error(),
			Timestamp: p.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	}

	log.WithField("status", status).Debug("proxy response")
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(status, contentType, body)
}

func (p *Proxy) forward(c echo.Context, target string) (int, string, []byte, error) {
	req := c.Request()

	var body io.Reader
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return 0, "", nil, err
		}
		body = bytes.NewReader(data)
	}

	out, err := http.NewRequestWithContext(req.Context(), req.Method, target, body)
	if err != nil {
		return 0, "", nil, err
	}
	out.Header.Set("Content-Type", echo.MIMEApplicationJSON)
	if authz := req.Header.Get(echo.HeaderAuthorization); authz != "" {
		out.Header.Set(echo.HeaderAuthorization, authz)
	}

	resp, err := p.http.Do(out)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, err
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), data, nil
}
