package topomapper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/api"
	"github.com/meshadmin/topomapper/api/visjs"
)

type Client struct {
	baseURL    string
	cli        *http.Client
	reqTimeout time.Duration
}

var errRetryable = errors.New("", j.C("ERR_6b1de07f3a48c952"))

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(client *Client) {
		client.baseURL = url
	}
}

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.cli = c
	}
}

func WithRequestTimeout(t time.Duration) ClientOption {
	return func(client *Client) {
		client.reqTimeout = t
	}
}

func NewClient(opts ...ClientOption) *Client {
	ret := &Client{
		cli:        http.DefaultClient,
		reqTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.cli == nil {
		panic("no http client specified")
	}
	return ret
}

// Upload submits a configuration file for extraction and returns the
// topology the server built from it. Rejected configurations come
// back as errors carrying the server's reason.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (visjs.Topology, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return visjs.Topology{}, errors.Wrap(err, "")
	}
	if _, err := io.Copy(fw, content); err != nil {
		return visjs.Topology{}, errors.Wrap(err, "")
	}
	if err := mw.Close(); err != nil {
		return visjs.Topology{}, errors.Wrap(err, "")
	}

	b, err := c.doRetry(ctx, http.MethodPost, "/topomapper/api/upload",
		buf.Bytes(), mw.FormDataContentType(),
	)
	if err != nil {
		return visjs.Topology{}, err
	}

	var topo visjs.Topology
	if err := json.Unmarshal(b, &topo); err != nil {
		return visjs.Topology{}, errors.Wrap(err, "decode topology")
	}
	return topo, nil
}

// Latest returns the most recently extracted topology record.
func (c *Client) Latest(ctx context.Context) (api.TopologyRecord, error) {
	var rec api.TopologyRecord
	b, err := c.do(ctx, http.MethodGet, "/topomapper/api/topology", nil, "")
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, errors.Wrap(err, "decode topology record")
	}
	return rec, nil
}

// Get returns a stored topology record by id.
func (c *Client) Get(ctx context.Context, id string) (api.TopologyRecord, error) {
	var rec api.TopologyRecord
	b, err := c.do(ctx, http.MethodGet, "/topomapper/api/topology/"+url.PathEscape(id), nil, "")
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, errors.Wrap(err, "decode topology record")
	}
	return rec, nil
}

// List returns recent topology records, most recent first.
func (c *Client) List(ctx context.Context) ([]api.TopologyRecord, error) {
	b, err := c.do(ctx, http.MethodGet, "/topomapper/api/topologies", nil, "")
	if err != nil {
		return nil, err
	}
	var resp api.ListTopologies
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, errors.Wrap(err, "decode topology list")
	}
	return resp.Topologies, nil
}

func wrapHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*url.Error); ok {
		if e.Timeout() || e.Temporary() {
			return errors.Wrap(errRetryable, err.Error())
		}
	}
	return err
}

func (c *Client) doRetry(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	retries := 4
	wait := time.Second
	for {
		resp, err := c.do(ctx, method, path, body, contentType)
		if err == nil {
			return resp, nil
		}
		if !errors.IsAny(err, context.DeadlineExceeded, errRetryable) || retries <= 0 {
			return nil, err
		}
		select {
		case <-time.After(wait):
			wait *= 2
			retries--
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		log.Info(ctx, "retrying request", j.MKV{"path": path})
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, wrapHTTPError(err)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode == http.StatusOK {
		return b, nil
	}
	var serverErr api.Error
	if json.Unmarshal(b, &serverErr) == nil && serverErr.Error != "" {
		return nil, errors.New(serverErr.Error, j.KV("status", resp.StatusCode))
	}
	s := strings.TrimSpace(string(b))
	return nil, errors.New("request failed", j.MKV{"status": resp.StatusCode, "response": s})
}
