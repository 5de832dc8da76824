//Package transport is the HTTP data-access boundary: thin verbs over the
//REST backend, all resolving to the same response envelope.
package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/courtna/HuddleCore/lib/hd"
)

//TokenSource supplies the current session token. It is read at request time,
//never cached, so a concurrent token refresh is always picked up.
type TokenSource interface {
	Token() string
}

//Client performs requests against the backend and decodes the envelope.
type Client struct {
	base   string
	client *http.Client
	tokens TokenSource
}

//New constructs a Client against baseURL with the given request timeout.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		base:   baseURL,
		client: &http.Client{Timeout: timeout},
		tokens: tokens,
	}
}

//Get issues a GET against path (relative to the base URL).
func (c *Client) Get(path string) (resp hd.Response, err error) {
	return c.do("GET", path, nil)
}

//Post issues a POST with a JSON-encoded body.
func (c *Client) Post(path string, body interface{}) (resp hd.Response, err error) {
	return c.do("POST", path, body)
}

//Put issues a PUT with a JSON-encoded body.
func (c *Client) Put(path string, body interface{}) (resp hd.Response, err error) {
	return c.do("PUT", path, body)
}

//Patch issues a PATCH with a JSON-encoded body.
func (c *Client) Patch(path string, body interface{}) (resp hd.Response, err error) {
	return c.do("PATCH", path, body)
}

//Delete issues a DELETE, with an optional JSON-encoded body.
func (c *Client) Delete(path string, body interface{}) (resp hd.Response, err error) {
	return c.do("DELETE", path, body)
}

func (c *Client) do(method, path string, body interface{}) (resp hd.Response, err error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return resp, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, c.base+strings.TrimPrefix(path, "/"), reader)
	if err != nil {
		return
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	raw, err := c.client.Do(req)
	if err != nil {
		return
	}
	defer raw.Body.Close()
	//A body that isn't the envelope still resolves to a Response carrying
	//the HTTP status, so a bare 500 is a failure like any other.
	if err := json.NewDecoder(raw.Body).Decode(&resp); err != nil {
		resp = hd.Response{}
	}
	if resp.Status == 0 {
		resp.Status = raw.StatusCode
	}
	if raw.StatusCode != 200 && resp.Status == 200 {
		resp.Status = raw.StatusCode
	}
	return resp, nil
}
