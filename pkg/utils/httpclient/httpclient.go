/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

type Interface interface {
	Get(ctx context.Context, url string, headers ...string) (*Result, error)
	Post(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error)
	Put(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error)
	Delete(ctx context.Context, url string, headers ...string) (*Result, error)
}

type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (r *Result) IsSuccess() bool {
	return r != nil && r.StatusCode/100 == 2
}

func (r *Result) String() string {
	return "http code: " + strconv.Itoa(r.StatusCode) + ", body: " + string(r.Body)
}

// Decode unmarshals the body into v.
func (r *Result) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

type client struct {
	*http.Client
}

func New() Interface {
	return &client{
		Client: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    128,
				MaxConnsPerHost: 64,
				IdleConnTimeout: time.Minute,
			},
		},
	}
}

func (c *client) Get(ctx context.Context, url string, headers ...string) (*Result, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers...)
}

func (c *client) Post(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error) {
	return c.do(ctx, http.MethodPost, url, body, headers...)
}

func (c *client) Put(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error) {
	return c.do(ctx, http.MethodPut, url, body, headers...)
}

func (c *client) Delete(ctx context.Context, url string, headers ...string) (*Result, error) {
	return c.do(ctx, http.MethodDelete, url, nil, headers...)
}

func (c *client) do(ctx context.Context, method, url string, body interface{}, headers ...string) (*Result, error) {
	reader, err := cvtIOReader(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	// Headers come in pairs; a dangling key is ignored.
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rsp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: rsp.StatusCode, Body: data, Header: rsp.Header}, nil
}

func cvtIOReader(body interface{}) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	switch b := body.(type) {
	case string:
		return strings.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
