// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package alarmack implements C9: forwarding an alarm acknowledgement to
// the producer process that raised it.
package alarmack

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"opserver/internal/apierr"
)

// AckRequest is the body of POST /analytics/alarms/acknowledge.
type AckRequest struct {
	Table string `json:"table"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Token string `json:"token"`
}

// token is the JSON object base64-encoded into AckRequest.Token.
type token struct {
	HostIP    string `json:"host_ip"`
	HTTPPort  int    `json:"http_port"`
	Timestamp int64  `json:"timestamp"`
}

// introspectResponse is what the producer's introspection endpoint replies.
type introspectResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Forwarder is C9.
type Forwarder struct {
	httpClient *http.Client
}

// NewForwarder builds a forwarder with the given request timeout.
func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Forwarder{httpClient: &http.Client{Timeout: timeout}}
}

// decodeToken parses and validates req.Token, rejecting it if any of
// host_ip/http_port/timestamp is missing (spec.md §4.9).
func decodeToken(raw string) (token, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return token{}, apierr.Wrap(apierr.KindInvalidInput, err, "malformed ack token")
	}
	var t token
	if err := json.Unmarshal(data, &t); err != nil {
		return token{}, apierr.Wrap(apierr.KindInvalidInput, err, "malformed ack token payload")
	}
	if t.HostIP == "" || t.HTTPPort == 0 || t.Timestamp == 0 {
		return token{}, apierr.New(apierr.KindInvalidInput, "ack token missing host_ip/http_port/timestamp")
	}
	return t, nil
}

// Forward decodes req.Token and POSTs an introspection request to the
// originating producer. A "false" status is reported as KindEngineFailure
// with no recognized errno, which apierr.HTTPStatus maps to 500 — exactly
// the mapping spec.md §4.9 calls for.
func (f *Forwarder) Forward(ctx context.Context, req AckRequest) error {
	tok, err := decodeToken(req.Token)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{
		"table":     req.Table,
		"name":      req.Name,
		"type":      req.Type,
		"timestamp": tok.Timestamp,
	})
	if err != nil {
		return apierr.Wrap(apierr.KindInvalidInput, err, "encoding ack introspection body")
	}

	url := fmt.Sprintf("http://%s:%d/Snh_AlarmAckRequest", tok.HostIP, tok.HTTPPort)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apierr.Wrap(apierr.KindInvalidInput, err, "building ack introspection request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return apierr.Wrap(apierr.KindNetworkUnavailable, err, "ack introspection request to "+tok.HostIP)
	}
	defer resp.Body.Close()

	var ir introspectResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return apierr.Wrap(apierr.KindNetworkUnavailable, err, "decoding ack introspection response")
	}
	if ir.Status == "false" {
		return apierr.New(apierr.KindEngineFailure, ir.Error)
	}
	return nil
}
