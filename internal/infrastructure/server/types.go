package server

import "github.com/felixgeelhaar/critique/pkg/domain/critique"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Provider string `json:"provider"`
	Sessions int    `json:"sessions"`
}

type OpenSessionRequest struct {
	ID string `json:"id"`
}

type SessionListResponse struct {
	Sessions []string `json:"sessions"`
}

type ToneRequest struct {
	Tone string `json:"tone"`
}

type SimplifiedRequest struct {
	Simplified bool `json:"simplified"`
}

type GroupingRequest struct {
	Grouped bool `json:"grouped"`
}

type PublishResponse struct {
	Posted int `json:"posted"`
}

type ThemesResponse struct {
	Themes []critique.Theme `json:"themes"`
}
