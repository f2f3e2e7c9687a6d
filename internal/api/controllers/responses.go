package controllers

import "github.com/datallboy/dltool/internal/store"

type ErrorResponse struct {
	Error string `json:"error"`
}

// RunDetail is a stored run with everything recorded about it.
type RunDetail struct {
	store.Run
	Outcomes []store.Outcome `json:"outcomes"`
	Missing  []string        `json:"missing"`
}
