// Package handlers implements the HTTP API for relist rules, manual relist
// runs, attempt history, eBay quota and health probes. Handlers are
// registered against a huma API mounted on Echo; request and response
// schemas are derived from the operation input/output structs.
package handlers

// StatusResponse is a generic acknowledgement body for operations that
// change state without returning a resource.
type StatusResponse struct {
	Status string `json:"status" example:"updated"`
}
