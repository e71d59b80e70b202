// Package handlers contains the HTTP handlers of the publisher API.
//
// This package provides handlers for:
//   - The publish function (POST, with CORS preflight)
//   - Reading the published document of a target
//   - Publish history
//   - Health
//
// Errors are classified with the foundation/errors package and written through its
// HTTPErrorAdapter; success bodies come from the server/responses package.
package handlers
