// Package httputil provides the shared JSON envelope used by every API
// handler: {"ok":true,"data":...} on success, {"ok":false,"error":"..."}
// on failure.
package httputil
