// Package api contains the HTTP surface of the server: the operational
// admin endpoints, health check, and the middleware and response helpers
// they share. Entity CRUD is intentionally not exposed here.
package api
