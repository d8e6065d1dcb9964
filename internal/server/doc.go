// Package server exposes the orchestrator over HTTP with gin.
//
// # Routes
//
//	GET    /health                   orchestrator summary
//	GET    /components               registered component names
//	POST   /components/:name         deploy one component
//	DELETE /components/:name         remove one component
//	GET    /components/:name/status  component status
//	GET    /stacks                   live stack deployments
//	GET    /stacks/:name             aggregated status of a stack (name or id)
//	POST   /stacks/:name             deploy a stack (body or stored definition)
//	DELETE /stacks/:name             remove a stack (name or id)
//	GET    /cache/images             cached images
//	POST   /cache/images             cache images locally
//	PUT    /cache/images             load cached images into the cluster
//
// Every response is a JSON object with "success" and "timestamp". Failures
// answer 500, unknown stacks, components and routes answer 404, and
// malformed bodies answer 400.
//
// Requests are logged through pkg/logging's zap logger and CORS is handled
// by gin-contrib/cors.
package server
