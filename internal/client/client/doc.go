// Package client is the remote side of the photorestore client: the profile
// gateway the session core depends on and its gRPC implementation.
//
// GRPCClient injects the access token into every call, refreshes it once when
// the server reports it expired, validates every response before handing it
// to the core, and maps gRPC status codes onto the common error taxonomy.
// Tokens are kept in a TokenStore so a session survives restarts.
package client
