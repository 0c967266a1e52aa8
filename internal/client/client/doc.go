// Package client contains the client side plumbing around the sync engine:
//
//   - HTTPClient, the POST /sync transport, with status codes mapped onto
//     ErrUnavailable, ErrUnauthorized and ErrServer;
//   - HealthClient, a gRPC health probe used by the online watcher;
//   - Service, which combines both into a Client;
//   - InitDatabase, which opens and migrates the local SQLite store.
package client
