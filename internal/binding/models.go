// Package binding persists the user → remote endpoint associations.
// The store is authoritative: the gateway never caches a binding across
// requests, so it stays horizontally scalable without coordination.
package binding

import "time"

// Binding associates an openid with the remote task endpoint the user
// registered. Token is advisory: it is stored but never sent to the
// endpoint, which is assumed reachable only on a private network.
type Binding struct {
	UserID      string    `json:"user_id"`
	EndpointURL string    `json:"endpoint_url"`
	Token       string    `json:"token"`
	CreatedAt   time.Time `json:"created_at"`
}
