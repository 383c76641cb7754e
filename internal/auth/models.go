package auth

import (
	"encoding/json"
	"fmt"
)

// Client is an API consumer allowed to request access tokens. Secrets are
// stored as bcrypt hashes only.
type Client struct {
	ID         string
	SecretHash []byte
}

// ParseClients decodes the configured client registry, a JSON object mapping
// client IDs to bcrypt secret hashes:
//
//	{"finance-portal": "$2a$10$..."}
//
// An empty input yields an empty registry, which rejects every credential.
func ParseClients(clientsJSON string) (map[string]Client, error) {
	clients := make(map[string]Client)
	if clientsJSON == "" {
		return clients, nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(clientsJSON), &raw); err != nil {
		return nil, fmt.Errorf("parse client registry: %w", err)
	}
	for id, hash := range raw {
		if id == "" || hash == "" {
			return nil, fmt.Errorf("parse client registry: empty client id or secret hash")
		}
		clients[id] = Client{ID: id, SecretHash: []byte(hash)}
	}
	return clients, nil
}
