// Package health contiene los DTOs del health check.
package health

// HealthResponse es la respuesta de GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	HasPrivateKey bool   `json:"has_private_key"`
	HasPublicKey  bool   `json:"has_public_key"`
	LoadedApps    int    `json:"loaded_apps"`
	KeyID         string `json:"key_id,omitempty"`
}
