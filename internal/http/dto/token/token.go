// Package token contiene los DTOs de emisión de tokens y del endpoint protegido.
package token

// IssueTokenRequest es el body de POST /issue-token. Ambos campos van en base64
// y son obligatorios: punteros para distinguir "ausente" de "vacío".
type IssueTokenRequest struct {
	AppNameB64   *string `json:"app_name_b64"`
	AppSecretB64 *string `json:"app_secret_b64"`
}

// MissingFields devuelve los campos ausentes (o null), en orden de declaración.
func (r IssueTokenRequest) MissingFields() []string {
	var missing []string
	if r.AppNameB64 == nil {
		missing = append(missing, "app_name_b64")
	}
	if r.AppSecretB64 == nil {
		missing = append(missing, "app_secret_b64")
	}
	return missing
}

// IssueTokenResponse es la respuesta exitosa de POST /issue-token.
type IssueTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SecureDataResponse es la respuesta de GET /secure-data.
type SecureDataResponse struct {
	Message      string         `json:"message"`
	TokenPayload map[string]any `json:"token_payload"`
	AppName      string         `json:"app_name"`
	IssuedAt     string         `json:"issued_at"`
	ExpiresAt    string         `json:"expires_at"`
}
