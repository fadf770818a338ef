package keycloak

// Profile is the user representation returned by the Keycloak admin API.
type Profile struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Email         *string `json:"email,omitempty"`
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	Enabled       bool    `json:"enabled"`
	EmailVerified bool    `json:"emailVerified"`
}

// DisplayName builds a human-readable name from first/last name, falling
// back to the username.
func (p *Profile) DisplayName() string {
	switch {
	case p.FirstName != nil && p.LastName != nil:
		return *p.FirstName + " " + *p.LastName
	case p.FirstName != nil:
		return *p.FirstName
	case p.LastName != nil:
		return *p.LastName
	default:
		return p.Username
	}
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type createUserRequest struct {
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	FirstName   *string      `json:"firstName,omitempty"`
	LastName    *string      `json:"lastName,omitempty"`
	Enabled     bool         `json:"enabled"`
	Credentials []credential `json:"credentials,omitempty"`
}

type updateUserRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
