package models

// Identity is the authenticated caller. It is passed explicitly to every operation that acts on behalf of a user.
type Identity struct {
	ID            string `json:"id" mapstructure:"id"`
	Email         string `json:"email" mapstructure:"email"`
	DisplayName   string `json:"displayName" mapstructure:"displayName"`
	EmailVerified bool   `json:"emailVerified" mapstructure:"emailVerified"`
	Disabled      bool   `json:"disabled,omitempty" mapstructure:"disabled"`
}

// Name is the name shown to other participants, falling back to the e-mail address.
func (i *Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// AsMember returns the identity in the form stored on meeting documents.
func (i *Identity) AsMember() Member {
	return Member{ID: i.ID, Email: i.Email, Name: i.Name()}
}

// CreateUserRequest is the parameter struct for the SignUp function.
type CreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// CreateSessionRequest carries the ID token the client obtained from Firebase Auth.
type CreateSessionRequest struct {
	Token string `json:"token"`
}

// PasswordResetRequest is the parameter struct for the RequestPasswordReset function.
type PasswordResetRequest struct {
	Email string `json:"email"`
}
