package auth

import "time"

// Profile is the public view of an account, shared by login, validate and
// the user administration endpoints.
type Profile struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Firstname string     `json:"firstname"`
	Lastname  string     `json:"lastname"`
	Role      Role       `json:"role"`
	CompanyID *int64     `json:"companyId,omitempty"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (p Profile) CompanyRef() int64 {
	if p.CompanyID == nil {
		return 0
	}
	return *p.CompanyID
}

type Credentials struct {
	Profile
	PasswordHash string
	MFAEnabled   bool
	MFASecretEnc []byte
}

type LoginResult struct {
	Token   string  `json:"token"`
	Type    string  `json:"type"`
	Profile Profile `json:"-"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}
