package domain

// ClientUserType is the role marker the backend uses for buyers.
const ClientUserType = "mijoz"

type Guarantor struct {
	Name    string
	Phone   string
	Address string
}

type Client struct {
	ID        int64
	FullName  string
	Phone     string
	Email     *string
	Passport  string
	Address   string
	Guarantor *Guarantor
}

// NewClient holds the fields entered for a buyer that does not exist in the backend yet.
type NewClient struct {
	FullName  string
	Phone     string
	Email     *string
	Passport  string
	Address   string
	Guarantor *Guarantor
}

// Password returns the initial account password; the business rule is the passport string.
func (c NewClient) Password() string {
	return c.Passport
}

func (c NewClient) WithID(id int64) Client {
	return Client{
		ID:        id,
		FullName:  c.FullName,
		Phone:     c.Phone,
		Email:     c.Email,
		Passport:  c.Passport,
		Address:   c.Address,
		Guarantor: c.Guarantor,
	}
}
