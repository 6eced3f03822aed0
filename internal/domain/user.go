package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDelivery Role = "delivery"
	RoleCustomer Role = "customer"
)

// User is a directory entry; the core only reads it
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Role      Role
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Principal is the authenticated caller of an operation
type Principal struct {
	UserID string
	Role   Role
}
