package model

type Vehicle struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Brand  string        `json:"brand"`
	Model  string        `json:"model"`
	Price  int64         `json:"price"`
	Status ListingStatus `json:"status"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func (u *User) Buyer() Buyer {
	if u == nil {
		return Buyer{}
	}
	return Buyer{Name: u.Name, Email: u.Email, Phone: u.Phone}
}
