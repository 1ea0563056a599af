package model

type Session struct {
	Token string
	User  User
}
