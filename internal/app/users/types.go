package users

type RegisterInput struct {
	Name  string
	Email string
}
