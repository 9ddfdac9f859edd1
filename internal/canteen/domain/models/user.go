package models

type Role string

const (
	RoleStudent Role = "student"
	RoleWorker  Role = "worker"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         Role   `json:"role"`
	CanteenID    *int64 `json:"canteen_id"`
}
