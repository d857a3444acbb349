package store

import (
	"fmt"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (db *DB) CreateUser(u *User) error {
	var deptID any
	if u.DepartmentID != nil {
		deptID = *u.DepartmentID
	}
	err := db.QueryRow(db.Q(`INSERT INTO users (username, password_hash, role, department_id) VALUES (?, ?, ?, ?) RETURNING id`),
		u.Username, u.PasswordHash, u.Role, deptID).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (db *DB) GetUser(username string) (*User, error) {
	var u User
	var deptID any
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT id, username, password_hash, role, department_id, created_at FROM users WHERE username=?`), username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &deptID, &createdAt)
	if err != nil {
		return nil, err
	}
	if id, ok := deptID.(int64); ok {
		u.DepartmentID = &id
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func (db *DB) UserExists() (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count > 0, err
}
