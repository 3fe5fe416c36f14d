package domain

import "time"

// User is a dashboard account created from a GitHub profile on first login.
type User struct {
	ID        string    `json:"id" db:"id"`
	GitHubID  int64     `json:"github_id" db:"github_id"`
	Login     string    `json:"login" db:"login"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	AvatarURL string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
