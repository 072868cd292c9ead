package domain

import "time"

// Views are the user shapes sent to clients. None of them carry the password
// hash or the refresh token.

type NewUserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	LastLogin *time.Time `json:"lastLogin"`
}

type ProfileView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin"`
}

func (u User) NewUserView() NewUserView {
	return NewUserView{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func (u User) LoginView() LoginView {
	return LoginView{ID: u.ID, Email: u.Email, Name: u.Name, LastLogin: u.LastLogin}
}

func (u User) ProfileView() ProfileView {
	return ProfileView{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt, LastLogin: u.LastLogin}
}
