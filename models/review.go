package models

import "time"

type Review struct {
	ID        int       `json:"id"`
	UserID    *int      `json:"usuario_id,omitempty"`
	Name      string    `json:"nombre,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comentario"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User *User `json:"usuario,omitempty"`
}
