package entity

import "time"

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Played    int       `json:"played"`
	Won       int       `json:"won"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func (that User) Ref() PlayerRef {
	return PlayerRef{ID: that.ID, Username: that.Username}
}
