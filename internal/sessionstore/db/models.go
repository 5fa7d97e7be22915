package db

type Session struct {
	ID           string
	Username     string
	AuthorizedID string
	Cookie       []byte
	CreatedAt    int64
	LastUsed     int64
}
