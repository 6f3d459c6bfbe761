package entity

// User - an account with game statistics. Counters change only through stats finalization.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	WinCount     int    `json:"winCount"`
	LossCount    int    `json:"lossCount"`
	DrawCount    int    `json:"drawCount"`
}
