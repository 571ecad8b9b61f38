package entity

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
	StatusBusy    = "busy"
)

// ValidStatuses lists every presence status a user may set.
var ValidStatuses = []string{StatusOnline, StatusOffline, StatusAway, StatusBusy}

func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type User struct {
	Id          string    `bson:"_id" json:"id"`
	Username    string    `bson:"username" json:"username"`
	Fullname    string    `bson:"fullname" json:"fullname"`
	Email       string    `bson:"email" json:"email"`
	Password    string    `bson:"password" json:"-"` // Don't expose password in JSON
	ProfilePic  string    `bson:"profilePic" json:"profilePic"`
	Role        string    `bson:"role" json:"role"`
	AccountType string    `bson:"accountType" json:"accountType"`
	IsVerified  bool      `bson:"isVerified" json:"isVerified"`
	IsBanned    bool      `bson:"isBanned" json:"isBanned"`
	Blocked     []string  `bson:"blocked" json:"blocked"`
	Followers   []string  `bson:"followers" json:"followers"`
	Following   []string  `bson:"following" json:"following"`
	IsOnline    bool      `bson:"isOnline" json:"isOnline"`
	Status      string    `bson:"status" json:"status"`
	LastSeen    time.Time `bson:"lastSeen" json:"lastSeen"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the denormalized sender slice embedded in message and
// notification payloads.
type UserSummary struct {
	Id          string `bson:"_id" json:"_id"`
	Username    string `bson:"username" json:"username"`
	Fullname    string `bson:"fullname" json:"fullname"`
	ProfilePic  string `bson:"profilePic" json:"profilePic"`
	AccountType string `bson:"accountType" json:"accountType"`
	Role        string `bson:"role" json:"role"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		Id:          u.Id,
		Username:    u.Username,
		Fullname:    u.Fullname,
		ProfilePic:  u.ProfilePic,
		AccountType: u.AccountType,
		Role:        u.Role,
	}
}

type UserIndexFilter struct {
	Ids []string `bson:"ids"`
}

type UserStatusResponse struct {
	UserId   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}
