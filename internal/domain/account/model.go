package account

import (
	"time"

	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
)

const Collection = "users"

type Account struct {
	UID           string     `json:"uid"`
	Role          string     `json:"role"`
	FullName      string     `json:"fullName"`
	ContactNumber string     `json:"contactNumber,omitempty"`
	Email         string     `json:"email"`
	FlatNo        string     `json:"flatNo,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

func (a Account) IsAdmin() bool {
	return a.Role == authctx.RoleAdmin
}

func (a Account) IsResident() bool {
	return a.Role == authctx.RoleResident
}

// Doc is the users/{uid} document.
func (a Account) Doc() docstore.Doc {
	d := docstore.Doc{
		"role":          a.Role,
		"fullName":      a.FullName,
		"contactNumber": a.ContactNumber,
		"email":         a.Email,
		"flatNo":        a.FlatNo,
	}
	if a.CreatedAt != nil {
		d["createdAt"] = a.CreatedAt.UTC()
	}
	return d
}

func FromSnapshot(snap docstore.Snapshot) Account {
	a := Account{
		UID:           snap.ID,
		Role:          docstore.String(snap.Data, "role"),
		FullName:      docstore.String(snap.Data, "fullName"),
		ContactNumber: docstore.String(snap.Data, "contactNumber"),
		Email:         docstore.String(snap.Data, "email"),
		FlatNo:        docstore.String(snap.Data, "flatNo"),
		CreatedAt:     docstore.Time(snap.Data, "createdAt"),
	}
	if a.Role == "" {
		a.Role = authctx.RoleResident
	}
	return a
}
