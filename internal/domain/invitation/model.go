package invitation

import (
	"strings"
	"time"

	"resitrack/backend/internal/docstore"
)

const Collection = "invitations"

const (
	CodeLength        = 6
	MinPasswordLength = 6
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

type Invitation struct {
	ID            string     `json:"id"`
	Code          string     `json:"invitationCode"`
	Email         string     `json:"email"`
	FullName      string     `json:"fullName"`
	ContactNumber string     `json:"contactNumber,omitempty"`
	FlatNo        string     `json:"flatNo,omitempty"`
	Status        Status     `json:"status"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	RedeemedByUID string     `json:"redeemedByUid,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`

	claimToken string
}

// Doc is the document of a freshly issued invitation.
func (i Invitation) Doc() docstore.Doc {
	d := docstore.Doc{
		"invitationCode": i.Code,
		"email":          i.Email,
		"fullName":       i.FullName,
		"contactNumber":  i.ContactNumber,
		"flatNo":         i.FlatNo,
		"status":         string(i.Status),
	}
	if i.CreatedAt != nil {
		d["createdAt"] = i.CreatedAt.UTC()
	}
	return d
}

func fromSnapshot(snap docstore.Snapshot) Invitation {
	inv := Invitation{
		ID:            snap.ID,
		Code:          docstore.String(snap.Data, "invitationCode"),
		Email:         docstore.String(snap.Data, "email"),
		FullName:      docstore.String(snap.Data, "fullName"),
		ContactNumber: docstore.String(snap.Data, "contactNumber"),
		FlatNo:        docstore.String(snap.Data, "flatNo"),
		Status:        Status(docstore.String(snap.Data, "status")),
		CreatedAt:     docstore.Time(snap.Data, "createdAt"),
		RedeemedByUID: docstore.String(snap.Data, "redeemedByUid"),
		CompletedAt:   docstore.Time(snap.Data, "completedAt"),
		claimToken:    docstore.String(snap.Data, "claimToken"),
	}
	if inv.Status == "" {
		inv.Status = StatusPending
	}
	return inv
}

type IssueInput struct {
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	ContactNumber string `json:"contactNumber"`
	FlatNo        string `json:"flatNo"`
}

func (in *IssueInput) Trim() {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.FlatNo = strings.TrimSpace(in.FlatNo)
}

type RedeemInput struct {
	Code     string `json:"code"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
