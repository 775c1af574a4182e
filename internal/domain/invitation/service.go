package invitation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/domain/account"
	"resitrack/backend/internal/identity"
	"resitrack/backend/internal/logging"
	"resitrack/backend/internal/notify"
	"resitrack/backend/internal/txn"
	"resitrack/backend/internal/utils"
)

const maxCodeAttempts = 5

type Service struct {
	repo     *Repo
	runner   *txn.Runner
	identity identity.Provider
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
	newCode  func() string
}

func NewService(repo *Repo, runner *txn.Runner, provider identity.Provider, notifier notify.Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		runner:   runner,
		identity: provider,
		notifier: notifier,
		logger:   logging.OrNop(logger),
		now:      time.Now,
		newCode:  randomCode,
	}
}

func randomCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:CodeLength]
}

// Issue stores a Pending invitation under a code no other Pending invitation
// uses and mails the code to the invitee.
func (s *Service) Issue(ctx context.Context, sess authctx.Session, in IssueInput) (*Invitation, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return nil, ErrAdminOnly
	}
	in.Trim()
	email := utils.NormalizeEmail(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidInput, in.Email)
	}
	name := utils.NormalizeSpaces(in.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}

	created := s.now().UTC()
	inv := Invitation{
		ID:            uuid.NewString(),
		Email:         email,
		FullName:      utils.TrimMax(name, 120),
		ContactNumber: utils.TrimMax(in.ContactNumber, 32),
		FlatNo:        utils.TrimMax(in.FlatNo, 32),
		Status:        StatusPending,
		CreatedAt:     &created,
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		inv.Code = s.newCode()
		err := s.runner.Run(ctx, "invitation.issue", func(ctx context.Context, tx docstore.Tx, after *txn.AfterCommit) error {
			taken, err := tx.Query(pendingWithCode(inv.Code).Limit(1))
			if err != nil {
				return err
			}
			if len(taken) > 0 {
				return errCodeInUse
			}
			if err := tx.Set(Collection, inv.ID, inv.Doc()); err != nil {
				return err
			}
			issued := inv
			after.Add("notify", func(ctx context.Context) error {
				return s.notifyIssued(ctx, issued)
			})
			return nil
		})
		if errors.Is(err, errCodeInUse) {
			s.logger.Debug("invitation code collision", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("invitation issued",
			zap.String("invitation_id", inv.ID),
			zap.String("flat_no", inv.FlatNo),
		)
		return &inv, nil
	}
	return nil, ErrCodeExhausted
}

// Redeem turns a Pending invitation into a resident account. The invitation
// is claimed in a guarded transaction before the identity provider is called,
// so of two concurrent redemptions only one ever creates an external account.
// A failed account creation or link puts the claim back.
func (s *Service) Redeem(ctx context.Context, in RedeemInput) (*account.Account, error) {
	code := utils.NormalizeCode(in.Code)
	email := utils.NormalizeEmail(in.Email)
	if code == "" || email == "" {
		return nil, fmt.Errorf("%w: code and email are required", ErrInvalidInput)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	claimToken := uuid.NewString()
	inv, err := s.claim(ctx, code, email, claimToken)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("invitation_id", inv.ID))

	uid, err := s.identity.CreateAccount(ctx, email, in.Password)
	if err != nil {
		log.Warn("account creation failed, releasing invitation", zap.Error(err))
		s.release(ctx, inv.ID, claimToken)
		return nil, err
	}

	created := s.now().UTC()
	acct := account.Account{
		UID:           uid,
		Role:          authctx.RoleResident,
		FullName:      inv.FullName,
		ContactNumber: inv.ContactNumber,
		Email:         inv.Email,
		FlatNo:        inv.FlatNo,
		CreatedAt:     &created,
	}
	if err := s.finalise(ctx, inv.ID, claimToken, acct); err != nil {
		log.Error("linking account failed, rolling back", zap.String("uid", uid), zap.Error(err))
		if derr := s.identity.DeleteAccount(context.WithoutCancel(ctx), uid); derr != nil {
			log.Error("orphaned identity account", zap.String("uid", uid), zap.Error(derr))
		}
		s.release(ctx, inv.ID, claimToken)
		return nil, err
	}

	log.Info("invitation redeemed", zap.String("uid", uid))
	return &acct, nil
}

// Invitations lists invitations for the admin console.
func (s *Service) Invitations(ctx context.Context, sess authctx.Session, status Status) ([]Invitation, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.repo.List(ctx, status)
}

func (s *Service) Invitation(ctx context.Context, sess authctx.Session, id string) (*Invitation, error) {
	if !sess.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

func pendingWithCode(code string) docstore.Query {
	return docstore.From(Collection).
		Where("invitationCode", code).
		Where("status", string(StatusPending))
}

func (s *Service) claim(ctx context.Context, code, email, token string) (Invitation, error) {
	var inv Invitation
	err := s.runner.Run(ctx, "invitation.claim", func(ctx context.Context, tx docstore.Tx, _ *txn.AfterCommit) error {
		matches, err := tx.Query(pendingWithCode(code).Where("email", email).Limit(1))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return ErrInvitationUnavailable
		}
		inv = fromSnapshot(matches[0])
		return tx.Update(Collection, inv.ID,
			docstore.Field(string(StatusCompleted), "status"),
			docstore.Field(token, "claimToken"),
			docstore.Field(s.now().UTC(), "claimedAt"),
		)
	})
	if err != nil {
		return Invitation{}, err
	}
	inv.Status = StatusCompleted
	inv.claimToken = token
	return inv, nil
}

func (s *Service) finalise(ctx context.Context, id, token string, acct account.Account) error {
	return s.runner.Run(ctx, "invitation.finalise", func(ctx context.Context, tx docstore.Tx, after *txn.AfterCommit) error {
		snap, err := tx.Get(Collection, id)
		if err != nil {
			return err
		}
		if !snap.Exists {
			return fmt.Errorf("%w: %s deleted", ErrClaimLost, id)
		}
		if current := fromSnapshot(snap); current.claimToken != token || current.RedeemedByUID != "" {
			return fmt.Errorf("%w: %s", ErrClaimLost, id)
		}
		if err := tx.Set(account.Collection, acct.UID, acct.Doc()); err != nil {
			return err
		}
		if err := tx.Update(Collection, id,
			docstore.Field(acct.UID, "redeemedByUid"),
			docstore.Field(*acct.CreatedAt, "completedAt"),
		); err != nil {
			return err
		}
		after.Add("notify", func(ctx context.Context) error {
			return s.notifyActivated(ctx, acct)
		})
		return nil
	})
}

// release reopens a claim that never got an account linked. It runs past the
// caller's cancellation so a dropped request does not strand the invitation.
func (s *Service) release(ctx context.Context, id, token string) {
	ctx = context.WithoutCancel(ctx)
	err := s.runner.Run(ctx, "invitation.release", func(ctx context.Context, tx docstore.Tx, _ *txn.AfterCommit) error {
		snap, err := tx.Get(Collection, id)
		if err != nil {
			return err
		}
		if !snap.Exists {
			return nil
		}
		if current := fromSnapshot(snap); current.claimToken != token || current.RedeemedByUID != "" {
			return nil
		}
		return tx.Update(Collection, id,
			docstore.Field(string(StatusPending), "status"),
			docstore.Field(nil, "claimToken"),
			docstore.Field(nil, "claimedAt"),
		)
	})
	if err != nil {
		// TODO: add a sweep that reopens invitations still holding a
		// claimToken without redeemedByUid after a grace period.
		s.logger.Error("invitation release failed", zap.String("invitation_id", id), zap.Error(err))
	}
}

func (s *Service) notifyIssued(ctx context.Context, inv Invitation) error {
	if s.notifier == nil {
		return nil
	}
	msg := notify.ComposeInvitationEmail(inv.FullName, inv.Email, inv.Code)
	return s.notifier.Notify(ctx, notify.Event{
		Kind:  notify.KindInvitationIssued,
		Email: msg.To,
		Title: msg.Subject,
		Body:  msg.Body,
		Data: map[string]string{
			"invitationId": inv.ID,
			"flatNo":       inv.FlatNo,
		},
		OccurredAt: s.now().UTC(),
	})
}

func (s *Service) notifyActivated(ctx context.Context, acct account.Account) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, notify.Event{
		Kind:   notify.KindAccountActivated,
		UserID: acct.UID,
		Email:  acct.Email,
		Title:  "Welcome to ResiTrack",
		Body:   fmt.Sprintf("Your account for flat %s is ready", acct.FlatNo),
		Data: map[string]string{
			"flatNo": acct.FlatNo,
		},
		OccurredAt: s.now().UTC(),
	})
}
