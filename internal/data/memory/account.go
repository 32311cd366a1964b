package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"showtime-booking/internal/data/entity"

	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *entity.User) error {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.data.users[user.ID]; ok {
		return fmt.Errorf("create user %s: duplicate id", user.ID)
	}
	if user.Role == "" {
		user.Role = entity.RoleCustomer
	}
	r.s.data.users[user.ID] = *user
	return nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, session *entity.Session) error {
	defer r.s.acquire(ctx)()

	r.s.data.sessions[session.Token] = *session
	return nil
}

func (r *sessionRepo) FindSessionUser(ctx context.Context, token uuid.UUID) (*entity.User, error) {
	defer r.s.acquire(ctx)()

	sess, ok := r.s.data.sessions[token]
	if !ok || sess.RevokedAt != nil || !sess.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	u, ok := r.s.data.users[sess.UserID]
	if !ok || u.IsDeleted() || !u.IsActive {
		return nil, nil
	}
	return &u, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) GetOrCreate(ctx context.Context, n *entity.Notification) (bool, error) {
	defer r.s.acquire(ctx)()

	for _, existing := range r.s.data.notifications {
		if existing.UserID == n.UserID && existing.Message == n.Message {
			return false, nil
		}
	}
	r.s.data.notifications[n.ID] = *n
	return true, nil
}

func (r *notificationRepo) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	defer r.s.acquire(ctx)()

	var out []*entity.Notification
	for _, n := range r.s.data.notifications {
		if n.UserID == userID {
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *notificationRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	defer r.s.acquire(ctx)()

	var total, unread int64
	for _, n := range r.s.data.notifications {
		if n.UserID != userID {
			continue
		}
		total++
		if !n.IsRead {
			unread++
		}
	}
	return total, unread, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	defer r.s.acquire(ctx)()

	n, ok := r.s.data.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	r.s.data.notifications[id] = n
	return true, nil
}
