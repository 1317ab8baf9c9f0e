package repository

import (
	"context"
	"fmt"
	"time"

	"gymnotifier/internal/entity"
	"gymnotifier/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const _usersTable = "users"

type UserRepository struct {
	db *postgres.Postgres
}

func NewUserRepository(db *postgres.Postgres) *UserRepository {
	return &UserRepository{db: db}
}

// segmentPredicate maps a segment name to its WHERE clause. Trial and
// vip are coarse heuristics over membership and trainer assignment, not
// billing truth.
func segmentPredicate(segment entity.Segment, now time.Time) (squirrel.Sqlizer, error) {
	switch segment {
	case entity.SegmentAll:
		return nil, nil
	case entity.SegmentNew:
		return squirrel.GtOrEq{"created_at": now.Add(-entity.NewMemberWindow)}, nil
	case entity.SegmentInactive:
		return squirrel.Eq{"status": entity.UserInactive}, nil
	case entity.SegmentTrial:
		return squirrel.Eq{"membership": entity.MembershipTrial}, nil
	case entity.SegmentVIP:
		return squirrel.NotEq{"trainer_id": nil}, nil
	default:
		return nil, fmt.Errorf("%q: %w", segment, entity.ErrInvalidSegment)
	}
}

// SegmentIDs evaluates a segment predicate against the current member
// population. Membership is never cached.
func (r *UserRepository) SegmentIDs(ctx context.Context, segment entity.Segment, now time.Time) ([]uuid.UUID, error) {
	const op = "repository.user.SegmentIDs"

	pred, err := segmentPredicate(segment, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	b := r.db.Select("id").From(_usersTable)
	if pred != nil {
		b = b.Where(pred)
	}

	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: select query: %w", op, err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return ids, nil
}

// SegmentCounts returns the live size of every known segment in one pass.
func (r *UserRepository) SegmentCounts(ctx context.Context, now time.Time) (map[entity.Segment]int64, error) {
	const op = "repository.user.SegmentCounts"

	sql, args, err := r.db.Select(
		"count(*)",
		"count(*) FILTER (WHERE created_at >= ?)",
		"count(*) FILTER (WHERE status = ?)",
		"count(*) FILTER (WHERE membership = ?)",
		"count(*) FILTER (WHERE trainer_id IS NOT NULL)",
	).
		From(_usersTable).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: count query: %w", op, err)
	}
	args = append(args, now.Add(-entity.NewMemberWindow), entity.UserInactive, entity.MembershipTrial)

	counts := make(map[entity.Segment]int64, 5)
	var all, fresh, inactive, trial, vip int64
	if err = r.db.QueryRow(ctx, sql, args...).Scan(&all, &fresh, &inactive, &trial, &vip); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	counts[entity.SegmentAll] = all
	counts[entity.SegmentNew] = fresh
	counts[entity.SegmentInactive] = inactive
	counts[entity.SegmentTrial] = trial
	counts[entity.SegmentVIP] = vip

	return counts, nil
}

// UsersByIDs loads contact endpoints for a recipient set in one query.
func (r *UserRepository) UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.User, error) {
	const op = "repository.user.UsersByIDs"

	if len(ids) == 0 {
		return map[uuid.UUID]entity.User{}, nil
	}

	sql, args, err := r.db.Select("id", "name", "email", "phone", "telegram_chat_id", "status", "membership", "trainer_id", "created_at").
		From(_usersTable).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: select query: %w", op, err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make(map[uuid.UUID]entity.User, len(ids))
	for rows.Next() {
		var u entity.User
		var chatID pgtype.Int8
		var trainerID pgtype.UUID
		if err = rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &chatID, &u.Status, &u.Membership, &trainerID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		if chatID.Valid {
			u.TelegramChatID = chatID.Int64
		}
		if trainerID.Valid {
			id := uuid.UUID(trainerID.Bytes)
			u.TrainerID = &id
		}
		users[u.ID] = u
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return users, nil
}
