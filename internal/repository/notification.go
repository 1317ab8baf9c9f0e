package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymnotifier/internal/entity"
	"gymnotifier/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	_notificationsTable = "notifications"

	notificationColumns = "id, user_id, title, message, type, priority, channels, segment, " +
		"link, template, campaign, read, scheduled_at, sent_at, read_at, opened_at, " +
		"clicked_at, unsubscribed_at, transport_error, created_at"
)

// claimDueSQL promotes due scheduled records to Sent in one atomic
// statement, so concurrent sweeps can never double-send a record.
const claimDueSQL = `UPDATE notifications
SET sent_at = $1
WHERE id IN (
	SELECT id FROM notifications
	WHERE sent_at IS NULL
	  AND scheduled_at IS NOT NULL
	  AND scheduled_at <= $1
	ORDER BY scheduled_at ASC
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + notificationColumns

type NotificationRepository struct {
	db *postgres.Postgres
}

func NewNotificationRepository(db *postgres.Postgres) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(scanner rowScanner) (*entity.Notification, error) {
	var n entity.Notification
	var channels []string
	var segment, link, template, campaign, transportErr pgtype.Text
	var scheduledAt, sentAt, readAt, openedAt, clickedAt, unsubscribedAt pgtype.Timestamptz

	err := scanner.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.Priority,
		&channels,
		&segment,
		&link,
		&template,
		&campaign,
		&n.Read,
		&scheduledAt,
		&sentAt,
		&readAt,
		&openedAt,
		&clickedAt,
		&unsubscribedAt,
		&transportErr,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Channels = make([]entity.Channel, 0, len(channels))
	for _, c := range channels {
		n.Channels = append(n.Channels, entity.Channel(c))
	}
	n.Segment = entity.Segment(segment.String)
	n.Link = link.String
	n.Template = template.String
	n.Campaign = campaign.String
	n.TransportError = transportErr.String
	n.ScheduledAt = timePtr(scheduledAt)
	n.SentAt = timePtr(sentAt)
	n.ReadAt = timePtr(readAt)
	n.OpenedAt = timePtr(openedAt)
	n.ClickedAt = timePtr(clickedAt)
	n.UnsubscribedAt = timePtr(unsubscribedAt)

	return &n, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func channelStrings(channels []entity.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, string(c))
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *NotificationRepository) insertValues(b squirrel.InsertBuilder, n entity.Notification) squirrel.InsertBuilder {
	return b.Values(
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.Priority,
		channelStrings(n.Channels),
		nullable(string(n.Segment)),
		nullable(n.Link),
		nullable(n.Template),
		nullable(n.Campaign),
		n.Read,
		n.ScheduledAt,
		n.SentAt,
		n.CreatedAt,
	)
}

func (r *NotificationRepository) insertBuilder() squirrel.InsertBuilder {
	return r.db.Insert(_notificationsTable).
		Columns("id", "user_id", "title", "message", "type", "priority", "channels",
			"segment", "link", "template", "campaign", "read", "scheduled_at", "sent_at", "created_at")
}

func (r *NotificationRepository) Create(ctx context.Context, n entity.Notification) error {
	const op = "repository.notification.Create"

	sql, args, err := r.insertValues(r.insertBuilder(), n).ToSql()
	if err != nil {
		return fmt.Errorf("%s: insert query: %w", op, err)
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%s: %w", op, entity.ErrConflictingData)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CreateBatch inserts one fan-out slice in a single statement.
func (r *NotificationRepository) CreateBatch(ctx context.Context, batch []entity.Notification) error {
	const op = "repository.notification.CreateBatch"

	if len(batch) == 0 {
		return nil
	}

	b := r.insertBuilder()
	for _, n := range batch {
		b = r.insertValues(b, n)
	}

	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%s: insert query: %w", op, err)
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%s: %w", op, entity.ErrConflictingData)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	const op = "repository.notification.GetByID"

	sql, args, err := r.db.Select(notificationColumns).
		From(_notificationsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: select query: %w", op, err)
	}

	n, err := scanNotification(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (r *NotificationRepository) ListByRecipient(
	ctx context.Context,
	userID uuid.UUID,
	page, limit uint64,
) ([]entity.Notification, int64, error) {
	const op = "repository.notification.ListByRecipient"

	if page == 0 {
		page = 1
	}

	sql, args, err := r.db.Select(notificationColumns).
		From(_notificationsTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: select query: %w", op, err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var notifications []entity.Notification
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}
		notifications = append(notifications, *n)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: rows error: %w", op, err)
	}

	countSQL, countArgs, err := r.db.Select("count(*)").
		From(_notificationsTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: count query: %w", op, err)
	}

	var total int64
	if err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	return notifications, total, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "repository.notification.UnreadCount"

	sql, args, err := r.db.Select("count(*)").
		From(_notificationsTable).
		Where(squirrel.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: count query: %w", op, err)
	}

	var count int64
	if err = r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// MarkRead flips the read flag and stamps read_at/opened_at once.
// COALESCE keeps repeated calls from moving either timestamp. The owner
// id comes back so callers can invalidate the unread counter.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, now time.Time) (uuid.UUID, error) {
	const op = "repository.notification.MarkRead"

	sql, args, err := r.db.Update(_notificationsTable).
		Set("read", true).
		Set("read_at", squirrel.Expr("COALESCE(read_at, ?)", now)).
		Set("opened_at", squirrel.Expr("COALESCE(opened_at, ?)", now)).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: update query: %w", op, err)
	}

	var userID uuid.UUID
	if err = r.db.QueryRow(ctx, sql, args...).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	const op = "repository.notification.MarkAllRead"

	sql, args, err := r.db.Update(_notificationsTable).
		Set("read", true).
		Set("read_at", squirrel.Expr("COALESCE(read_at, ?)", now)).
		Set("opened_at", squirrel.Expr("COALESCE(opened_at, ?)", now)).
		Where(squirrel.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: update query: %w", op, err)
	}

	res, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.RowsAffected(), nil
}

// MarkClicked stamps clicked_at and guarantees opened_at, since a click
// implies the message was opened.
func (r *NotificationRepository) MarkClicked(ctx context.Context, id uuid.UUID, now time.Time) error {
	const op = "repository.notification.MarkClicked"

	sql, args, err := r.db.Update(_notificationsTable).
		Set("clicked_at", squirrel.Expr("COALESCE(clicked_at, ?)", now)).
		Set("opened_at", squirrel.Expr("COALESCE(opened_at, ?)", now)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: update query: %w", op, err)
	}

	res, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
	}

	return nil
}

func (r *NotificationRepository) MarkUnsubscribed(ctx context.Context, id uuid.UUID, now time.Time) error {
	const op = "repository.notification.MarkUnsubscribed"

	sql, args, err := r.db.Update(_notificationsTable).
		Set("unsubscribed_at", squirrel.Expr("COALESCE(unsubscribed_at, ?)", now)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: update query: %w", op, err)
	}

	res, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
	}

	return nil
}

func (r *NotificationRepository) SetTransportError(ctx context.Context, id uuid.UUID, message string) error {
	const op = "repository.notification.SetTransportError"

	sql, args, err := r.db.Update(_notificationsTable).
		Set("transport_error", message).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: update query: %w", op, err)
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Delete hard-removes a record. There is no tombstone.
func (r *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const op = "repository.notification.Delete"

	sql, args, err := r.db.Delete(_notificationsTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: delete query: %w", op, err)
	}

	var userID uuid.UUID
	if err = r.db.QueryRow(ctx, sql, args...).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

// ClaimDue atomically marks due scheduled records as sent and returns
// the claimed rows for transport hand-off.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]entity.Notification, error) {
	const op = "repository.notification.ClaimDue"

	rows, err := r.db.Query(ctx, claimDueSQL, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var claimed []entity.Notification
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}
		claimed = append(claimed, *n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return claimed, nil
}

func (r *NotificationRepository) RecipientStats(ctx context.Context, userID uuid.UUID) (*entity.RecipientStats, error) {
	const op = "repository.notification.RecipientStats"

	sql, args, err := r.db.Select(
		"count(*)",
		"count(*) FILTER (WHERE NOT read)",
		"count(*) FILTER (WHERE read)",
		"count(*) FILTER (WHERE opened_at IS NOT NULL)",
		"count(*) FILTER (WHERE clicked_at IS NOT NULL)",
		"count(*) FILTER (WHERE unsubscribed_at IS NOT NULL)",
	).
		From(_notificationsTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: count query: %w", op, err)
	}

	stats := entity.RecipientStats{
		ByType:    make(map[entity.Type]int64),
		ByChannel: make(map[entity.Channel]int64),
	}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&stats.Total,
		&stats.Unread,
		&stats.Read,
		&stats.Opened,
		&stats.Clicked,
		&stats.Unsubscribed,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = r.typeBreakdown(ctx, userID, stats.ByType); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = r.channelBreakdown(ctx, userID, stats.ByChannel); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

func (r *NotificationRepository) typeBreakdown(ctx context.Context, userID uuid.UUID, dst map[entity.Type]int64) error {
	sql, args, err := r.db.Select("type", "count(*)").
		From(_notificationsTable).
		Where(squirrel.Eq{"user_id": userID}).
		GroupBy("type").
		ToSql()
	if err != nil {
		return fmt.Errorf("type query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("type breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t entity.Type
		var count int64
		if err = rows.Scan(&t, &count); err != nil {
			return fmt.Errorf("type breakdown scan: %w", err)
		}
		dst[t] = count
	}
	return rows.Err()
}

// channelBreakdown unnests the channel set, so one record counts toward
// every channel it was attempted on.
func (r *NotificationRepository) channelBreakdown(ctx context.Context, userID uuid.UUID, dst map[entity.Channel]int64) error {
	sql, args, err := r.db.Select("c", "count(*)").
		From(_notificationsTable + " CROSS JOIN unnest(channels) AS c").
		Where(squirrel.Eq{"user_id": userID}).
		GroupBy("c").
		ToSql()
	if err != nil {
		return fmt.Errorf("channel query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("channel breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c entity.Channel
		var count int64
		if err = rows.Scan(&c, &count); err != nil {
			return fmt.Errorf("channel breakdown scan: %w", err)
		}
		dst[c] = count
	}
	return rows.Err()
}

// DeliveryCounts aggregates sent/opened/clicked/unsubscribed for one
// campaign, or globally when campaign is empty.
func (r *NotificationRepository) DeliveryCounts(ctx context.Context, campaign string) (*entity.DeliveryCounts, error) {
	const op = "repository.notification.DeliveryCounts"

	b := r.db.Select(
		"count(*) FILTER (WHERE sent_at IS NOT NULL)",
		"count(*) FILTER (WHERE opened_at IS NOT NULL)",
		"count(*) FILTER (WHERE clicked_at IS NOT NULL)",
		"count(*) FILTER (WHERE unsubscribed_at IS NOT NULL)",
	).From(_notificationsTable)

	if campaign != "" {
		b = b.Where(squirrel.Eq{"campaign": campaign})
	}

	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: count query: %w", op, err)
	}

	var counts entity.DeliveryCounts
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&counts.Sent,
		&counts.Opened,
		&counts.Clicked,
		&counts.Unsubscribed,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &counts, nil
}

func (r *NotificationRepository) RecentActivity(ctx context.Context, limit uint64) ([]entity.ActivitySource, error) {
	const op = "repository.notification.RecentActivity"

	sql, args, err := r.db.Select(
		"n.id", "u.name", "n.title", "n.read",
		"n.sent_at", "n.read_at", "n.opened_at", "n.clicked_at", "n.unsubscribed_at",
		"n.created_at",
	).
		From(_notificationsTable + " n").
		Join("users u ON u.id = n.user_id").
		OrderBy("n.created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: select query: %w", op, err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var sources []entity.ActivitySource
	for rows.Next() {
		var src entity.ActivitySource
		var sentAt, readAt, openedAt, clickedAt, unsubscribedAt pgtype.Timestamptz
		err = rows.Scan(
			&src.ID,
			&src.UserName,
			&src.Title,
			&src.Read,
			&sentAt,
			&readAt,
			&openedAt,
			&clickedAt,
			&unsubscribedAt,
			&src.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		src.SentAt = timePtr(sentAt)
		src.ReadAt = timePtr(readAt)
		src.OpenedAt = timePtr(openedAt)
		src.ClickedAt = timePtr(clickedAt)
		src.UnsubscribedAt = timePtr(unsubscribedAt)
		sources = append(sources, src)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return sources, nil
}
