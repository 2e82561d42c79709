package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	roomColumns = "id, external_id, room_type, reference_id, title, seq_id, direct_key, created_at, last_message_at"

	getRoomByExternalIdQuery = "SELECT " + roomColumns + " FROM rooms WHERE external_id = $1 LIMIT 1"
	getRoomByContextQuery    = "SELECT " + roomColumns + " FROM rooms WHERE room_type = $1 AND reference_id = $2 LIMIT 1"
	getRoomByDirectKeyQuery  = "SELECT " + roomColumns + " FROM rooms WHERE direct_key = $1 LIMIT 1"
)

func scanRoom(row *sql.Row) (Room, error) {
	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.RoomType,
		&room.ReferenceId,
		&room.Title,
		&room.SeqId,
		&room.DirectKey,
		&room.CreatedAt,
		&room.LastMessageAt,
	)
	return room, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

// DirectKey canonicalizes an unordered account pair so (A,B) and (B,A)
// resolve to the same direct room.
func DirectKey(accountA, accountB int) string {
	if accountB < accountA {
		accountA, accountB = accountB, accountA
	}
	return fmt.Sprintf("%d:%d", accountA, accountB)
}

func (db *PgChatRepository) GetRoomByExternalId(externalId string) (Room, error) {
	return scanRoom(db.conn.QueryRow(getRoomByExternalIdQuery, externalId))
}

// GetOrCreateRoom resolves the room for (room_type, reference_id),
// creating it on first use. Concurrent callers race on the unique
// index and the loser falls back to the lookup, so exactly one room
// exists per context. The returned bool reports whether this call
// created the room.
func (db *PgChatRepository) GetOrCreateRoom(params GetOrCreateRoomParams) (Room, bool, error) {
	room, err := scanRoom(db.conn.QueryRow(getRoomByContextQuery, params.RoomType, params.ReferenceId))
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Room{}, false, err
	}

	now := time.Now().UTC()
	room, err = scanRoom(db.conn.QueryRow(
		"INSERT INTO rooms (external_id, room_type, reference_id, title, created_at, last_message_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING "+roomColumns,
		params.ExternalId,
		params.RoomType,
		params.ReferenceId,
		params.Title,
		now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			// lost the create race, the room exists now
			room, err = scanRoom(db.conn.QueryRow(getRoomByContextQuery, params.RoomType, params.ReferenceId))
			return room, false, err
		}
		return Room{}, false, err
	}

	return room, true, nil
}

// GetOrCreateDirectRoom resolves the direct room for an account pair,
// creating the room and both active participants in one transaction on
// first use.
func (db *PgChatRepository) GetOrCreateDirectRoom(accountA, accountB int, title, externalId string) (Room, bool, error) {
	key := DirectKey(accountA, accountB)

	room, err := scanRoom(db.conn.QueryRow(getRoomByDirectKeyQuery, key))
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Room{}, false, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	room, err = scanRoom(tx.QueryRow(
		"INSERT INTO rooms (external_id, room_type, title, direct_key, created_at, last_message_at) "+
			"VALUES ($1, 'DIRECT', $2, $3, $4, $4) RETURNING "+roomColumns,
		externalId,
		title,
		key,
		now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			tx.Rollback()
			room, err = scanRoom(db.conn.QueryRow(getRoomByDirectKeyQuery, key))
			return room, false, err
		}
		return Room{}, false, err
	}

	for _, accountId := range []int{accountA, accountB} {
		_, err = tx.Exec(
			"INSERT INTO participants (room_id, account_id, active, joined_at) VALUES ($1, $2, TRUE, $3)",
			room.Id,
			accountId,
			now,
		)
		if err != nil {
			return Room{}, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Room{}, false, err
	}

	return room, true, nil
}

func (db *PgChatRepository) GetRoomWithParticipants(roomId int) (*Room, error) {
	room, err := scanRoom(db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms WHERE id = $1 LIMIT 1", roomId,
	))
	if err != nil {
		return nil, err
	}

	room.Participants, err = db.GetParticipantsByRoomId(roomId)
	if err != nil {
		return nil, fmt.Errorf("fetch participants: %w", err)
	}

	return &room, nil
}

// UpsertParticipant creates the (room, account) membership row, or
// reactivates it if the account left earlier. Rejoining never
// duplicates the row.
func (db *PgChatRepository) UpsertParticipant(accountId, roomId int) (Participant, error) {
	row := db.conn.QueryRow(
		"INSERT INTO participants (room_id, account_id, active, joined_at) VALUES ($1, $2, TRUE, $3) "+
			"ON CONFLICT (room_id, account_id) DO UPDATE SET active = TRUE, exited_at = NULL "+
			"RETURNING id, room_id, account_id, last_read_seq_id, active, joined_at, exited_at",
		roomId,
		accountId,
		time.Now().UTC(),
	)

	var p Participant
	err := row.Scan(
		&p.Id,
		&p.RoomId,
		&p.AccountId,
		&p.LastReadSeqId,
		&p.Active,
		&p.JoinedAt,
		&p.ExitedAt,
	)

	return p, err
}

func (db *PgChatRepository) DeactivateParticipant(accountId, roomId int) error {
	res, err := db.conn.Exec(
		"UPDATE participants SET active = FALSE, exited_at = $3 WHERE account_id = $1 AND room_id = $2",
		accountId,
		roomId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgChatRepository) ParticipantIsActive(accountId, roomId int) bool {
	var id int
	err := db.conn.QueryRow(
		"SELECT id FROM participants WHERE account_id = $1 AND room_id = $2 AND active = TRUE LIMIT 1",
		accountId,
		roomId,
	).Scan(&id)

	return err == nil
}

func (db *PgChatRepository) GetParticipantsByRoomId(roomId int) ([]Participant, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, account_id, last_read_seq_id, active, joined_at, exited_at "+
			"FROM participants WHERE room_id = $1 AND active = TRUE",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]Participant, 0)
	for rows.Next() {
		var p Participant
		if err = rows.Scan(&p.Id, &p.RoomId, &p.AccountId, &p.LastReadSeqId, &p.Active, &p.JoinedAt, &p.ExitedAt); err != nil {
			return nil, err
		}

		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// CreateMessage persists a message with the room's next sequence id
// and bumps the room's seq_id and last_message_at in the same
// transaction. The row lock on the room serializes seq assignment, so
// ids are strictly increasing per room in persistence order.
func (db *PgChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var seqId int
	err = tx.QueryRowContext(ctx, "SELECT seq_id FROM rooms WHERE id = $1 FOR UPDATE", params.RoomId).Scan(&seqId)
	if err != nil {
		return Message{}, err
	}
	seqId++

	msg := Message{
		SeqId:        seqId,
		RoomId:       params.RoomId,
		AccountId:    params.AccountId,
		Content:      params.Content,
		AttachmentId: params.AttachmentId,
		SentAt:       params.SentAt,
	}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO messages (seq_id, room_id, account_id, content, attachment_id, sent_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		msg.SeqId,
		msg.RoomId,
		msg.AccountId,
		msg.Content,
		msg.AttachmentId,
		msg.SentAt,
	).Scan(&msg.Id)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE rooms SET seq_id = $1, last_message_at = $2 WHERE id = $3",
		msg.SeqId,
		msg.SentAt,
		msg.RoomId,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// SoftDeleteMessage flips the tombstone flag on the sender's own
// message. The row is never physically removed, so per-room seq id
// continuity is preserved for readers.
func (db *PgChatRepository) SoftDeleteMessage(roomId, seqId, accountId int) (Message, error) {
	row := db.conn.QueryRow(
		"UPDATE messages SET deleted = TRUE WHERE room_id = $1 AND seq_id = $2 AND account_id = $3 "+
			"RETURNING id, seq_id, room_id, account_id, '', attachment_id, deleted, sent_at",
		roomId,
		seqId,
		accountId,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.SeqId,
		&msg.RoomId,
		&msg.AccountId,
		&msg.Content,
		&msg.AttachmentId,
		&msg.Deleted,
		&msg.SentAt,
	)

	return msg, err
}

// UpdateMessageContent replaces the text of the sender's own message.
// Tombstoned messages and file messages cannot be edited, so the match
// excludes both.
func (db *PgChatRepository) UpdateMessageContent(roomId, seqId, accountId int, content string) (Message, error) {
	row := db.conn.QueryRow(
		"UPDATE messages SET content = $4 WHERE room_id = $1 AND seq_id = $2 AND account_id = $3 "+
			"AND deleted = FALSE AND attachment_id IS NULL "+
			"RETURNING id, seq_id, room_id, account_id, content, attachment_id, deleted, sent_at",
		roomId,
		seqId,
		accountId,
		content,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.SeqId,
		&msg.RoomId,
		&msg.AccountId,
		&msg.Content,
		&msg.AttachmentId,
		&msg.Deleted,
		&msg.SentAt,
	)

	return msg, err
}

// GetMessages returns up to limit messages for the room with seq ids
// in [since, before), newest first. Deleted messages come back as
// tombstones: the row is present but its content is blanked.
func (db *PgChatRepository) GetMessages(roomId, since, before, limit int) ([]Message, error) {
	var upper, lower int = 1<<31 - 1, 0
	if before > 0 {
		upper = before - 1
	}

	if since > 0 {
		lower = since
	}

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		"SELECT id, seq_id, room_id, account_id, CASE WHEN deleted THEN '' ELSE content END, "+
			"attachment_id, deleted, sent_at FROM messages "+
			"WHERE room_id = $1 AND seq_id BETWEEN $2 AND $3 ORDER BY seq_id DESC LIMIT $4",
		roomId,
		lower,
		upper,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.SeqId, &msg.RoomId, &msg.AccountId, &msg.Content,
			&msg.AttachmentId, &msg.Deleted, &msg.SentAt); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// UpdateLastReadSeqId advances the account's read pointer for the
// room. The guard keeps the pointer monotonic: a stale or out-of-order
// acknowledgment is a silent no-op.
func (db *PgChatRepository) UpdateLastReadSeqId(accountId, roomId, seqId int) error {
	_, err := db.conn.Exec(
		"UPDATE participants SET last_read_seq_id = $3 WHERE account_id = $1 AND room_id = $2 "+
			"AND (last_read_seq_id IS NULL OR last_read_seq_id < $3)",
		accountId,
		roomId,
		seqId,
	)

	return err
}

func (db *PgChatRepository) GetUnreadCount(accountId, roomId int) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(m.id) FROM participants p "+
			"LEFT JOIN messages m ON m.room_id = p.room_id AND m.deleted = FALSE "+
			"AND m.seq_id > COALESCE(p.last_read_seq_id, 0) "+
			"WHERE p.account_id = $1 AND p.room_id = $2",
		accountId,
		roomId,
	).Scan(&count)

	return count, err
}

func (db *PgChatRepository) ListUnreadCounts(accountId int) ([]UnreadCount, error) {
	rows, err := db.conn.Query(
		"SELECT r.external_id, COUNT(m.id) FROM participants p "+
			"JOIN rooms r ON r.id = p.room_id "+
			"LEFT JOIN messages m ON m.room_id = p.room_id AND m.deleted = FALSE "+
			"AND m.seq_id > COALESCE(p.last_read_seq_id, 0) "+
			"WHERE p.account_id = $1 AND p.active = TRUE "+
			"GROUP BY r.external_id",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []UnreadCount
	for rows.Next() {
		var uc UnreadCount
		if err = rows.Scan(&uc.RoomExternalId, &uc.Count); err != nil {
			return nil, err
		}

		counts = append(counts, uc)
	}
	return counts, rows.Err()
}
