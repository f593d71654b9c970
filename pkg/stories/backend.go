// Package stories stores ephemeral stories along with their reactions,
// comments, mentions and views.
package stories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"

	"github.com/tradepost/funcircle/pkg/users"
	"github.com/tradepost/funcircle/pkg/users/types"
)

// quotaLockClass namespaces the advisory locks taken while posting.
const quotaLockClass = 7301

const countColumns = "like_count, love_count, laugh_count, wow_count, sad_count, angry_count"

const selectStories = `SELECT stories.id, stories.author_id, stories.content, stories.images, stories.created_at, stories.expires_at, stories.views_count,
	stories.like_count, stories.love_count, stories.laugh_count, stories.wow_count, stories.sad_count, stories.angry_count,
	(SELECT kind FROM story_reactions WHERE story_reactions.story_id = stories.id AND story_reactions.user_id = $1),
	ARRAY(SELECT user_id FROM story_mentions WHERE story_mentions.story_id = stories.id ORDER BY user_id),
	` + users.Columns + `
	FROM stories INNER JOIN users ON (users.id = stories.author_id)`

const selectQuota = "SELECT COALESCE(SUM(cardinality(images)), 0) FROM stories WHERE author_id = $1 AND created_at > $2;"

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// Post creates a story. Posts by the same author are serialized on an
// advisory lock so the image quota check and the insert are atomic.
func (b *Backend) Post(ctx context.Context, author int, content string, images []string, mentions []int) (*Story, error) {
	content = strings.TrimSpace(content)
	images = compact(images)

	if content == "" && len(images) == 0 {
		return nil, ErrEmptyContent
	}

	if len(images) > MaxImages {
		return nil, ErrTooManyImages
	}

	now := time.Now().UTC()
	story := &Story{
		ID:           ksuid.New().String(),
		AuthorID:     author,
		Content:      content,
		Images:       images,
		CreatedAt:    now,
		ExpiresAt:    now.Add(Lifetime),
		Reactions:    NewCounts(),
		TopReactions: []Kind{},
		Mentions:     normalizeMentions(author, mentions),
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1, $2);", quotaLockClass, author)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to lock quota")
	}

	var used int
	err = tx.QueryRowContext(ctx, selectQuota, author, now.Add(-QuotaWindow)).Scan(&used)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to read quota")
	}

	if used+len(images) > MaxImages {
		_ = tx.Rollback()
		return nil, ErrQuotaExceeded
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO stories (id, author_id, content, images, created_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6);",
		story.ID, author, content, pq.Array(images), story.CreatedAt, story.ExpiresAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to insert story")
	}

	if len(story.Mentions) > 0 {
		story.Mentions, err = insertMentions(ctx, tx, story.ID, story.Mentions)
		if err != nil {
			_ = tx.Rollback()
			return nil, errors.Wrap(err, "failed to insert mentions")
		}
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return story, nil
}

// QuotaUsage returns how many images author has posted in the window ending at now.
// Only stories that still exist count, deleting a story frees its images.
func (b *Backend) QuotaUsage(ctx context.Context, author int, now time.Time) (Quota, error) {
	stmt, err := b.db.PrepareContext(ctx, selectQuota)
	if err != nil {
		return Quota{}, err
	}
	defer stmt.Close()

	var used int
	err = stmt.QueryRowContext(ctx, author, now.Add(-QuotaWindow)).Scan(&used)
	if err != nil {
		return Quota{}, err
	}

	return newQuota(used), nil
}

// Feed returns the live stories, newest first, annotated for viewer.
func (b *Backend) Feed(ctx context.Context, viewer int, now time.Time) ([]*Story, error) {
	stmt, err := b.db.PrepareContext(ctx, selectStories+`
		WHERE stories.expires_at > $2
		ORDER BY stories.created_at DESC, stories.id DESC LIMIT $3;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, viewer, now, FeedLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Story, 0)
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, story)
	}

	return result, rows.Err()
}

// Get returns a single live story annotated for viewer.
func (b *Backend) Get(ctx context.Context, id string, viewer int, now time.Time) (*Story, error) {
	stmt, err := b.db.PrepareContext(ctx, selectStories+" WHERE stories.id = $2 AND stories.expires_at > $3;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	story, err := scanStory(stmt.QueryRowContext(ctx, viewer, id, now))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return story, nil
}

// React toggles or swaps the reaction of user on a story. The story row is
// locked for the whole transaction so the counters always match the
// reaction rows.
func (b *Backend) React(ctx context.Context, story string, user int, kind Kind) (*ReactionResult, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	err = lockStory(ctx, tx, story, "FOR UPDATE")
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	var current string
	err = tx.QueryRowContext(
		ctx,
		"SELECT kind FROM story_reactions WHERE story_id = $1 AND user_id = $2 FOR UPDATE;",
		story, user,
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		_ = tx.Rollback()
		return nil, err
	}

	result := &ReactionResult{}
	var counter string

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(
			ctx,
			"INSERT INTO story_reactions (story_id, user_id, kind, created_at) VALUES ($1, $2, $3, $4);",
			story, user, string(kind), time.Now().UTC(),
		)

		counter = fmt.Sprintf("%[1]s = %[1]s + 1", kind.column())
		result.Reaction = &kind
		result.Change = ChangeInsert
	case Kind(current) == kind:
		_, err = tx.ExecContext(ctx, "DELETE FROM story_reactions WHERE story_id = $1 AND user_id = $2;", story, user)

		counter = fmt.Sprintf("%[1]s = %[1]s - 1", kind.column())
		result.Change = ChangeDelete
	default:
		previous, perr := ParseKind(current)
		if perr != nil {
			_ = tx.Rollback()
			return nil, errors.Wrap(perr, "stored reaction")
		}

		_, err = tx.ExecContext(
			ctx,
			"UPDATE story_reactions SET kind = $3 WHERE story_id = $1 AND user_id = $2;",
			story, user, string(kind),
		)

		counter = fmt.Sprintf("%[1]s = %[1]s - 1, %[2]s = %[2]s + 1", previous.column(), kind.column())
		result.Reaction = &kind
		result.Change = ChangeUpdate
	}

	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to write reaction")
	}

	result.Counts, err = scanCounts(tx.QueryRowContext(
		ctx,
		"UPDATE stories SET "+counter+" WHERE id = $1 RETURNING "+countColumns+";",
		story,
	))
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to update counters")
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return result, nil
}

// Comment adds a comment to a live story.
func (b *Backend) Comment(ctx context.Context, story string, author int, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	err = lockStory(ctx, tx, story, "FOR SHARE")
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	comment := &Comment{StoryID: story, AuthorID: author, Text: text, CreatedAt: time.Now().UTC()}
	err = tx.QueryRowContext(
		ctx,
		"INSERT INTO story_comments (story_id, author_id, text, created_at) VALUES ($1, $2, $3, $4) RETURNING id;",
		story, author, text, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to insert comment")
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return comment, nil
}

// ListComments returns the comments on a story, oldest first.
func (b *Backend) ListComments(ctx context.Context, story string) ([]*Comment, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT id, story_id, author_id, text, created_at FROM story_comments WHERE story_id = $1 ORDER BY created_at, id;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, story)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Comment, 0)
	for rows.Next() {
		comment := &Comment{}
		err := rows.Scan(&comment.ID, &comment.StoryID, &comment.AuthorID, &comment.Text, &comment.CreatedAt)
		if err != nil {
			return nil, err
		}

		result = append(result, comment)
	}

	return result, rows.Err()
}

// View records that viewer saw a story. It reports whether the view was
// counted, authors and repeat views are not.
func (b *Backend) View(ctx context.Context, story string, viewer int) (bool, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	var author int
	err = tx.QueryRowContext(
		ctx,
		"SELECT author_id FROM stories WHERE id = $1 AND expires_at > $2 FOR UPDATE;",
		story, time.Now().UTC(),
	).Scan(&author)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return false, ErrNotFound
	}

	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	if author == viewer {
		_ = tx.Rollback()
		return false, nil
	}

	res, err := tx.ExecContext(
		ctx,
		"INSERT INTO story_views (story_id, viewer_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;",
		story, viewer, time.Now().UTC(),
	)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	if n > 0 {
		_, err = tx.ExecContext(ctx, "UPDATE stories SET views_count = views_count + 1 WHERE id = $1;", story)
		if err != nil {
			_ = tx.Rollback()
			return false, err
		}
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	return n > 0, nil
}

// Delete removes a story and everything attached to it. Only the author or
// SystemActor may delete. The deleted story is returned so its media can be
// removed.
func (b *Backend) Delete(ctx context.Context, id string, actor int) (*Story, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	story := &Story{ID: id}
	err = tx.QueryRowContext(ctx, "SELECT author_id, images FROM stories WHERE id = $1 FOR UPDATE;", id).
		Scan(&story.AuthorID, pq.Array(&story.Images))
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return nil, ErrNotFound
	}

	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if actor != SystemActor && actor != story.AuthorID {
		_ = tx.Rollback()
		return nil, ErrNotAuthorized
	}

	for _, query := range []string{
		"DELETE FROM story_comments WHERE story_id = $1;",
		"DELETE FROM story_reactions WHERE story_id = $1;",
		"DELETE FROM story_views WHERE story_id = $1;",
		"DELETE FROM story_mentions WHERE story_id = $1;",
		"DELETE FROM stories WHERE id = $1;",
	} {
		_, err = tx.ExecContext(ctx, query, id)
		if err != nil {
			_ = tx.Rollback()
			return nil, errors.Wrap(err, "failed to delete story")
		}
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return story, nil
}

// SweepExpired returns the stories that expired at or before now.
func (b *Backend) SweepExpired(ctx context.Context, now time.Time) ([]*Expired, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT id, images FROM stories WHERE expires_at <= $1 ORDER BY expires_at, id;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Expired, 0)
	for rows.Next() {
		expired := &Expired{}
		err := rows.Scan(&expired.ID, pq.Array(&expired.Images))
		if err != nil {
			return nil, err
		}

		result = append(result, expired)
	}

	return result, rows.Err()
}

// LiveStoryCounts returns the number of unexpired stories per author.
// Authors without live stories are absent from the result.
func (b *Backend) LiveStoryCounts(ctx context.Context, authors []int, now time.Time) (map[int]int, error) {
	result := make(map[int]int)
	if len(authors) == 0 {
		return result, nil
	}

	stmt, err := b.db.PrepareContext(ctx, "SELECT author_id, COUNT(*) FROM stories WHERE author_id = ANY($1) AND expires_at > $2 GROUP BY author_id;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, pq.Array(users.Int64s(authors)), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var author, count int
		err := rows.Scan(&author, &count)
		if err != nil {
			return nil, err
		}

		result[author] = count
	}

	return result, rows.Err()
}

// ReconcileReactionCounts recomputes every reaction counter from the
// reaction rows and returns the number of stories that were corrected.
func (b *Backend) ReconcileReactionCounts(ctx context.Context) (int64, error) {
	set := make([]string, 0, len(Kinds))
	filters := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		set = append(set, fmt.Sprintf("%[1]s = tally.%[1]s", k.column()))
		filters = append(filters, fmt.Sprintf("COUNT(story_reactions.kind) FILTER (WHERE story_reactions.kind = '%s') AS %s", k, k.column()))
	}

	query := fmt.Sprintf(`UPDATE stories SET %s
		FROM (SELECT stories.id, %s FROM stories LEFT JOIN story_reactions ON (story_reactions.story_id = stories.id) GROUP BY stories.id) AS tally
		WHERE stories.id = tally.id AND (stories.%s) IS DISTINCT FROM (tally.%s);`,
		strings.Join(set, ", "),
		strings.Join(filters, ", "),
		strings.ReplaceAll(countColumns, ", ", ", stories."),
		strings.ReplaceAll(countColumns, ", ", ", tally."),
	)

	res, err := b.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrap(err, "failed to reconcile counters")
	}

	return res.RowsAffected()
}

func lockStory(ctx context.Context, tx *sql.Tx, story, mode string) error {
	var id string
	err := tx.QueryRowContext(
		ctx,
		"SELECT id FROM stories WHERE id = $1 AND expires_at > $2 "+mode+";",
		story, time.Now().UTC(),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}

	return err
}

func scanCounts(row users.Scanner) (Counts, error) {
	values := make([]int, len(Kinds))
	dest := make([]interface{}, len(Kinds))
	for i := range values {
		dest[i] = &values[i]
	}

	err := row.Scan(dest...)
	if err != nil {
		return nil, err
	}

	counts := make(Counts, len(Kinds))
	for i, k := range Kinds {
		counts[k] = values[i]
	}

	return counts, nil
}

func scanStory(row users.Scanner) (*Story, error) {
	story := &Story{Author: &types.User{}}

	var (
		reaction sql.NullString
		mentions []int64
		location sql.NullString
	)

	values := make([]int, len(Kinds))

	err := row.Scan(
		&story.ID, &story.AuthorID, &story.Content, pq.Array(&story.Images), &story.CreatedAt, &story.ExpiresAt, &story.ViewsCount,
		&values[0], &values[1], &values[2], &values[3], &values[4], &values[5],
		&reaction,
		pq.Array(&mentions),
		&story.Author.ID, &story.Author.DisplayName, &story.Author.Username, &story.Author.Image, &location, &story.Author.Verified, &story.Author.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	story.Author.Location = location.String

	if story.Images == nil {
		story.Images = []string{}
	}

	story.Reactions = make(Counts, len(Kinds))
	for i, k := range Kinds {
		story.Reactions[k] = values[i]
	}

	story.TopReactions = story.Reactions.Top(3)

	if reaction.Valid {
		kind := Kind(reaction.String)
		story.UserReaction = &kind
	}

	story.Mentions = make([]int, 0, len(mentions))
	for _, id := range mentions {
		story.Mentions = append(story.Mentions, int(id))
	}

	return story, nil
}

// insertMentions stores the mentions that name existing accounts and returns
// them in the requested order.
func insertMentions(ctx context.Context, tx *sql.Tx, story string, mentions []int) ([]int, error) {
	rows, err := tx.QueryContext(
		ctx,
		"INSERT INTO story_mentions (story_id, user_id) SELECT $1, id FROM users WHERE id = ANY($2) RETURNING user_id;",
		story, pq.Array(users.Int64s(mentions)),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	saved := make(map[int]bool)
	for rows.Next() {
		var id int
		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}

		saved[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]int, 0, len(saved))
	for _, id := range mentions {
		if saved[id] {
			result = append(result, id)
		}
	}

	return result, nil
}

func compact(images []string) []string {
	result := make([]string, 0, len(images))
	for _, image := range images {
		image = strings.TrimSpace(image)
		if image == "" {
			continue
		}

		result = append(result, image)
	}

	return result
}

func normalizeMentions(author int, mentions []int) []int {
	seen := make(map[int]bool, len(mentions))
	result := make([]int, 0, len(mentions))
	for _, id := range mentions {
		if id == author || id <= 0 || seen[id] {
			continue
		}

		seen[id] = true
		result = append(result, id)
	}

	return result
}
