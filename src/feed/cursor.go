package feed

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
)

/*
A Cursor pins a position in a feed. It always carries the row's unique id as
the final tie-break; a timestamp-only cursor would skip or repeat rows
whenever two rows were created in the same instant.

The encoded form is opaque to clients: base64 of "<RFC3339Nano>|<score>|<id>".
Score is only meaningful for the score-ordered feeds and rides along as 0
otherwise.
*/
type Cursor struct {
	Time  time.Time
	Score int
	ID    int
}

func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%s|%d|%d", c.Time.UTC().Format(time.RFC3339Nano), c.Score, c.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, apperrors.Wrap(err, apperrors.Validation, "malformed cursor")
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return Cursor{}, apperrors.New(apperrors.Validation, "malformed cursor")
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, apperrors.Wrap(err, apperrors.Validation, "malformed cursor timestamp")
	}
	score, err := strconv.Atoi(parts[1])
	if err != nil {
		return Cursor{}, apperrors.Wrap(err, apperrors.Validation, "malformed cursor score")
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return Cursor{}, apperrors.Wrap(err, apperrors.Validation, "malformed cursor id")
	}

	return Cursor{Time: t, Score: score, ID: id}, nil
}
