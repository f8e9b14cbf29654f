package bus

import (
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
)

type EventKind string

// Event kind values are wire-visible; both live transports serialize them
// verbatim in the "type" field.
const (
	EventCommentAdded         EventKind = "commentAdded"
	EventCommentDeleted       EventKind = "commentDeleted"
	EventVoteUpdated          EventKind = "voteUpdated"
	EventPostCreated          EventKind = "postCreated"
	EventPostUpdated          EventKind = "postUpdated"
	EventNotificationReceived EventKind = "notificationReceived"
	EventTypingChanged        EventKind = "userTyping"
)

/*
Event is a tagged union. Exactly the payload field matching Kind must be set;
Publish validates this so a malformed event fails loudly at the publish site
instead of producing a silent no-match at every filter.
*/
type Event struct {
	Kind EventKind `json:"type"`

	Comment      *CommentPayload      `json:"comment,omitempty"`
	Vote         *VotePayload         `json:"vote,omitempty"`
	Post         *PostPayload         `json:"post,omitempty"`
	Notification *NotificationPayload `json:"notification,omitempty"`
	Typing       *TypingPayload       `json:"typing,omitempty"`
}

type CommentPayload struct {
	CommentID  int    `json:"commentId"`
	PostID     int    `json:"postId"`
	ParentID   *int   `json:"parentId"`
	AuthorID   int    `json:"authorId"`
	AuthorName string `json:"authorName"`
	Depth      int    `json:"depth"`
	Body       string `json:"body,omitempty"`
}

type VotePayload struct {
	TargetID   int               `json:"targetId"`
	TargetKind models.TargetKind `json:"targetKind"`
	// For comment votes, the post the comment belongs to. Lets post watchers
	// receive score changes for comments on their post.
	PostID    int `json:"postId"`
	VoteCount int `json:"voteCount"`
}

type PostPayload struct {
	PostID   int    `json:"postId"`
	TopicID  int    `json:"topicId"`
	AuthorID int    `json:"authorId"`
	Title    string `json:"title"`
}

type NotificationPayload struct {
	NotificationID int                     `json:"notificationId"`
	RecipientID    int                     `json:"recipientId"`
	Kind           models.NotificationKind `json:"kind"`
	Payload        string                  `json:"payload"`
}

type TypingPayload struct {
	PostID int          `json:"postId"`
	Users  []TypingUser `json:"users"`
}

type TypingUser struct {
	UserID int    `json:"userId"`
	Name   string `json:"name"`
}

func (e Event) Validate() error {
	var got int
	for _, present := range []bool{
		e.Comment != nil,
		e.Vote != nil,
		e.Post != nil,
		e.Notification != nil,
		e.Typing != nil,
	} {
		if present {
			got++
		}
	}
	if got != 1 {
		return oops.New(nil, "event %q must carry exactly one payload, has %d", e.Kind, got)
	}

	ok := false
	var want string
	switch e.Kind {
	case EventCommentAdded, EventCommentDeleted:
		ok = e.Comment != nil
		want = "comment"
	case EventVoteUpdated:
		ok = e.Vote != nil
		want = "vote"
	case EventPostCreated, EventPostUpdated:
		ok = e.Post != nil
		want = "post"
	case EventNotificationReceived:
		ok = e.Notification != nil
		want = "notification"
	case EventTypingChanged:
		ok = e.Typing != nil
		want = "typing"
	default:
		return oops.New(nil, "unknown event kind %q", e.Kind)
	}
	if !ok {
		return oops.New(nil, "event %q requires a %s payload", e.Kind, want)
	}
	return nil
}

// Payload returns whichever payload the event carries, for serialization as
// the "data" field of a wire frame.
func (e Event) Payload() any {
	switch {
	case e.Comment != nil:
		return e.Comment
	case e.Vote != nil:
		return e.Vote
	case e.Post != nil:
		return e.Post
	case e.Notification != nil:
		return e.Notification
	case e.Typing != nil:
		return e.Typing
	}
	return nil
}

// postID returns the post an event concerns, or 0 for events that are not
// tied to a post (notifications).
func (e Event) postID() int {
	switch {
	case e.Comment != nil:
		return e.Comment.PostID
	case e.Vote != nil:
		return e.Vote.PostID
	case e.Post != nil:
		return e.Post.PostID
	case e.Typing != nil:
		return e.Typing.PostID
	}
	return 0
}
