//Package hd contains the core datatypes in Huddle.
package hd

import "time"

//UserID is self explanatory.
type UserID string

//PostID uniquely identifies a feed post.
type PostID string

//CommentID identifies a comment on a post.
type CommentID string

//User is the basic user representation, containing their unique ID, their name, their profile image and whether they are currently online.
type User struct {
	ID     UserID `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"profile_image"`
	Online bool   `json:"online,omitempty"`
}

//Reaction is the tri-state like/dislike/none a user can hold against a post or comment.
type Reaction int

const (
	//ReactionNone - the user holds no reaction.
	ReactionNone Reaction = iota
	//ReactionLiked - the user likes this.
	ReactionLiked
	//ReactionDisliked - the user dislikes this.
	ReactionDisliked
)

//String gives the wire representation of a Reaction.
func (r Reaction) String() string {
	switch r {
	case ReactionLiked:
		return "liked"
	case ReactionDisliked:
		return "disliked"
	default:
		return "none"
	}
}

//ReactionOf derives a Reaction from the liked/disliked flag pair. The flags are mutually exclusive; liked wins if both are somehow set.
func ReactionOf(liked, disliked bool) Reaction {
	switch {
	case liked:
		return ReactionLiked
	case disliked:
		return ReactionDisliked
	default:
		return ReactionNone
	}
}

//Post represents a feed post, including the local user's reaction to it and a first-page preview of its comments.
type Post struct {
	ID            PostID    `json:"id"`
	By            User      `json:"by"`
	Time          time.Time `json:"timestamp"`
	Text          string    `json:"text"`
	IsLiked       bool      `json:"is_liked"`
	IsDisliked    bool      `json:"is_disliked"`
	LikesCount    int       `json:"like_count"`
	DislikesCount int       `json:"dislike_count"`
	CommentsCount int       `json:"comment_count"`
	Comments      []Comment `json:"comments,omitempty"`
}

//Reaction gives the local user's current reaction to this post.
func (p Post) Reaction() Reaction {
	return ReactionOf(p.IsLiked, p.IsDisliked)
}

//Comment is a comment on a Post. It carries the same reaction shape as a post.
type Comment struct {
	ID            CommentID `json:"id"`
	Post          PostID    `json:"-"`
	By            User      `json:"by"`
	Time          time.Time `json:"timestamp"`
	Text          string    `json:"text"`
	IsLiked       bool      `json:"is_liked"`
	IsDisliked    bool      `json:"is_disliked"`
	LikesCount    int       `json:"like_count"`
	DislikesCount int       `json:"dislike_count"`
}

//Reaction gives the local user's current reaction to this comment.
func (c Comment) Reaction() Reaction {
	return ReactionOf(c.IsLiked, c.IsDisliked)
}

//APIerror is a JSON-ified error.
type APIerror struct {
	Reason string `json:"error"`
}

//Error - implements the error interface.
func (e APIerror) Error() string {
	return e.Reason
}

//Severity classifies a Notification for the surrounding application's toast surface.
type Severity string

const (
	//SeverityError - a failed mutation the user should know about.
	SeverityError Severity = "error"
	//SeverityInfo - informational, eg. the new-message indicator.
	SeverityInfo Severity = "info"
)

//Notification is what the core hands the surrounding application when it has something to surface. No reply is expected.
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}
