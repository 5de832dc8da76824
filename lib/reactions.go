package lib

import (
	"fmt"

	"github.com/courtna/HuddleCore/lib/hd"
)

//NextReaction computes the state a user's request produces: requesting the
//reaction already active toggles it off, and requesting the opposite one
//switches directly in a single step.
func NextReaction(current, requested hd.Reaction) hd.Reaction {
	if requested == current {
		return hd.ReactionNone
	}
	return requested
}

//ReactionDeltas gives the counter adjustments for a transition. On a direct
//liked<->disliked switch both counters move together.
func ReactionDeltas(from, to hd.Reaction) (likes, dislikes int) {
	if from == hd.ReactionLiked {
		likes--
	}
	if to == hd.ReactionLiked {
		likes++
	}
	if from == hd.ReactionDisliked {
		dislikes--
	}
	if to == hd.ReactionDisliked {
		dislikes++
	}
	return
}

type reactionBody struct {
	Reaction string `json:"reaction"`
}

//ReactToPost applies the user's requested reaction to a post: mutate every
//cached copy immediately, then confirm with the server, rolling the cache
//back exactly if the server says no.
func (api *API) ReactToPost(id hd.PostID, requested hd.Reaction) (err error) {
	api.lock()
	current := hd.ReactionNone
	if post, ok := api.posts.FindAny(func(p hd.Post) bool { return p.ID == id }); ok {
		current = post.Reaction()
	}
	next := NextReaction(current, requested)
	api.applyPostReaction(id, current, next)
	api.unlock()

	//The request carries the desired post-mutation state, not a diff.
	resp, reqErr := api.client.Post(fmt.Sprintf("posts/%s/reaction", id), reactionBody{Reaction: next.String()})
	if err = failure(resp, reqErr); err != nil {
		api.lock()
		api.applyPostReaction(id, next, current)
		api.unlock()
		api.notifyFailure(resp, reqErr)
		return
	}
	return nil
}

//applyPostReaction rewrites the post's reaction flags and counters in every
//cache location holding a copy. Callers hold the engine lock.
func (api *API) applyPostReaction(id hd.PostID, from, to hd.Reaction) {
	likes, dislikes := ReactionDeltas(from, to)
	api.posts.MutateAll(func(p hd.Post) bool { return p.ID == id }, func(p hd.Post) hd.Post {
		p.IsLiked = to == hd.ReactionLiked
		p.IsDisliked = to == hd.ReactionDisliked
		p.LikesCount += likes
		p.DislikesCount += dislikes
		return p
	})
}

//ReactToComment is ReactToPost for a comment. A comment is denormalized in
//two places - the post's comment list and the post's first-page preview -
//and both move in the same pass.
func (api *API) ReactToComment(post hd.PostID, id hd.CommentID, requested hd.Reaction) (err error) {
	api.lock()
	current := hd.ReactionNone
	if comment, ok := api.comments.Find(keyComments(post), func(c hd.Comment) bool { return c.ID == id }); ok {
		current = comment.Reaction()
	} else if c, ok := api.previewComment(post, id); ok {
		current = c.Reaction()
	}
	next := NextReaction(current, requested)
	api.applyCommentReaction(post, id, current, next)
	api.unlock()

	resp, reqErr := api.client.Post(fmt.Sprintf("posts/%s/comments/%s/reaction", post, id), reactionBody{Reaction: next.String()})
	if err = failure(resp, reqErr); err != nil {
		api.lock()
		api.applyCommentReaction(post, id, next, current)
		api.unlock()
		api.notifyFailure(resp, reqErr)
		return
	}
	return nil
}

func (api *API) previewComment(post hd.PostID, id hd.CommentID) (comment hd.Comment, ok bool) {
	p, found := api.posts.FindAny(func(p hd.Post) bool { return p.ID == post })
	if !found {
		return
	}
	for _, c := range p.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return
}

func (api *API) applyCommentReaction(post hd.PostID, id hd.CommentID, from, to hd.Reaction) {
	likes, dislikes := ReactionDeltas(from, to)
	rewrite := func(c hd.Comment) hd.Comment {
		c.IsLiked = to == hd.ReactionLiked
		c.IsDisliked = to == hd.ReactionDisliked
		c.LikesCount += likes
		c.DislikesCount += dislikes
		return c
	}
	api.comments.MutateAll(func(c hd.Comment) bool { return c.ID == id }, rewrite)
	//The preview copy nested inside the post moves in the same pass.
	api.posts.MutateAll(func(p hd.Post) bool { return p.ID == post }, func(p hd.Post) hd.Post {
		comments := make([]hd.Comment, len(p.Comments))
		for i, c := range p.Comments {
			if c.ID == id {
				c = rewrite(c)
			}
			comments[i] = c
		}
		p.Comments = comments
		return p
	})
}

//SetOnline toggles the local user's online indicator, optimistically in every
//cached attribution, then on the server.
func (api *API) SetOnline(online bool) (err error) {
	api.lock()
	prior := api.online
	self := api.self.ID
	api.applyOnline(self, online)
	api.online = online
	api.unlock()

	resp, reqErr := api.client.Put("profile/online", map[string]bool{"online": online})
	if err = failure(resp, reqErr); err != nil {
		api.lock()
		api.applyOnline(self, prior)
		api.online = prior
		api.unlock()
		api.notifyFailure(resp, reqErr)
		return
	}
	return nil
}

func (api *API) applyOnline(user hd.UserID, online bool) {
	api.channels.MutateAll(hasMember(user), withMember(user, func(u hd.User) hd.User {
		u.Online = online
		return u
	}))
	api.messages.MutateAll(func(m hd.Message) bool { return m.By.ID == user }, func(m hd.Message) hd.Message {
		m.By.Online = online
		return m
	})
}
