package lib

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/courtna/HuddleCore/lib/cache"
	"github.com/courtna/HuddleCore/lib/hd"
)

//PostsPager pages through a feed. The feed endpoint reports continuation as
//a has-more boolean.
func (api *API) PostsPager(feed string) *cache.Pager[hd.Post] {
	return cache.NewPager(api.posts, keyFeed(feed), func(cursor int) (page cache.Page[hd.Post], err error) {
		resp, err := api.client.Get(fmt.Sprintf("feeds/%s/posts?page=%d&count=%d", feed, cursor, api.Config.Pages.Posts))
		if err = failure(resp, err); err != nil {
			return
		}
		var body struct {
			Posts   []hd.Post `json:"posts"`
			HasNext bool      `json:"has_next"`
		}
		if err = json.Unmarshal(resp.Data, &body); err != nil {
			return
		}
		return cache.CursorPage(body.Posts, cursor, body.HasNext), nil
	})
}

//CommentsPager pages through a post's comments. The comments endpoint
//reports a total count instead of a boolean; the Pager hides the difference.
func (api *API) CommentsPager(post hd.PostID) *cache.Pager[hd.Comment] {
	return cache.NewPager(api.comments, keyComments(post), func(cursor int) (page cache.Page[hd.Comment], err error) {
		resp, err := api.client.Get(fmt.Sprintf("posts/%s/comments?page=%d&count=%d", post, cursor, api.Config.Pages.Comments))
		if err = failure(resp, err); err != nil {
			return
		}
		var body struct {
			Comments []hd.Comment `json:"comments"`
			Total    int          `json:"total"`
		}
		if err = json.Unmarshal(resp.Data, &body); err != nil {
			return
		}
		for i := range body.Comments {
			body.Comments[i].Post = post
		}
		return cache.CountedPage(body.Comments, cursor, body.Total), nil
	})
}

//ChannelsPager pages through the inbox. Fetched channels are written through
//to the local history store.
func (api *API) ChannelsPager() *cache.Pager[hd.Channel] {
	return cache.NewPager(api.channels, keyChannels, func(cursor int) (page cache.Page[hd.Channel], err error) {
		resp, err := api.client.Get(fmt.Sprintf("channels?page=%d&count=%d", cursor, api.Config.Pages.Channels))
		if err = failure(resp, err); err != nil {
			return
		}
		var body struct {
			Channels []hd.Channel `json:"channels"`
			HasNext  bool         `json:"has_next"`
		}
		if err = json.Unmarshal(resp.Data, &body); err != nil {
			return
		}
		if api.store != nil {
			for _, ch := range body.Channels {
				if err := api.store.UpsertChannel(ch); err != nil {
					log.Println("history: upsert channel: ", err)
				}
			}
		}
		return cache.CursorPage(body.Channels, cursor, body.HasNext), nil
	})
}

//FetchPost loads a single post into its detail cache location. A reaction
//mutation touches this copy and any feed copies in the same pass.
func (api *API) FetchPost(id hd.PostID) (post hd.Post, err error) {
	resp, err := api.client.Get(fmt.Sprintf("posts/%s", id))
	if err = failure(resp, err); err != nil {
		return
	}
	if err = json.Unmarshal(resp.Data, &post); err != nil {
		return
	}
	api.posts.Replace(keyPost(id), []cache.Page[hd.Post]{{Items: []hd.Post{post}}})
	return post, nil
}

//Posts returns the flattened cached feed.
func (api *API) Posts(feed string) []hd.Post {
	return api.posts.Items(keyFeed(feed))
}

//Comments returns the flattened cached comment list for a post.
func (api *API) Comments(post hd.PostID) []hd.Comment {
	return api.comments.Items(keyComments(post))
}
