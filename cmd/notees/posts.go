package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/notees/posts"
)

var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"notes"},
	Short:   "List and manage your notes",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your notes, newest first",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, c *client, _ []string) error {
		return c.listPosts(cmd.Context())
	}),
}

var postsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note",
	Long:  "Creates a note. Title and description are asked for when not given as flags.",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, c *client, _ []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		media, _ := cmd.Flags().GetString("media")
		return c.createPost(cmd.Context(), title, description, media)
	}),
}

var postsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a note's title, description or attachment",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(cmd *cobra.Command, c *client, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		media, _ := cmd.Flags().GetString("media")
		return c.editPost(cmd.Context(), args[0], title, description, media)
	}),
}

var postsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(cmd *cobra.Command, c *client, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		return c.deletePost(cmd.Context(), args[0], yes)
	}),
}

// loadFeed reloads the feed for the signed-in user so one-shot commands see
// the current list.
func (c *client) loadFeed(ctx context.Context) (*posts.Feed, error) {
	if _, err := c.requireUser(); err != nil {
		return nil, err
	}
	return c.app.ReloadFeed(ctx)
}

func (c *client) listPosts(ctx context.Context) error {
	feed, err := c.loadFeed(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, renderFeed(c.styles(), feed.Posts()))
	return nil
}

// openMedia opens path as an attachment. The caller closes the file.
func openMedia(path string) (*posts.Media, *os.File, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return &posts.Media{Name: filepath.Base(path), Data: f}, f, nil
}

func (c *client) createPost(ctx context.Context, title, description, mediaPath string) error {
	feed, err := c.loadFeed(ctx)
	if err != nil {
		return err
	}
	if title, err = c.prompt.orAsk(title, "Title"); err != nil {
		return err
	}
	if description, err = c.prompt.orAsk(description, "Description"); err != nil {
		return err
	}
	media, f, err := openMedia(mediaPath)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close()
	}

	p, err := feed.Create(ctx, posts.Draft{Title: title, Description: description, Media: media})
	if err != nil {
		return err
	}
	st := c.styles()
	fmt.Fprintln(c.out, st.Success.Render("Post created!"))
	fmt.Fprintln(c.out, renderPost(st, p))
	return nil
}

func (c *client) editPost(ctx context.Context, id, title, description, mediaPath string) error {
	feed, err := c.loadFeed(ctx)
	if err != nil {
		return err
	}
	p, ok := feed.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", posts.ErrNotFound, id)
	}
	if title != "" {
		p.Title = title
	}
	if description != "" {
		p.Description = description
	}
	media, f, err := openMedia(mediaPath)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close()
	}

	updated, err := feed.Update(ctx, p, media)
	if err != nil {
		return err
	}
	st := c.styles()
	fmt.Fprintln(c.out, st.Success.Render("Post updated"))
	fmt.Fprintln(c.out, renderPost(st, updated))
	return nil
}

func (c *client) deletePost(ctx context.Context, id string, yes bool) error {
	feed, err := c.loadFeed(ctx)
	if err != nil {
		return err
	}
	if _, ok := feed.Get(id); !ok {
		return fmt.Errorf("%w: %s", posts.ErrNotFound, id)
	}
	if !yes {
		ok, err := c.prompt.Confirm("Are you sure you want to delete this note?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "Kept.")
			return nil
		}
	}
	if err := feed.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Deleted.")
	return nil
}
