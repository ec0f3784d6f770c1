/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agora/feedclient"
	"agora/models"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

const (
	choiceMore    = "Load more"
	choiceRefresh = "Refresh"
	choiceView    = "Switch view"
	choiceQuit    = "Quit"
)

var (
	authorColor = color.New(color.FgCyan, color.Bold)
	metaColor   = color.New(color.FgHiBlack)
	errorColor  = color.New(color.FgRed)
	noticeColor = color.New(color.FgYellow)
)

func feedCmd() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Scroll through a feed in the terminal",
		Description: `Signs in to an agora server and prints a feed page by page.

		Without --pages the command asks what to do after every page: load
		more, refresh, switch to another view or quit. With --pages it loads
		that many pages and exits.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "Base URL of the agora API",
				EnvVars: []string{"AGORA_API_URL"},
				Value:   "http://localhost:3000",
			},
			&cli.StringFlag{
				Name:    "login",
				Aliases: []string{"u"},
				Usage:   "Email or username, prompted for when empty",
				EnvVars: []string{"AGORA_LOGIN"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Password, prompted for when empty",
				EnvVars: []string{"AGORA_PASSWORD"},
			},
			&cli.StringFlag{
				Name:  "view",
				Usage: "Feed view: for-you, following or a community id",
				Value: string(models.ViewForYou),
			},
			&cli.IntFlag{
				Name:  "pages",
				Usage: "Load this many pages and exit, zero asks after every page",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP request timeout",
				Value: 10 * time.Second,
			},
		},
		Action: func(ctx *cli.Context) error {
			fetcher := feedclient.NewHTTPFetcher(ctx.String("api"), ctx.Duration("timeout"))

			login := ctx.String("login")
			if login == "" {
				var err error
				login, err = prompt.New().Ask("Email or username:").Input("")
				if err != nil {
					return err
				}
			}
			password := ctx.String("password")
			if password == "" {
				var err error
				password, err = prompt.New().Ask("Password:").Input("", input.WithEchoMode(input.EchoNone))
				if err != nil {
					return err
				}
			}

			user, err := fetcher.SignIn(ctx.Context, login, password)
			if err != nil {
				return fmt.Errorf("could not sign in: %w", err)
			}
			fmt.Printf("Signed in as @%s\n", user.Handle)

			feed, err := feedclient.New(feedclient.Config[models.Post]{
				User:    user,
				Fetcher: fetcher,
				View:    models.View(ctx.String("view")),
			})
			if err != nil {
				return err
			}

			p := &printer{}
			feed.Mount(ctx.Context)
			p.print(feed.State())

			if pages := ctx.Int("pages"); pages > 0 {
				for i := 1; i < pages && feed.State().HasMore; i++ {
					feed.LoadMore(ctx.Context)
					p.print(feed.State())
				}
				return nil
			}

			return interact(ctx.Context, feed, p)
		},
	}
}

// interact asks what to do next until the user quits
func interact(ctx context.Context, feed *feedclient.Aggregator[models.Post], p *printer) error {
	for {
		choices := []string{choiceRefresh, choiceView, choiceQuit}
		if feed.State().HasMore {
			choices = append([]string{choiceMore}, choices...)
		}

		choice, err := prompt.New().Ask("Next:").Choose(choices)
		if err != nil {
			return err
		}

		switch choice {
		case choiceMore:
			feed.LoadMore(ctx)
		case choiceRefresh:
			p.reset()
			feed.Refresh(ctx)
		case choiceView:
			view, err := chooseView(ctx, feed)
			if err != nil {
				return err
			}
			if view != feed.State().View {
				p.reset()
				feed.SetActiveView(ctx, view)
			}
		case choiceQuit:
			return nil
		}
		p.print(feed.State())
	}
}

func chooseView(ctx context.Context, feed *feedclient.Aggregator[models.Post]) (models.View, error) {
	communities, err := feed.Communities(ctx)
	if err != nil {
		errorColor.Printf("Could not load communities: %v\n", err)
	}

	views := map[string]models.View{
		"For you":   models.ViewForYou,
		"Following": models.ViewFollowing,
	}
	names := []string{"For you", "Following"}
	for _, community := range communities {
		name := "Community: " + community.Name
		views[name] = models.View(community.Id)
		names = append(names, name)
	}

	choice, err := prompt.New().Ask("View:").Choose(names)
	if err != nil {
		return "", err
	}
	return views[choice], nil
}

// printer prints the items of a feed it has not printed yet
type printer struct {
	printed int
}

func (p *printer) reset() {
	p.printed = 0
}

func (p *printer) print(state feedclient.State[models.Post]) {
	if p.printed == 0 {
		noticeColor.Printf("== %s ==\n", state.View)
	}

	for _, post := range lo.Drop(state.Items, p.printed) {
		authorColor.Printf("@%s", post.Author.Handle)
		metaColor.Printf("  %s  %d likes  %d comments\n",
			post.CreatedAt.Local().Format("2006-01-02 15:04"),
			post.Count.Likes,
			post.Count.Comments,
		)
		fmt.Println(post.Text)
		if len(post.Images) > 0 {
			metaColor.Println(strings.Join(post.Images, "\n"))
		}
		fmt.Println()
	}
	p.printed = len(state.Items)

	switch {
	case state.LastError != nil:
		errorColor.Printf("Could not load the feed: %v\n", state.LastError)
	case !state.HasMore:
		noticeColor.Println("End of feed")
	}
}
