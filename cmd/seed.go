/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"agora/auth"
	"agora/db"
	"agora/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const seedPassword = "password123"

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Fill the database with fake data",
		Description: fmt.Sprintf(`Creates fake users, communities, follows, posts, likes, comments
		and ads for local development. Every seeded user signs in with the
		password %q.`, seedPassword),
		Flags: append(dbFlags(),
			&cli.IntFlag{
				Name:  "users",
				Usage: "Number of users to create",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "posts",
				Usage: "Number of posts to create",
				Value: 200,
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "Random seed, zero picks one",
			},
		),
		Action: func(ctx *cli.Context) error {
			if seed := ctx.Int64("seed"); seed != 0 {
				if err := gofakeit.Seed(seed); err != nil {
					return err
				}
			}

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			return seed(ctx.Context, database, ctx.Int("users"), ctx.Int("posts"))
		},
	}
}

func seed(ctx context.Context, store db.Store, userCount, postCount int) error {
	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return err
	}

	var users []models.User
	for len(users) < userCount {
		handle := fakeHandle()
		user, err := store.CreateUser(ctx, models.User{
			Email:        gofakeit.Email(),
			Username:     handle,
			Handle:       handle,
			PasswordHash: hash,
			Bio:          truncate(gofakeit.HipsterSentence(), 160),
		})
		if errors.Is(err, db.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	if len(users) == 0 {
		return nil
	}

	var communities []models.Community
	for i := 0; i < 3; i++ {
		owner := users[i%len(users)]
		community, err := store.CreateCommunity(ctx, models.Community{
			Name:        fmt.Sprintf("%s %s", gofakeit.Adjective(), gofakeit.Noun()),
			Description: truncate(gofakeit.HipsterSentence(), 300),
		}, owner.Id)
		if errors.Is(err, db.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create community: %w", err)
		}
		communities = append(communities, community)
	}

	for _, user := range users {
		for _, other := range lo.Samples(users, gofakeit.Number(0, len(users)/2)) {
			if other.Id == user.Id {
				continue
			}
			if _, err := store.Follow(ctx, user.Id, other.Id); err != nil {
				return fmt.Errorf("follow: %w", err)
			}
		}
		for _, community := range communities {
			if gofakeit.Bool() {
				if _, err := store.JoinCommunity(ctx, community.Id, user.Id); err != nil {
					return fmt.Errorf("join community: %w", err)
				}
			}
		}
	}

	for i := 0; i < postCount; i++ {
		author := lo.Sample(users)
		post := models.Post{
			Text:      truncate(gofakeit.HipsterSentence(), 300),
			AuthorId:  author.Id,
			Languages: []string{"en"},
		}
		if len(communities) > 0 && gofakeit.Number(0, 2) == 0 {
			id := lo.Sample(communities).Id
			post.CommunityId = &id
		}

		created, err := store.CreatePost(ctx, post)
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}

		for _, fan := range lo.Samples(users, gofakeit.Number(0, 5)) {
			if _, err := store.LikePost(ctx, created.Id, fan.Id); err != nil {
				return fmt.Errorf("like post: %w", err)
			}
		}
		if gofakeit.Number(0, 3) == 0 {
			_, err := store.CreateComment(ctx, models.Comment{
				PostId:   created.Id,
				AuthorId: lo.Sample(users).Id,
				Text:     truncate(gofakeit.HipsterSentence(), 300),
			})
			if err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
		}
	}

	for i := 0; i < 3; i++ {
		_, err := store.CreateAd(ctx, models.Advertisement{
			Title:    truncate(gofakeit.Company(), 100),
			Content:  truncate(gofakeit.HipsterSentence(), 300),
			Link:     gofakeit.URL(),
			Active:   true,
			Priority: i,
		})
		if err != nil {
			return fmt.Errorf("create ad: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"users":       len(users),
		"communities": len(communities),
		"posts":       postCount,
	}).Info("Seeded database")
	return nil
}

// fakeHandle returns a random handle made of letters, digits and
// underscores
func fakeHandle() string {
	handle := strings.Map(func(r rune) rune {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return unicode.ToLower(r)
		}
		return -1
	}, gofakeit.Username())
	handle = truncate(handle, 26)
	return fmt.Sprintf("%s%d", handle, gofakeit.Number(100, 999))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
