package admintools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"git.burrowchat.net/burrow/burrow/src/auth"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/votes"
	"git.burrowchat.net/burrow/burrow/src/website"
	"github.com/spf13/cobra"
)

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	website.WebsiteCommand.AddCommand(adminCommand)

	createUserCommand := &cobra.Command{
		Use:   "createuser [username]",
		Short: "Creates a new user",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			userAlreadyExists := true
			_, err := db.QueryOneScalar[int](ctx, conn,
				`
				SELECT id
				FROM forum_user
				WHERE LOWER(username) = LOWER($1)
				`,
				username,
			)
			if err != nil {
				if errors.Is(err, db.NotFound) {
					userAlreadyExists = false
				} else {
					panic(err)
				}
			}

			if userAlreadyExists {
				fmt.Printf("%s already exists. Please pick a different username.\n\n", username)
				os.Exit(1)
			}

			newUserID, err := db.QueryOneScalar[int](ctx, conn,
				`
				INSERT INTO forum_user (username)
				VALUES ($1)
				RETURNING id
				`,
				username,
			)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Created user %s with id %d\n\n", username, newUserID)
		},
	}
	adminCommand.AddCommand(createUserCommand)

	makeTokenCommand := &cobra.Command{
		Use:   "maketoken [username]",
		Short: "Issues a session token for a user",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			user, err := db.QueryOne[models.User](ctx, conn,
				`
				SELECT $columns
				FROM forum_user
				WHERE LOWER(username) = LOWER($1)
				`,
				username,
			)
			if err != nil {
				if errors.Is(err, db.NotFound) {
					fmt.Printf("User '%s' not found\n", username)
					os.Exit(1)
				}
				panic(err)
			}

			session, err := auth.CreateSession(ctx, conn, user.ID)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Token for %s (expires %s):\n%s\n", user.Username, session.ExpiresAt, session.ID)
		},
	}
	adminCommand.AddCommand(makeTokenCommand)

	makeAdminCommand := &cobra.Command{
		Use:   "makeadmin [username]",
		Short: "Grants a user admin rights",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			res, err := conn.Exec(ctx,
				"UPDATE forum_user SET admin = TRUE WHERE LOWER(username) = LOWER($1)",
				username,
			)
			if err != nil {
				panic(err)
			}
			if res.RowsAffected() == 0 {
				fmt.Printf("User not found.\n\n")
				os.Exit(1)
			}

			fmt.Printf("%s is now an admin.\n\n", username)
		},
	}
	adminCommand.AddCommand(makeAdminCommand)

	deactivateUserCommand := &cobra.Command{
		Use:   "deactivateuser [username]",
		Short: "Deactivates a user, hiding them and blocking their sessions",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			res, err := conn.Exec(ctx,
				"UPDATE forum_user SET deactivated_at = NOW() WHERE LOWER(username) = LOWER($1) AND deactivated_at IS NULL",
				username,
			)
			if err != nil {
				panic(err)
			}
			if res.RowsAffected() == 0 {
				fmt.Printf("User not found, or already deactivated.\n\n")
				os.Exit(1)
			}

			fmt.Printf("%s has been deactivated.\n\n", username)
		},
	}
	adminCommand.AddCommand(deactivateUserCommand)

	createTopicCommand := &cobra.Command{
		Use:   "createtopic [slug] [name]",
		Short: "Creates a new topic",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a slug and a name.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			slug := args[0]
			name := args[1]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			topicID, err := db.QueryOneScalar[int](ctx, conn,
				`
				INSERT INTO topic (slug, name)
				VALUES ($1, $2)
				RETURNING id
				`,
				slug, name,
			)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Created topic %s with id %d\n\n", slug, topicID)
		},
	}
	adminCommand.AddCommand(createTopicCommand)

	recountVotesCommand := &cobra.Command{
		Use:   "recountvotes [user id]...",
		Short: "Recomputes vote counts and reputation from the vote table",
		Long:  "Recomputes every post and comment vote count, then reputation for the given users (or all users if none are given).",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			var userIDs []int
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil {
					fmt.Printf("'%s' is not a user id.\n\n", arg)
					os.Exit(1)
				}
				userIDs = append(userIDs, id)
			}
			if len(args) == 0 {
				var err error
				userIDs, err = db.QueryScalar[int](ctx, conn, "SELECT id FROM forum_user")
				if err != nil {
					panic(err)
				}
			}

			for _, table := range []string{"post", "comment"} {
				_, err := conn.Exec(ctx, fmt.Sprintf(
					`
					UPDATE %[1]s SET vote_count = COALESCE((
						SELECT SUM(vote.direction)
						FROM vote
						WHERE vote.target_id = %[1]s.id AND vote.target_kind = $1
					), 0)
					`,
					table,
				), table)
				if err != nil {
					panic(err)
				}
			}

			for _, userID := range userIDs {
				err := votes.RecalculateReputation(ctx, conn, userID)
				if err != nil {
					panic(err)
				}
			}

			fmt.Printf("Recounted votes for %d users.\n\n", len(userIDs))
		},
	}
	adminCommand.AddCommand(recountVotesCommand)
}
