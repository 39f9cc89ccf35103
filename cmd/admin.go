package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fetchbot/internal/policy"
	"fetchbot/internal/store"
)

var banCmd = &cobra.Command{
	Use:   "ban <user-id> [reason]",
	Short: "Ban a Telegram user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return withLists(cmd.Context(), func(l *policy.Lists) error {
			if err := l.Ban(cmd.Context(), id, reasonArg(args, "manual ban")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Banned user %d\n", id)
			return nil
		})
	},
}

var unbanCmd = &cobra.Command{
	Use:   "unban <user-id>",
	Short: "Lift a user ban",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return withLists(cmd.Context(), func(l *policy.Lists) error {
			if err := l.Unban(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unbanned user %d\n", id)
			return nil
		})
	},
}

var blockCmd = &cobra.Command{
	Use:   "block <domain> [reason]",
	Short: "Block a domain",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain := strings.ToLower(strings.TrimSpace(args[0]))
		return withLists(cmd.Context(), func(l *policy.Lists) error {
			if err := l.Block(cmd.Context(), domain, reasonArg(args, "manual block")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Blocked %s\n", domain)
			return nil
		})
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <domain>",
	Short: "Unblock a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain := strings.ToLower(strings.TrimSpace(args[0]))
		return withLists(cmd.Context(), func(l *policy.Lists) error {
			if err := l.Unblock(cmd.Context(), domain); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unblocked %s\n", domain)
			return nil
		})
	},
}

var banlistCmd = &cobra.Command{
	Use:   "banlist",
	Short: "List banned users and blocked domains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *store.Store) error {
			users, err := st.BannedUsers(cmd.Context())
			if err != nil {
				return err
			}
			domains, err := st.BlockedDomains(cmd.Context())
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"users":   users,
					"domains": domains,
					"fixed":   policy.BaseBlockedDomains,
				})
			}

			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{strconv.FormatInt(u.TelegramID, 10), u.Reason, u.BannedAt})
			}
			render(cmd.OutOrStdout(), "Banned users", []string{"User", "Reason", "Since"}, rows)

			rows = make([][]string, 0, len(domains)+len(policy.BaseBlockedDomains))
			for _, d := range domains {
				rows = append(rows, []string{d.Domain, d.Reason, d.AddedAt})
			}
			for _, d := range policy.BaseBlockedDomains {
				rows = append(rows, []string{d, "fixed policy", ""})
			}
			render(cmd.OutOrStdout(), "Blocked domains", []string{"Domain", "Reason", "Since"}, rows)
			return nil
		})
	},
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

func reasonArg(args []string, fallback string) string {
	if len(args) < 2 {
		return fallback
	}
	return strings.Join(args[1:], " ")
}

// withStore opens the configured database for the duration of fn.
func withStore(ctx context.Context, fn func(*store.Store) error) error {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// withLists runs fn against list operations that write through to the database.
func withLists(ctx context.Context, fn func(*policy.Lists) error) error {
	return withStore(ctx, func(st *store.Store) error {
		return fn(policy.NewLists(st))
	})
}
