package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const reportLimit = 10

// parseCommand splits "/cmd@bot args" into its command and argument text.
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	cmd, args, _ = strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(strings.TrimPrefix(cmd, "/"), "@")
	return strings.ToLower(cmd), strings.TrimSpace(args), cmd != ""
}

// isCommand reports whether cmd names a chat command. Anything else that
// starts with a slash is treated as a link submission.
func (h *Handler) isCommand(cmd string) bool {
	if cmd == "start" || cmd == "help" {
		return true
	}
	_, ok := h.adminCommands()[cmd]
	return ok
}

// runCommand executes the known command cmd.
func (h *Handler) runCommand(ctx context.Context, m Message, cmd, args string) {
	if cmd == "start" || cmd == "help" {
		h.say(ctx, m.ChatID, textStart)
		return
	}
	if !h.admins[m.From.ID] {
		h.say(ctx, m.ChatID, textAdminOnly)
		return
	}

	reply, err := h.adminCommands()[cmd](ctx, args)
	if err != nil {
		h.log.Error().Err(err).Str("command", cmd).Msg("admin command")
		reply = "❌ " + err.Error()
	}
	h.say(ctx, m.ChatID, reply)
}

type command func(ctx context.Context, args string) (string, error)

func (h *Handler) adminCommands() map[string]command {
	return map[string]command{
		"banuser":    h.cmdBanUser,
		"unbanuser":  h.cmdUnbanUser,
		"banurl":     h.cmdBanURL,
		"unbanurl":   h.cmdUnbanURL,
		"banlist":    h.cmdBanList,
		"statsdb":    h.cmdStats,
		"topdomains": h.cmdTopDomains,
		"topvideos":  h.cmdTopVideos,
	}
}

func parseID(args string) (int64, bool) {
	field, _, _ := strings.Cut(args, " ")
	id, err := strconv.ParseInt(field, 10, 64)
	return id, err == nil
}

func (h *Handler) cmdBanUser(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "Usage:\n/banuser <user_id>", nil
	}
	id, ok := parseID(args)
	if !ok {
		return textBadID, nil
	}
	if err := h.lists.Ban(ctx, id, "manual ban"); err != nil {
		return "", err
	}
	h.sessions.Delete(id)
	return fmt.Sprintf("✅ User ID=%d has been banned.", id), nil
}

func (h *Handler) cmdUnbanUser(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "Usage:\n/unbanuser <user_id>", nil
	}
	id, ok := parseID(args)
	if !ok {
		return textBadID, nil
	}
	if err := h.lists.Unban(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ User ID=%d has been unbanned.", id), nil
}

func (h *Handler) cmdBanURL(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "Usage:\n/banurl example.com", nil
	}
	domain := strings.ToLower(args)
	if err := h.lists.Block(ctx, domain, "manual block"); err != nil {
		return "", err
	}
	return "✅ Domain added to the block list:\n" + domain, nil
}

func (h *Handler) cmdUnbanURL(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "Usage:\n/unbanurl example.com", nil
	}
	domain := strings.ToLower(args)
	if err := h.lists.Unblock(ctx, domain); err != nil {
		return "", err
	}
	return "✅ Domain removed from the block list (if present):\n" + domain, nil
}

func (h *Handler) cmdBanList(ctx context.Context, _ string) (string, error) {
	users, err := h.store.BannedUsers(ctx)
	if err != nil {
		return "", err
	}
	domains, err := h.store.BlockedDomains(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📋 Ban list:\n\n👥 Banned users:\n")
	if len(users) == 0 {
		b.WriteString("No banned users.\n")
	}
	for _, u := range users {
		fmt.Fprintf(&b, "👤 %d | reason: %s | at: %s\n", u.TelegramID, dash(u.Reason), dash(u.BannedAt))
	}
	b.WriteString("\n🌐 Extra blocked domains:\n")
	if len(domains) == 0 {
		b.WriteString("No extra blocked domains.\n")
	}
	for _, d := range domains {
		fmt.Fprintf(&b, "🌐 %s | reason: %s | at: %s\n", d.Domain, dash(d.Reason), dash(d.AddedAt))
	}
	return b.String(), nil
}

func (h *Handler) cmdStats(ctx context.Context, _ string) (string, error) {
	st, err := h.store.Stats(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📊 Database statistics:\n\n")
	fmt.Fprintf(&b, "👥 Registered users: %d\n", st.Users)
	fmt.Fprintf(&b, "🔢 Total requests: %d\n\n", st.Requests)
	b.WriteString("🎬 By request type:\n")
	for _, k := range sortedKeys(st.ByAction) {
		fmt.Fprintf(&b, "  • %s: %d\n", k, st.ByAction[k])
	}
	b.WriteString("\n✅ By status:\n")
	for _, k := range sortedKeys(st.ByStatus) {
		fmt.Fprintf(&b, "  • %s: %d\n", k, st.ByStatus[k])
	}
	return b.String(), nil
}

func (h *Handler) cmdTopDomains(ctx context.Context, _ string) (string, error) {
	rows, err := h.store.TopDomains(ctx, reportLimit)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "ℹ️ Not enough domain data yet.", nil
	}
	var b strings.Builder
	b.WriteString("🌐 Most requested domains:\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "  • %s: %d requests\n", r.Domain, r.Requests)
	}
	return b.String(), nil
}

func (h *Handler) cmdTopVideos(ctx context.Context, _ string) (string, error) {
	rows, err := h.store.TopVideos(ctx, reportLimit)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "ℹ️ No videos recorded yet.", nil
	}
	var b strings.Builder
	b.WriteString("🎥 Most requested videos:\n\n")
	for _, r := range rows {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "• %s\n  🌐 %s | 🔁 used: %d\n  🔗 %s\n\n", truncateRunes(title, 40), dash(r.Domain), r.TimesUsed, r.URL)
	}
	return b.String(), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
