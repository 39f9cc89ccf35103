package bot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"fetchbot/internal/media"
)

const (
	textStart = "👋 Welcome to the video bot.\n\n" +
		"Send a link from any site that hosts video (YouTube, TikTok, Facebook, X, Vimeo, ...)\n" +
		"or a direct video link (.mp4 / .webm / .mov / .mkv).\n\n" +
		"The link is analyzed, then you will be asked to:\n" +
		"1️⃣ choose between 🎬 video and 🎧 audio.\n" +
		"2️⃣ pick a quality, when several are available.\n\n" +
		"📌 Protected platforms (Netflix, Shahid, ...) are blocked."

	textBanned       = "🚫 You have been banned from using this bot."
	textMalformed    = "❌ Please send a valid link starting with http or https."
	textBlocked      = "⛔ This site is protected or unsupported (such as paid streaming platforms) and cannot be handled."
	textAnalyzing    = "🔍 Analyzing the link..."
	textChooseType   = "Choose how you want to receive it:"
	textUnexpected   = "❌ An unexpected error occurred while processing the link."
	textExpired      = "⏳ The session has expired, please send the link again."
	textBusy         = "⏳ Your previous request is still being processed."
	textStale        = "This option is no longer available."
	textSuperseded   = "⏭️ A newer link was sent, this one was skipped."
	textPrepareAudio = "🎧 Preparing the audio, please wait..."
	textSingleVideo  = "🎬 Only one quality is available, sending the best quality automatically..."
	textChooseVideo  = "🎬 Choose the video quality:"
	textAutoQuality  = "⬇️ Downloading in the best available quality..."

	textAdminOnly = "❌ This command is for admins only."
	textBadID     = "❌ Invalid ID."

	maxTitleRunes  = 50
	maxDetailRunes = 300
)

// Summary is the metadata text shown once a link has been resolved.
func Summary(d *media.Descriptor, platform string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Found a video from: %s\n", platform)
	if d.Title != "" {
		fmt.Fprintf(&b, "📹 %s\n", ellipsize(d.Title, maxTitleRunes))
	}
	if d.Uploader != "" {
		fmt.Fprintf(&b, "👤 %s\n", d.Uploader)
	}
	if d.Duration > 0 {
		fmt.Fprintf(&b, "⏱️ %d:%02d\n", d.Duration/60, d.Duration%60)
	}
	return b.String()
}

func qualityNotice(height int) string {
	if height <= 0 {
		return textAutoQuality
	}
	return fmt.Sprintf("⬇️ Downloading in %dp...", height)
}

func resolutionFailed(err error) string {
	return "❌ " + detail(err)
}

// failureText is the single message reporting a failed delivery.
func failureText(out media.Outcome, audio bool, maxBytes int64) string {
	what := "video"
	if audio {
		what = "audio"
	}
	switch out.Reason {
	case media.ReasonFileTooLarge:
		if audio {
			return fmt.Sprintf("❌ The audio file is larger than %dMB and cannot be sent.", maxBytes>>20)
		}
		return fmt.Sprintf("❌ The video is larger than %dMB and cannot be sent.", maxBytes>>20)
	case media.ReasonAudioDownloadFailed, media.ReasonDownloadFailed:
		return fmt.Sprintf("❌ Failed to download the %s:\n%s", what, detail(out.Err))
	default:
		return fmt.Sprintf("❌ An error occurred while sending the %s.", what)
	}
}

// detail is the user-facing part of an error, without its reason tag.
func detail(err error) string {
	if err == nil {
		return "Could not handle the link."
	}
	var f *media.Failure
	if errors.As(err, &f) && f.Err != nil {
		err = f.Err
	}
	return ellipsize(err.Error(), maxDetailRunes)
}

func ellipsize(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
