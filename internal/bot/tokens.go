package bot

import (
	"strconv"
	"strings"

	"fetchbot/internal/media"
	"fetchbot/internal/session"
)

// Callback tokens carried by buttons.
const (
	TokenVideo       = "type_video"
	TokenAudio       = "type_audio"
	TokenQualityAuto = "q_auto"

	qualityPrefix = "q_"
)

// MaxQualityButtons is how many variants the quality keyboard offers.
const MaxQualityButtons = 4

// parseToken maps a callback token to a session event and the choice it
// carries. Quality tokens with an unparsable height mean auto.
func parseToken(data string) (session.Event, media.Choice, bool) {
	switch {
	case data == TokenAudio:
		return session.ChooseAudio, media.AudioChoice(), true
	case data == TokenVideo:
		return session.ChooseVideo, media.VideoChoice(0), true
	case strings.HasPrefix(data, qualityPrefix):
		h, err := strconv.Atoi(strings.TrimPrefix(data, qualityPrefix))
		if err != nil || h < 0 {
			h = 0
		}
		return session.ChooseQuality, media.VideoChoice(h), true
	default:
		return 0, media.Choice{}, false
	}
}

func qualityToken(height int) string {
	return qualityPrefix + strconv.Itoa(height)
}

func typeKeyboard() [][]Button {
	return [][]Button{{
		{Text: "🎬 Video", Data: TokenVideo},
		{Text: "🎧 Audio", Data: TokenAudio},
	}}
}

// qualityKeyboard offers the highest variants on one row and auto below.
func qualityKeyboard(d *media.Descriptor) [][]Button {
	var rows [][]Button
	var row []Button
	for _, v := range d.TopVariants(MaxQualityButtons) {
		row = append(row, Button{Text: strconv.Itoa(v.Height) + "p", Data: qualityToken(v.Height)})
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, []Button{{Text: "⭐ Best quality (auto)", Data: TokenQualityAuto}})
}
